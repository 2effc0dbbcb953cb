package cmd

import (
	"fmt"

	"github.com/fredbot/fred/pkg/epic"
	"github.com/fredbot/fred/pkg/reconcile"
	"github.com/spf13/cobra"
)

// checkCmd implements: fred check
//
// One reconciliation from the terminal, no Discord session. Useful for
// smoke-testing credentials and for cron-style deployments.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one check against the store and print the delta",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		c, err := buildCore()
		if err != nil {
			return err
		}
		defer c.store.Close()

		trigger := reconcile.Manual
		if force {
			trigger = reconcile.Forced
		}

		res, err := c.engine.Reconcile(cmd.Context(), trigger, "")
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		printResult(res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("force", false, "Re-announce even when nothing changed")
}

func printResult(res *reconcile.Result) {
	if res.Outcome == reconcile.Unchanged {
		fmt.Println("Free games are the same as last check.")
		return
	}

	fmt.Println("Current free games:")
	for _, g := range res.Current {
		fmt.Printf("  %s\n", gameLine(g))
	}
	if len(res.NewUpcoming) > 0 {
		fmt.Println("New upcoming free games:")
		for _, g := range res.NewUpcoming {
			fmt.Printf("  %s\n", gameLine(g))
		}
	}
}

func gameLine(g epic.Game) string {
	title := g.Title
	if title == "" {
		title = "Unknown Game"
	}
	switch {
	case g.FreeUntil != nil:
		return fmt.Sprintf("%s (until %s)", title, g.FreeUntil.Format("2006-01-02 15:04"))
	case g.FreeFrom != nil:
		return fmt.Sprintf("%s (from %s)", title, g.FreeFrom.Format("2006-01-02 15:04"))
	default:
		return title
	}
}
