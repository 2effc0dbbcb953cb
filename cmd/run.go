package cmd

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fredbot/fred/internal/discord"
	"github.com/fredbot/fred/internal/utils"
	"github.com/fredbot/fred/pkg/reconcile"
	"github.com/fredbot/fred/pkg/schedule"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runCmd implements: fred run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot and the daily check loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString("discord.token")
		if token == "" {
			return errors.New("no Discord token configured (discord.token / DISCORD_TOKEN)")
		}

		c, err := buildCore()
		if err != nil {
			return err
		}
		defer c.store.Close()

		// The bot needs the scheduler for /next and the scheduler needs
		// the bot to announce, so the announce closure resolves the bot
		// late. The scheduler does not start until the bot is assigned.
		var bot *discord.Bot
		sched, err := schedule.New(c.engine, c.store, func(res *reconcile.Result) { bot.Announce(res) }, schedule.Config{
			Interval: viper.GetDuration("schedule.interval"),
			At:       viper.GetString("schedule.time"),
			Location: c.loc,
		})
		if err != nil {
			return err
		}

		done := make(chan struct{})
		var once sync.Once
		shutdown := func() { once.Do(func() { close(done) }) }

		bot, err = discord.New(discord.Config{
			Token:   token,
			OwnerID: viper.GetString("discord.owner_id"),
			Channel: viper.GetString("discord.channel"),
		}, c.engine, c.store, c.confirm, sched, shutdown)
		if err != nil {
			return err
		}

		if err := bot.Start(); err != nil {
			return err
		}
		sched.Start()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
			utils.Log.Info("Signal received, shutting down")
		case <-done:
			utils.Log.Info("Shutdown requested, closing up")
		}

		sched.Stop()
		return bot.Stop()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
