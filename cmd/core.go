package cmd

import (
	"path/filepath"
	"time"

	"github.com/fredbot/fred/internal/utils"
	"github.com/fredbot/fred/pkg/epic"
	"github.com/fredbot/fred/pkg/reconcile"
	"github.com/fredbot/fred/pkg/state"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// core bundles the pieces both `run` and `check` need: the locked state
// store, the catalog client, and the reconcile engine wired together.
type core struct {
	store   *state.Store
	engine  *reconcile.Engine
	confirm *reconcile.Confirmations
	loc     *time.Location
}

func buildCore() (*core, error) {
	stateDir := viper.GetString("state.dir")
	if stateDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		stateDir = filepath.Join(home, ".fred")
	}

	loc, err := time.LoadLocation(viper.GetString("schedule.timezone"))
	if err != nil {
		utils.Log.Warnf("Unknown timezone %q, using local time: %v", viper.GetString("schedule.timezone"), err)
		loc = time.Local
	}

	store, err := state.Open(stateDir)
	if err != nil {
		return nil, err
	}

	client := epic.NewClient(epic.Config{
		URL:          viper.GetString("epic.url"),
		APIKey:       viper.GetString("epic.api_key"),
		BudgetPath:   filepath.Join(stateDir, "api_calls.json"),
		MonthlyLimit: viper.GetInt("epic.monthly_limit"),
		WarnAt:       viper.GetInt("epic.warn_at"),
	})

	confirm := reconcile.NewConfirmations(viper.GetDuration("confirm.window"))
	engine := reconcile.NewEngine(client, store, confirm, loc)

	return &core{store: store, engine: engine, confirm: confirm, loc: loc}, nil
}
