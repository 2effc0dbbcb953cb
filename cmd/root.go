package cmd

import (
	"fmt"
	"os"

	"github.com/fredbot/fred/internal/utils"
	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fred",
	Short: "Fred tracks free Epic Games Store games and announces them on Discord.",
	Long: `Fred polls the Epic Games Store free-games feed once per day, remembers
what it already announced, and posts only when the set of free games
actually changed.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fred.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A .env in the working directory is honored first, so a bare checkout
	// configured the old dotenv way keeps working.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".fred")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	_ = viper.BindEnv("discord.token", "DISCORD_TOKEN")
	_ = viper.BindEnv("discord.owner_id", "OWNER_ID")
	_ = viper.BindEnv("epic.api_key", "EPIC_API_KEY")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.fred.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.owner_id", "")
	viper.SetDefault("discord.channel", "free-games")
	viper.SetDefault("epic.url", "https://epic-games-store-free-games.p.rapidapi.com/free?country=PL")
	viper.SetDefault("epic.api_key", "")
	viper.SetDefault("epic.monthly_limit", 60)
	viper.SetDefault("epic.warn_at", 58)
	viper.SetDefault("schedule.time", "17:01")
	viper.SetDefault("schedule.timezone", "Europe/Warsaw")
	viper.SetDefault("schedule.interval", "15m")
	viper.SetDefault("confirm.window", "1m")
	viper.SetDefault("state.dir", "")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
