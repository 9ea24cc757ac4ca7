package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pricewatch/internal/utils"
	"pricewatch/pkg/tracker"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	             _                       _       _
	 _ __  _ __(_) ___ _____      ____ _| |_ ___| |__
	| '_ \| '__| |/ __/ _ \ \ /\ / / _' | __/ __| '_ \
	| |_) | |  | | (_|  __/\ V  V / (_| | || (__| | | |
	| .__/|_|  |_|\___\___| \_/\_/ \__,_|\__\___|_| |_|
	|_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pricewatch",
	Short: "A quick-commerce price tracker with drop alerts.",
	Long: LOGO + `pricewatch captures product catalogs from quick-commerce listing pages,
tracks every price across runs in a local SQLite database, and reports
drops beyond your threshold, right from your command line.`,
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pricewatch.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".pricewatch")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.pricewatch.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("slack.webhook", "")
	viper.SetDefault("tracker.location", "560001")
	viper.SetDefault("tracker.threshold", tracker.DefaultThresholdPct)

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
