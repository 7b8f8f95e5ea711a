/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	cacheCmd "github.com/mpapenbr/racedash/pkg/cmd/cache"
	migrateCmd "github.com/mpapenbr/racedash/pkg/cmd/migrate"
	renderCmd "github.com/mpapenbr/racedash/pkg/cmd/render"
	"github.com/mpapenbr/racedash/pkg/cmd/server"
	"github.com/mpapenbr/racedash/pkg/config"
	"github.com/mpapenbr/racedash/version"
)

const envPrefix = "RACEDASH"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "racedash",
	Short:   "Telemetry and strategy dashboard of a historical race",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:funlen // flag definitions
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.racedash.yml)")

	rootCmd.PersistentFlags().StringVar(&config.CacheDir, "cache-dir",
		"./cache",
		"directory of the on-disk session cache")
	rootCmd.PersistentFlags().StringVar(&config.DB, "db",
		"",
		"postgres connection string, replaces the sqlite cache if set")
	rootCmd.PersistentFlags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"info",
		"controls the log level for sql methods")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	rootCmd.PersistentFlags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules, for example 'debug:provider.* info:*'")
	rootCmd.PersistentFlags().StringVar(&config.Source,
		"source",
		config.SourceArchive,
		"session data source (archive, openf1)")
	rootCmd.PersistentFlags().StringVar(&config.ArchiveDir,
		"archive-dir",
		"./data",
		"root directory of recorded session archives")
	rootCmd.PersistentFlags().StringVar(&config.OpenF1URL,
		"openf1-url",
		"",
		"base url of the OpenF1 api (default is the public api)")
	rootCmd.PersistentFlags().StringVar(&config.StoryFile,
		"story",
		"",
		"story yaml file (default is the embedded Abu Dhabi 2021 story)")
	rootCmd.PersistentFlags().IntVar(&config.Year,
		"year",
		0,
		"overrides the year of the story session")
	rootCmd.PersistentFlags().StringVar(&config.Event,
		"event",
		"",
		"overrides the event of the story session")
	rootCmd.PersistentFlags().StringVar(&config.SessionType,
		"session",
		"",
		"overrides the session type of the story session")
	rootCmd.PersistentFlags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	rootCmd.PersistentFlags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout prints them)")

	// add commands here
	rootCmd.AddCommand(server.NewServerCmd())
	rootCmd.AddCommand(renderCmd.NewRenderCmd())
	rootCmd.AddCommand(cacheCmd.NewCacheCmd())
	rootCmd.AddCommand(migrateCmd.NewMigrateCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".racedash" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".racedash")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
		for _, sub := range cmd.Commands() {
			bindFlags(sub, viper.GetViper())
		}
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --cache-dir to RACEDASH_CACHE_DIR
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
