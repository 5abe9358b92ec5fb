// Root command for the orphanage CLI.
package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/orphanage/internal/paths"
	"github.com/mesh-intelligence/orphanage/pkg/orphanage"
)

// Exit codes.
const (
	exitSuccess = 0
	exitDefect  = 1
	exitError   = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDB        string
	flagBackend   string
	flagDSN       string
	flagDebug     bool
)

// cfg holds the configuration loaded by PersistentPreRunE so all subcommands
// can use it.
var cfg *viper.Viper

var rootCmd = &cobra.Command{
	Use:           "orphanage",
	Short:         "Orphanage reproduces orphan removal on custom identifier keys",
	Version:       orphanage.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := paths.ResolveConfigDir(flagConfigDir)
		if err != nil {
			return err
		}

		v, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		cfg = v
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "sqlite database file (default: :memory:)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "backend: sqlite or postgres (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "postgres connection string")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log every SQL statement")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(reproduceCmd)
	rootCmd.AddCommand(dumpCmd)
}
