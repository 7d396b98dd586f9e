// Command careerhelper is the CareerHelper client core CLI: it hosts the
// local dev gateway, runs one-shot syncs, and runs the long-lived watcher
// that keeps the on-device store reconciled.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackyxhb/CareerHelper/internal/config"
	"github.com/jackyxhb/CareerHelper/internal/logging"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "careerhelper",
	Short: "Offline-first job search tracker",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cfg.LogFile != "" {
			logging.InitFile(cfg.LogFile, logging.LogLevel(cfg.LogLevel))
		} else {
			logging.Init(os.Stderr, logging.LogLevel(cfg.LogLevel))
		}
		return nil
	},
}

func main() {
	// Missing .env is fine; all settings have defaults.
	godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
