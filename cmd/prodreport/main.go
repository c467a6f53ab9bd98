package main

import (
	"fmt"
	"os"

	"github.com/DGISsoft/prodreport/env"
	"github.com/DGISsoft/prodreport/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "prodreport"

var (
	configPath string
	logLevel   string

	cfg *env.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "prodreport",
	Short: "Daily production reporting backend",
	Long: `prodreport serves the daily production report workflow: reporters
resume a draft, fill four sections in any order and submit once complete;
admins and viewers are notified live and by Web Push.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = env.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		log, err = logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd, vapidCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
