package cmd

import (
	"fmt"
	"os"

	"aistudio/config"
	"aistudio/logger"
	"aistudio/server"

	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "aistudio",
	Short:         "aistudio is the backend of a browser-based AI audio studio.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(loaded.Log.Level),
			OutputPath: loaded.Log.OutputPath,
			MaxSize:    loaded.Log.MaxSize,
			MaxBackups: loaded.Log.MaxBackups,
			MaxAge:     loaded.Log.MaxAge,
			Compress:   loaded.Log.Compress,
		}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
