package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/menmos/menmosd/pkg/config"
	"github.com/menmos/menmosd/pkg/directory"
	"github.com/menmos/menmosd/pkg/log"
	"github.com/menmos/menmosd/pkg/opshttp"
)

var (
	// Version information, set via ldflags during build.
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "menmosd",
	Short:   "menmosd - the menmos directory node",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("menmosd version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("data-dir", "", "override the configured data directory")
	rootCmd.PersistentFlags().String("bind-addr", "", "override the configured operational HTTP bind address")
	rootCmd.PersistentFlags().String("log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "force JSON log output")

	rootCmd.AddCommand(serveCmd)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("bind-addr"); v != "" {
		cfg.BindAddr = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = log.Level(v)
	}
	if v, _ := cmd.Flags().GetBool("log-json"); v {
		cfg.Log.JSONOutput = true
	}
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the directory node's indexing core and operational HTTP surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log.Init(log.Config{Level: cfg.Log.Level, JSONOutput: cfg.Log.JSONOutput})
		logger := log.WithComponent("main")

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory %q: %w", cfg.DataDir, err)
		}

		app, err := directory.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open directory: %w", err)
		}
		defer func() {
			if err := app.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close directory database cleanly")
			}
		}()

		ops := opshttp.New(func() error { return app.DB.Ping() })
		go func() {
			logger.Info().Str("addr", cfg.BindAddr).Msg("operational HTTP surface listening")
			if err := ops.Start(cfg.BindAddr); err != nil {
				logger.Error().Err(err).Msg("operational HTTP surface stopped")
			}
		}()

		logger.Info().Str("data_dir", cfg.DataDir).Msg("menmosd directory node ready")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("shutting down")
		return nil
	},
}
