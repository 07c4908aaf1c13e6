package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/voiceprint/pkg/config"
	"github.com/haivivi/voiceprint/pkg/voiceprint"
)

var (
	flagConfig string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:           "voiceprintd",
	Short:         "Speaker identification service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openStore builds the configured feature store backend.
func openStore(ctx context.Context, cfg *config.Config) (voiceprint.Store, error) {
	switch cfg.Store.Backend {
	case "badger":
		return voiceprint.NewBadgerStore(voiceprint.BadgerStoreOptions{
			Dir:       cfg.Store.Dir,
			Dimension: cfg.Model.Dimension,
		})
	case "postgres":
		return voiceprint.NewPGStore(ctx, cfg.Store.DSN, cfg.Model.Dimension)
	case "memory":
		return voiceprint.NewMemoryStore(cfg.Model.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
