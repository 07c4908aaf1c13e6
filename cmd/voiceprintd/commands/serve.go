package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/voiceprint/pkg/audio/normalize"
	"github.com/haivivi/voiceprint/pkg/config"
	"github.com/haivivi/voiceprint/pkg/httpapi"
	"github.com/haivivi/voiceprint/pkg/voiceprint"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API service",
	Long: `Run the voiceprint REST API service.

The service loads its configuration (creating it with defaults and a
generated API token on first run), opens the feature store, connects
to the embedding extractor, and serves until interrupted.

Example:
  voiceprintd serve --config data/voiceprint.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
	logger := slog.Default()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Shutting down...")
		cancel()
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	model := voiceprint.NewHTTPModel(cfg.Model.Endpoint, cfg.Model.Dimension)
	gate := voiceprint.NewGate(model,
		voiceprint.WithQueueTimeout(time.Duration(cfg.Model.QueueTimeoutSeconds)*time.Second),
		voiceprint.WithInferTimeout(time.Duration(cfg.Model.InferTimeoutSeconds)*time.Second),
	)
	norm := normalize.New(normalize.Config{
		TargetRate:    cfg.Voiceprint.TargetSampleRate,
		MinSourceRate: cfg.Voiceprint.MinSampleRate,
		MinDuration:   time.Duration(cfg.Voiceprint.MinClipSeconds * float64(time.Second)),
		MaxDuration:   time.Duration(cfg.Voiceprint.MaxClipSeconds * float64(time.Second)),
		TmpDir:        cfg.Voiceprint.TmpDir,
	})

	svc := voiceprint.NewService(norm, gate, store,
		voiceprint.WithThreshold(cfg.Voiceprint.SimilarityThreshold),
		voiceprint.WithStoreTimeout(time.Duration(cfg.Store.TimeoutSeconds)*time.Second),
		voiceprint.WithLogger(logger),
	)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("voiceprint service starting",
		"store", cfg.Store.Backend,
		"model", cfg.Model.Endpoint,
		"dimension", cfg.Model.Dimension,
		"threshold", cfg.Voiceprint.SimilarityThreshold,
	)
	return httpapi.New(svc, cfg.Server.Authorization, logger).ListenAndServe(ctx, cfg.Server.Addr)
}
