// Package config loads and validates the service configuration from a
// single YAML file. The file is created with documented defaults when
// missing, and a weak or absent API authorization token is replaced
// with a freshly generated one and written back, so a new deployment
// is secured without manual steps.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

// DefaultPath is where the service looks for its configuration unless
// told otherwise.
const DefaultPath = "data/voiceprint.yaml"

// minTokenLength is the shortest authorization token accepted as-is;
// anything shorter is regenerated.
const minTokenLength = 32

// Config is the root configuration structure, validated once at
// startup. All knobs the engine consumes live here; components receive
// typed values, never the raw file.
type Config struct {
	Server     Server     `yaml:"server"`
	Model      Model      `yaml:"model"`
	Store      Store      `yaml:"store"`
	Voiceprint Voiceprint `yaml:"voiceprint"`
}

// Server configures the REST listener.
type Server struct {
	// Addr is the listen address. Default: ":8005".
	Addr string `yaml:"addr"`

	// Authorization is the bearer token required on every API call.
	// Auto-generated when empty or shorter than 32 characters.
	Authorization string `yaml:"authorization"`
}

// Model configures the embedding extractor sidecar.
type Model struct {
	// Endpoint is the extractor URL. Default: "http://127.0.0.1:8006/extract".
	Endpoint string `yaml:"endpoint"`

	// Dimension is the embedding dimensionality. Default: 192.
	Dimension int `yaml:"dimension"`

	// QueueTimeoutSeconds bounds the wait for the inference slot.
	// Default: 10.
	QueueTimeoutSeconds int `yaml:"queue_timeout_seconds"`

	// InferTimeoutSeconds bounds a single extraction. Default: 30.
	InferTimeoutSeconds int `yaml:"infer_timeout_seconds"`
}

// Store configures feature vector persistence.
type Store struct {
	// Backend selects the storage engine: "badger", "postgres" or
	// "memory". Default: "badger".
	Backend string `yaml:"backend"`

	// Dir is the BadgerDB data directory. Default: "data/voiceprints".
	Dir string `yaml:"dir"`

	// DSN is the PostgreSQL connection string (postgres backend only).
	DSN string `yaml:"dsn"`

	// TimeoutSeconds bounds each storage call. Default: 5.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Voiceprint configures the matching engine itself.
type Voiceprint struct {
	// SimilarityThreshold is the minimum winning cosine similarity.
	// Default: 0.2.
	SimilarityThreshold float32 `yaml:"similarity_threshold"`

	// TargetSampleRate is the canonical rate in Hz. Default: 16000.
	TargetSampleRate int `yaml:"target_sample_rate"`

	// MinSampleRate is the lowest acceptable source rate in Hz.
	// Default: 8000.
	MinSampleRate int `yaml:"min_sample_rate"`

	// MinClipSeconds is the shortest acceptable clip. Default: 0.5.
	MinClipSeconds float64 `yaml:"min_clip_seconds"`

	// MaxClipSeconds is the longest acceptable clip. Default: 30.
	MaxClipSeconds float64 `yaml:"max_clip_seconds"`

	// TmpDir is the directory for canonical clip files. Empty means
	// the system temp directory.
	TmpDir string `yaml:"tmp_dir,omitempty"`
}

// Default returns the documented default configuration, without an
// authorization token (Load generates one).
func Default() Config {
	return Config{
		Server: Server{
			Addr: ":8005",
		},
		Model: Model{
			Endpoint:            "http://127.0.0.1:8006/extract",
			Dimension:           192,
			QueueTimeoutSeconds: 10,
			InferTimeoutSeconds: 30,
		},
		Store: Store{
			Backend:        "badger",
			Dir:            "data/voiceprints",
			TimeoutSeconds: 5,
		},
		Voiceprint: Voiceprint{
			SimilarityThreshold: 0.2,
			TargetSampleRate:    16000,
			MinSampleRate:       8000,
			MinClipSeconds:      0.5,
			MaxClipSeconds:      30,
		},
	}
}

// Load reads the configuration at path, creating it with defaults when
// absent. Unset fields take their defaults; an authorization token
// shorter than 32 characters is regenerated and the file rewritten.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run: fall through and write the defaults.
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyDefaults(&cfg)

	rewrite := errors.Is(err, os.ErrNotExist)
	if len(cfg.Server.Authorization) < minTokenLength {
		cfg.Server.Authorization = uuid.NewString()
		rewrite = true
	}
	if rewrite {
		if err := Save(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills zero fields so a sparse file still yields a
// complete configuration.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Model.Endpoint == "" {
		cfg.Model.Endpoint = def.Model.Endpoint
	}
	if cfg.Model.Dimension <= 0 {
		cfg.Model.Dimension = def.Model.Dimension
	}
	if cfg.Model.QueueTimeoutSeconds <= 0 {
		cfg.Model.QueueTimeoutSeconds = def.Model.QueueTimeoutSeconds
	}
	if cfg.Model.InferTimeoutSeconds <= 0 {
		cfg.Model.InferTimeoutSeconds = def.Model.InferTimeoutSeconds
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = def.Store.Dir
	}
	if cfg.Store.TimeoutSeconds <= 0 {
		cfg.Store.TimeoutSeconds = def.Store.TimeoutSeconds
	}
	if cfg.Voiceprint.SimilarityThreshold == 0 {
		cfg.Voiceprint.SimilarityThreshold = def.Voiceprint.SimilarityThreshold
	}
	if cfg.Voiceprint.TargetSampleRate <= 0 {
		cfg.Voiceprint.TargetSampleRate = def.Voiceprint.TargetSampleRate
	}
	if cfg.Voiceprint.MinSampleRate <= 0 {
		cfg.Voiceprint.MinSampleRate = def.Voiceprint.MinSampleRate
	}
	if cfg.Voiceprint.MinClipSeconds <= 0 {
		cfg.Voiceprint.MinClipSeconds = def.Voiceprint.MinClipSeconds
	}
	if cfg.Voiceprint.MaxClipSeconds <= 0 {
		cfg.Voiceprint.MaxClipSeconds = def.Voiceprint.MaxClipSeconds
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "badger", "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Store.DSN == "" {
		return errors.New("config: store.dsn is required for the postgres backend")
	}
	if t := c.Voiceprint.SimilarityThreshold; t < -1 || t > 1 {
		return fmt.Errorf("config: similarity_threshold %v outside [-1, 1]", t)
	}
	if c.Voiceprint.MinClipSeconds >= c.Voiceprint.MaxClipSeconds {
		return fmt.Errorf("config: min_clip_seconds %v must be below max_clip_seconds %v",
			c.Voiceprint.MinClipSeconds, c.Voiceprint.MaxClipSeconds)
	}
	if c.Voiceprint.MinSampleRate > c.Voiceprint.TargetSampleRate {
		return fmt.Errorf("config: min_sample_rate %d exceeds target_sample_rate %d",
			c.Voiceprint.MinSampleRate, c.Voiceprint.TargetSampleRate)
	}
	return nil
}
