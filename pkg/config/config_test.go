package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiceprint.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if cfg.Server.Addr != ":8005" {
		t.Errorf("Addr = %q, want :8005", cfg.Server.Addr)
	}
	if cfg.Model.Dimension != 192 {
		t.Errorf("Dimension = %d, want 192", cfg.Model.Dimension)
	}
	if cfg.Store.Backend != "badger" {
		t.Errorf("Backend = %q, want badger", cfg.Store.Backend)
	}
	if cfg.Voiceprint.SimilarityThreshold != 0.2 {
		t.Errorf("SimilarityThreshold = %v, want 0.2", cfg.Voiceprint.SimilarityThreshold)
	}
	if len(cfg.Server.Authorization) < 32 {
		t.Errorf("Authorization %q shorter than 32 characters", cfg.Server.Authorization)
	}

	// A second load returns the same generated token.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if again.Server.Authorization != cfg.Server.Authorization {
		t.Error("token regenerated on reload")
	}
}

func TestLoadSparseFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiceprint.yaml")
	sparse := `server:
  addr: ":9000"
  authorization: "0123456789abcdef0123456789abcdef"
voiceprint:
  similarity_threshold: 0.5
`
	if err := os.WriteFile(path, []byte(sparse), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000 preserved", cfg.Server.Addr)
	}
	if cfg.Voiceprint.SimilarityThreshold != 0.5 {
		t.Errorf("SimilarityThreshold = %v, want 0.5 preserved", cfg.Voiceprint.SimilarityThreshold)
	}
	if cfg.Model.Endpoint == "" || cfg.Store.Backend != "badger" {
		t.Errorf("defaults not filled: endpoint=%q backend=%q", cfg.Model.Endpoint, cfg.Store.Backend)
	}
	if cfg.Voiceprint.MaxClipSeconds != 30 {
		t.Errorf("MaxClipSeconds = %v, want default 30", cfg.Voiceprint.MaxClipSeconds)
	}
}

func TestLoadRegeneratesWeakToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiceprint.yaml")
	weak := "server:\n  authorization: \"short\"\n"
	if err := os.WriteFile(path, []byte(weak), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Authorization == "short" || len(cfg.Server.Authorization) < 32 {
		t.Errorf("weak token not regenerated: %q", cfg.Server.Authorization)
	}

	// The regenerated token is persisted.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), cfg.Server.Authorization) {
		t.Error("regenerated token not written back to file")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiceprint.yaml")
	if err := os.WriteFile(path, []byte("server: [not a mapping"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.Server.Authorization = strings.Repeat("x", 32)
		return cfg
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg = base()
	cfg.Store.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend accepted")
	}

	cfg = base()
	cfg.Store.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("postgres backend accepted without a DSN")
	}
	cfg.Store.DSN = "postgres://localhost/voiceprint"
	if err := cfg.Validate(); err != nil {
		t.Errorf("postgres backend with DSN rejected: %v", err)
	}

	cfg = base()
	cfg.Voiceprint.SimilarityThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("out-of-range threshold accepted")
	}

	cfg = base()
	cfg.Voiceprint.MinClipSeconds = 40
	if err := cfg.Validate(); err == nil {
		t.Error("min clip above max accepted")
	}

	cfg = base()
	cfg.Voiceprint.MinSampleRate = 48000
	if err := cfg.Validate(); err == nil {
		t.Error("min rate above target accepted")
	}
}
