package voiceprint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempWAV(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write temp wav: %v", err)
	}
	return path
}

func TestHTTPModelExtract(t *testing.T) {
	want := []float32{0.1, -0.2, 0.3}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("Content-Type = %q, want audio/wav", ct)
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": want})
	}))
	defer srv.Close()

	m := NewHTTPModel(srv.URL, len(want))
	defer m.Close()

	got, err := m.Extract(context.Background(), writeTempWAV(t, []byte("RIFFdata")))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("embedding length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("embedding[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if m.Dimension() != len(want) {
		t.Errorf("Dimension = %d, want %d", m.Dimension(), len(want))
	}
}

func TestHTTPModelExtractorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewHTTPModel(srv.URL, 3)
	_, err := m.Extract(context.Background(), writeTempWAV(t, []byte("RIFFdata")))
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("error %q should carry status and body snippet", err)
	}
}

func TestHTTPModelEmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding": []}`))
	}))
	defer srv.Close()

	m := NewHTTPModel(srv.URL, 3)
	if _, err := m.Extract(context.Background(), writeTempWAV(t, []byte("RIFFdata"))); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestHTTPModelMissingFile(t *testing.T) {
	m := NewHTTPModel("http://127.0.0.1:0", 3)
	if _, err := m.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Fatal("expected error for missing clip file")
	}
}
