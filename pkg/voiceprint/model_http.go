package voiceprint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// HTTPModel implements [Model] against an embedding extractor sidecar.
// The sidecar hosts the acoustic network (and the GPU, if present) and
// exposes a single endpoint: POST the canonical WAV body, receive the
// embedding as JSON:
//
//	POST {endpoint}
//	Content-Type: audio/wav
//	→ 200 {"embedding": [0.013, -0.287, …]}
//
// HTTPModel holds no inference state of its own, but the sidecar runs
// one forward pass at a time, so calls still go through a [Gate].
type HTTPModel struct {
	endpoint string
	dim      int
	client   *http.Client
}

// HTTPModelOption configures an HTTPModel.
type HTTPModelOption func(*HTTPModel)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) HTTPModelOption {
	return func(m *HTTPModel) {
		if c != nil {
			m.client = c
		}
	}
}

// NewHTTPModel creates an HTTPModel for the given extractor endpoint
// and embedding dimension.
func NewHTTPModel(endpoint string, dim int, opts ...HTTPModelOption) *HTTPModel {
	m := &HTTPModel{
		endpoint: endpoint,
		dim:      dim,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Extract implements [Model].
func (m *HTTPModel) Extract(ctx context.Context, path string) ([]float32, error) {
	wavData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read canonical wav: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(wavData))
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extractor returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode extractor response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("extractor returned empty embedding")
	}
	return out.Embedding, nil
}

// Dimension implements [Model].
func (m *HTTPModel) Dimension() int {
	return m.dim
}

// Close implements [Model].
func (m *HTTPModel) Close() error {
	m.client.CloseIdleConnections()
	return nil
}
