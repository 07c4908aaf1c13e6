package voiceprint

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/haivivi/voiceprint/pkg/audio/normalize"
)

// Service orchestrates the identification pipeline for the two entry
// points, Enroll and Identify, plus the administrative Delete and
// Count. It owns transient audio clips and verdicts for the duration
// of one request; the store owns everything persisted.
//
// Validation is front-loaded: requests that can be rejected from their
// parameters alone (empty identity, no candidates) fail before any
// audio is touched, and audio validation happens before the embedding
// model is invoked.
type Service struct {
	norm  *normalize.Normalizer
	gate  *Gate
	store Store

	threshold    float32
	storeTimeout time.Duration
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithThreshold sets the similarity threshold a winning candidate must
// meet (default 0.2).
func WithThreshold(t float32) ServiceOption {
	return func(s *Service) { s.threshold = t }
}

// WithStoreTimeout bounds each storage call, independent of the
// inference budget (default 5s). Zero disables the bound.
func WithStoreTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.storeTimeout = d }
}

// WithLogger sets the service logger (default slog.Default).
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService wires the pipeline components together. All three are
// constructed once at process start and injected; the service never
// reaches for ambient global state.
func NewService(norm *normalize.Normalizer, gate *Gate, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		norm:         norm,
		gate:         gate,
		store:        store,
		threshold:    0.2,
		storeTimeout: 5 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enroll binds identity to the voice in audio. Success persists
// exactly one vector; any failure persists nothing.
func (s *Service) Enroll(ctx context.Context, identity string, audio []byte) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return ErrEmptyIdentity
	}

	vec, err := s.embed(ctx, audio)
	if err != nil {
		return err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.store.Upsert(storeCtx, identity, vec); err != nil {
		s.logger.Error("enroll failed", "identity", identity, "class", Classify(err).String(), "error", err)
		return err
	}
	s.logger.Info("enrolled voiceprint", "identity", identity)
	return nil
}

// Identify decides which of the candidate identities produced the
// voice in audio. Candidates are trimmed and deduplicated first; an
// empty set fails fast with [ErrNoCandidates] before any audio work.
//
// A below-threshold best match is a successful call with an empty
// Winner and the true best score, not an error. Candidates that were
// never enrolled are simply absent from the score map.
func (s *Service) Identify(ctx context.Context, candidates []string, audio []byte) (Verdict, error) {
	keys := dedupeKeys(candidates)
	if len(keys) == 0 {
		return Verdict{}, ErrNoCandidates
	}

	vec, err := s.embed(ctx, audio)
	if err != nil {
		return Verdict{}, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	stored, err := s.store.Fetch(storeCtx, keys)
	if err != nil {
		s.logger.Error("candidate fetch failed", "class", Classify(err).String(), "error", err)
		return Verdict{}, err
	}

	verdict, err := BestMatch(vec, stored, s.threshold)
	if err != nil {
		s.logger.Error("matching failed", "class", Classify(err).String(), "error", err)
		return Verdict{}, err
	}
	if verdict.Winner == "" {
		s.logger.Info("no speaker identified", "candidates", len(keys), "best_score", verdict.Score)
	} else {
		s.logger.Info("speaker identified", "identity", verdict.Winner, "score", verdict.Score)
	}
	return verdict, nil
}

// Delete removes the voiceprint for identity and reports whether one
// existed.
func (s *Service) Delete(ctx context.Context, identity string) (bool, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return false, ErrEmptyIdentity
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	existed, err := s.store.Delete(storeCtx, identity)
	if err != nil {
		return false, err
	}
	if existed {
		s.logger.Info("deleted voiceprint", "identity", identity)
	}
	return existed, nil
}

// Count returns the number of enrolled identities.
func (s *Service) Count(ctx context.Context) (int, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.store.Count(storeCtx)
}

// embed runs the normalize → gate stages with the cleanup guarantee:
// the canonical clip is released on every path out of this function.
func (s *Service) embed(ctx context.Context, audio []byte) ([]float32, error) {
	clip, err := s.norm.Normalize(audio)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := clip.Release(); rerr != nil {
			s.logger.Warn("clip release failed", "path", clip.Path, "error", rerr)
		}
	}()

	vec, err := s.gate.Embed(ctx, clip.Path)
	if err != nil {
		s.logger.Error("embedding failed", "class", Classify(err).String(), "error", err)
		return nil, err
	}
	return vec, nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// dedupeKeys trims whitespace, drops empties, and deduplicates,
// returning keys in sorted order for deterministic downstream work.
func dedupeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Close shuts down the gate (and its model) and the store.
func (s *Service) Close() error {
	gerr := s.gate.Close()
	serr := s.store.Close()
	if gerr != nil {
		return fmt.Errorf("close model: %w", gerr)
	}
	if serr != nil {
		return fmt.Errorf("close store: %w", serr)
	}
	return nil
}
