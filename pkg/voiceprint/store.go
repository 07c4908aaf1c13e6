package voiceprint

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// Store persists one feature vector per identity key.
//
// Vectors are stored as their raw little-endian float32 byte sequence
// (4 bytes per dimension) and reconstructed on read with the exact
// dimensionality agreed process-wide. The store exclusively owns
// persisted vectors: an upsert replaces the whole blob, never mutates
// it in place, and is atomic per key (concurrent upserts on the same
// key race safely, last committed write wins).
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Upsert inserts or fully replaces the vector for key. Idempotent:
	// storing the same key+vector twice yields identical stored state.
	Upsert(ctx context.Context, key string, vec []float32) error

	// Fetch returns the vectors for the given keys. Missing keys are
	// silently omitted; an empty result means no candidates matched,
	// not failure. Storage failures are returned as errors, never
	// degraded to an empty result.
	Fetch(ctx context.Context, keys []string) (map[string][]float32, error)

	// FetchAll returns every stored vector. Intended for stats and
	// offline inspection only.
	FetchAll(ctx context.Context) (map[string][]float32, error)

	// Delete removes key and reports whether a record existed.
	// Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) (bool, error)

	// Count returns the number of enrolled identities.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// EncodeVector serializes vec as raw little-endian float32 bytes.
func EncodeVector(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeVector reconstructs a vector of the given dimensionality from
// raw little-endian float32 bytes. A byte length other than 4×dim is a
// fatal [ErrCorruptRecord] for that record.
func DecodeVector(b []byte, dim int) ([]float32, error) {
	if len(b) != 4*dim {
		return nil, fmt.Errorf("%w: blob is %d bytes, want %d for dimension %d",
			ErrCorruptRecord, len(b), 4*dim, dim)
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
