package voiceprint

import "context"

// Model extracts speaker embedding vectors from canonical audio.
//
// The input is a path to a WAV file already normalized to the target
// sample rate (see the normalize package). The output is a dense
// float32 vector whose dimensionality is returned by Dimension().
//
// Typical implementations run a pretrained speaker verification
// network (e.g., CAM++, ERes2Net) that produces a fixed-length
// embedding per clip.
//
// # Lifecycle
//
// A Model is expensive to initialize (weight loading) and is created
// once at process start. It is NOT safe for concurrent invocation:
// all calls must go through a [Gate], which serializes them.
type Model interface {
	// Extract computes a speaker embedding from the WAV file at path.
	// The context carries the per-call deadline.
	Extract(ctx context.Context, path string) ([]float32, error)

	// Dimension returns the dimensionality of the embedding vectors
	// produced by Extract (e.g., 192).
	Dimension() int

	// Close releases any resources held by the model.
	Close() error
}
