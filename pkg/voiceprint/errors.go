package voiceprint

import (
	"errors"

	"github.com/haivivi/voiceprint/pkg/audio/normalize"
)

// Sentinel errors.
var (
	// ErrEmptyIdentity is returned when an identity key is empty after
	// trimming whitespace.
	ErrEmptyIdentity = errors.New("voiceprint: empty identity key")

	// ErrNoCandidates is returned when an identification request carries
	// no usable candidate keys after trimming and deduplication.
	ErrNoCandidates = errors.New("voiceprint: no candidate identities")

	// ErrProviderNotReady indicates the embedding model was never
	// initialized. This is a process-level misconfiguration, not a
	// per-request condition.
	ErrProviderNotReady = errors.New("voiceprint: embedding provider not ready")

	// ErrInferenceFailed wraps errors raised by the embedding model
	// during a single extraction.
	ErrInferenceFailed = errors.New("voiceprint: inference failed")

	// ErrEmbedTimeout is returned when a request times out waiting for
	// the inference slot or while the model is running.
	ErrEmbedTimeout = errors.New("voiceprint: embedding timed out")

	// ErrDimensionMismatch indicates a vector whose dimensionality does
	// not match the process-wide embedding dimension.
	ErrDimensionMismatch = errors.New("voiceprint: embedding dimension mismatch")

	// ErrCorruptRecord indicates a stored feature vector blob whose byte
	// length does not reconstruct to the expected dimensionality.
	ErrCorruptRecord = errors.New("voiceprint: corrupt feature vector record")

	// ErrStoreUnavailable wraps underlying storage failures (connection
	// loss, timeouts). The process keeps running; the caller may retry.
	ErrStoreUnavailable = errors.New("voiceprint: feature store unavailable")
)

// Class partitions errors into the categories callers act on: bad
// input (reject the request), resource trouble (retry later), and data
// integrity (operator attention).
type Class int

const (
	// ClassInternal covers errors that fit no other class.
	ClassInternal Class = iota

	// ClassInput covers invalid requests: bad audio, empty identity,
	// empty candidate list. Always recoverable, never crash the process.
	ClassInput

	// ClassResource covers infrastructure failures: provider not ready,
	// storage unreachable, timeouts.
	ClassResource

	// ClassIntegrity covers data corruption: dimension mismatches and
	// corrupt stored blobs. Fatal for the affected record only.
	ClassIntegrity
)

func (c Class) String() string {
	switch c {
	case ClassInput:
		return "input"
	case ClassResource:
		return "resource"
	case ClassIntegrity:
		return "integrity"
	default:
		return "internal"
	}
}

// Classify maps an error from any stage of the pipeline to its Class.
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrEmptyIdentity),
		errors.Is(err, ErrNoCandidates),
		errors.Is(err, normalize.ErrDecode),
		errors.Is(err, normalize.ErrEmptyAudio),
		errors.Is(err, normalize.ErrSampleRateTooLow),
		errors.Is(err, normalize.ErrTooShort),
		errors.Is(err, normalize.ErrTooLong):
		return ClassInput
	case errors.Is(err, ErrProviderNotReady),
		errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrEmbedTimeout),
		errors.Is(err, ErrInferenceFailed):
		return ClassResource
	case errors.Is(err, ErrDimensionMismatch),
		errors.Is(err, ErrCorruptRecord):
		return ClassIntegrity
	default:
		return ClassInternal
	}
}
