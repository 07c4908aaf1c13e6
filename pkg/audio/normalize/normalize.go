// Package normalize validates raw WAV audio and converts it into the
// canonical form consumed by the embedding model: a temporary WAV file
// at the target sample rate with the source channel layout preserved.
//
// Validation happens in a fixed order so callers can reject bad input
// before any expensive work:
//
//  1. the bytes decode as a WAV container ([ErrDecode])
//  2. the sample data is non-empty ([ErrEmptyAudio])
//  3. the source sample rate meets the floor ([ErrSampleRateTooLow])
//  4. the duration is within bounds ([ErrTooShort] / [ErrTooLong])
//
// Only then is the audio resampled. Each channel is resampled
// independently with a band-limited resampler and the channels are
// reinterleaved in their original order. Audio already at the target
// rate is written out as-is.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"
)

// Sentinel errors, in validation order.
var (
	// ErrDecode means the input bytes are not a decodable WAV container.
	ErrDecode = errors.New("normalize: undecodable audio")

	// ErrEmptyAudio means the container decoded but holds no samples.
	ErrEmptyAudio = errors.New("normalize: empty audio")

	// ErrSampleRateTooLow means the source sample rate is below the
	// configured floor.
	ErrSampleRateTooLow = errors.New("normalize: sample rate too low")

	// ErrTooShort means the clip is shorter than the configured minimum.
	ErrTooShort = errors.New("normalize: audio too short")

	// ErrTooLong means the clip is longer than the configured maximum.
	ErrTooLong = errors.New("normalize: audio too long")
)

// Config controls validation bounds and the canonical output format.
// Zero fields take the documented defaults.
type Config struct {
	// TargetRate is the canonical sample rate in Hz. Default: 16000.
	TargetRate int

	// MinSourceRate is the lowest acceptable source sample rate in Hz.
	// Default: 8000.
	MinSourceRate int

	// MinDuration is the shortest acceptable clip. Default: 500ms.
	MinDuration time.Duration

	// MaxDuration is the longest acceptable clip. Default: 30s.
	MaxDuration time.Duration

	// TmpDir is the directory for canonical clip files.
	// Default: the system temp directory.
	TmpDir string
}

func (c Config) withDefaults() Config {
	if c.TargetRate <= 0 {
		c.TargetRate = 16000
	}
	if c.MinSourceRate <= 0 {
		c.MinSourceRate = 8000
	}
	if c.MinDuration <= 0 {
		c.MinDuration = 500 * time.Millisecond
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 30 * time.Second
	}
	return c
}

// Clip is a canonical audio artifact backed by a temporary WAV file.
// The caller that receives a Clip owns it and must call Release.
type Clip struct {
	// Path is the canonical WAV file at the target sample rate.
	Path string

	// SampleRate is the canonical rate in Hz.
	SampleRate int

	// Channels is the channel count, preserved from the source.
	Channels int

	// Duration is the source clip duration.
	Duration time.Duration

	released bool
}

// Release removes the backing temporary file. It is idempotent; only
// the first call can return an error.
func (c *Clip) Release() error {
	if c == nil || c.released {
		return nil
	}
	c.released = true
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("normalize: release clip: %w", err)
	}
	return nil
}

// Normalizer converts raw WAV bytes into canonical Clips.
// It is stateless and safe for concurrent use.
type Normalizer struct {
	cfg Config
}

// New creates a Normalizer with the given configuration.
func New(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg.withDefaults()}
}

// Normalize validates raw and emits a canonical Clip. On any error the
// temporary file, if already created, is removed before returning;
// a non-nil Clip is returned only on success.
func (n *Normalizer) Normalize(raw []byte) (*Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(raw))
	if !dec.IsValidFile() {
		return nil, ErrDecode
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	channels := buf.Format.NumChannels
	rate := buf.Format.SampleRate
	if channels <= 0 || rate <= 0 {
		return nil, ErrDecode
	}
	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, ErrEmptyAudio
	}
	if rate < n.cfg.MinSourceRate {
		return nil, fmt.Errorf("%w: %d Hz", ErrSampleRateTooLow, rate)
	}
	dur := time.Duration(frames) * time.Second / time.Duration(rate)
	if dur < n.cfg.MinDuration {
		return nil, fmt.Errorf("%w: %v", ErrTooShort, dur.Round(time.Millisecond))
	}
	if dur > n.cfg.MaxDuration {
		return nil, fmt.Errorf("%w: %v", ErrTooLong, dur.Round(time.Millisecond))
	}

	data := buf.Data
	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	if rate != n.cfg.TargetRate {
		data, err = resampleChannels(data, channels, bitDepth, rate, n.cfg.TargetRate)
		if err != nil {
			return nil, err
		}
	} else {
		// Already canonical rate: rescale samples to 16-bit, no resampling.
		data = rescale(data, bitDepth)
	}

	path, err := n.writeCanonical(data, channels)
	if err != nil {
		return nil, err
	}
	return &Clip{
		Path:       path,
		SampleRate: n.cfg.TargetRate,
		Channels:   channels,
		Duration:   dur,
	}, nil
}

// resampleChannels deinterleaves data, resamples each channel
// independently, and reinterleaves in the original channel order.
// Output samples are 16-bit.
func resampleChannels(data []int, channels, bitDepth, srcRate, dstRate int) ([]int, error) {
	scale := float64(int64(1) << (bitDepth - 1))
	frames := len(data) / channels

	resampled := make([][]float64, channels)
	minLen := -1
	for ch := range channels {
		in := make([]float64, frames)
		for f := range frames {
			in[f] = float64(data[f*channels+ch]) / scale
		}
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcRate),
			OutputRate: float64(dstRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("normalize: create resampler: %w", err)
		}
		out, err := rs.Process(in)
		if err != nil {
			return nil, fmt.Errorf("normalize: resample channel %d: %w", ch, err)
		}
		resampled[ch] = out
		if minLen < 0 || len(out) < minLen {
			minLen = len(out)
		}
	}

	out := make([]int, minLen*channels)
	for ch, samples := range resampled {
		for f := 0; f < minLen; f++ {
			out[f*channels+ch] = clampInt16(samples[f])
		}
	}
	return out, nil
}

// rescale converts samples of the given bit depth to 16-bit.
func rescale(data []int, bitDepth int) []int {
	if bitDepth == 16 {
		return data
	}
	shift := bitDepth - 16
	out := make([]int, len(data))
	for i, s := range data {
		if shift > 0 {
			out[i] = s >> shift
		} else {
			out[i] = s << -shift
		}
	}
	return out
}

func clampInt16(s float64) int {
	v := int(s * 32767.0)
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}

// writeCanonical writes interleaved 16-bit samples to a temp WAV file
// at the target rate. The file is removed on any write failure.
func (n *Normalizer) writeCanonical(data []int, channels int) (string, error) {
	f, err := os.CreateTemp(n.cfg.TmpDir, "voiceprint-*.wav")
	if err != nil {
		return "", fmt.Errorf("normalize: create temp file: %w", err)
	}
	path := f.Name()

	enc := wav.NewEncoder(f, n.cfg.TargetRate, 16, channels, 1)
	werr := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: n.cfg.TargetRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if werr == nil {
		werr = enc.Close()
	} else {
		enc.Close()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return "", fmt.Errorf("normalize: write canonical wav: %w", werr)
	}
	return path, nil
}
