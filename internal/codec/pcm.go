package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// Fixed audio format shared with the upstream voice service. This adapter
// supports exactly this format and is not a general audio codec.
const (
	SampleRate    = 24000
	Channels      = 1
	BitsPerSample = 16
	BlockAlign    = Channels * BitsPerSample / 8
	ByteRate      = SampleRate * BlockAlign
)

// Decode failure sentinels. Callers must treat these as recoverable and
// fall back to timer-based pacing, never propagate them as fatal.
var (
	ErrMalformed    = errors.New("malformed pcm payload")
	ErrEmptyPayload = fmt.Errorf("%w: empty", ErrMalformed)
	ErrOddLength    = fmt.Errorf("%w: odd byte length", ErrMalformed)
)

// Buffer is a playable in-memory audio buffer: normalized samples for an
// output device plus the raw PCM bytes for export.
type Buffer struct {
	samples []float32
	raw     []byte
}

// Decode interprets a base64-encoded byte block as mono, 16-bit signed
// little-endian PCM at SampleRate and normalizes each sample to [-1.0, 1.0)
// by dividing by 32768.
func Decode(rawBase64 string) (*Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(rawBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrMalformed, err)
	}

	return DecodeBytes(raw)
}

// DecodeBytes builds a playable buffer from raw PCM bytes.
func DecodeBytes(raw []byte) (*Buffer, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}

	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrOddLength, len(raw))
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		// Little-endian int16, normalized by 32768
		s := int16(raw[i*2]) | int16(raw[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}

	return &Buffer{samples: samples, raw: raw}, nil
}

// Samples returns the normalized samples in [-1.0, 1.0).
func (b *Buffer) Samples() []float32 {
	return b.samples
}

// Raw returns the original PCM bytes verbatim.
func (b *Buffer) Raw() []byte {
	return b.raw
}

// NumSamples returns the sample count.
func (b *Buffer) NumSamples() int {
	return len(b.samples)
}

// Duration returns the playback duration of the buffer at SampleRate.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(len(b.samples)) * time.Second / SampleRate
}
