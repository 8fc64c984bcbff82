package codec

import (
	"encoding/base64"
	"errors"
	"math"
	"testing"
	"time"
)

func TestDecodeNormalization(t *testing.T) {
	// Samples: 0, 16384 (0.5), -32768 (-1.0), 32767 (~0.99997)
	raw := []byte{
		0x00, 0x00,
		0x00, 0x40,
		0x00, 0x80,
		0xFF, 0x7F,
	}

	buf, err := Decode(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	expected := []float32{0, 0.5, -1.0, 32767.0 / 32768.0}
	samples := buf.Samples()

	if len(samples) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(samples))
	}

	for i, want := range expected {
		if math.Abs(float64(samples[i]-want)) > 1e-6 {
			t.Errorf("Sample %d: expected %f, got %f", i, want, samples[i])
		}
	}
}

func TestDecodeRangeInvariant(t *testing.T) {
	// Every normalized sample must fall in [-1.0, 1.0).
	raw := make([]byte, 512)
	for i := range raw {
		raw[i] = byte(i * 37)
	}

	buf, err := DecodeBytes(raw)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}

	for i, s := range buf.Samples() {
		if s < -1.0 || s >= 1.0 {
			t.Errorf("Sample %d out of range: %f", i, s)
		}
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, err := Decode("")
	if err == nil {
		t.Fatal("Expected error for empty payload")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}

func TestDecodeOddLength(t *testing.T) {
	_, err := Decode(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	if err == nil {
		t.Fatal("Expected error for odd-length payload")
	}
	if !errors.Is(err, ErrOddLength) {
		t.Errorf("Expected ErrOddLength, got %v", err)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("ErrOddLength should wrap ErrMalformed, got %v", err)
	}
}

func TestDecodeInvalidBase64(t *testing.T) {
	_, err := Decode("not base64!!!")
	if err == nil {
		t.Fatal("Expected error for invalid base64")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}

func TestBufferDuration(t *testing.T) {
	// One second of audio at 24kHz is 48000 bytes.
	raw := make([]byte, SampleRate*2)
	buf, err := DecodeBytes(raw)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}

	if buf.Duration() != time.Second {
		t.Errorf("Expected 1s duration, got %v", buf.Duration())
	}

	if buf.NumSamples() != SampleRate {
		t.Errorf("Expected %d samples, got %d", SampleRate, buf.NumSamples())
	}
}

func TestBufferRawVerbatim(t *testing.T) {
	raw := []byte{0x12, 0x34, 0x56, 0x78}
	buf, err := DecodeBytes(raw)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}

	got := buf.Raw()
	if len(got) != len(raw) {
		t.Fatalf("Expected %d raw bytes, got %d", len(raw), len(got))
	}
	for i := range raw {
		if got[i] != raw[i] {
			t.Errorf("Raw byte %d: expected 0x%02x, got 0x%02x", i, raw[i], got[i])
		}
	}
}
