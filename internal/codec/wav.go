package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// WAVHeaderSize is the fixed size of the container header preceding the
// PCM payload.
const WAVHeaderSize = 44

// WAVHeader represents the 44-byte header of the exported audio container.
// The layout is bit-exact for interoperability with standard audio tools.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + payload length
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for uncompressed PCM
	NumChannels   uint16  // 1 (mono)
	SampleRate    uint32  // 24000
	ByteRate      uint32  // SampleRate * BlockAlign
	BlockAlign    uint16  // 2
	BitsPerSample uint16  // 16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload length
}

// EncodeWAV builds a minimal self-describing audio file: the fixed 44-byte
// header followed by the raw PCM payload verbatim.
func EncodeWAV(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}

	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrOddLength, len(raw))
	}

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + uint32(len(raw)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    SampleRate,
		ByteRate:      ByteRate,
		BlockAlign:    BlockAlign,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(raw)),
	}

	buf := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+len(raw)))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	if _, err := buf.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// EncodeWAVBase64 decodes a base64 PCM payload and wraps it in the audio
// file container.
func EncodeWAVBase64(rawBase64 string) ([]byte, error) {
	buf, err := Decode(rawBase64)
	if err != nil {
		return nil, err
	}

	return EncodeWAV(buf.Raw())
}

// Silence returns zeroed PCM bytes covering the given duration at the
// fixed sample rate, aligned to a whole sample.
func Silence(d time.Duration) []byte {
	if d <= 0 {
		return nil
	}
	n := int(int64(d) * ByteRate / int64(time.Second))
	n -= n % BlockAlign
	return make([]byte, n)
}
