package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"

	_ "image/jpeg" // format sniffing for frame stills
	_ "image/png"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/codec"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/script"
)

// ErrArchive is returned when artifact assembly fails. Partial archives are
// never returned.
var ErrArchive = errors.New("archive assembly failed")

// TranscriptName is the transcript entry inside the archive.
const TranscriptName = "script.txt"

// Exporter bundles a script's raw assets into a portable zip archive:
// transcript, frame stills, and per-segment audio files. It is independent
// of playback.
type Exporter struct {
	logger *slog.Logger
}

// NewExporter creates an archive exporter.
func NewExporter(logger *slog.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Build assembles the archive for a script. Every frame contributes a
// still named by zero-padded sequence number; every segment with decodable
// audio contributes a WAV file; segments without usable audio simply
// contribute no audio artifact.
func (e *Exporter) Build(scr *script.Script) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := e.writeTranscript(zw, scr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}

	if err := e.writeImages(zw, scr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}

	if err := e.writeAudio(zw, scr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}

	e.logger.Info("Archive built",
		slog.Int("segments", len(scr.Segments)),
		slog.Int("frames", len(scr.Frames)),
		slog.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// writeTranscript emits one line per segment with its resolved frame index
// and spoken text.
func (e *Exporter) writeTranscript(zw *zip.Writer, scr *script.Script) error {
	w, err := zw.Create(TranscriptName)
	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}

	for i := range scr.Segments {
		seg := &scr.Segments[i]
		resolved := script.ResolveFrameIndex(seg.FrameIndex, len(scr.Frames))
		if _, err := fmt.Fprintf(w, "[%03d] frame %03d: %s\n", i, resolved, seg.Text); err != nil {
			return fmt.Errorf("failed to write transcript line %d: %w", i, err)
		}
	}

	return nil
}

// writeImages emits every frame still, named by zero-padded sequence
// number with an extension matching the encoded format.
func (e *Exporter) writeImages(zw *zip.Writer, scr *script.Script) error {
	for i, frame := range scr.Frames {
		ext, err := imageExt(frame.Image)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}

		w, err := zw.Create(fmt.Sprintf("images/frame_%03d.%s", i, ext))
		if err != nil {
			return fmt.Errorf("failed to create image entry %d: %w", i, err)
		}
		if _, err := w.Write(frame.Image); err != nil {
			return fmt.Errorf("failed to write image %d: %w", i, err)
		}
	}

	return nil
}

// writeAudio emits a WAV file for every segment with decodable audio.
// Unusable audio is the same degraded mode playback tolerates; it is
// logged and skipped, never fatal.
func (e *Exporter) writeAudio(zw *zip.Writer, scr *script.Script) error {
	for i := range scr.Segments {
		seg := &scr.Segments[i]
		if !seg.HasAudio() {
			continue
		}

		wav, err := codec.EncodeWAVBase64(seg.AudioData)
		if err != nil {
			e.logger.Warn("Skipping undecodable segment audio",
				slog.Int("segment", i),
				slog.String("error", err.Error()),
			)
			continue
		}

		w, err := zw.Create(fmt.Sprintf("audio/segment_%03d.wav", i))
		if err != nil {
			return fmt.Errorf("failed to create audio entry %d: %w", i, err)
		}
		if _, err := w.Write(wav); err != nil {
			return fmt.Errorf("failed to write audio %d: %w", i, err)
		}
	}

	return nil
}

// imageExt sniffs the encoded still format and maps it to a filename
// extension.
func imageExt(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unrecognized image format: %w", err)
	}

	if format == "jpeg" {
		return "jpg", nil
	}
	return format, nil
}
