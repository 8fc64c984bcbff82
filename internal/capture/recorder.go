package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/codec"
)

// Recorder accumulates the visual and audio output of a playback pass and
// concatenates it into a single media file on finalization.
type Recorder interface {
	// Start allocates recording resources.
	Start(ctx context.Context) error

	// WriteVideoFrame appends one surface snapshot to the video track.
	WriteVideoFrame(img *image.RGBA) error

	// WriteAudio appends raw PCM bytes to the audio track.
	WriteAudio(pcm []byte) error

	// Finalize muxes the accumulated tracks into the container and returns
	// the file contents. The recorder is spent afterwards.
	Finalize(ctx context.Context) ([]byte, error)

	// Abort discards all accumulated output and releases resources.
	Abort()
}

// RecorderFactory builds a recorder for one export. Injectable so tests can
// capture without ffmpeg.
type RecorderFactory func(c Container, width, height, frameRate int) Recorder

// FFmpegRecorder spools raw RGBA frames to disk and PCM to memory, then
// muxes them with ffmpeg into the selected container.
type FFmpegRecorder struct {
	ffmpegPath string
	container  Container
	width      int
	height     int
	frameRate  int

	dir        string
	framesFile *os.File
	frameCount int
	audio      bytes.Buffer
	started    bool

	mu sync.Mutex
}

// NewFFmpegRecorderFactory returns a factory producing ffmpeg-backed
// recorders using the given binary.
func NewFFmpegRecorderFactory(ffmpegPath string) RecorderFactory {
	return func(c Container, width, height, frameRate int) Recorder {
		return &FFmpegRecorder{
			ffmpegPath: ffmpegPath,
			container:  c,
			width:      width,
			height:     height,
			frameRate:  frameRate,
		}
	}
}

// Start implements Recorder.
func (r *FFmpegRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("recorder already started")
	}

	dir, err := os.MkdirTemp("", "narration-export-")
	if err != nil {
		return fmt.Errorf("failed to create recording workspace: %w", err)
	}

	framesFile, err := os.Create(filepath.Join(dir, "frames.raw"))
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("failed to create frame spool: %w", err)
	}

	r.dir = dir
	r.framesFile = framesFile
	r.started = true
	return nil
}

// WriteVideoFrame implements Recorder.
func (r *FFmpegRecorder) WriteVideoFrame(img *image.RGBA) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("recorder not started")
	}

	bounds := img.Bounds()
	if bounds.Dx() != r.width || bounds.Dy() != r.height {
		return fmt.Errorf("frame size %dx%d does not match recording size %dx%d",
			bounds.Dx(), bounds.Dy(), r.width, r.height)
	}

	if _, err := r.framesFile.Write(img.Pix); err != nil {
		return fmt.Errorf("failed to spool video frame: %w", err)
	}

	r.frameCount++
	return nil
}

// WriteAudio implements Recorder.
func (r *FFmpegRecorder) WriteAudio(pcm []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("recorder not started")
	}

	r.audio.Write(pcm)
	return nil
}

// Finalize implements Recorder.
func (r *FFmpegRecorder) Finalize(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil, fmt.Errorf("recorder not started")
	}
	defer r.cleanupLocked()

	if err := r.framesFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close frame spool: %w", err)
	}

	if r.frameCount == 0 {
		return nil, fmt.Errorf("no video frames captured")
	}

	args := []string{
		"-y", "-hide_banner",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", r.width, r.height),
		"-r", fmt.Sprintf("%d", r.frameRate),
		"-i", filepath.Join(r.dir, "frames.raw"),
	}

	if r.audio.Len() > 0 {
		wav, err := codec.EncodeWAV(r.audio.Bytes())
		if err != nil {
			return nil, fmt.Errorf("failed to build audio track: %w", err)
		}
		audioPath := filepath.Join(r.dir, "audio.wav")
		if err := os.WriteFile(audioPath, wav, 0644); err != nil {
			return nil, fmt.Errorf("failed to write audio track: %w", err)
		}
		args = append(args, "-i", audioPath, "-c:a", r.container.AudioCodec)
	}

	outPath := filepath.Join(r.dir, "out."+r.container.Extension)
	args = append(args,
		"-c:v", r.container.VideoCodec,
		"-pix_fmt", "yuv420p",
		"-f", r.container.Name,
		outPath,
	)

	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg mux failed: %w: %s", err, string(out))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read muxed output: %w", err)
	}

	return data, nil
}

// Abort implements Recorder.
func (r *FFmpegRecorder) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupLocked()
}

// cleanupLocked releases the spool. Caller holds the lock.
func (r *FFmpegRecorder) cleanupLocked() {
	if r.framesFile != nil {
		r.framesFile.Close()
		r.framesFile = nil
	}
	if r.dir != "" {
		os.RemoveAll(r.dir)
		r.dir = ""
	}
	r.started = false
}
