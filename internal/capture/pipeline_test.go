package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/codec"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/playback"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/render"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/script"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testScript(t *testing.T, segmentAudio []string) *script.Script {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test frame: %v", err)
	}

	s := &script.Script{
		Frames: []script.Frame{{Index: 0, Image: buf.Bytes()}},
	}
	for i, audio := range segmentAudio {
		s.Segments = append(s.Segments, script.Segment{
			Text:       fmt.Sprintf("narration for segment %d", i),
			FrameIndex: 0,
			AudioData:  audio,
		})
	}
	return s
}

// memRecorder captures in memory so pipeline tests run without ffmpeg.
type memRecorder struct {
	mu         sync.Mutex
	started    bool
	aborted    bool
	finalized  bool
	frameCount int
	audio      bytes.Buffer
	startErr   error
	finalErr   error
}

func (r *memRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.started = true
	return nil
}

func (r *memRecorder) WriteVideoFrame(img *image.RGBA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frameCount++
	return nil
}

func (r *memRecorder) WriteAudio(pcm []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio.Write(pcm)
	return nil
}

func (r *memRecorder) Finalize(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalErr != nil {
		return nil, r.finalErr
	}
	r.finalized = true
	return []byte("media-file"), nil
}

func (r *memRecorder) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = true
}

// staticProber supports a fixed set of container names.
type staticProber struct {
	supported map[string]bool
}

func (p *staticProber) Supports(ctx context.Context, c Container) bool {
	return p.supported[c.Name]
}

func newTestPipeline(t *testing.T, scr *script.Script, rec *memRecorder,
	prober Prober, candidates []Container) (*Pipeline, *playback.Sequencer) {
	t.Helper()

	surface, err := render.NewSurface(16, 16, color.RGBA{A: 255})
	if err != nil {
		t.Fatalf("NewSurface failed: %v", err)
	}

	renderer := render.NewRenderer(surface, scr.Frames, testLogger())
	cfg := playback.Config{FallbackFloor: 30 * time.Millisecond, PerWord: time.Millisecond, CharsPerWord: 5}
	seq := playback.NewSequencer(scr, renderer, playback.NewRealtimeSink(), cfg, testLogger(), nil)

	factory := func(c Container, width, height, frameRate int) Recorder { return rec }
	p := NewPipeline(seq, surface, 30, prober, candidates, factory, testLogger(), nil)
	return p, seq
}

func TestSelectContainerFirstSupportedWins(t *testing.T) {
	candidates := DefaultCandidates()

	prober := &staticProber{supported: map[string]bool{"webm": true, "mp4": true}}
	c, err := SelectContainer(context.Background(), prober, candidates)
	if err != nil {
		t.Fatalf("SelectContainer failed: %v", err)
	}
	if c.Name != "webm" {
		t.Errorf("Expected preferred container webm, got %s", c.Name)
	}

	prober = &staticProber{supported: map[string]bool{"mp4": true}}
	c, err = SelectContainer(context.Background(), prober, candidates)
	if err != nil {
		t.Fatalf("SelectContainer failed: %v", err)
	}
	if c.Name != "mp4" {
		t.Errorf("Expected fallback container mp4, got %s", c.Name)
	}
}

func TestSelectContainerNoneSupported(t *testing.T) {
	prober := &staticProber{supported: map[string]bool{}}
	if _, err := SelectContainer(context.Background(), prober, DefaultCandidates()); err == nil {
		t.Error("Expected error when no container is supported")
	}
}

func TestSelectContainerEmptyCandidates(t *testing.T) {
	prober := &staticProber{supported: map[string]bool{"webm": true}}
	if _, err := SelectContainer(context.Background(), prober, nil); err == nil {
		t.Error("Expected error for empty candidate list")
	}
}

func TestRecordSequenceProducesOneFile(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString(codec.Silence(50 * time.Millisecond))
	scr := testScript(t, []string{audio, audio})
	rec := &memRecorder{}
	prober := &staticProber{supported: map[string]bool{"webm": true}}

	p, seq := newTestPipeline(t, scr, rec, prober, DefaultCandidates())

	export, err := p.RecordSequence(context.Background())
	if err != nil {
		t.Fatalf("RecordSequence failed: %v", err)
	}

	if !bytes.Equal(export.Data, []byte("media-file")) {
		t.Error("Export did not carry the finalized recording")
	}
	if !strings.HasSuffix(export.Filename, ".webm") {
		t.Errorf("Filename suffix must match container, got %s", export.Filename)
	}
	if export.ID == "" {
		t.Error("Export missing ID")
	}

	// Both 50ms segments contributed audio.
	expectedAudio := 2 * len(codec.Silence(50*time.Millisecond))
	if rec.audio.Len() != expectedAudio {
		t.Errorf("Expected %d audio bytes, got %d", expectedAudio, rec.audio.Len())
	}

	if !rec.finalized {
		t.Error("Recorder was not finalized")
	}

	if got := seq.Status(); got != playback.StatusIdle {
		t.Errorf("Expected sequencer idle after export, got %v", got)
	}
}

func TestRecordSequenceWritesSilenceForFallbackSegments(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString(codec.Silence(40 * time.Millisecond))
	scr := testScript(t, []string{audio, ""}) // second segment timer-paced
	rec := &memRecorder{}
	prober := &staticProber{supported: map[string]bool{"webm": true}}

	p, _ := newTestPipeline(t, scr, rec, prober, DefaultCandidates())

	if _, err := p.RecordSequence(context.Background()); err != nil {
		t.Fatalf("RecordSequence failed: %v", err)
	}

	// The fallback segment contributes silence, so the audio track is
	// longer than the decoded audio alone.
	if rec.audio.Len() <= len(codec.Silence(40*time.Millisecond)) {
		t.Errorf("Fallback segment contributed no silence: %d audio bytes", rec.audio.Len())
	}
}

func TestConcurrentExportRejected(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString(codec.Silence(200 * time.Millisecond))
	scr := testScript(t, []string{audio})
	rec := &memRecorder{}
	prober := &staticProber{supported: map[string]bool{"webm": true}}

	p, _ := newTestPipeline(t, scr, rec, prober, DefaultCandidates())

	results := make(chan error, 1)
	go func() {
		_, err := p.RecordSequence(context.Background())
		results <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !p.Recording() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if _, err := p.RecordSequence(context.Background()); !errors.Is(err, ErrExportInProgress) {
		t.Errorf("Expected ErrExportInProgress, got %v", err)
	}

	if err := <-results; err != nil {
		t.Fatalf("First export failed: %v", err)
	}
}

func TestExportFailsWhenNoContainerSupported(t *testing.T) {
	scr := testScript(t, []string{""})
	rec := &memRecorder{}
	prober := &staticProber{supported: map[string]bool{}}

	p, seq := newTestPipeline(t, scr, rec, prober, DefaultCandidates())

	_, err := p.RecordSequence(context.Background())
	if !errors.Is(err, ErrExport) {
		t.Fatalf("Expected ErrExport, got %v", err)
	}

	if got := seq.Status(); got == playback.StatusPlaying {
		t.Error("Sequencer left playing after failed export")
	}
}

func TestExportFailsWhenRecorderCannotStart(t *testing.T) {
	scr := testScript(t, []string{""})
	rec := &memRecorder{startErr: fmt.Errorf("no capture device")}
	prober := &staticProber{supported: map[string]bool{"webm": true}}

	p, seq := newTestPipeline(t, scr, rec, prober, DefaultCandidates())

	_, err := p.RecordSequence(context.Background())
	if !errors.Is(err, ErrExport) {
		t.Fatalf("Expected ErrExport, got %v", err)
	}

	if got := seq.Status(); got == playback.StatusPlaying {
		t.Error("Sequencer left playing after failed export")
	}

	// A retry starts cleanly once the failure is cleared.
	rec.startErr = nil
	if _, err := p.RecordSequence(context.Background()); err != nil {
		t.Errorf("Retry after failed export did not start cleanly: %v", err)
	}
}

func TestExportAbortedByStop(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString(codec.Silence(500 * time.Millisecond))
	scr := testScript(t, []string{audio})
	rec := &memRecorder{}
	prober := &staticProber{supported: map[string]bool{"webm": true}}

	p, seq := newTestPipeline(t, scr, rec, prober, DefaultCandidates())

	results := make(chan error, 1)
	go func() {
		_, err := p.RecordSequence(context.Background())
		results <- err
	}()

	deadline := time.Now().Add(time.Second)
	for seq.Status() != playback.StatusPlaying && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	seq.Stop()

	err := <-results
	if !errors.Is(err, ErrExport) {
		t.Fatalf("Expected ErrExport after stop mid-export, got %v", err)
	}

	rec.mu.Lock()
	aborted := rec.aborted
	rec.mu.Unlock()
	if !aborted {
		t.Error("Partial recording was not discarded")
	}
}

func TestExportCancelledByContext(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString(codec.Silence(500 * time.Millisecond))
	scr := testScript(t, []string{audio})
	rec := &memRecorder{}
	prober := &staticProber{supported: map[string]bool{"webm": true}}

	p, seq := newTestPipeline(t, scr, rec, prober, DefaultCandidates())

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan error, 1)
	go func() {
		_, err := p.RecordSequence(ctx)
		results <- err
	}()

	deadline := time.Now().Add(time.Second)
	for seq.Status() != playback.StatusPlaying && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	cancel()

	if err := <-results; !errors.Is(err, ErrExport) {
		t.Fatalf("Expected ErrExport after cancellation, got %v", err)
	}

	if got := seq.Status(); got == playback.StatusPlaying {
		t.Error("Sequencer left playing after cancelled export")
	}
}
