package studio

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/archive"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/capture"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/metrics"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/playback"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/render"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/script"
)

// Session lifecycle sentinels.
var (
	ErrNoScript = errors.New("no script loaded")
	ErrBusy     = errors.New("session is busy")
)

// Options contains everything a Studio needs beyond the script itself.
type Options struct {
	Playback   playback.Config
	Sink       playback.Sink
	Width      int
	Height     int
	Background color.RGBA
	FrameRate  int
	Prober     capture.Prober
	Containers []capture.Container
	Recorder   capture.RecorderFactory
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Studio owns the single live narration session: the loaded script, its
// presentation surface, the playback sequencer, and the export pipeline.
// Playback, export, and the renderer all share one surface, so at most one
// session exists at a time and a new script replaces the previous session
// wholesale.
type Studio struct {
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Metrics
	exporter *archive.Exporter

	scr      *script.Script
	surface  *render.Surface
	seq      *playback.Sequencer
	pipeline *capture.Pipeline
	loadedAt time.Time

	mu sync.Mutex
}

// New creates a studio with no script loaded.
func New(opts Options) (*Studio, error) {
	if opts.Sink == nil || opts.Prober == nil || opts.Recorder == nil {
		return nil, fmt.Errorf("sink, prober and recorder factory are required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Studio{
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		exporter: archive.NewExporter(opts.Logger),
	}, nil
}

// LoadScript parses, validates, and installs a new script, replacing any
// previous session. Rejected while playback or an export is active.
func (st *Studio) LoadScript(data []byte) error {
	scr, err := script.Parse(data)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.busyLocked() {
		return fmt.Errorf("%w: cannot replace script during playback or export", ErrBusy)
	}

	surface, err := render.NewSurface(st.opts.Width, st.opts.Height, st.opts.Background)
	if err != nil {
		return fmt.Errorf("failed to create surface: %w", err)
	}

	renderer := render.NewRenderer(surface, scr.Frames, st.logger)
	seq := playback.NewSequencer(scr, renderer, st.opts.Sink, st.opts.Playback, st.logger, st.metrics)
	pipeline := capture.NewPipeline(seq, surface, st.opts.FrameRate, st.opts.Prober,
		st.opts.Containers, st.opts.Recorder, st.logger, st.metrics)

	st.scr = scr
	st.surface = surface
	st.seq = seq
	st.pipeline = pipeline
	st.loadedAt = time.Now()

	st.logger.Info("Script loaded",
		slog.Int("segments", len(scr.Segments)),
		slog.Int("frames", len(scr.Frames)),
	)

	return nil
}

// StartPlayback begins live playback at the given segment index.
func (st *Studio) StartPlayback(fromIndex int) error {
	st.mu.Lock()
	seq := st.seq
	pipeline := st.pipeline
	st.mu.Unlock()

	if seq == nil {
		return ErrNoScript
	}
	if pipeline.Recording() {
		return fmt.Errorf("%w: export in progress", ErrBusy)
	}

	return seq.Start(fromIndex)
}

// StopPlayback halts live playback. Stopping also aborts an export that is
// mid-pass, because the export records the live sequence.
func (st *Studio) StopPlayback() error {
	st.mu.Lock()
	seq := st.seq
	st.mu.Unlock()

	if seq == nil {
		return ErrNoScript
	}

	seq.Stop()
	return nil
}

// Export records a full playback pass into a single media file.
func (st *Studio) Export(ctx context.Context) (*capture.Export, error) {
	st.mu.Lock()
	seq := st.seq
	pipeline := st.pipeline
	st.mu.Unlock()

	if pipeline == nil {
		return nil, ErrNoScript
	}
	if seq.Status() == playback.StatusPlaying {
		return nil, fmt.Errorf("%w: live playback in progress", ErrBusy)
	}

	return pipeline.RecordSequence(ctx)
}

// BuildArchive bundles the loaded script's raw assets into a zip archive.
// Archives read only the script, never the surface, so this is allowed
// during playback.
func (st *Studio) BuildArchive() ([]byte, error) {
	st.mu.Lock()
	scr := st.scr
	st.mu.Unlock()

	if scr == nil {
		return nil, ErrNoScript
	}

	data, err := st.exporter.Build(scr)
	if err != nil {
		if st.metrics != nil {
			st.metrics.RecordArchiveFailed()
		}
		return nil, err
	}

	if st.metrics != nil {
		st.metrics.RecordArchiveBuilt(len(data))
	}
	return data, nil
}

// Info returns a session snapshot for monitoring and APIs.
func (st *Studio) Info() Info {
	st.mu.Lock()
	defer st.mu.Unlock()

	info := Info{Status: playback.StatusIdle.String()}
	if st.scr == nil {
		return info
	}

	info.ScriptLoaded = true
	info.Segments = len(st.scr.Segments)
	info.Frames = len(st.scr.Frames)
	info.LoadedAt = st.loadedAt
	info.Status = st.seq.Status().String()
	info.CurrentIndex = st.seq.CurrentIndex()
	info.Exporting = st.pipeline.Recording()
	return info
}

// busyLocked reports whether the live session holds a shared resource.
// Caller holds the lock.
func (st *Studio) busyLocked() bool {
	if st.seq == nil {
		return false
	}
	return st.seq.Status() == playback.StatusPlaying || st.pipeline.Recording()
}

// Info represents session information for monitoring and APIs
type Info struct {
	ScriptLoaded bool      `json:"script_loaded"`
	Segments     int       `json:"segments"`
	Frames       int       `json:"frames"`
	LoadedAt     time.Time `json:"loaded_at,omitempty"`
	Status       string    `json:"status"`
	CurrentIndex int       `json:"current_index"`
	Exporting    bool      `json:"exporting"`
}
