package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/codec"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/metrics"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/playback"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/render"
)

// Export failure sentinels. These are the only playback-related errors
// that surface to callers.
var (
	ErrExportInProgress = errors.New("an export is already in progress")
	ErrExport           = errors.New("export failed")
)

// Export is one finished capture: a single downloadable media file.
type Export struct {
	ID        string
	Filename  string
	Container Container
	Data      []byte
	Duration  time.Duration
}

// Pipeline records a full playback pass into a media file. It is a passive
// observer of the same surface and audio output a live viewer would see;
// all timing comes from the sequencer.
type Pipeline struct {
	seq         *playback.Sequencer
	surface     *render.Surface
	frameRate   int
	prober      Prober
	candidates  []Container
	newRecorder RecorderFactory
	logger      *slog.Logger
	metrics     *metrics.Metrics

	recording bool
	mu        sync.Mutex
}

// NewPipeline creates an export pipeline bound to one sequencer and its
// surface. m may be nil in tests.
func NewPipeline(seq *playback.Sequencer, surface *render.Surface, frameRate int,
	prober Prober, candidates []Container, factory RecorderFactory,
	logger *slog.Logger, m *metrics.Metrics) *Pipeline {

	return &Pipeline{
		seq:         seq,
		surface:     surface,
		frameRate:   frameRate,
		prober:      prober,
		candidates:  candidates,
		newRecorder: factory,
		logger:      logger,
		metrics:     m,
	}
}

// Recording reports whether an export is in flight.
func (p *Pipeline) Recording() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recording
}

// RecordSequence drives a full playback pass from segment 0 while recording
// the surface at the fixed frame rate and the audio output, and returns the
// finished media file. A second call while one is in flight is rejected
// with ErrExportInProgress. Any failure discards the partial recording and
// leaves the sequencer ready for a clean restart.
func (p *Pipeline) RecordSequence(ctx context.Context) (*Export, error) {
	p.mu.Lock()
	if p.recording {
		p.mu.Unlock()
		return nil, ErrExportInProgress
	}
	p.recording = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.recording = false
		p.mu.Unlock()
	}()

	if p.metrics != nil {
		p.metrics.RecordExportStarted()
	}

	started := time.Now()
	export, err := p.recordSequence(ctx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordExportFailed()
		}
		return nil, err
	}

	export.Duration = time.Since(started)
	if p.metrics != nil {
		p.metrics.RecordExportCompleted(export.Duration.Seconds(), len(export.Data))
	}

	return export, nil
}

func (p *Pipeline) recordSequence(ctx context.Context) (*Export, error) {
	// Capability probe happens exactly once, at export start.
	container, err := SelectContainer(ctx, p.prober, p.candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExport, err)
	}

	p.logger.Info("Export container selected",
		slog.String("container", container.Name),
		slog.String("video_codec", container.VideoCodec),
		slog.String("audio_codec", container.AudioCodec),
	)

	rec := p.newRecorder(container, p.surface.Width(), p.surface.Height(), p.frameRate)
	if err := rec.Start(ctx); err != nil {
		return nil, fmt.Errorf("%w: could not start recorder: %v", ErrExport, err)
	}

	obs := &captureObserver{recorder: rec, logger: p.logger}
	obs.finished = make(chan struct{})
	obs.stopped = make(chan struct{})

	p.seq.SetObserver(obs)
	defer p.seq.ClearObserver()

	// Snapshot the surface at the fixed frame rate for the whole pass.
	frameStop := make(chan struct{})
	var frameWG sync.WaitGroup
	frameWG.Add(1)
	go func() {
		defer frameWG.Done()
		ticker := time.NewTicker(time.Second / time.Duration(p.frameRate))
		defer ticker.Stop()
		for {
			select {
			case <-frameStop:
				return
			case <-ticker.C:
				if err := rec.WriteVideoFrame(p.surface.Snapshot()); err != nil {
					obs.fail(err)
					return
				}
			}
		}
	}()

	stopFrames := func() {
		close(frameStop)
		frameWG.Wait()
	}

	if err := p.seq.Start(0); err != nil {
		stopFrames()
		rec.Abort()
		return nil, fmt.Errorf("%w: could not start playback: %v", ErrExport, err)
	}

	select {
	case <-obs.finished:
		// Natural completion; the sequencer is already idle.
	case <-obs.stopped:
		stopFrames()
		rec.Abort()
		return nil, fmt.Errorf("%w: playback stopped before completion", ErrExport)
	case <-ctx.Done():
		p.seq.Stop()
		stopFrames()
		rec.Abort()
		return nil, fmt.Errorf("%w: %v", ErrExport, ctx.Err())
	}

	stopFrames()

	if err := obs.err(); err != nil {
		rec.Abort()
		return nil, fmt.Errorf("%w: recording failed mid-pass: %v", ErrExport, err)
	}

	data, err := rec.Finalize(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not finalize recording: %v", ErrExport, err)
	}

	id := uuid.NewString()
	export := &Export{
		ID:        id,
		Filename:  fmt.Sprintf("narration_%s.%s", id[:8], container.Extension),
		Container: container,
		Data:      data,
	}

	p.logger.Info("Export completed",
		slog.String("export_id", export.ID),
		slog.String("filename", export.Filename),
		slog.Int("size_bytes", len(export.Data)),
	)

	return export, nil
}

// captureObserver feeds sequencer events into the recorder. Timer-paced
// segments contribute silence of the fallback duration so the audio track
// stays aligned with the video track.
type captureObserver struct {
	recorder Recorder
	logger   *slog.Logger
	finished chan struct{}
	stopped  chan struct{}

	mu       sync.Mutex
	writeErr error
}

func (o *captureObserver) SegmentStarted(index int, audio *codec.Buffer, fallback time.Duration) {
	var pcm []byte
	if audio != nil {
		pcm = audio.Raw()
	} else {
		pcm = codec.Silence(fallback)
	}

	if err := o.recorder.WriteAudio(pcm); err != nil {
		o.logger.Warn("Failed to record segment audio",
			slog.Int("segment", index),
			slog.String("error", err.Error()),
		)
		o.fail(err)
	}
}

func (o *captureObserver) SequenceFinished() {
	close(o.finished)
}

func (o *captureObserver) SequenceStopped() {
	close(o.stopped)
}

func (o *captureObserver) fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.writeErr == nil {
		o.writeErr = err
	}
}

func (o *captureObserver) err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.writeErr
}
