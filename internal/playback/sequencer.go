package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/codec"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/metrics"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/render"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/script"
)

// Status represents the sequencer state
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusStopped // transient after an explicit stop; collapses to idle on the next start
)

// String returns the status name for logging and APIs.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Handle is a live pacing resource for the active segment: either a playing
// audio source or an armed fallback timer. Release stops it without firing
// its completion callback.
type Handle interface {
	Release()
}

// Observer receives sequencer lifecycle events. The capture pipeline uses it
// to record the same output a live viewer would see. Callbacks run
// synchronously from the sequencer and must not call back into it.
type Observer interface {
	// SegmentStarted fires once per segment. audio is the decoded buffer
	// when the segment is audio-paced, nil when it is timer-paced; fallback
	// is the timer duration in the latter case.
	SegmentStarted(index int, audio *codec.Buffer, fallback time.Duration)

	// SequenceFinished fires on natural completion of the last segment.
	SequenceFinished()

	// SequenceStopped fires on an explicit stop.
	SequenceStopped()
}

// Config contains pacing parameters for segments without usable audio.
type Config struct {
	FallbackFloor time.Duration // minimum fallback duration
	PerWord       time.Duration // reading time budgeted per word
	CharsPerWord  int           // characters counted as one word
}

// DefaultConfig returns the reference pacing configuration: roughly one
// word (5 characters) per 300ms of speech with a 2-second floor.
func DefaultConfig() Config {
	return Config{
		FallbackFloor: 2 * time.Second,
		PerWord:       300 * time.Millisecond,
		CharsPerWord:  5,
	}
}

// FallbackDuration computes the timer-based substitute duration for a
// segment's text. The result never drops below the configured floor and is
// monotonically non-decreasing in text length.
func FallbackDuration(text string, cfg Config) time.Duration {
	words := len(text) / cfg.CharsPerWord
	d := time.Duration(words) * cfg.PerWord
	if d < cfg.FallbackFloor {
		return cfg.FallbackFloor
	}
	return d
}

// Sequencer is the segment playback state machine. It owns timing,
// advancement, and handle cleanup; at most one audio or timer handle is
// live at any instant, and the previous segment's handle is released
// before the next segment starts.
type Sequencer struct {
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	scr      *script.Script
	renderer *render.Renderer
	sink     Sink

	status    Status
	current   int
	session   uint64 // monotonically incrementing token guarding stale completions
	audio     Handle
	timer     *time.Timer
	observer  Observer
	startedAt time.Time

	mu sync.Mutex
}

// NewSequencer creates a sequencer for one script. m may be nil in tests.
func NewSequencer(scr *script.Script, renderer *render.Renderer, sink Sink,
	cfg Config, logger *slog.Logger, m *metrics.Metrics) *Sequencer {

	return &Sequencer{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		scr:      scr,
		renderer: renderer,
		sink:     sink,
		status:   StatusIdle,
	}
}

// SetObserver registers the single observer. Only one logical session may
// observe playback at a time.
func (s *Sequencer) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// ClearObserver removes the registered observer.
func (s *Sequencer) ClearObserver() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = nil
}

// Status returns the current playback status.
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentIndex returns the index of the active segment.
func (s *Sequencer) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SegmentCount returns the number of segments in the sequence.
func (s *Sequencer) SegmentCount() int {
	return len(s.scr.Segments)
}

// Start begins playback at the given segment index. A stopped sequencer
// collapses back to idle and restarts cleanly.
func (s *Sequencer) Start(fromIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusPlaying {
		return fmt.Errorf("playback already active at segment %d", s.current)
	}

	if fromIndex < 0 || fromIndex >= len(s.scr.Segments) {
		return fmt.Errorf("start index %d out of range [0,%d)", fromIndex, len(s.scr.Segments))
	}

	s.status = StatusPlaying
	s.startedAt = time.Now()

	s.logger.Info("Playback started",
		slog.Int("from_index", fromIndex),
		slog.Int("segments", len(s.scr.Segments)),
	)

	if s.metrics != nil {
		s.metrics.RecordPlaybackStarted()
	}

	s.playSegmentLocked(fromIndex)
	return nil
}

// Stop releases any active handle and halts playback without firing the
// pending completion. Safe to call in any state.
func (s *Sequencer) Stop() {
	s.mu.Lock()

	if s.status != StatusPlaying {
		s.mu.Unlock()
		return
	}

	s.releaseLocked()
	s.session++
	s.status = StatusStopped
	stoppedAt := s.current
	s.current = 0
	obs := s.observer
	s.mu.Unlock()

	s.logger.Info("Playback stopped", slog.Int("at_index", stoppedAt))

	if s.metrics != nil {
		s.metrics.RecordPlaybackStopped()
	}

	if obs != nil {
		obs.SequenceStopped()
	}
}

// playSegmentLocked begins segment i. Caller holds the lock.
func (s *Sequencer) playSegmentLocked(i int) {
	// Release the previous segment's handle before anything else; this is
	// what keeps two audio sources from ever overlapping.
	s.releaseLocked()

	s.session++
	token := s.session
	s.current = i
	seg := &s.scr.Segments[i]

	frame := s.renderer.FrameFor(seg)
	if err := s.renderer.Paint(frame); err != nil {
		s.logger.Warn("Failed to paint segment frame",
			slog.Int("segment", i),
			slog.Int("frame_index", frame.Index),
			slog.String("error", err.Error()),
		)
	}

	var buf *codec.Buffer
	if seg.HasAudio() {
		decoded, err := codec.Decode(seg.AudioData)
		if err != nil {
			// Recoverable by contract: unusable audio means timer pacing,
			// never a failed segment.
			s.logger.Warn("Audio decode failed, falling back to timer",
				slog.Int("segment", i),
				slog.String("error", err.Error()),
			)
			if s.metrics != nil {
				s.metrics.RecordDecodeError()
			}
		} else {
			buf = decoded
		}
	}

	if buf != nil {
		handle, err := s.sink.Play(buf, func() { s.onSegmentEnd(token) })
		if err != nil {
			s.logger.Warn("Audio playback refused to start, falling back to timer",
				slog.Int("segment", i),
				slog.String("error", err.Error()),
			)
			buf = nil
		} else {
			s.audio = handle

			s.logger.Debug("Segment playing via audio",
				slog.Int("segment", i),
				slog.Float64("duration", buf.Duration().Seconds()),
			)

			if s.metrics != nil {
				s.metrics.RecordSegmentPlayed(false)
			}

			if s.observer != nil {
				s.observer.SegmentStarted(i, buf, 0)
			}
			return
		}
	}

	d := FallbackDuration(seg.Text, s.cfg)
	s.timer = time.AfterFunc(d, func() { s.onSegmentEnd(token) })

	s.logger.Debug("Segment playing via fallback timer",
		slog.Int("segment", i),
		slog.Float64("duration", d.Seconds()),
	)

	if s.metrics != nil {
		s.metrics.RecordSegmentPlayed(true)
	}

	if s.observer != nil {
		s.observer.SegmentStarted(i, nil, d)
	}
}

// onSegmentEnd is the completion continuation for both pacing paths. A
// completion scheduled before an explicit stop, or belonging to a segment
// that is no longer active, must be a silent no-op.
func (s *Sequencer) onSegmentEnd(token uint64) {
	s.mu.Lock()

	if s.status != StatusPlaying || token != s.session {
		s.mu.Unlock()
		return
	}

	s.releaseLocked()

	if s.current < len(s.scr.Segments)-1 {
		s.playSegmentLocked(s.current + 1)
		s.mu.Unlock()
		return
	}

	// Natural completion of the last segment.
	s.session++
	s.status = StatusIdle
	s.current = 0
	elapsed := time.Since(s.startedAt)
	obs := s.observer
	s.mu.Unlock()

	s.logger.Info("Playback sequence completed",
		slog.Int("segments", len(s.scr.Segments)),
		slog.Duration("elapsed", elapsed),
	)

	if s.metrics != nil {
		s.metrics.RecordSequenceCompleted(elapsed.Seconds())
	}

	if obs != nil {
		obs.SequenceFinished()
	}
}

// releaseLocked releases whichever handle is live. Caller holds the lock.
func (s *Sequencer) releaseLocked() {
	if s.audio != nil {
		s.audio.Release()
		s.audio = nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
