package playback

import (
	"fmt"
	"time"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/codec"
)

// Sink is the audio output device. Play begins playback of a decoded buffer
// and arranges for done to be called exactly once when playback finishes
// naturally; releasing the returned handle stops playback without calling
// done. done must be invoked asynchronously, never from inside Play.
//
// There is deliberately no watchdog on completion: a sink that never fires
// done stalls the sequence. The sequencer trusts its backend.
type Sink interface {
	Play(buf *codec.Buffer, done func()) (Handle, error)
}

// RealtimeSink paces playback at wall-clock speed: a buffer of duration d
// completes after d has elapsed.
type RealtimeSink struct{}

// NewRealtimeSink creates a wall-clock paced sink.
func NewRealtimeSink() *RealtimeSink {
	return &RealtimeSink{}
}

// Play implements Sink.
func (k *RealtimeSink) Play(buf *codec.Buffer, done func()) (Handle, error) {
	if buf == nil || buf.NumSamples() == 0 {
		return nil, fmt.Errorf("cannot play empty audio buffer")
	}

	return &timerHandle{timer: time.AfterFunc(buf.Duration(), done)}, nil
}

// timerHandle wraps a pacing timer as a releasable handle.
type timerHandle struct {
	timer *time.Timer
}

// Release implements Handle.
func (h *timerHandle) Release() {
	h.timer.Stop()
}
