// Package playback implements the segment sequencer: the state machine
// that advances through narration segments paced by decoded audio or a
// text-length fallback timer.
package playback
