// Package capture records a full playback pass of the narration sequence
// into a single downloadable media file.
package capture
