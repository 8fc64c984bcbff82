// Package codec converts between the fixed raw-PCM encoding used by the
// upstream voice service and playable buffers or exportable WAV containers.
package codec
