// Package archive bundles a script's raw assets (stills, per-segment
// audio, transcript) into a portable zip archive.
package archive
