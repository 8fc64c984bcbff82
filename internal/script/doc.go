// Package script defines the narration wire types: segments, frames,
// and the parsing/validation of uploaded scripts.
package script
