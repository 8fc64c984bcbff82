// Package studio coordinates the single live narration session: script
// loading, playback, media export, and asset archiving over one shared
// presentation surface.
package studio
