// Package server implements the HTTP API for script loading, playback
// control, media export, asset archiving, and monitoring endpoints.
package server
