// Package render owns the drawing surface and paints narration frames
// onto it with contain-fit scaling.
package render
