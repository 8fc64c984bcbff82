package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// Surface is the fixed-size drawing surface the narration is composed onto.
// It is a shared resource: the renderer paints it and the capture pipeline
// snapshots it, so access is serialized internally.
type Surface struct {
	width  int
	height int
	bg     color.RGBA
	img    *image.RGBA

	mu sync.Mutex
}

// NewSurface creates a surface of the given dimensions filled with the
// background color.
func NewSurface(width, height int, bg color.RGBA) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("surface dimensions must be positive, got %dx%d", width, height)
	}

	s := &Surface{
		width:  width,
		height: height,
		bg:     bg,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
	}
	s.clearLocked()

	return s, nil
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.width }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.height }

// Snapshot returns a copy of the current surface contents. The copy is
// safe to hand to a recorder while painting continues.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst := image.NewRGBA(s.img.Bounds())
	copy(dst.Pix, s.img.Pix)
	return dst
}

// modify runs fn with exclusive access to the backing image.
func (s *Surface) modify(fn func(img *image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.img)
}

// clearLocked fills the surface with the background color. Caller holds no
// lock during construction; afterwards use modify.
func (s *Surface) clearLocked() {
	draw.Draw(s.img, s.img.Bounds(), &image.Uniform{C: s.bg}, image.Point{}, draw.Src)
}
