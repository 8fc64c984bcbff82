package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"

	_ "image/jpeg" // still decoders for uploaded frames
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/script"
)

// Renderer draws narration frames onto a surface using contain-fit scaling:
// aspect ratio preserved, never cropped, letterboxed against the surface
// background.
type Renderer struct {
	surface *Surface
	frames  []script.Frame
	logger  *slog.Logger

	// Decoded stills, keyed by frame index. Frames are immutable so the
	// cache never invalidates.
	decoded map[int]image.Image
	mu      sync.Mutex
}

// NewRenderer creates a renderer for the given frame list.
func NewRenderer(surface *Surface, frames []script.Frame, logger *slog.Logger) *Renderer {
	return &Renderer{
		surface: surface,
		frames:  frames,
		logger:  logger,
		decoded: make(map[int]image.Image),
	}
}

// Surface returns the drawing surface this renderer paints.
func (r *Renderer) Surface() *Surface {
	return r.surface
}

// FrameFor returns the frame a segment refers to, clamped to the frame
// list. It never fails for any frame index; upstream indices may be out of
// range and resolve to the nearest valid frame.
func (r *Renderer) FrameFor(seg *script.Segment) script.Frame {
	return r.frames[script.ResolveFrameIndex(seg.FrameIndex, len(r.frames))]
}

// Paint fills the surface with the background color and draws the frame's
// still centered at contain-fit scale.
func (r *Renderer) Paint(frame script.Frame) error {
	still, err := r.decodeFrame(frame)
	if err != nil {
		return fmt.Errorf("failed to decode frame %d: %w", frame.Index, err)
	}

	bounds := still.Bounds()
	iw, ih := bounds.Dx(), bounds.Dy()
	if iw == 0 || ih == 0 {
		return fmt.Errorf("frame %d has empty image", frame.Index)
	}

	sw, sh := r.surface.width, r.surface.height

	// Contain fit: the larger of the two ratios would crop, so take the min.
	scale := minFloat(float64(sw)/float64(iw), float64(sh)/float64(ih))
	dw := int(float64(iw) * scale)
	dh := int(float64(ih) * scale)
	x := (sw - dw) / 2
	y := (sh - dh) / 2

	r.surface.modify(func(img *image.RGBA) {
		draw.Draw(img, img.Bounds(), &image.Uniform{C: r.surface.bg}, image.Point{}, draw.Src)
		dst := image.Rect(x, y, x+dw, y+dh)
		xdraw.ApproxBiLinear.Scale(img, dst, still, bounds, xdraw.Over, nil)
	})

	r.logger.Debug("Painted frame",
		slog.Int("frame_index", frame.Index),
		slog.Int("scaled_width", dw),
		slog.Int("scaled_height", dh),
	)

	return nil
}

// decodeFrame decodes a frame's still image, caching the result.
func (r *Renderer) decodeFrame(frame script.Frame) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if img, ok := r.decoded[frame.Index]; ok {
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(frame.Image))
	if err != nil {
		return nil, err
	}

	r.decoded[frame.Index] = img
	return img, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
