package graphics

import (
	"github.com/gogpu/wgpu/hal"
)

// Window describes the presentation target the swapchain is sized against.
// The graphics package deliberately knows nothing about event loops or input;
// any windowing layer that can report its pixel size qualifies.
type Window interface {
	// Size returns the current drawable size in pixels.
	Size() (width, height int)
}

// Presenter is optionally implemented by windows that can display a rendered
// backbuffer. After a frame is submitted, the swapchain hands the backbuffer's
// texture view to Present; the window layer blits or flips it to the screen.
//
// Present returning an error that wraps ErrSurfaceLost triggers swapchain
// recovery on the next BeginFrame.
type Presenter interface {
	Present(view hal.TextureView) error
}

// NullWindow is a headless presentation target. Frames render into the
// swapchain backbuffers and presentation is a no-op. Used for tests and
// offscreen rendering.
type NullWindow struct {
	W, H int
}

// Size returns the configured drawable size, defaulting to 1x1 when unset.
func (w NullWindow) Size() (int, int) {
	width, height := w.W, w.H
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	return width, height
}

// Present implements Presenter as a no-op.
func (NullWindow) Present(hal.TextureView) error { return nil }
