package graphics

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// FrameEncoder records GPU work for a single frame. It is created by
// GraphicsDevice.BeginFrame and consumed by exactly one Finish or Abandon;
// Finish and Abandon return ErrFrameFinished on reuse.
//
// FrameEncoder is not safe for concurrent use; record from one goroutine.
type FrameEncoder struct {
	gd      *GraphicsDevice
	device  hal.Device
	queue   hal.Queue
	encoder hal.CommandEncoder
	target  backbuffer
	width   uint32
	height  uint32
	index   uint64

	// external marks a frame targeting a host-owned surface view; the host
	// presents it, so Finish skips the window's Present.
	external bool
	finished bool
}

// Queue returns the submission queue for intra-frame uploads
// (WriteBuffer/WriteTexture before the pass samples them).
func (f *FrameEncoder) Queue() hal.Queue { return f.queue }

// Encoder returns the underlying command encoder for recording passes.
func (f *FrameEncoder) Encoder() hal.CommandEncoder { return f.encoder }

// Target returns the texture view of the acquired backbuffer.
func (f *FrameEncoder) Target() hal.TextureView { return f.target.view }

// Size returns the backbuffer dimensions in pixels.
func (f *FrameEncoder) Size() (width, height uint32) { return f.width, f.height }

// Index returns the monotonically increasing frame number.
func (f *FrameEncoder) Index() uint64 { return f.index }

// Finish ends recording, submits the command buffer, waits for the GPU to
// retire it, and presents the backbuffer. Exactly one Finish or Abandon is
// allowed per frame; a second call returns ErrFrameFinished.
func (f *FrameEncoder) Finish() error {
	f.gd.mu.Lock()
	if f.finished {
		f.gd.mu.Unlock()
		return ErrFrameFinished
	}
	f.finished = true
	f.gd.frame = nil
	f.gd.mu.Unlock()

	cmdBuf, err := f.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer f.device.FreeCommandBuffer(cmdBuf)

	if _, err := f.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("submit frame %d: %w", f.index, err)
	}
	// Submission is synchronized inside the HAL; WaitIdle bounds the app
	// at one frame in flight before the backbuffer is presented.
	if err := f.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}

	Logger().Debug("frame submitted", "frame", f.index)
	if f.external {
		return nil
	}
	return f.gd.present(f.target.view)
}

// Abandon discards all recorded work without submitting. Used on error
// paths so a broken frame never reaches the queue.
func (f *FrameEncoder) Abandon() error {
	f.gd.mu.Lock()
	defer f.gd.mu.Unlock()

	if f.finished {
		return ErrFrameFinished
	}
	f.discardLocked()
	f.gd.frame = nil
	Logger().Debug("frame abandoned", "frame", f.index)
	return nil
}

// discardLocked drops the encoder's recording. Callers hold gd.mu.
func (f *FrameEncoder) discardLocked() {
	f.encoder.DiscardEncoding()
	f.finished = true
}
