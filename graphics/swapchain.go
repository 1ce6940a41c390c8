package graphics

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SwapchainDescriptor captures the configuration of the backbuffer ring.
// GraphicsDevice keeps it current across resizes and surface rebuilds.
type SwapchainDescriptor struct {
	Width       uint32
	Height      uint32
	Format      gputypes.TextureFormat
	PresentMode PresentMode
	BufferCount int
}

// backbuffer is one render target in the swapchain ring.
type backbuffer struct {
	tex  hal.Texture
	view hal.TextureView
}

// swapchain owns a ring of presentable render targets. The HAL layer has no
// OS surface object, so the swapchain holds the textures itself and the
// window layer presents the acquired view after submission.
type swapchain struct {
	device  hal.Device
	desc    SwapchainDescriptor
	buffers []backbuffer
	next    int
	frames  uint64
}

// newSwapchain creates the backbuffer ring described by desc. Width and
// height must already be clamped to at least 1.
func newSwapchain(device hal.Device, desc SwapchainDescriptor) (*swapchain, error) {
	if desc.BufferCount < 2 {
		desc.BufferCount = desc.PresentMode.bufferCount()
	}

	s := &swapchain{device: device, desc: desc}
	size := hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1}
	for i := 0; i < desc.BufferCount; i++ {
		tex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         fmt.Sprintf("swapchain_backbuffer_%d", i),
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        desc.Format,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			s.destroy()
			return nil, fmt.Errorf("create backbuffer %d: %w", i, err)
		}
		view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label: fmt.Sprintf("swapchain_backbuffer_%d_view", i),
		})
		if err != nil {
			device.DestroyTexture(tex)
			s.destroy()
			return nil, fmt.Errorf("create backbuffer %d view: %w", i, err)
		}
		s.buffers = append(s.buffers, backbuffer{tex: tex, view: view})
	}

	Logger().Debug("swapchain created",
		"width", desc.Width, "height", desc.Height,
		"buffers", desc.BufferCount, "mode", desc.PresentMode.String())
	return s, nil
}

// acquire returns the next backbuffer in the ring.
func (s *swapchain) acquire() backbuffer {
	b := s.buffers[s.next]
	s.next = (s.next + 1) % len(s.buffers)
	s.frames++
	return b
}

// destroy releases all backbuffers. Safe to call on a partially built ring.
func (s *swapchain) destroy() {
	for _, b := range s.buffers {
		if b.view != nil {
			s.device.DestroyTextureView(b.view)
		}
		if b.tex != nil {
			s.device.DestroyTexture(b.tex)
		}
	}
	s.buffers = nil
	s.next = 0
}
