package graphics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// GPUInfo describes the adapter a GraphicsDevice runs on.
type GPUInfo struct {
	Name       string
	DeviceType gputypes.DeviceType
	// Shared is true when the device was adopted from a host application
	// via WithDeviceProvider.
	Shared bool
}

// GraphicsDevice owns the GPU instance, logical device, queue, and the
// swapchain bound to a window. It hands out one FrameEncoder at a time;
// frames are strictly sequential.
//
// GraphicsDevice is safe for concurrent use, though the intended pattern is
// a single render goroutine driving the frame loop.
type GraphicsDevice struct {
	mu sync.Mutex

	window Window
	opts   deviceOptions

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	info     GPUInfo

	swapchain *swapchain
	desc      SwapchainDescriptor

	frame       *FrameEncoder // non-nil while a frame is in flight
	frameIndex  uint64
	surfaceLost bool // set when Present reports loss; BeginFrame rebuilds
	closed      bool

	// External surface target. When set, frames render into this view and
	// the host presents; the swapchain ring is bypassed.
	surfaceView   hal.TextureView
	surfaceWidth  uint32
	surfaceHeight uint32

	externalDevice bool // true when using shared device (don't destroy on Close)
}

// New creates a GraphicsDevice presenting to window. It selects a backend
// and adapter, opens a logical device, and builds a swapchain sized to the
// window. Errors wrap the package sentinels for classification.
func New(window Window, opts ...DeviceOption) (*GraphicsDevice, error) {
	if window == nil {
		window = NullWindow{}
	}
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	gd := &GraphicsDevice{window: window, opts: o}

	var err error
	if o.provider != nil {
		err = gd.adoptDevice(o.provider)
	} else {
		err = gd.initGPU()
	}
	if err != nil {
		return nil, err
	}

	w, h := clampSize(window.Size())
	gd.desc = SwapchainDescriptor{
		Width:       w,
		Height:      h,
		Format:      o.format,
		PresentMode: o.presentMode,
		BufferCount: o.bufferCount,
	}
	sc, err := newSwapchain(gd.device, gd.desc)
	if err != nil {
		gd.releaseDevice()
		return nil, fmt.Errorf("%w: %w", ErrDeviceCreationFailed, err)
	}
	gd.swapchain = sc
	gd.desc = sc.desc // pick up resolved buffer count

	Logger().Info("graphics device ready",
		"adapter", gd.info.Name,
		"deviceType", int(gd.info.DeviceType),
		"shared", gd.info.Shared,
		"format", int(gd.desc.Format),
		"mode", gd.desc.PresentMode.String())
	return gd, nil
}

// initGPU creates an instance on the configured backend, selects an adapter
// by power preference, and opens a logical device.
func (gd *GraphicsDevice) initGPU() error {
	backend, ok := hal.GetBackend(gd.opts.backend)
	if !ok {
		return fmt.Errorf("%w: backend %d not registered", ErrBackendUnavailable, gd.opts.backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("%w: create instance: %w", ErrBackendUnavailable, err)
	}
	gd.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		gd.instance = nil
		return fmt.Errorf("%w: enumeration returned none", ErrAdapterUnavailable)
	}
	selected := selectAdapter(adapters, gd.opts.power)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		gd.instance = nil
		return fmt.Errorf("%w: open %q: %w", ErrDeviceCreationFailed, selected.Info.Name, err)
	}
	gd.device = openDev.Device
	gd.queue = openDev.Queue
	gd.info = GPUInfo{Name: selected.Info.Name, DeviceType: selected.Info.DeviceType}
	return nil
}

// adoptDevice takes the device and queue from an external provider
// (e.g. a gogpu application context). Shared resources are never destroyed
// by Close.
func (gd *GraphicsDevice) adoptDevice(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("%w: provider does not expose HAL types", ErrDeviceCreationFailed)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrDeviceCreationFailed)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrDeviceCreationFailed)
	}
	gd.device = device
	gd.queue = queue
	gd.externalDevice = true
	gd.info = GPUInfo{Name: "shared", Shared: true}
	return nil
}

// selectAdapter picks an adapter by device type according to the power
// preference, falling back to the first enumerated adapter.
func selectAdapter(adapters []hal.ExposedAdapter, power PowerPreference) *hal.ExposedAdapter {
	order := []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU}
	if power == PowerLowPower {
		order[0], order[1] = order[1], order[0]
	}
	for _, dt := range order {
		for i := range adapters {
			if adapters[i].Info.DeviceType == dt {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

// BeginFrame acquires the next backbuffer and opens a command encoder for
// it. Only one frame may be in flight: call Finish or Abandon on the
// returned encoder before beginning the next frame.
//
// If the surface was lost since the previous frame, the swapchain is rebuilt
// once before acquiring; if the rebuild fails the error wraps ErrSurfaceLost.
func (gd *GraphicsDevice) BeginFrame() (*FrameEncoder, error) {
	gd.mu.Lock()
	defer gd.mu.Unlock()

	if gd.closed {
		return nil, ErrDeviceClosed
	}
	if gd.frame != nil {
		return nil, ErrFrameInFlight
	}
	if gd.surfaceLost {
		if err := gd.rebuildSwapchainLocked(); err != nil {
			return nil, fmt.Errorf("%w: rebuild after loss: %w", ErrSurfaceLost, err)
		}
		gd.surfaceLost = false
		Logger().Warn("surface lost, swapchain rebuilt",
			"width", gd.desc.Width, "height", gd.desc.Height)
	}

	var target backbuffer
	width, height := gd.desc.Width, gd.desc.Height
	external := gd.surfaceView != nil
	if external {
		target = backbuffer{view: gd.surfaceView}
		width, height = gd.surfaceWidth, gd.surfaceHeight
	} else {
		target = gd.swapchain.acquire()
	}
	gd.frameIndex++

	encoder, err := gd.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: fmt.Sprintf("frame_%d", gd.frameIndex),
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(fmt.Sprintf("frame_%d", gd.frameIndex)); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	f := &FrameEncoder{
		gd:       gd,
		device:   gd.device,
		queue:    gd.queue,
		encoder:  encoder,
		target:   target,
		width:    width,
		height:   height,
		index:    gd.frameIndex,
		external: external,
	}
	gd.frame = f
	Logger().Debug("frame begun", "frame", gd.frameIndex)
	return f, nil
}

// RenderFrame runs fn inside a frame. The frame is submitted when fn
// returns nil and discarded when fn returns an error or panics, so command
// recording never leaks across frames.
func (gd *GraphicsDevice) RenderFrame(fn func(*FrameEncoder) error) error {
	f, err := gd.BeginFrame()
	if err != nil {
		return err
	}
	done := false
	defer func() {
		if !done {
			f.Abandon()
		}
	}()
	if err := fn(f); err != nil {
		f.Abandon()
		done = true
		return err
	}
	err = f.Finish()
	done = true
	return err
}

// Resize rebuilds the swapchain for the new drawable size. Zero or negative
// dimensions are clamped to 1. Resizing to the current size is a no-op.
// Resize while a frame is in flight returns ErrFrameInFlight.
func (gd *GraphicsDevice) Resize(width, height int) error {
	gd.mu.Lock()
	defer gd.mu.Unlock()

	if gd.closed {
		return ErrDeviceClosed
	}
	if gd.frame != nil {
		return ErrFrameInFlight
	}

	w, h := clampSize(width, height)
	if w != uint32(width) || h != uint32(height) {
		Logger().Warn("resize clamped", "width", width, "height", height)
	}
	if w == gd.desc.Width && h == gd.desc.Height && gd.swapchain != nil {
		return nil
	}

	gd.desc.Width = w
	gd.desc.Height = h
	if err := gd.rebuildSwapchainLocked(); err != nil {
		return fmt.Errorf("resize swapchain: %w", err)
	}
	Logger().Info("swapchain resized", "width", w, "height", h)
	return nil
}

// rebuildSwapchainLocked tears down and recreates the backbuffer ring from
// the current descriptor. Callers hold gd.mu.
func (gd *GraphicsDevice) rebuildSwapchainLocked() error {
	if gd.swapchain != nil {
		gd.swapchain.destroy()
		gd.swapchain = nil
	}
	sc, err := newSwapchain(gd.device, gd.desc)
	if err != nil {
		return err
	}
	gd.swapchain = sc
	gd.desc = sc.desc
	return nil
}

// SetSurfaceTarget directs subsequent frames to render into an externally
// owned texture view (e.g. a gogpu window's surface) instead of the
// internal swapchain. The host owns the view and the presentation; the
// device will not destroy it. Call with a nil view to return to swapchain
// rendering.
func (gd *GraphicsDevice) SetSurfaceTarget(view hal.TextureView, width, height uint32) {
	gd.mu.Lock()
	defer gd.mu.Unlock()
	gd.surfaceView = view
	gd.surfaceWidth = width
	gd.surfaceHeight = height
}

// present hands the submitted backbuffer to the window layer. Surface loss
// is absorbed here and recovered on the next BeginFrame; other presentation
// errors propagate. Called without gd.mu held so the window's Present may
// call back into the device (Resize, SetSurfaceTarget).
func (gd *GraphicsDevice) present(view hal.TextureView) error {
	p, ok := gd.window.(Presenter)
	if !ok {
		return nil
	}
	err := p.Present(view)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSurfaceLost) {
		gd.mu.Lock()
		gd.surfaceLost = true
		gd.mu.Unlock()
		Logger().Warn("present reported surface loss", "error", err)
		return nil
	}
	return fmt.Errorf("present: %w", err)
}

// Device returns the logical GPU device. Valid until Close.
func (gd *GraphicsDevice) Device() hal.Device { return gd.device }

// Queue returns the submission queue. Valid until Close.
func (gd *GraphicsDevice) Queue() hal.Queue { return gd.queue }

// Info returns details of the adapter in use.
func (gd *GraphicsDevice) Info() GPUInfo { return gd.info }

// SwapchainDescriptor returns the current swapchain configuration.
func (gd *GraphicsDevice) SwapchainDescriptor() SwapchainDescriptor {
	gd.mu.Lock()
	defer gd.mu.Unlock()
	return gd.desc
}

// Close releases the swapchain, device, and instance in reverse creation
// order. An in-flight frame is discarded. Close is idempotent; adopted
// (shared) devices are released but not destroyed.
func (gd *GraphicsDevice) Close() {
	gd.mu.Lock()
	defer gd.mu.Unlock()

	if gd.closed {
		return
	}
	if gd.frame != nil {
		gd.frame.discardLocked()
		gd.frame = nil
	}
	if gd.swapchain != nil {
		gd.swapchain.destroy()
		gd.swapchain = nil
	}
	gd.releaseDevice()
	gd.closed = true
}

// releaseDevice destroys owned GPU resources; shared ones are only dropped.
func (gd *GraphicsDevice) releaseDevice() {
	if !gd.externalDevice {
		if gd.device != nil {
			gd.device.Destroy()
		}
		if gd.instance != nil {
			gd.instance.Destroy()
		}
	}
	gd.device = nil
	gd.queue = nil
	gd.instance = nil
}

// clampSize coerces drawable dimensions to at least 1x1.
func clampSize(width, height int) (uint32, uint32) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return uint32(width), uint32(height)
}
