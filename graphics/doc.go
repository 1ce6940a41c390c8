// Package graphics provides the GPU presentation layer for the sus client.
//
// It owns the lifetime of the GPU instance, adapter, logical device, queue,
// and a swapchain bound to a window, and exposes a small per-frame recording
// API built on gogpu/wgpu's HAL layer.
//
// # Frame loop
//
// The typical loop acquires a frame, records into it, and submits:
//
//	gd, err := graphics.New(win)
//	if err != nil { ... }
//	defer gd.Close()
//
//	quad, err := graphics.NewTexturedQuad(gd)
//	if err != nil { ... }
//	defer quad.Destroy()
//
//	for running {
//	    err := gd.RenderFrame(func(f *graphics.FrameEncoder) error {
//	        return quad.Render(f)
//	    })
//	    if err != nil { ... }
//	}
//
// RenderFrame guarantees the frame is either submitted or discarded on every
// exit path. The lower-level BeginFrame/Finish/Abandon API is available when
// recording spans multiple call sites.
//
// # Device sharing
//
// When the host application already owns a GPU device (e.g. a gogpu window),
// pass it in with WithDeviceProvider instead of letting the package open its
// own adapter. Shared devices are not destroyed on Close.
//
// The package produces no log output by default. Call SetLogger to enable
// adapter selection and frame lifecycle logging.
package graphics
