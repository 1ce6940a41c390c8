package graphics

import "errors"

// Device and frame lifecycle errors. All failures reported by this package
// wrap one of these sentinels, so callers can classify with errors.Is and
// decide between retrying, rebuilding, and giving up.
var (
	// ErrBackendUnavailable is returned when no GPU backend is registered
	// (e.g. the Vulkan loader is missing on the host).
	ErrBackendUnavailable = errors.New("graphics: no GPU backend available")

	// ErrAdapterUnavailable is returned when the instance enumerates zero
	// adapters suitable for presentation.
	ErrAdapterUnavailable = errors.New("graphics: no suitable GPU adapter")

	// ErrDeviceCreationFailed is returned when opening a logical device on
	// the selected adapter fails.
	ErrDeviceCreationFailed = errors.New("graphics: device creation failed")

	// ErrSurfaceLost is returned when the presentation surface became
	// invalid and rebuilding the swapchain did not recover it. A resize or
	// window re-creation usually follows.
	ErrSurfaceLost = errors.New("graphics: surface lost")

	// ErrDeviceClosed is returned when operating on a closed GraphicsDevice.
	ErrDeviceClosed = errors.New("graphics: device is closed")

	// ErrFrameInFlight is returned by BeginFrame while a previous frame has
	// not been finished or abandoned. Frames are strictly sequential.
	ErrFrameInFlight = errors.New("graphics: frame already in flight")

	// ErrFrameFinished is returned when finishing or abandoning a frame
	// that was already submitted or discarded.
	ErrFrameFinished = errors.New("graphics: frame already finished")
)
