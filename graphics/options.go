package graphics

import (
	"github.com/gogpu/gputypes"
)

// PowerPreference steers adapter selection when several GPUs are present.
type PowerPreference int

const (
	// PowerHighPerformance prefers discrete over integrated GPUs. Default.
	PowerHighPerformance PowerPreference = iota
	// PowerLowPower prefers integrated over discrete GPUs.
	PowerLowPower
)

// PresentMode selects how finished frames reach the screen.
type PresentMode int

const (
	// PresentModeMailbox replaces the queued frame with the newest one:
	// low latency without tearing. Default.
	PresentModeMailbox PresentMode = iota
	// PresentModeFifo queues frames and presents in order at VSync.
	PresentModeFifo
	// PresentModeImmediate presents without waiting for VSync. May tear.
	PresentModeImmediate
)

// String returns the present mode name for logging.
func (m PresentMode) String() string {
	switch m {
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// bufferCount returns the default swapchain depth for the mode:
// triple buffering for mailbox, double for the rest.
func (m PresentMode) bufferCount() int {
	if m == PresentModeMailbox {
		return 3
	}
	return 2
}

// DeviceOption configures a GraphicsDevice during creation.
type DeviceOption func(*deviceOptions)

// deviceOptions holds optional configuration for GraphicsDevice creation.
type deviceOptions struct {
	backend     gputypes.Backend
	power       PowerPreference
	presentMode PresentMode
	format      gputypes.TextureFormat
	bufferCount int
	provider    any // external device provider (HalDevice/HalQueue), nil when self-hosted
}

// defaultDeviceOptions returns the default device options: Vulkan backend,
// high-performance adapter, mailbox presentation, BGRA8 swapchain.
func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		backend:     gputypes.BackendVulkan,
		power:       PowerHighPerformance,
		presentMode: PresentModeMailbox,
		format:      gputypes.TextureFormatBGRA8Unorm,
	}
}

// WithBackend selects the HAL backend to create the instance on.
// The backend must have been registered (usually via a blank import).
func WithBackend(b gputypes.Backend) DeviceOption {
	return func(o *deviceOptions) { o.backend = b }
}

// WithPowerPreference steers adapter selection between discrete and
// integrated GPUs.
func WithPowerPreference(p PowerPreference) DeviceOption {
	return func(o *deviceOptions) { o.power = p }
}

// WithPresentMode selects the presentation mode. The swapchain buffer count
// follows the mode unless WithBufferCount overrides it.
func WithPresentMode(m PresentMode) DeviceOption {
	return func(o *deviceOptions) { o.presentMode = m }
}

// WithSurfaceFormat overrides the swapchain texture format.
// The default is BGRA8Unorm, which every presentation path supports.
func WithSurfaceFormat(f gputypes.TextureFormat) DeviceOption {
	return func(o *deviceOptions) { o.format = f }
}

// WithBufferCount overrides the number of swapchain backbuffers.
// Values below 2 are clamped to 2.
func WithBufferCount(n int) DeviceOption {
	return func(o *deviceOptions) { o.bufferCount = n }
}

// WithDeviceProvider adopts a GPU device owned by the host application
// instead of opening one. The provider must expose HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue (gogpu's GPU context
// provider does). Shared resources are not destroyed on Close.
func WithDeviceProvider(provider any) DeviceOption {
	return func(o *deviceOptions) { o.provider = provider }
}
