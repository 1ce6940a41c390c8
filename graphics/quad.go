package graphics

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	xdraw "golang.org/x/image/draw"
)

// Embedded quad shader source.
//
//go:embed shaders/quad.wgsl
var quadShaderSource string

// quadVertexStride is the byte stride per vertex.
// Layout per vertex:
//
//	position  (vec2<f32>) = 8 bytes  (location 0)
//	tex_coord (vec2<f32>) = 8 bytes  (location 1)
//
// Total = 16 bytes per vertex.
const quadVertexStride = 16

// quadUniformSize is the byte size of the quad uniform buffer:
// one transform (mat4x4<f32>) = 64 bytes.
const quadUniformSize = 64

// quadIndexCount is the number of strip indices drawn per quad.
const quadIndexCount = 4

// clearColor is the render pass clear value: cornflower blue.
var clearColor = gputypes.Color{R: 100.0 / 255.0, G: 149.0 / 255.0, B: 237.0 / 255.0, A: 1}

// quadVertices is the full-screen quad in clip space, counter-clockwise
// from bottom-left, with texture coordinates flipped on V so the image's
// top row lands at the top of the screen.
var quadVertices = [4][4]float32{
	{-1, -1, 0, 1}, // bottom-left
	{-1, 1, 0, 0},  // top-left
	{1, 1, 1, 0},   // top-right
	{1, -1, 1, 1},  // bottom-right
}

// quadIndices orders the four vertices as a two-triangle strip.
var quadIndices = [4]uint16{0, 1, 3, 2}

// TexturedQuad renders a single transformed, textured quad that clears the
// frame to cornflower blue before drawing. It owns the render pipeline, the
// quad geometry buffers, and the bound resources: a 64-byte transform
// uniform, a texture (1x1 white until SetImage), and a linear sampler.
type TexturedQuad struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler

	vertBuf    hal.Buffer
	idxBuf     hal.Buffer
	uniformBuf hal.Buffer

	texture    hal.Texture
	texView    hal.TextureView
	texWidth   uint32
	texHeight  uint32
	bindGroup  hal.BindGroup
	boundCount int // bind group entries populated, must equal layout entries
}

// NewTexturedQuad builds the quad renderer on gd's device, targeting the
// swapchain format. Destroy releases it; the GraphicsDevice outlives it.
func NewTexturedQuad(gd *GraphicsDevice) (*TexturedQuad, error) {
	q := &TexturedQuad{
		device: gd.Device(),
		queue:  gd.Queue(),
		format: gd.SwapchainDescriptor().Format,
	}
	if err := q.createPipeline(); err != nil {
		q.Destroy()
		return nil, err
	}
	if err := q.createResources(); err != nil {
		q.Destroy()
		return nil, err
	}
	return q, nil
}

// createPipeline compiles the quad shader and creates the bind group
// layout, pipeline layout, sampler, and render pipeline.
func (q *TexturedQuad) createPipeline() error {
	shader, err := compileShader(q.device, "quad", quadShaderSource)
	if err != nil {
		return err
	}
	q.shader = shader

	// Bind group layout:
	//   Binding 0: QuadUniforms (uniform buffer, vertex)
	//   Binding 1: quad texture (texture_2d, fragment)
	//   Binding 2: sampler (fragment)
	bindLayout, err := q.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "quad_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create quad bind layout: %w", err)
	}
	q.bindLayout = bindLayout

	pipeLayout, err := q.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "quad_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{q.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create quad pipeline layout: %w", err)
	}
	q.pipeLayout = pipeLayout

	sampler, err := q.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "quad_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create quad sampler: %w", err)
	}
	q.sampler = sampler

	pipeline, err := q.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "quad_pipeline",
		Layout: q.pipeLayout,
		Vertex: hal.VertexState{
			Module:     q.shader,
			EntryPoint: "vs_main",
			Buffers:    quadVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     q.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    q.format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create quad pipeline: %w", err)
	}
	q.pipeline = pipeline
	return nil
}

// createResources uploads the quad geometry, the identity transform, and
// the placeholder texture, then builds the bind group.
func (q *TexturedQuad) createResources() error {
	vertBuf, err := q.createAndUploadBuffer("quad_verts", buildQuadVertexData(),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	q.vertBuf = vertBuf

	idxBuf, err := q.createAndUploadBuffer("quad_indices", buildQuadIndexData(),
		gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	q.idxBuf = idxBuf

	uniformBuf, err := q.createAndUploadBuffer("quad_uniform", makeQuadUniform(identityMatrix()),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	q.uniformBuf = uniformBuf

	// 1x1 opaque white placeholder until SetImage provides real content.
	if err := q.ensureTexture(1, 1); err != nil {
		return err
	}
	q.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: q.texture, MipLevel: 0},
		[]byte{255, 255, 255, 255},
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: 4, RowsPerImage: 1},
		&hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)

	return q.rebuildBindGroup()
}

// ensureTexture creates or recreates the quad texture at the given size.
// A no-op when the size is unchanged.
func (q *TexturedQuad) ensureTexture(w, h uint32) error {
	if q.texture != nil && q.texWidth == w && q.texHeight == h {
		return nil
	}
	if q.texView != nil {
		q.device.DestroyTextureView(q.texView)
		q.texView = nil
	}
	if q.texture != nil {
		q.device.DestroyTexture(q.texture)
		q.texture = nil
	}

	tex, err := q.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "quad_texture",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create quad texture: %w", err)
	}
	q.texture = tex

	view, err := q.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "quad_texture_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("create quad texture view: %w", err)
	}
	q.texView = view
	q.texWidth = w
	q.texHeight = h
	return nil
}

// rebuildBindGroup binds the uniform buffer, texture view, and sampler.
// Every entry declared in the layout is populated; Render refuses to draw
// otherwise.
func (q *TexturedQuad) rebuildBindGroup() error {
	if q.bindGroup != nil {
		q.device.DestroyBindGroup(q.bindGroup)
		q.bindGroup = nil
		q.boundCount = 0
	}

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: q.uniformBuf.NativeHandle(), Offset: 0, Size: quadUniformSize,
		}},
		{Binding: 1, Resource: gputypes.TextureViewBinding{
			TextureView: q.texView.NativeHandle(),
		}},
		{Binding: 2, Resource: gputypes.SamplerBinding{
			Sampler: q.sampler.NativeHandle(),
		}},
	}
	bindGroup, err := q.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "quad_bind",
		Layout:  q.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create quad bind group: %w", err)
	}
	q.bindGroup = bindGroup
	q.boundCount = len(entries)
	return nil
}

// SetTransform updates the quad's transform matrix (column-major mat4x4).
func (q *TexturedQuad) SetTransform(m [16]float32) {
	q.queue.WriteBuffer(q.uniformBuf, 0, makeQuadUniform(m))
}

// SetImage uploads img as the quad texture, converting to RGBA as needed.
// The texture is recreated when the image size changes.
func (q *TexturedQuad) SetImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("quad image is nil")
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 1 || h < 1 {
		return fmt.Errorf("quad image is empty")
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) {
		converted := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(converted, converted.Bounds(), img, bounds.Min, xdraw.Src)
		rgba = converted
	}

	resized := q.texture == nil || q.texWidth != uint32(w) || q.texHeight != uint32(h)
	if err := q.ensureTexture(uint32(w), uint32(h)); err != nil {
		return err
	}
	q.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: q.texture, MipLevel: 0},
		rgba.Pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(rgba.Stride),
			RowsPerImage: uint32(h),
		},
		&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	)
	if resized {
		return q.rebuildBindGroup()
	}
	return nil
}

// Render records one render pass into f: clear the backbuffer to cornflower
// blue and draw the quad.
func (q *TexturedQuad) Render(f *FrameEncoder) error {
	if q.pipeline == nil || q.bindGroup == nil {
		return fmt.Errorf("quad pipeline not initialized")
	}

	rp := f.Encoder().BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "quad_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       f.Target(),
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearColor,
		}},
	})
	rp.SetPipeline(q.pipeline)
	rp.SetBindGroup(0, q.bindGroup, nil)
	rp.SetVertexBuffer(0, q.vertBuf, 0)
	rp.SetIndexBuffer(q.idxBuf, gputypes.IndexFormatUint16, 0)
	rp.DrawIndexed(quadIndexCount, 1, 0, 0, 0)
	rp.End()
	return nil
}

// Destroy releases all GPU resources in reverse creation order. Safe to
// call multiple times or on a partially constructed quad.
func (q *TexturedQuad) Destroy() {
	if q.device == nil {
		return
	}
	if q.bindGroup != nil {
		q.device.DestroyBindGroup(q.bindGroup)
		q.bindGroup = nil
		q.boundCount = 0
	}
	if q.texView != nil {
		q.device.DestroyTextureView(q.texView)
		q.texView = nil
	}
	if q.texture != nil {
		q.device.DestroyTexture(q.texture)
		q.texture = nil
	}
	for _, buf := range []hal.Buffer{q.uniformBuf, q.idxBuf, q.vertBuf} {
		if buf != nil {
			q.device.DestroyBuffer(buf)
		}
	}
	q.uniformBuf, q.idxBuf, q.vertBuf = nil, nil, nil
	if q.pipeline != nil {
		q.device.DestroyRenderPipeline(q.pipeline)
		q.pipeline = nil
	}
	if q.sampler != nil {
		q.device.DestroySampler(q.sampler)
		q.sampler = nil
	}
	if q.pipeLayout != nil {
		q.device.DestroyPipelineLayout(q.pipeLayout)
		q.pipeLayout = nil
	}
	if q.bindLayout != nil {
		q.device.DestroyBindGroupLayout(q.bindLayout)
		q.bindLayout = nil
	}
	if q.shader != nil {
		q.device.DestroyShaderModule(q.shader)
		q.shader = nil
	}
}

// createAndUploadBuffer creates a buffer sized to data and uploads it.
func (q *TexturedQuad) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := q.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	q.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// quadVertexLayout describes the vertex buffer: interleaved position and
// texture coordinate, both vec2<f32>.
func quadVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: quadVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1}, // tex_coord
			},
		},
	}
}

// buildQuadVertexData serializes the quad vertices into raw bytes for
// GPU upload.
func buildQuadVertexData() []byte {
	data := make([]byte, len(quadVertices)*quadVertexStride)
	off := 0
	for _, v := range quadVertices {
		writeQuadVertex(data[off:], v[0], v[1], v[2], v[3])
		off += quadVertexStride
	}
	return data
}

// writeQuadVertex packs one vertex as 4 little-endian float32 values.
func writeQuadVertex(buf []byte, x, y, u, v float32) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(u))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v))
}

// buildQuadIndexData serializes the strip indices into raw bytes.
func buildQuadIndexData() []byte {
	data := make([]byte, len(quadIndices)*2)
	for i, idx := range quadIndices {
		binary.LittleEndian.PutUint16(data[i*2:], idx)
	}
	return data
}

// makeQuadUniform packs a column-major mat4x4 into the 64-byte uniform.
func makeQuadUniform(m [16]float32) []byte {
	buf := make([]byte, quadUniformSize)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// identityMatrix returns the identity transform.
func identityMatrix() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}
