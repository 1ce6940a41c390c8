package graphics

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestQuadGeometry(t *testing.T) {
	for i, vert := range quadVertices {
		x, y, u, v := vert[0], vert[1], vert[2], vert[3]
		if x < -1 || x > 1 || y < -1 || y > 1 {
			t.Errorf("vertex %d position (%v, %v) outside clip space", i, x, y)
		}
		if u < 0 || u > 1 || v < 0 || v > 1 {
			t.Errorf("vertex %d tex coord (%v, %v) outside [0,1]", i, u, v)
		}
	}

	// Bottom-left maps to the bottom of the image (V flipped).
	if quadVertices[0] != [4]float32{-1, -1, 0, 1} {
		t.Errorf("vertex 0 = %v, want bottom-left with V=1", quadVertices[0])
	}
	if quadVertices[2] != [4]float32{1, 1, 1, 0} {
		t.Errorf("vertex 2 = %v, want top-right with V=0", quadVertices[2])
	}

	if quadIndices != [4]uint16{0, 1, 3, 2} {
		t.Errorf("strip indices = %v, want [0 1 3 2]", quadIndices)
	}
	for _, idx := range quadIndices {
		if int(idx) >= len(quadVertices) {
			t.Errorf("index %d out of range", idx)
		}
	}
}

func TestBuildQuadVertexData(t *testing.T) {
	data := buildQuadVertexData()
	if len(data) != len(quadVertices)*quadVertexStride {
		t.Fatalf("vertex data length = %d, want %d", len(data), len(quadVertices)*quadVertexStride)
	}
	for i, v := range quadVertices {
		off := i * quadVertexStride
		for j, want := range v {
			got := math.Float32frombits(binary.LittleEndian.Uint32(data[off+j*4:]))
			if got != want {
				t.Errorf("vertex %d component %d = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestBuildQuadIndexData(t *testing.T) {
	data := buildQuadIndexData()
	if len(data) != len(quadIndices)*2 {
		t.Fatalf("index data length = %d, want %d", len(data), len(quadIndices)*2)
	}
	for i, want := range quadIndices {
		if got := binary.LittleEndian.Uint16(data[i*2:]); got != want {
			t.Errorf("index %d = %d, want %d", i, got, want)
		}
	}
}

func TestMakeQuadUniform(t *testing.T) {
	m := identityMatrix()
	buf := makeQuadUniform(m)
	if len(buf) != quadUniformSize {
		t.Fatalf("uniform size = %d, want %d", len(buf), quadUniformSize)
	}
	for i := 0; i < 16; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		if got != m[i] {
			t.Errorf("uniform element %d = %v, want %v", i, got, m[i])
		}
	}
}

func TestClearColorIsCornflowerBlue(t *testing.T) {
	if clearColor.R != 100.0/255.0 || clearColor.G != 149.0/255.0 ||
		clearColor.B != 237.0/255.0 || clearColor.A != 1 {
		t.Errorf("clear color = %+v, want cornflower blue", clearColor)
	}
}

func TestNewTexturedQuad(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	q, err := NewTexturedQuad(gd)
	if err != nil {
		t.Fatalf("NewTexturedQuad failed: %v", err)
	}
	defer q.Destroy()

	if q.pipeline == nil {
		t.Error("pipeline not created")
	}
	if q.bindGroup == nil {
		t.Fatal("bind group not created")
	}
	// Every binding declared in the layout must be populated: the uniform,
	// the texture, and the sampler.
	if q.boundCount != 3 {
		t.Errorf("populated bindings = %d, want 3", q.boundCount)
	}
	if q.texWidth != 1 || q.texHeight != 1 {
		t.Errorf("placeholder texture = %dx%d, want 1x1", q.texWidth, q.texHeight)
	}
}

func TestTexturedQuadRender(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	q, err := NewTexturedQuad(gd)
	if err != nil {
		t.Fatalf("NewTexturedQuad failed: %v", err)
	}
	defer q.Destroy()

	err = gd.RenderFrame(func(f *FrameEncoder) error {
		return q.Render(f)
	})
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
}

func TestTexturedQuadSetImage(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	q, err := NewTexturedQuad(gd)
	if err != nil {
		t.Fatalf("NewTexturedQuad failed: %v", err)
	}
	defer q.Destroy()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 120), B: 50, A: 255})
		}
	}
	if err := q.SetImage(img); err != nil {
		t.Fatalf("SetImage failed: %v", err)
	}
	if q.texWidth != 4 || q.texHeight != 2 {
		t.Errorf("texture size = %dx%d, want 4x2", q.texWidth, q.texHeight)
	}
	if q.boundCount != 3 {
		t.Errorf("bindings after SetImage = %d, want 3", q.boundCount)
	}

	if err := q.SetImage(nil); err == nil {
		t.Error("SetImage(nil) succeeded, want error")
	}

	// Same size upload reuses the texture and bind group.
	before := q.bindGroup
	if err := q.SetImage(img); err != nil {
		t.Fatalf("repeat SetImage failed: %v", err)
	}
	if q.bindGroup != before {
		t.Error("same-size SetImage rebuilt the bind group")
	}
}

func TestTexturedQuadSetTransform(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	q, err := NewTexturedQuad(gd)
	if err != nil {
		t.Fatalf("NewTexturedQuad failed: %v", err)
	}
	defer q.Destroy()

	m := identityMatrix()
	m[0], m[5] = 0.5, 0.5 // uniform scale
	q.SetTransform(m)     // must not panic; upload goes through the queue

	err = gd.RenderFrame(func(f *FrameEncoder) error {
		return q.Render(f)
	})
	if err != nil {
		t.Fatalf("RenderFrame after SetTransform failed: %v", err)
	}
}

func TestTexturedQuadDestroyIdempotent(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	q, err := NewTexturedQuad(gd)
	if err != nil {
		t.Fatalf("NewTexturedQuad failed: %v", err)
	}
	q.Destroy()
	q.Destroy() // must not panic

	if err := q.Render(nil); err == nil {
		t.Error("Render after Destroy succeeded, want error")
	}
}
