package graphics

import (
	"errors"
	"testing"
)

func TestFrameLifecycle(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	f, err := gd.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	if f.Queue() == nil {
		t.Error("frame Queue() returned nil")
	}
	if f.Encoder() == nil {
		t.Error("frame Encoder() returned nil")
	}
	if f.Target() == nil {
		t.Error("frame Target() returned nil")
	}
	w, h := f.Size()
	if w != 64 || h != 64 {
		t.Errorf("frame size = %dx%d, want 64x64", w, h)
	}
	if f.Index() != 1 {
		t.Errorf("first frame index = %d, want 1", f.Index())
	}

	if err := f.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
}

func TestBeginFrameWhileInFlight(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	f, err := gd.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	if _, err := gd.BeginFrame(); !errors.Is(err, ErrFrameInFlight) {
		t.Errorf("second BeginFrame = %v, want ErrFrameInFlight", err)
	}
	if err := gd.Resize(128, 128); !errors.Is(err, ErrFrameInFlight) {
		t.Errorf("Resize during frame = %v, want ErrFrameInFlight", err)
	}

	if err := f.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	// Frame slot is free again.
	f, err = gd.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame after Abandon failed: %v", err)
	}
	if err := f.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
}

func TestDoubleFinish(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	f, err := gd.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	if err := f.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if err := f.Finish(); !errors.Is(err, ErrFrameFinished) {
		t.Errorf("second Finish = %v, want ErrFrameFinished", err)
	}
	if err := f.Abandon(); !errors.Is(err, ErrFrameFinished) {
		t.Errorf("Abandon after Finish = %v, want ErrFrameFinished", err)
	}
}

func TestFrameIndexIncrements(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	for want := uint64(1); want <= 5; want++ {
		f, err := gd.BeginFrame()
		if err != nil {
			t.Fatalf("BeginFrame %d failed: %v", want, err)
		}
		if f.Index() != want {
			t.Errorf("frame index = %d, want %d", f.Index(), want)
		}
		if err := f.Finish(); err != nil {
			t.Fatalf("Finish %d failed: %v", want, err)
		}
	}
}

func TestRenderFrameSubmits(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	var seen *FrameEncoder
	err := gd.RenderFrame(func(f *FrameEncoder) error {
		seen = f
		return nil
	})
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if seen == nil {
		t.Fatal("RenderFrame did not invoke the callback")
	}
	if !seen.finished {
		t.Error("frame not finished after RenderFrame")
	}
	if gd.frame != nil {
		t.Error("frame still registered after RenderFrame")
	}
}

func TestRenderFrameDiscardsOnError(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	wantErr := errors.New("record failed")
	err := gd.RenderFrame(func(f *FrameEncoder) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("RenderFrame = %v, want %v", err, wantErr)
	}
	if gd.frame != nil {
		t.Error("frame leaked after callback error")
	}

	// The device accepts new frames after the discard.
	f, err := gd.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame after error failed: %v", err)
	}
	if err := f.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
}

func TestRenderFrameDiscardsOnPanic(t *testing.T) {
	gd, cleanup := newTestDevice(t, nil)
	defer cleanup()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = gd.RenderFrame(func(f *FrameEncoder) error {
			panic("boom")
		})
	}()

	if gd.frame != nil {
		t.Error("frame leaked after panic")
	}
	f, err := gd.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame after panic failed: %v", err)
	}
	if err := f.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
}
