package capture

import (
	"testing"

	"nexuscap/internal/logging"
)

func mustTexture(t *testing.T, dev *fakeDevice, w, h int, v byte) *fakeTexture {
	t.Helper()
	tex, err := dev.NewTexture(w, h)
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	ft := tex.(*fakeTexture)
	ft.fill(v)
	return ft
}

func TestFrameBufferSnapshotBeforeFirstFrame(t *testing.T) {
	dev := newFakeDevice()
	buf := NewFrameBuffer(dev, logging.NewNop())
	defer buf.Close()

	if _, _, _, ok := buf.Snapshot(); ok {
		t.Fatal("expected no snapshot before first update")
	}
}

func TestFrameBufferUpdateAndSnapshot(t *testing.T) {
	dev := newFakeDevice()
	buf := NewFrameBuffer(dev, logging.NewNop())

	src := mustTexture(t, dev, 4, 3, 0xAA)
	buf.Update(src)
	src.Release()

	ref, w, h, ok := buf.Snapshot()
	if !ok {
		t.Fatal("expected snapshot after update")
	}
	if w != 4 || h != 3 {
		t.Fatalf("snapshot size = %dx%d, want 4x3", w, h)
	}
	data, err := dev.Download(ref.Texture())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	for i, b := range data {
		if b != 0xAA {
			t.Fatalf("byte %d = %#x, want 0xAA", i, b)
		}
	}
	ref.Release()
	buf.Close()

	if n := dev.liveTextures(); n != 0 {
		t.Fatalf("live textures after close = %d, want 0", n)
	}
}

func TestFrameBufferLatestFrameWins(t *testing.T) {
	dev := newFakeDevice()
	buf := NewFrameBuffer(dev, logging.NewNop())
	defer buf.Close()

	for _, v := range []byte{1, 2, 3} {
		src := mustTexture(t, dev, 2, 2, v)
		buf.Update(src)
		src.Release()
	}

	ref, _, _, ok := buf.Snapshot()
	if !ok {
		t.Fatal("expected snapshot")
	}
	defer ref.Release()
	data, err := dev.Download(ref.Texture())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if data[0] != 3 {
		t.Fatalf("snapshot holds frame %d, want 3", data[0])
	}
	if dev.allocs != 4 {
		t.Fatalf("allocations = %d, want 4 (3 sources + 1 shared)", dev.allocs)
	}
}

func TestFrameBufferSnapshotSurvivesReallocation(t *testing.T) {
	dev := newFakeDevice()
	buf := NewFrameBuffer(dev, logging.NewNop())

	src1 := mustTexture(t, dev, 2, 2, 0x11)
	buf.Update(src1)
	src1.Release()

	ref, w, h, ok := buf.Snapshot()
	if !ok {
		t.Fatal("expected snapshot")
	}

	// Dimension change swaps the shared texture underneath the snapshot.
	src2 := mustTexture(t, dev, 8, 8, 0x22)
	buf.Update(src2)
	src2.Release()

	data, err := dev.Download(ref.Texture())
	if err != nil {
		t.Fatalf("Download after realloc: %v", err)
	}
	if w != 2 || h != 2 || data[0] != 0x11 {
		t.Fatalf("snapshot changed under realloc: %dx%d first=%#x", w, h, data[0])
	}
	ref.Release()

	ref2, w2, h2, ok := buf.Snapshot()
	if !ok || w2 != 8 || h2 != 8 {
		t.Fatalf("post-realloc snapshot = %dx%d ok=%v, want 8x8", w2, h2, ok)
	}
	ref2.Release()
	buf.Close()

	if n := dev.liveTextures(); n != 0 {
		t.Fatalf("live textures = %d, want 0", n)
	}
}

func TestFrameBufferDropsFrameOnAllocFailure(t *testing.T) {
	dev := newFakeDevice()
	buf := NewFrameBuffer(dev, logging.NewNop())
	defer buf.Close()

	src := mustTexture(t, dev, 2, 2, 0x33)
	dev.mu.Lock()
	dev.failAlloc = true
	dev.mu.Unlock()
	buf.Update(src)
	src.Release()

	if _, _, _, ok := buf.Snapshot(); ok {
		t.Fatal("expected no snapshot when allocation failed")
	}
}

func TestFrameBufferIgnoresDegenerateSizes(t *testing.T) {
	dev := newFakeDevice()
	buf := NewFrameBuffer(dev, logging.NewNop())
	defer buf.Close()

	buf.Update(&fakeTexture{dev: dev, width: 0, height: 5})
	if _, _, _, ok := buf.Snapshot(); ok {
		t.Fatal("expected zero-width frame to be dropped")
	}
}
