package h264

import "testing"

func TestFrameBufferLifecycle(t *testing.T) {
	var f FrameBuffer
	if f.Initialized() {
		t.Fatal("zero FrameBuffer reports initialized")
	}
	if f.IsSameFrame(0) {
		t.Fatal("zero FrameBuffer reports same frame")
	}
	f.Init(4, 3)
	f.SetFrameNum(7)
	if !f.IsSameFrame(7) || f.IsSameFrame(8) {
		t.Fatal("IsSameFrame after Init/SetFrameNum")
	}
	if f.Width() != 4 || f.Height() != 3 {
		t.Fatalf("dimensions %dx%d; want 4x3", f.Width(), f.Height())
	}

	f.At(3, 2).Residual[5][7] = 1
	meta := f.MetaAt(3, 2)
	meta.NumNonzeros[5] = 9
	meta.Coded = true

	if f.At(3, 2).Residual[5][7] != 1 {
		t.Error("residual write not visible")
	}
	if f.At(2, 2).Residual[5][7] != 0 {
		t.Error("residual write leaked into neighbour block")
	}

	f.Bzero()
	if f.At(3, 2).Residual[5][7] != 0 || f.MetaAt(3, 2).Coded {
		t.Error("Bzero did not clear records")
	}
	if !f.IsSameFrame(7) {
		t.Error("Bzero changed the frame number")
	}
}
