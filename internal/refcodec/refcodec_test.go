package refcodec

import (
	"bytes"
	"testing"

	"github.com/ulikunitz/recavc"
	"github.com/ulikunitz/recavc/cabac"
	"github.com/ulikunitz/recavc/model"
)

func TestEscapeRoundtrip(t *testing.T) {
	tests := [][]byte{
		{},
		{0, 0, 0},
		{0, 0, 1},
		{0, 0, 3},
		{0, 0, 3, 0, 0, 2},
		{1, 2, 3, 4},
		{0, 0, 0, 0, 0, 0},
		{0xff, 0, 0, 2, 0},
	}
	for _, in := range tests {
		esc := escapeNAL(in)
		if i := bytes.Index(esc, []byte{0, 0, 0}); i >= 0 {
			t.Errorf("escape(% x) leaves start-code prefix at %d: % x",
				in, i, esc)
		}
		got := unescapeNAL(esc)
		if !bytes.Equal(got, in) {
			t.Errorf("unescape(escape(% x)) = % x", in, got)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := GenConfig{Seed: 5}
	a, _ := GenerateStream(cfg)
	b, _ := GenerateStream(cfg)
	if !bytes.Equal(a, b) {
		t.Error("generation is not deterministic")
	}
	c, _ := GenerateStream(GenConfig{Seed: 6})
	if bytes.Equal(a, c) {
		t.Error("different seeds produced identical streams")
	}
}

// rawHooks drives the walker directly over the generated bytes, with
// every span served by a plain CABAC decoder. It validates that the
// walker accepts exactly the syntax the generator emits.
type rawHooks struct {
	data []byte
	off  int
}

func (h *rawHooks) ReadPacket(p []byte) (int, error) {
	n := copy(p, h.data[h.off:])
	h.off += n
	return n, nil
}

type rawSpan struct{ d *cabac.Decoder }

func (s *rawSpan) Get(states []uint8, idx int) (int, error) {
	return s.d.Get(states, idx), nil
}
func (s *rawSpan) GetBypass() (int, error)    { return s.d.GetBypass(), nil }
func (s *rawSpan) GetTerminate() (int, error) { return s.d.GetTerminate(), nil }

func (h *rawHooks) InitCABAC(buf []byte) (recavc.SpanDecoder, error) {
	return &rawSpan{d: cabac.NewDecoder(buf)}, nil
}

func (h *rawHooks) FrameSpec(frameNum, mbWidth, mbHeight int) {}

func (h *rawHooks) MBXY(x, y int) {}

func (h *rawHooks) BeginSubMB(cat, scan8Index, maxCoeff int, isDC, c422 bool) {}

func (h *rawHooks) EndSubMB() {}

func (h *rawHooks) BeginCodingType(ct model.CodingType, zz, p0, p1 int) {}

func (h *rawHooks) EndCodingType(ct model.CodingType) {}

func TestWalkerAcceptsGeneratedStreams(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		stream, _ := GenerateStream(GenConfig{
			MBWidth: 5, MBHeight: 4, Frames: 3, Seed: seed,
		})
		if err := New().DecodeVideo(&rawHooks{data: stream}); err != nil {
			t.Fatalf("seed %d: DecodeVideo error %s", seed, err)
		}
	}
}

func TestWalkerRejectsTruncated(t *testing.T) {
	stream, _ := GenerateStream(GenConfig{Seed: 2})
	for _, n := range []int{0, 3, 5, len(stream) / 2} {
		if err := New().DecodeVideo(&rawHooks{data: stream[:n]}); err == nil {
			t.Errorf("truncated stream of %d bytes accepted", n)
		}
	}
}

func TestWalkerRejectsGarbage(t *testing.T) {
	if err := New().DecodeVideo(&rawHooks{data: []byte("garbage data")}); err == nil {
		t.Error("garbage accepted")
	}
}
