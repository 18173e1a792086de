package model

import (
	"bytes"
	"testing"

	"github.com/ulikunitz/recavc/ac"
)

type encCoder struct{ e *ac.Encoder }

func (c encCoder) Code(symbol int, p ac.ProbFn) int {
	c.e.Put(symbol, p)
	return symbol
}

type decCoder struct{ d *ac.Decoder }

func (c decCoder) Code(_ int, p ac.ProbFn) int {
	return c.d.Get(p)
}

func newEncPair(t *testing.T) (*Model, *ac.Encoder) {
	t.Helper()
	e, err := ac.NewEncoder(ac.Config{})
	if err != nil {
		t.Fatalf("ac.NewEncoder error %s", err)
	}
	m := New(true)
	m.BeginSpan(encCoder{e})
	return m, e
}

func newDecPair(t *testing.T, data []byte) *Model {
	t.Helper()
	d, err := ac.NewDecoder(ac.Config{}, data)
	if err != nil {
		t.Fatalf("ac.NewDecoder error %s", err)
	}
	m := New(false)
	m.BeginSpan(decCoder{d})
	return m
}

// walk drives a model through a two-block residual walk. On the
// encode path the symbols are consumed; either way the coded symbol
// sequence is returned.
func walk(m *Model, symbols map[string][]int) (out []int) {
	feed := func(kind string) int {
		s := -1
		if m.encoding {
			s = symbols[kind][0]
			symbols[kind] = symbols[kind][1:]
		}
		return s
	}
	m.FrameSpec(0, 2, 2)
	m.MBXY(0, 0)

	// 4x4 block with significant coefficients {0, 2}.
	m.BeginSubMB(2, 0, 16, false, false)
	m.BeginCodingType(CodingSignificanceMap, 0, 0, 0)
	out = append(out, m.Decision(100, feed("sig"))) // sig 0 -> 1
	out = append(out, m.Decision(101, feed("eob"))) // eob   -> 0
	out = append(out, m.Decision(100, feed("sig"))) // sig 1 -> 0
	out = append(out, m.Decision(100, feed("sig"))) // sig 2 -> 1
	out = append(out, m.Decision(101, feed("eob"))) // eob   -> 1
	m.EndCodingType(CodingSignificanceMap)
	m.BeginCodingType(CodingResiduals, 0, 0, 0)
	out = append(out, m.Decision(7, feed("lvl")))
	out = append(out, m.Bypass(feed("byp")))
	out = append(out, m.Bypass(feed("byp")))
	m.EndCodingType(CodingResiduals)
	m.EndSubMB()

	// Chroma DC block running into the implicit final coefficient.
	m.BeginSubMB(3, 49, 4, true, false)
	m.BeginCodingType(CodingSignificanceMap, 0, 0, 0)
	out = append(out, m.Decision(102, feed("sig"))) // sig 0 -> 0
	out = append(out, m.Decision(102, feed("sig"))) // sig 1 -> 0
	out = append(out, m.Decision(102, feed("sig"))) // sig 2 -> 0
	m.EndCodingType(CodingSignificanceMap)
	m.BeginCodingType(CodingResiduals, 0, 0, 0)
	out = append(out, m.Bypass(feed("byp")))
	m.EndCodingType(CodingResiduals)
	m.EndSubMB()

	out = append(out, m.Terminate(feed("term")))
	return out
}

func testSymbols() map[string][]int {
	return map[string][]int{
		"sig":  {1, 0, 1, 0, 0, 0},
		"eob":  {0, 1},
		"lvl":  {0},
		"byp":  {1, 0, 1},
		"term": {1},
	}
}

// TestSignificanceSymmetry checks that the decode path reproduces the
// exact symbol sequence of the encode path, including the computed
// end-of-block flags and the implicitly significant final
// coefficient.
func TestSignificanceSymmetry(t *testing.T) {
	m, e := newEncPair(t)
	encOut := walk(m, testSymbols())
	e.Finish()

	d := newDecPair(t, e.Bytes())
	decOut := walk(d, nil)

	if len(encOut) != len(decOut) {
		t.Fatalf("symbol count %d != %d", len(decOut), len(encOut))
	}
	for i := range encOut {
		if encOut[i] != decOut[i] {
			t.Fatalf("symbol %d: decode %d; encode %d", i, decOut[i], encOut[i])
		}
	}
	if d.numNonzeros != 1 {
		t.Errorf("decoded nonzero count %d; want 1", d.numNonzeros)
	}
}

// TestReproducibility runs the same sequence through two independent
// models and compares the arithmetic coder output.
func TestReproducibility(t *testing.T) {
	m1, e1 := newEncPair(t)
	walk(m1, testSymbols())
	e1.Finish()

	m2, e2 := newEncPair(t)
	walk(m2, testSymbols())
	e2.Finish()

	if !bytes.Equal(e1.Bytes(), e2.Bytes()) {
		t.Error("identical walks produced different output")
	}
}

// TestFrameRotation checks that the previous frame's records stay
// readable after a frame change and that the temporal prediction path
// sees them.
func TestFrameRotation(t *testing.T) {
	m, e := newEncPair(t)
	walk(m, testSymbols())

	if !m.cur().MetaAt(0, 0).NonzerosKnown[0] {
		t.Fatal("nonzero count not recorded in current frame")
	}
	if got := m.cur().MetaAt(0, 0).NumNonzeros[0]; got != 2 {
		t.Fatalf("recorded nonzero count %d; want 2", got)
	}

	m.FrameSpec(1, 2, 2)
	if m.cur().MetaAt(0, 0).NonzerosKnown[0] {
		t.Error("current frame not cleared after rotation")
	}
	nz, ok := func() (int, bool) {
		m.mbX, m.mbY = 0, 0
		m.subScan8 = 0
		return m.prevFrameNonzeros()
	}()
	if !ok || nz != 2 {
		t.Errorf("previous frame nonzeros = %d, %t; want 2, true", nz, ok)
	}

	// A dimension change reinitializes both buffers.
	m.FrameSpec(2, 3, 3)
	if _, ok := m.prevFrameNonzeros(); ok {
		t.Error("previous frame survived a dimension change")
	}
	e.Finish()
}

func TestEstimatorLimit(t *testing.T) {
	e := &estimator{pos: 1, neg: 1}
	for i := 0; i < 1000; i++ {
		e.update(i&1, estimatorLimit)
		if int(e.pos)+int(e.neg) > estimatorLimit {
			t.Fatalf("estimator total %d exceeds limit", e.pos+e.neg)
		}
		if e.pos < 1 || e.neg < 1 {
			t.Fatal("estimator count fell below 1")
		}
	}
}

func TestTerminateSeed(t *testing.T) {
	m := New(true)
	e := m.estimators[ctxKey{h: hTerminate}]
	if e == nil || e.pos != 1 || e.neg != 0xC0 {
		t.Fatalf("terminate context seeded as %+v", e)
	}
}
