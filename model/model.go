// Package model implements the predictive model of the recode engine.
// It maps every binary decision of a CABAC walk to an adaptive
// estimator keyed on the walk state, and couples the decision stream
// to a generic arithmetic coder. The significance map of each
// sub-block is handled in queued mode: the total nonzero count is
// coded as a prefix under temporally and spatially predicted contexts
// before the map symbols themselves.
package model

import (
	"github.com/ulikunitz/recavc/ac"
	"github.com/ulikunitz/recavc/h264"
)

// CodingType describes which part of a CABAC walk the external
// decoder is currently traversing.
type CodingType int

const (
	CodingUnknown CodingType = iota
	CodingSignificanceMap
	CodingSignificanceEOB
	CodingSignificanceNZ
	CodingResiduals
	CodingUnreachable
)

var codingTypeNames = map[CodingType]string{
	CodingUnknown:         "unknown",
	CodingSignificanceMap: "significance-map",
	CodingSignificanceEOB: "significance-eob",
	CodingSignificanceNZ:  "significance-nz",
	CodingResiduals:       "residuals",
	CodingUnreachable:     "unreachable",
}

func (ct CodingType) String() string {
	if s, ok := codingTypeNames[ct]; ok {
		return s
	}
	return "invalid"
}

// SymbolCoder couples the model to one direction of the arithmetic
// coder. The encode direction codes the given symbol and returns it;
// the decode direction ignores the argument and returns the decoded
// symbol.
type SymbolCoder interface {
	Code(symbol int, p ac.ProbFn) int
}

// sigEvent is one queued significance flag.
type sigEvent struct {
	symbol int
	zigzag int
}

// Model holds the estimators and the walk state of one engine. The
// estimators persist across CABAC spans; the walk state is reset per
// span.
type Model struct {
	encoding bool
	coder    SymbolCoder

	estimators map[ctxKey]*estimator

	frames [2]h264.FrameBuffer
	curIdx int

	// walk state
	ct               CodingType
	mbX, mbY         int
	subCat           int
	subScan8         int
	subMaxCoeff      int
	subSize          int
	subIsDC          bool
	subChroma422     bool
	is8x8            bool
	zigzagIndex      int
	numNonzeros      int
	nonzerosObserved int
	sigQueue         []sigEvent
}

// New creates a model for the encode or decode direction. The
// terminate context is seeded towards the 0 outcome: spans code many
// non-final decisions per final one.
func New(encoding bool) *Model {
	m := &Model{
		encoding:   encoding,
		estimators: make(map[ctxKey]*estimator),
	}
	m.estimators[ctxKey{h: hTerminate}] = &estimator{pos: 1, neg: 0xC0}
	return m
}

// BeginSpan binds the symbol coder of a new CABAC span and resets the
// walk state. Estimator statistics and frame buffers persist.
func (m *Model) BeginSpan(c SymbolCoder) {
	m.coder = c
	m.ct = CodingUnknown
	m.sigQueue = m.sigQueue[:0]
}

func (m *Model) cur() *h264.FrameBuffer  { return &m.frames[m.curIdx] }
func (m *Model) prev() *h264.FrameBuffer { return &m.frames[m.curIdx^1] }

// Decision codes one context-coded decision. The context is the
// offset of the probability state in the external decoder's state
// array; inside a significance map the synthetic significance
// contexts replace it.
func (m *Model) Decision(stateOff, symbol int) int {
	switch m.ct {
	case CodingSignificanceMap:
		return m.sigDecision(symbol)
	case CodingSignificanceEOB:
		return m.eobDecision(symbol)
	default:
		return m.code(ctxKey{h: hState, off: int32(stateOff)}, symbol, estimatorLimit)
	}
}

// Bypass codes one bypass decision.
func (m *Model) Bypass(symbol int) int {
	return m.code(ctxKey{h: hBypass}, symbol, estimatorLimit)
}

// Terminate codes one end-of-span decision.
func (m *Model) Terminate(symbol int) int {
	return m.code(ctxKey{h: hTerminate}, symbol, estimatorLimit)
}

// FrameSpec rotates the frame buffers when a new frame starts. The
// previous frame's records stay readable for temporal prediction;
// a dimension change reinitializes both buffers.
func (m *Model) FrameSpec(frameNum, mbWidth, mbHeight int) {
	cur := m.cur()
	if cur.IsSameFrame(frameNum) {
		return
	}
	w, h := uint32(mbWidth), uint32(mbHeight)
	if !cur.Initialized() || cur.Width() != w || cur.Height() != h {
		m.frames[0].Init(w, h)
		m.frames[1].Init(w, h)
		m.curIdx = 0
		m.frames[0].SetFrameNum(frameNum)
		return
	}
	m.curIdx ^= 1
	cur = m.cur()
	cur.Bzero()
	cur.SetFrameNum(frameNum)
}

// MBXY sets the active macroblock.
func (m *Model) MBXY(x, y int) {
	m.mbX, m.mbY = x, y
	m.cur().MetaAt(x, y).Coded = true
}

// BeginSubMB sets the active sub-block.
func (m *Model) BeginSubMB(cat, scan8Index, maxCoeff int, isDC, chroma422 bool) {
	m.subCat = cat
	m.subScan8 = scan8Index
	m.subMaxCoeff = maxCoeff
	m.subIsDC = isDC
	m.subChroma422 = chroma422
	switch {
	case maxCoeff <= 4:
		m.subSize = 4
	case maxCoeff <= 16:
		m.subSize = 16
	default:
		m.subSize = 64
	}
	m.is8x8 = m.subSize == 64
	if m.is8x8 {
		m.cur().MetaAt(m.mbX, m.mbY).Is8x8 = true
	}
}

// EndSubMB leaves the active sub-block.
func (m *Model) EndSubMB() {
	m.ct = CodingUnknown
}

// BeginCodingType enters a section of the walk. Entering the
// significance map resets the map state; on the decode path the
// nonzero count prefix is decoded here, so the whole map is
// predictable before its first symbol.
func (m *Model) BeginCodingType(ct CodingType, zigzagIndex, param0, param1 int) {
	if ct != CodingSignificanceMap {
		m.ct = ct
		return
	}
	m.zigzagIndex = zigzagIndex
	m.nonzerosObserved = 0
	m.numNonzeros = 0
	m.sigQueue = m.sigQueue[:0]
	m.ct = CodingSignificanceMap
	if !m.encoding {
		m.numNonzeros = m.codeNonzeroCount()
	}
}

// EndCodingType leaves a section of the walk. On the encode path the
// deferred significance map is emitted here: first the nonzero count
// prefix, then the queued map symbols.
func (m *Model) EndCodingType(ct CodingType) {
	if ct == CodingSignificanceMap {
		if m.encoding {
			m.numNonzeros = m.nonzerosObserved
			m.codeNonzeroCount()
			m.replaySignificance()
		}
		m.recordNonzeros()
	}
	m.ct = CodingUnknown
}

// sigDecision handles one significance flag. On the encode path the
// flag is queued for deferred emission; on the decode path it is
// decoded immediately, the count prefix having fixed the total.
func (m *Model) sigDecision(symbol int) int {
	if m.encoding {
		m.sigQueue = append(m.sigQueue, sigEvent{symbol: symbol, zigzag: m.zigzagIndex})
		m.sigAdvance(symbol)
		return symbol
	}
	sym := m.code(m.sigKey(m.zigzagIndex, m.nonzerosObserved), -1, sigEstimatorLimit)
	m.sigAdvance(sym)
	return sym
}

// sigAdvance steps the walk state machine after a significance flag.
// A flag is never coded for the final zigzag position: running off the
// penultimate position forces the last coefficient significant.
func (m *Model) sigAdvance(symbol int) {
	if symbol != 0 {
		m.markSignificant(m.zigzagIndex)
		m.nonzerosObserved++
		if m.zigzagIndex+1 >= m.subMaxCoeff {
			m.ct = CodingUnreachable
			return
		}
		m.ct = CodingSignificanceEOB
		return
	}
	m.zigzagIndex++
	if m.zigzagIndex >= m.subMaxCoeff-1 {
		m.markSignificant(m.zigzagIndex)
		m.nonzerosObserved++
		m.ct = CodingUnreachable
	}
}

// eobDecision handles one "is this the last nonzero?" flag. The flag
// is deterministic once the nonzero total is known, so it never
// passes through the arithmetic coder: the encode path consumes the
// flag the source decoder produced, the decode path computes it.
func (m *Model) eobDecision(symbol int) int {
	sym := symbol
	if !m.encoding {
		sym = 0
		if m.nonzerosObserved == m.numNonzeros {
			sym = 1
		}
	}
	if sym != 0 {
		m.ct = CodingUnreachable
		return sym
	}
	m.ct = CodingSignificanceMap
	m.zigzagIndex++
	if m.zigzagIndex >= m.subMaxCoeff-1 {
		m.markSignificant(m.zigzagIndex)
		m.nonzerosObserved++
		m.ct = CodingUnreachable
	}
	return sym
}

// markSignificant records a nonzero coefficient in the current frame
// buffer. An 8x8 sub-block spreads its coefficients over its four
// sub-block slots.
func (m *Model) markSignificant(zigzagIndex int) {
	r := h264.Zigzag(m.subSize, zigzagIndex)
	cell, slot := m.subScan8, r
	if m.subSize > 16 {
		cell += r / 16
		slot = r % 16
	}
	m.cur().At(m.mbX, m.mbY).Residual[cell][slot] = 1
}

// recordNonzeros stores the sub-block's nonzero total for spatial and
// temporal prediction of later blocks.
func (m *Model) recordNonzeros() {
	meta := m.cur().MetaAt(m.mbX, m.mbY)
	meta.NumNonzeros[m.subScan8] = uint8(m.numNonzeros)
	meta.NonzerosKnown[m.subScan8] = true
}
