package model

import "github.com/ulikunitz/recavc/h264"

// nzBits returns the width of the nonzero count prefix for a
// sub-block size. The prefix codes num_nonzeros-1: a coded map implies
// at least one nonzero coefficient.
func nzBits(subMBSize int) int {
	switch {
	case subMBSize <= 4:
		return 2
	case subMBSize <= 16:
		return 4
	default:
		return 6
	}
}

// sigKey builds the estimator key of a significance flag. The zigzag
// offset collapses to the standard context offsets for 8x8 and
// 4:2:2 DC sub-blocks.
func (m *Model) sigKey(zigzagIndex, observed int) ctxKey {
	off := zigzagIndex
	if m.subSize > 32 {
		off = int(h264.SigCoeffFlagOffset8x8[0][zigzagIndex])
	} else if m.subIsDC && m.subChroma422 {
		off = int(h264.SigCoeffOffsetDC[zigzagIndex])
	}
	p1 := b2i(m.subIsDC) + 2*off + 32*int(h264.CatLookup[m.subCat])
	return ctxKey{
		h:  hSig,
		p0: int32(64*m.numNonzeros + observed),
		p1: int32(p1),
	}
}

// replaySignificance emits the queued significance flags of the
// current sub-block, now that the nonzero total entered the keys.
func (m *Model) replaySignificance() {
	observed := 0
	for _, ev := range m.sigQueue {
		m.code(m.sigKey(ev.zigzag, observed), ev.symbol, sigEstimatorLimit)
		if ev.symbol != 0 {
			observed++
		}
	}
	m.sigQueue = m.sigQueue[:0]
}

// codeNonzeroCount codes the nonzero count prefix of the current
// sub-block, bit by bit from the most significant bit. Each bit's
// context sees the bits already coded and whether the co-located
// sub-block of the previous frame and the left and above neighbours
// reached the candidate value. It returns the decoded count on the
// decode path and echoes the known count on the encode path.
func (m *Model) codeNonzeroCount() int {
	bits := nzBits(m.subSize)
	v := m.numNonzeros - 1

	prevNZ, prevOK := m.prevFrameNonzeros()
	leftNZ, leftOK := m.neighborNonzeros(false)
	aboveNZ, aboveOK := m.neighborNonzeros(true)

	p1 := int32(b2i(m.is8x8) + 2*b2i(m.subIsDC) + b2i(m.subChroma422) + 4*m.subCat)

	saved := m.ct
	m.ct = CodingSignificanceNZ
	acc := 0
	for j := 0; j < bits; j++ {
		w := uint(bits - 1 - j)
		cand := (acc<<1 | 1) << w // count-1 if this bit is set and the rest clear
		k := ctxKey{
			h:   hNZ,
			off: int32(j),
			p0: int32(acc) + 64*geFlag(prevNZ, prevOK, cand) +
				128*geFlag(leftNZ, leftOK, cand) + 384*geFlag(aboveNZ, aboveOK, cand),
			p1: p1,
		}
		sym := -1
		if m.encoding {
			sym = int(v>>w) & 1
		}
		sym = m.code(k, sym, estimatorLimit)
		acc = acc<<1 | sym
	}
	m.ct = saved
	return acc + 1
}

// geFlag classifies a neighbour against a candidate count: 1 or 0 if
// the neighbour's nonzero count is known to reach the candidate or
// not, 2 if the neighbour is unknown.
func geFlag(nz int, known bool, cand int) int32 {
	if !known {
		return 2
	}
	if nz > cand {
		return 1
	}
	return 0
}

// neighborNonzeros returns the nonzero count of the sub-block above
// or to the left of the current one, if that sub-block lies inside
// the frame and has been coded.
func (m *Model) neighborNonzeros(above bool) (int, bool) {
	in := h264.CoefficientCoord{
		MBX:        m.mbX,
		MBY:        m.mbY,
		Scan8Index: m.subScan8,
	}
	nb, ok := m.cur().GetNeighbor(above, m.subSize, in)
	if !ok {
		return 0, false
	}
	meta := m.cur().MetaAt(nb.MBX, nb.MBY)
	if !meta.NonzerosKnown[nb.Scan8Index] {
		return 0, false
	}
	return int(meta.NumNonzeros[nb.Scan8Index]), true
}

// prevFrameNonzeros returns the nonzero count of the co-located
// sub-block in the previous frame.
func (m *Model) prevFrameNonzeros() (int, bool) {
	p := m.prev()
	if !p.Initialized() {
		return 0, false
	}
	if m.mbX >= int(p.Width()) || m.mbY >= int(p.Height()) {
		return 0, false
	}
	meta := p.MetaAt(m.mbX, m.mbY)
	if !meta.NonzerosKnown[m.subScan8] {
		return 0, false
	}
	return int(meta.NumNonzeros[m.subScan8]), true
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
