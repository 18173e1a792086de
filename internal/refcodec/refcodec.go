// Package refcodec implements a deterministic hooked codec over a
// synthetic Annex-B-like stream. It stands in for the external H.264
// decoder: it reads its input through the engine's read-packet hook,
// announces every CABAC span, and walks a reproducible macroblock
// syntax driven entirely by the decisions the span decoders return.
// The package also generates such streams, so the whole recode
// pipeline can be exercised end to end.
package refcodec

import (
	"errors"
	"fmt"

	"github.com/ulikunitz/recavc"
	"github.com/ulikunitz/recavc/cabac"
	"github.com/ulikunitz/recavc/model"
)

var startCode = []byte{0, 0, 0, 1}

const (
	nalSPS = 0x67
	nalIDR = 0x65
)

// Probability state layout of the synthetic syntax.
const (
	stateCount = 1024

	ctxSkip     = 0
	ctx8x8      = 1
	ctxCoded8x8 = 2 // +b, four 8x8 blocks
	ctxLumaDC   = 6
	ctxCoded4x4 = 7
	ctxChromaDC = 8  // +c
	ctxChromaAC = 10 // +c
	ctxLevel    = 12 // +cat

	ctxSigBase = 32  // +cat*64+z
	ctxEOBBase = 448 // +cat*64+z
)

func sigState(cat, z int) int { return ctxSigBase + cat*64 + z }
func eobState(cat, z int) int { return ctxEOBBase + cat*64 + z }

// newStates builds the initial probability state array. Generator and
// walker must agree on it.
func newStates() []uint8 {
	s := make([]uint8, stateCount)
	for i := range s {
		s[i] = cabac.InitState((i*13)%64, i&1)
	}
	return s
}

// subBlock describes one residual sub-block of the synthetic syntax.
type subBlock struct {
	cat       int
	scan8     int
	maxCoeff  int
	isDC      bool
	chroma422 bool
}

// escapeNAL inserts an emulation prevention byte before every byte
// value of three or less that follows two zero bytes.
func escapeNAL(b []byte) []byte {
	out := make([]byte, 0, len(b))
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// unescapeNAL removes the emulation prevention bytes again.
func unescapeNAL(b []byte) []byte {
	out := make([]byte, 0, len(b))
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c == 3 {
			zeros = 0
			continue
		}
		out = append(out, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// Codec is the reference hooked codec. The zero value is ready to
// use; DecodeVideo may be called repeatedly and concurrently drives
// nothing: every call is a fresh parse.
type Codec struct{}

// New returns a reference codec.
func New() *Codec { return &Codec{} }

// parser walks the synthetic stream structure.
type parser struct {
	data []byte
	pos  int
}

func (p *parser) expect(b []byte) error {
	if p.pos+len(b) > len(p.data) {
		return errors.New("refcodec: truncated stream")
	}
	for i, c := range b {
		if p.data[p.pos+i] != c {
			return fmt.Errorf("refcodec: bad start code at offset %d", p.pos)
		}
	}
	p.pos += len(b)
	return nil
}

func (p *parser) byte() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, errors.New("refcodec: truncated stream")
	}
	b := p.data[p.pos]
	p.pos++
	return b, nil
}

func (p *parser) uint16() (int, error) {
	hi, err := p.byte()
	if err != nil {
		return 0, err
	}
	lo, err := p.byte()
	if err != nil {
		return 0, err
	}
	return int(hi)<<8 | int(lo), nil
}

func (p *parser) take(n int) ([]byte, error) {
	if p.pos+n > len(p.data) {
		return nil, errors.New("refcodec: truncated stream")
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

// readAll drains the read-packet hook.
func readAll(h recavc.Hooks) ([]byte, error) {
	var data []byte
	buf := make([]byte, 4096)
	for {
		n, err := h.ReadPacket(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return data, nil
		}
		data = append(data, buf[:n]...)
	}
}

// DecodeVideo parses the stream and drives the hooks. The walk is a
// pure function of the stream bytes and the decisions the span
// decoders return.
func (c *Codec) DecodeVideo(h recavc.Hooks) error {
	data, err := readAll(h)
	if err != nil {
		return err
	}
	p := &parser{data: data}
	if err = p.expect(startCode); err != nil {
		return err
	}
	nal, err := p.byte()
	if err != nil {
		return err
	}
	if nal != nalSPS {
		return fmt.Errorf("refcodec: expected parameter set, got %#02x", nal)
	}
	w, err := p.byte()
	if err != nil {
		return err
	}
	ht, err := p.byte()
	if err != nil {
		return err
	}
	frames, err := p.byte()
	if err != nil {
		return err
	}
	mbW, mbH := int(w), int(ht)
	if mbW == 0 || mbH == 0 {
		return errors.New("refcodec: empty frame geometry")
	}

	for f := 0; f < int(frames); f++ {
		if err = p.expect(startCode); err != nil {
			return err
		}
		if nal, err = p.byte(); err != nil {
			return err
		}
		if nal != nalIDR {
			return fmt.Errorf("refcodec: expected slice, got %#02x", nal)
		}
		frameNum, err := p.byte()
		if err != nil {
			return err
		}
		spanLen, err := p.uint16()
		if err != nil {
			return err
		}
		raw, err := p.take(spanLen)
		if err != nil {
			return err
		}
		span := unescapeNAL(raw)

		h.FrameSpec(int(frameNum), mbW, mbH)
		sd, err := h.InitCABAC(span)
		if err != nil {
			return err
		}
		if err = walkSlice(h, sd, newStates(), mbW, mbH); err != nil {
			return err
		}
	}
	return nil
}

func walkSlice(h recavc.Hooks, sd recavc.SpanDecoder, states []uint8, mbW, mbH int) error {
	for y := 0; y < mbH; y++ {
		for x := 0; x < mbW; x++ {
			h.MBXY(x, y)
			if err := walkMB(h, sd, states); err != nil {
				return err
			}
			term, err := sd.GetTerminate()
			if err != nil {
				return err
			}
			last := y == mbH-1 && x == mbW-1
			if term != 0 {
				if !last {
					return fmt.Errorf(
						"refcodec: early end of slice at mb (%d,%d)", x, y)
				}
				return nil
			}
			if last {
				return errors.New("refcodec: missing end of slice")
			}
		}
	}
	return nil
}

func walkMB(h recavc.Hooks, sd recavc.SpanDecoder, states []uint8) error {
	skip, err := sd.Get(states, ctxSkip)
	if err != nil {
		return err
	}
	if skip != 0 {
		return nil
	}
	is8x8, err := sd.Get(states, ctx8x8)
	if err != nil {
		return err
	}
	if is8x8 != 0 {
		for b := 0; b < 4; b++ {
			coded, err := sd.Get(states, ctxCoded8x8+b)
			if err != nil {
				return err
			}
			if coded != 0 {
				sb := subBlock{cat: 5, scan8: 4 * b, maxCoeff: 64}
				if err = walkResidual(h, sd, states, sb); err != nil {
					return err
				}
			}
		}
	} else {
		dc, err := sd.Get(states, ctxLumaDC)
		if err != nil {
			return err
		}
		if dc != 0 {
			sb := subBlock{cat: 0, scan8: 48, maxCoeff: 16, isDC: true}
			if err = walkResidual(h, sd, states, sb); err != nil {
				return err
			}
		}
		for i := 0; i < 16; i++ {
			coded, err := sd.Get(states, ctxCoded4x4)
			if err != nil {
				return err
			}
			if coded != 0 {
				sb := subBlock{cat: 2, scan8: i, maxCoeff: 16}
				if err = walkResidual(h, sd, states, sb); err != nil {
					return err
				}
			}
		}
	}
	for c := 0; c < 2; c++ {
		dc, err := sd.Get(states, ctxChromaDC+c)
		if err != nil {
			return err
		}
		if dc != 0 {
			sb := subBlock{cat: 3, scan8: 49 + c, maxCoeff: 4, isDC: true}
			if err = walkResidual(h, sd, states, sb); err != nil {
				return err
			}
		}
		for i := 0; i < 4; i++ {
			coded, err := sd.Get(states, ctxChromaAC+c)
			if err != nil {
				return err
			}
			if coded != 0 {
				sb := subBlock{cat: 4, scan8: 16 + 16*c + i, maxCoeff: 16}
				if err = walkResidual(h, sd, states, sb); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// walkResidual traverses one sub-block: the significance map, then
// one level per nonzero coefficient. A significance flag is never
// read for the final zigzag position.
func walkResidual(h recavc.Hooks, sd recavc.SpanDecoder, states []uint8, sb subBlock) error {
	h.BeginSubMB(sb.cat, sb.scan8, sb.maxCoeff, sb.isDC, sb.chroma422)
	h.BeginCodingType(model.CodingSignificanceMap, 0, 0, 0)
	nz := 0
	for z := 0; ; z++ {
		if z == sb.maxCoeff-1 {
			nz++
			break
		}
		sig, err := sd.Get(states, sigState(sb.cat, z))
		if err != nil {
			return err
		}
		if sig != 0 {
			nz++
			eob, err := sd.Get(states, eobState(sb.cat, z))
			if err != nil {
				return err
			}
			if eob != 0 {
				break
			}
		}
	}
	h.EndCodingType(model.CodingSignificanceMap)

	h.BeginCodingType(model.CodingResiduals, 0, 0, 0)
	for i := 0; i < nz; i++ {
		big, err := sd.Get(states, ctxLevel+sb.cat)
		if err != nil {
			return err
		}
		if big != 0 {
			if _, err = sd.GetBypass(); err != nil {
				return err
			}
			if _, err = sd.GetBypass(); err != nil {
				return err
			}
		}
		if _, err = sd.GetBypass(); err != nil {
			return err
		}
	}
	h.EndCodingType(model.CodingResiduals)
	h.EndSubMB()
	return nil
}
