// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/ulikunitz/recavc/ac"
	"github.com/ulikunitz/recavc/cabac"
	"github.com/ulikunitz/recavc/internal/xlog"
	"github.com/ulikunitz/recavc/model"
)

// CompressorConfig holds the parameters of a compression run.
type CompressorConfig struct {
	// DebugLog receives per-span accounting if set.
	DebugLog xlog.Logger
}

// Compressor drives the external decoder over the original bytes and
// builds the recoded envelope. It implements Hooks.
type Compressor struct {
	cfg    CompressorConfig
	finder spanFinder
	m      *model.Model
	env    Envelope

	// spanActive gates the model hooks: during skipped spans the
	// walk is not modelled on either path.
	spanActive bool
}

// Compress recodes src, driving the hooked external decoder, and
// returns the marshaled envelope.
func Compress(src []byte, dec VideoDecoder, cfg CompressorConfig) ([]byte, error) {
	c := &Compressor{cfg: cfg, m: model.New(true)}
	c.finder.src = src
	if err := dec.DecodeVideo(c); err != nil {
		return nil, fmt.Errorf("recavc: decoder: %w", err)
	}
	// Flush the bytes after the last coded span as a final literal.
	c.env.Blocks = append(c.env.Blocks, Block{
		Kind:    BlockLiteral,
		Literal: src[c.finder.prevEnd:],
	})
	c.env.Version = EnvelopeVersion
	c.env.OriginalSize = uint64(len(src))
	c.env.OriginalHash = xxhash.Sum64(src)
	return c.env.MarshalBinary()
}

// ReadPacket hands the original bytes to the external decoder.
func (c *Compressor) ReadPacket(p []byte) (int, error) {
	return c.finder.readPacket(p)
}

// InitCABAC classifies a coded span. A span whose bytes occur
// verbatim in the already-read source window is recoded; anything
// else, typically a NAL-escaped span, travels as skip plus literal.
func (c *Compressor) InitCABAC(buf []byte) (SpanDecoder, error) {
	start, ok := c.finder.find(buf)
	if ok && len(buf) >= SurrogateMarkerBytes {
		gap := c.finder.src[c.finder.prevEnd:start]
		c.env.Blocks = append(c.env.Blocks, Block{
			Kind:    BlockLiteral,
			Literal: gap,
		})
		c.finder.prevEnd = start + len(buf)
		c.env.Blocks = append(c.env.Blocks, Block{
			Kind:         BlockCABAC,
			Size:         uint64(len(buf)),
			LengthParity: uint8(len(buf) & 1),
			LastByte:     buf[len(buf)-1],
		})
		enc, err := ac.NewEncoder(ac.Config{})
		if err != nil {
			return nil, err
		}
		c.m.BeginSpan(encCoder{enc})
		c.spanActive = true
		return &compressSpan{
			c:     c,
			dec:   cabac.NewDecoder(buf),
			enc:   enc,
			block: len(c.env.Blocks) - 1,
		}, nil
	}
	xlog.Printf(c.cfg.DebugLog, "skip span of %d bytes", len(buf))
	c.env.Blocks = append(c.env.Blocks, Block{
		Kind: BlockSkip,
		Size: uint64(len(buf)),
	})
	c.spanActive = false
	return &passSpan{dec: cabac.NewDecoder(buf)}, nil
}

// FrameSpec is forwarded unconditionally: frame rotation is global
// state, independent of the span being modelled.
func (c *Compressor) FrameSpec(frameNum, mbWidth, mbHeight int) {
	c.m.FrameSpec(frameNum, mbWidth, mbHeight)
}

func (c *Compressor) MBXY(x, y int) {
	if c.spanActive {
		c.m.MBXY(x, y)
	}
}

func (c *Compressor) BeginSubMB(cat, scan8Index, maxCoeff int, isDC, chroma422 bool) {
	if c.spanActive {
		c.m.BeginSubMB(cat, scan8Index, maxCoeff, isDC, chroma422)
	}
}

func (c *Compressor) EndSubMB() {
	if c.spanActive {
		c.m.EndSubMB()
	}
}

func (c *Compressor) BeginCodingType(ct model.CodingType, zigzagIndex, param0, param1 int) {
	if c.spanActive {
		c.m.BeginCodingType(ct, zigzagIndex, param0, param1)
	}
}

func (c *Compressor) EndCodingType(ct model.CodingType) {
	if c.spanActive {
		c.m.EndCodingType(ct)
	}
}

// compressSpan recodes one CABAC span: it decodes the original span
// bytes itself, feeds every decision through the model into the
// arithmetic encoder and echoes the decision to the external decoder.
type compressSpan struct {
	c     *Compressor
	dec   *cabac.Decoder
	enc   *ac.Encoder
	block int
	done  bool
}

func (s *compressSpan) Get(states []uint8, idx int) (int, error) {
	symbol := s.dec.Get(states, idx)
	s.c.m.Decision(idx, symbol)
	return symbol, nil
}

func (s *compressSpan) GetBypass() (int, error) {
	symbol := s.dec.GetBypass()
	s.c.m.Bypass(symbol)
	return symbol, nil
}

func (s *compressSpan) GetTerminate() (int, error) {
	symbol := s.dec.GetTerminate()
	s.c.m.Terminate(symbol)
	if symbol != 0 {
		s.finish()
	}
	return symbol, nil
}

func (s *compressSpan) finish() {
	if s.done {
		return
	}
	s.done = true
	s.enc.Finish()
	block := &s.c.env.Blocks[s.block]
	block.Payload = s.enc.Bytes()
	s.c.spanActive = false
	xlog.Printf(s.c.cfg.DebugLog, "recoded span: %d -> %d bytes",
		block.Size, len(block.Payload))
}
