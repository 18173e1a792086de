// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/ulikunitz/recavc/ac"
	"github.com/ulikunitz/recavc/cabac"
	"github.com/ulikunitz/recavc/internal/xlog"
	"github.com/ulikunitz/recavc/model"
)

// DecompressorConfig holds the parameters of a decompression run.
type DecompressorConfig struct {
	// DebugLog receives per-span accounting if set.
	DebugLog xlog.Logger
}

// Decompressor feeds the external decoder a synthesized stream with
// surrogate blocks in place of the recoded spans and reconstructs the
// original span bytes from the envelope payloads. It implements
// Hooks.
type Decompressor struct {
	cfg    DecompressorConfig
	env    *Envelope
	stream *surrogateStream
	m      *model.Model

	spanActive bool
}

// Decompress reconstructs the original bytes from a marshaled
// envelope, driving the hooked external decoder over the synthesized
// stream.
func Decompress(recoded []byte, dec VideoDecoder, cfg DecompressorConfig) ([]byte, error) {
	var env Envelope
	if err := env.UnmarshalBinary(recoded); err != nil {
		return nil, err
	}
	d := &Decompressor{
		cfg:    cfg,
		env:    &env,
		stream: newSurrogateStream(&env),
		m:      model.New(false),
	}
	if err := dec.DecodeVideo(d); err != nil {
		return nil, fmt.Errorf("recavc: decoder: %w", err)
	}

	var out bytes.Buffer
	for i := range d.stream.states {
		st := &d.stream.states[i]
		if !st.done {
			return nil, fmt.Errorf("recavc: block %d was not decoded", i)
		}
		out.Write(st.outBytes)
	}
	if env.OriginalSize != uint64(out.Len()) {
		return nil, fmt.Errorf("%w: size %d, envelope records %d",
			ErrIntegrity, out.Len(), env.OriginalSize)
	}
	if env.OriginalHash != 0 && env.OriginalHash != xxhash.Sum64(out.Bytes()) {
		return nil, fmt.Errorf("%w: checksum", ErrIntegrity)
	}
	return out.Bytes(), nil
}

// ReadPacket serves the synthesized stream.
func (d *Decompressor) ReadPacket(p []byte) (int, error) {
	return d.stream.readPacket(p)
}

// InitCABAC matches the decoder init call against the next pending
// coded block of the envelope.
func (d *Decompressor) InitCABAC(buf []byte) (SpanDecoder, error) {
	idx, err := d.stream.recognizeCodedBlock(buf)
	if err != nil {
		return nil, err
	}
	block := &d.env.Blocks[idx]
	if block.Kind == BlockSkip {
		// The buffer holds the original span bytes from the
		// adjacent literal; decode it directly.
		d.spanActive = false
		return &passSpan{dec: cabac.NewDecoder(buf)}, nil
	}
	adec, err := ac.NewDecoder(ac.Config{}, block.Payload)
	if err != nil {
		return nil, err
	}
	d.m.BeginSpan(decCoder{adec})
	d.spanActive = true
	return &decompressSpan{
		d:     d,
		cenc:  cabac.NewEncoder(),
		block: idx,
	}, nil
}

func (d *Decompressor) FrameSpec(frameNum, mbWidth, mbHeight int) {
	d.m.FrameSpec(frameNum, mbWidth, mbHeight)
}

func (d *Decompressor) MBXY(x, y int) {
	if d.spanActive {
		d.m.MBXY(x, y)
	}
}

func (d *Decompressor) BeginSubMB(cat, scan8Index, maxCoeff int, isDC, chroma422 bool) {
	if d.spanActive {
		d.m.BeginSubMB(cat, scan8Index, maxCoeff, isDC, chroma422)
	}
}

func (d *Decompressor) EndSubMB() {
	if d.spanActive {
		d.m.EndSubMB()
	}
}

func (d *Decompressor) BeginCodingType(ct model.CodingType, zigzagIndex, param0, param1 int) {
	if d.spanActive {
		d.m.BeginCodingType(ct, zigzagIndex, param0, param1)
	}
}

func (d *Decompressor) EndCodingType(ct model.CodingType) {
	if d.spanActive {
		d.m.EndCodingType(ct)
	}
}

// decompressSpan reproduces one original CABAC span: the model and
// arithmetic decoder produce each decision, the emit encoder replays
// it into the standard binary stream, and the external decoder
// receives it to continue its walk.
type decompressSpan struct {
	d     *Decompressor
	cenc  *cabac.Encoder
	block int
	done  bool
}

func (s *decompressSpan) Get(states []uint8, idx int) (int, error) {
	symbol := s.d.m.Decision(idx, -1)
	s.cenc.Put(states, idx, symbol)
	return symbol, nil
}

func (s *decompressSpan) GetBypass() (int, error) {
	symbol := s.d.m.Bypass(-1)
	s.cenc.PutBypass(symbol)
	return symbol, nil
}

func (s *decompressSpan) GetTerminate() (int, error) {
	symbol := s.d.m.Terminate(-1)
	s.cenc.PutTerminate(symbol)
	if symbol != 0 {
		if err := s.finish(); err != nil {
			return symbol, err
		}
	}
	return symbol, nil
}

// finish applies the trailing-byte conventions: a stop-bit-only 0x80
// tail is dropped, the length parity is restored with one padding
// byte if necessary, and the final byte is overwritten with the
// recorded one.
func (s *decompressSpan) finish() error {
	if s.done {
		return nil
	}
	s.done = true
	s.d.spanActive = false

	block := &s.d.env.Blocks[s.block]
	b := s.cenc.Bytes()
	if n := len(b); n > 0 && b[n-1] == 0x80 {
		b = b[:n-1]
	}
	if uint8(len(b)&1) != block.LengthParity {
		b = append(b, 0)
	}
	if len(b) == 0 || uint64(len(b)) != block.Size {
		return fmt.Errorf(
			"recavc: block %d: reconstructed %d bytes, original span had %d",
			s.block, len(b), block.Size)
	}
	b[len(b)-1] = block.LastByte

	st := &s.d.stream.states[s.block]
	st.outBytes = b
	st.done = true
	xlog.Printf(s.d.cfg.DebugLog, "reconstructed span: %d bytes from %d",
		len(b), len(block.Payload))
	return nil
}
