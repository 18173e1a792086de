// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc

import (
	"github.com/ulikunitz/recavc/ac"
	"github.com/ulikunitz/recavc/cabac"
)

// encCoder couples the model to the arithmetic encoder: the known
// symbol is coded and passed through.
type encCoder struct {
	e *ac.Encoder
}

func (c encCoder) Code(symbol int, p ac.ProbFn) int {
	c.e.Put(symbol, p)
	return symbol
}

// decCoder couples the model to the arithmetic decoder: the symbol is
// produced by the decoder.
type decCoder struct {
	d *ac.Decoder
}

func (c decCoder) Code(_ int, p ac.ProbFn) int {
	return c.d.Get(p)
}

// passSpan serves a skipped span directly from the original span
// bytes, bypassing model and arithmetic coder. It is used on both
// paths for spans the compressor could not capture.
type passSpan struct {
	dec *cabac.Decoder
}

func (s *passSpan) Get(states []uint8, idx int) (int, error) {
	return s.dec.Get(states, idx), nil
}

func (s *passSpan) GetBypass() (int, error) {
	return s.dec.GetBypass(), nil
}

func (s *passSpan) GetTerminate() (int, error) {
	return s.dec.GetTerminate(), nil
}
