// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc

import "github.com/ulikunitz/recavc/model"

// Hooks is the interface an engine presents to the external hooked
// H.264 decoder. The decoder pulls its input through ReadPacket,
// announces every CABAC span through InitCABAC and reports its walk
// through the model hooks. All calls are synchronous; the engine is
// strictly single-threaded.
type Hooks interface {
	// ReadPacket fills p with the next input bytes. It returns 0
	// at the end of the stream.
	ReadPacket(p []byte) (n int, err error)

	// InitCABAC announces a CABAC-coded span of len(buf) bytes. The
	// returned span decoder serves every binary decision of the
	// span.
	InitCABAC(buf []byte) (SpanDecoder, error)

	// Model hooks. The decoder reports frame geometry, the active
	// macroblock, the active sub-block, and the sections of the
	// residual walk.
	FrameSpec(frameNum, mbWidth, mbHeight int)
	MBXY(x, y int)
	BeginSubMB(cat, scan8Index, maxCoeff int, isDC, chroma422 bool)
	EndSubMB()
	BeginCodingType(ct model.CodingType, zigzagIndex, param0, param1 int)
	EndCodingType(ct model.CodingType)
}

// SpanDecoder serves the binary decisions of one CABAC span. The
// probability states live in a byte slice owned by the external
// decoder; a decision's context is the offset of its state byte, so
// no raw addresses cross the boundary.
type SpanDecoder interface {
	Get(states []uint8, idx int) (int, error)
	GetBypass() (int, error)
	GetTerminate() (int, error)
}

// VideoDecoder is the external hooked decoder: it parses the packet
// stream it reads through the hooks and reports every CABAC decision.
// A decoder must behave deterministically given the packet bytes and
// the decision values the span decoders return.
type VideoDecoder interface {
	DecodeVideo(h Hooks) error
}
