// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc

import (
	"bytes"
	"fmt"
)

// SurrogateMarkerBytes is the length of the unique marker prefix of a
// surrogate block. CABAC spans shorter than the marker are not
// recoded.
const SurrogateMarkerBytes = 8

// surrogatePadding fills a surrogate block after the marker. The byte
// is not one of the values 0x00..0x03 that NAL escaping acts on.
const surrogatePadding = 0x58

// spanFinder locates CABAC spans inside the source bytes while the
// external decoder consumes them through the read-packet hook. Spans
// can only be matched against bytes that have already been handed
// out.
type spanFinder struct {
	src        []byte
	readOffset int
	// prevEnd is the end of the last matched coded span; the bytes
	// between prevEnd and the next span form a literal block.
	prevEnd int
}

// readPacket copies the next source bytes into p.
func (f *spanFinder) readPacket(p []byte) (int, error) {
	n := copy(p, f.src[f.readOffset:])
	f.readOffset += n
	return n, nil
}

// find searches the already-handed-out window for the exact bytes of
// a coded span. A miss typically means the span was NAL-escaped in
// the container.
func (f *spanFinder) find(buf []byte) (start int, ok bool) {
	i := bytes.Index(f.src[f.prevEnd:f.readOffset], buf)
	if i < 0 {
		return 0, false
	}
	return f.prevEnd + i, true
}

// nextSurrogateMarker returns a unique marker with no zero bytes: the
// sequence number in base 255, digits offset by one.
func nextSurrogateMarker(seq uint64) []byte {
	marker := make([]byte, SurrogateMarkerBytes)
	for i := range marker {
		marker[i] = byte(seq%255) + 1
		seq /= 255
	}
	return marker
}

// makeSurrogateBlock builds the stand-in bytes for a coded span on
// the decompress path: the marker followed by NAL-safe padding.
func makeSurrogateBlock(marker []byte, size uint64) ([]byte, error) {
	if size < uint64(len(marker)) {
		return nil, fmt.Errorf(
			"recavc: invalid coded block size %d for surrogate", size)
	}
	block := make([]byte, size)
	copy(block, marker)
	for i := len(marker); i < len(block); i++ {
		block[i] = surrogatePadding
	}
	return block, nil
}

// blockState tracks the reconstruction of one envelope block on the
// decompress path.
type blockState struct {
	coded    bool
	marker   []byte
	outBytes []byte
	done     bool
}

// surrogateStream synthesizes the read-packet stream on the
// decompress path: literal bytes pass through and every recoded span
// is replaced by a surrogate block of the original size.
type surrogateStream struct {
	env    *Envelope
	states []blockState

	readIndex  int
	readBlock  []byte
	readOffset int

	// markerSeq generates the surrogate markers for coded blocks.
	markerSeq uint64
	// nextCoded is the head of the coded block queue: blocks handed
	// out by readPacket but not yet claimed by a decoder init call.
	nextCoded int
}

func newSurrogateStream(env *Envelope) *surrogateStream {
	return &surrogateStream{
		env:       env,
		states:    make([]blockState, len(env.Blocks)),
		markerSeq: 1,
	}
}

// readPacket serves the synthesized stream.
func (s *surrogateStream) readPacket(p []byte) (int, error) {
	n := 0
	for len(p) > 0 && s.readIndex < len(s.env.Blocks) {
		if s.readBlock == nil && s.readOffset == 0 {
			if err := s.openBlock(); err != nil {
				return n, err
			}
		}
		if s.readOffset < len(s.readBlock) {
			k := copy(p, s.readBlock[s.readOffset:])
			s.readOffset += k
			p = p[k:]
			n += k
		}
		if s.readOffset >= len(s.readBlock) {
			s.readBlock = nil
			s.readOffset = 0
			s.readIndex++
		}
	}
	return n, nil
}

// openBlock prepares the synthesized bytes of the next block.
func (s *surrogateStream) openBlock() error {
	block := &s.env.Blocks[s.readIndex]
	st := &s.states[s.readIndex]
	switch block.Kind {
	case BlockLiteral:
		// Passed through without any re-coding.
		st.outBytes = block.Literal
		st.done = true
		s.readBlock = block.Literal
	case BlockCABAC:
		st.coded = true
		st.marker = nextSurrogateMarker(s.markerSeq)
		s.markerSeq++
		surrogate, err := makeSurrogateBlock(st.marker, block.Size)
		if err != nil {
			return err
		}
		s.readBlock = surrogate
	case BlockSkip:
		// The span bytes travel in the literal block that follows;
		// this block only announces a decoder init call without a
		// surrogate marker.
		st.coded = true
		st.done = true
		s.readBlock = nil
	default:
		return fmt.Errorf("recavc: block %d: unknown block type", s.readIndex)
	}
	return nil
}

// recognizeCodedBlock matches a decoder init call against the next
// pending coded block and validates size and surrogate marker.
func (s *surrogateStream) recognizeCodedBlock(buf []byte) (int, error) {
	for s.nextCoded < len(s.states) && !s.states[s.nextCoded].coded {
		if s.nextCoded >= s.readIndex {
			return 0, errEarlyCodedBlock
		}
		s.nextCoded++
	}
	if s.nextCoded >= len(s.states) {
		return 0, errEarlyCodedBlock
	}
	index := s.nextCoded
	s.nextCoded++

	block := &s.env.Blocks[index]
	switch block.Kind {
	case BlockCABAC:
		if block.Size != uint64(len(buf)) {
			return 0, fmt.Errorf(
				"recavc: block %d: surrogate size %d, expected %d",
				index, len(buf), block.Size)
		}
		marker := s.states[index].marker
		if !bytes.Equal(buf[:len(marker)], marker) {
			return 0, fmt.Errorf(
				"recavc: block %d: surrogate marker % x, expected % x",
				index, buf[:len(marker)], marker)
		}
	case BlockSkip:
		if block.Size != uint64(len(buf)) {
			return 0, fmt.Errorf(
				"recavc: block %d: skip size %d, expected %d",
				index, len(buf), block.Size)
		}
	default:
		return 0, fmt.Errorf("recavc: block %d: coded block expected", index)
	}
	return index, nil
}
