// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc

import (
	"bytes"
	"testing"
)

func TestSurrogateMarkers(t *testing.T) {
	seen := make(map[string]bool)
	for seq := uint64(1); seq < 1000; seq++ {
		m := nextSurrogateMarker(seq)
		if len(m) != SurrogateMarkerBytes {
			t.Fatalf("marker length %d", len(m))
		}
		if bytes.IndexByte(m, 0) >= 0 {
			t.Fatalf("marker %x contains a zero byte", m)
		}
		if seen[string(m)] {
			t.Fatalf("marker %x repeats", m)
		}
		seen[string(m)] = true
	}
}

func TestMakeSurrogateBlock(t *testing.T) {
	marker := nextSurrogateMarker(1)
	b, err := makeSurrogateBlock(marker, 12)
	if err != nil {
		t.Fatalf("makeSurrogateBlock error %s", err)
	}
	if len(b) != 12 {
		t.Fatalf("surrogate length %d; want 12", len(b))
	}
	if !bytes.Equal(b[:8], marker) {
		t.Error("surrogate does not start with the marker")
	}
	for _, c := range b[8:] {
		if c != surrogatePadding {
			t.Errorf("padding byte %#02x", c)
		}
	}
	if _, err = makeSurrogateBlock(marker, 4); err == nil {
		t.Error("undersized surrogate accepted")
	}
}

func TestSpanFinderWindow(t *testing.T) {
	src := []byte("aaaa-span1-bbbb-span2-cccc")
	f := &spanFinder{src: src}

	buf := make([]byte, 16)
	n, err := f.readPacket(buf)
	if err != nil || n != 16 {
		t.Fatalf("readPacket = %d, %v", n, err)
	}

	// span1 is inside the handed-out window.
	start, ok := f.find([]byte("span1"))
	if !ok || start != 5 {
		t.Fatalf("find(span1) = %d, %t", start, ok)
	}
	// span2 has not been handed out yet.
	if _, ok = f.find([]byte("span2")); ok {
		t.Fatal("find(span2) succeeded outside the window")
	}
	for {
		n, err = f.readPacket(buf)
		if err != nil {
			t.Fatalf("readPacket error %s", err)
		}
		if n == 0 {
			break
		}
	}
	if _, ok = f.find([]byte("span2")); !ok {
		t.Fatal("find(span2) failed after reading the stream")
	}

	// Bytes before prevEnd leave the window.
	f.prevEnd = 12
	if _, ok = f.find([]byte("span1")); ok {
		t.Fatal("find(span1) succeeded behind prevEnd")
	}
}

func TestSurrogateStream(t *testing.T) {
	env := &Envelope{Blocks: []Block{
		{Kind: BlockLiteral, Literal: []byte("head")},
		{Kind: BlockCABAC, Payload: []byte{1}, Size: 10, LastByte: 1},
		{Kind: BlockSkip, Size: 6},
		{Kind: BlockLiteral, Literal: []byte("escaped-span")},
	}}
	s := newSurrogateStream(env)

	var stream []byte
	buf := make([]byte, 7)
	for {
		n, err := s.readPacket(buf)
		if err != nil {
			t.Fatalf("readPacket error %s", err)
		}
		if n == 0 {
			break
		}
		stream = append(stream, buf[:n]...)
	}
	want := len("head") + 10 + len("escaped-span")
	if len(stream) != want {
		t.Fatalf("stream length %d; want %d", len(stream), want)
	}
	surrogate := stream[4:14]

	// The coded blocks are recognized in order; the cabac block
	// checks its marker, the skip block only its size.
	idx, err := s.recognizeCodedBlock(surrogate)
	if err != nil || idx != 1 {
		t.Fatalf("recognizeCodedBlock = %d, %v", idx, err)
	}
	idx, err = s.recognizeCodedBlock([]byte("escape"))
	if err != nil || idx != 2 {
		t.Fatalf("recognizeCodedBlock = %d, %v", idx, err)
	}

	// A wrong marker is envelope corruption.
	s2 := newSurrogateStream(env)
	for {
		n, err := s2.readPacket(buf)
		if err != nil {
			t.Fatalf("readPacket error %s", err)
		}
		if n == 0 {
			break
		}
	}
	bad := append([]byte(nil), surrogate...)
	bad[0] ^= 0xff
	if _, err = s2.recognizeCodedBlock(bad); err == nil {
		t.Fatal("wrong surrogate marker accepted")
	}
}
