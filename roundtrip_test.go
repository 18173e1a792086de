// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc_test

import (
	"bytes"
	"testing"

	"github.com/ulikunitz/recavc"
	"github.com/ulikunitz/recavc/internal/refcodec"
)

func roundtrip(t *testing.T, stream []byte) (*recavc.RoundtripInfo, []byte) {
	t.Helper()
	info, recoded, err := recavc.Roundtrip(stream, refcodec.New(),
		recavc.CompressorConfig{}, recavc.DecompressorConfig{})
	if err != nil {
		t.Fatalf("Roundtrip error %s", err)
	}
	return info, recoded
}

func TestRoundtripConfigs(t *testing.T) {
	tests := []struct {
		name string
		cfg  refcodec.GenConfig
	}{
		{"small", refcodec.GenConfig{MBWidth: 2, MBHeight: 2, Frames: 1, Seed: 3}},
		{"default", refcodec.GenConfig{Seed: 17}},
		{"8x8 heavy", refcodec.GenConfig{
			MBWidth: 6, MBHeight: 6, Frames: 3, Seed: 5, Is8x8Percent: 80,
		}},
		{"dense", refcodec.GenConfig{
			MBWidth: 8, MBHeight: 8, Frames: 3, Seed: 23,
			SkipPercent: 5, SigPercent: 60,
		}},
		{"sparse", refcodec.GenConfig{
			MBWidth: 8, MBHeight: 8, Frames: 3, Seed: 29,
			SkipPercent: 80, SigPercent: 10,
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stream, _ := refcodec.GenerateStream(tc.cfg)
			info, _ := roundtrip(t, stream)
			if info.CABACBlocks+info.SkipBlocks == 0 {
				t.Error("no coded blocks in envelope")
			}
		})
	}
}

// TestCompressShrinks exercises the primary claim on a stream large
// enough for the model to adapt: repeated frames make the persistent
// estimators and the nonzero count prediction effective.
func TestCompressShrinks(t *testing.T) {
	stream, _ := refcodec.GenerateStream(refcodec.GenConfig{
		MBWidth: 12, MBHeight: 12, Frames: 8, Seed: 1,
		SigPercent: 15, StaticScene: true,
	})
	info, _ := roundtrip(t, stream)
	if info.RecodedSize > info.OriginalSize {
		t.Errorf("recoded %d bytes > original %d bytes",
			info.RecodedSize, info.OriginalSize)
	}
}

// TestSkipCodedSpan finds a stream whose CABAC span carries a NAL
// escape sequence. The compressor must classify it skip-coded, carry
// the bytes in the adjacent literal, and still roundtrip exactly.
func TestSkipCodedSpan(t *testing.T) {
	for seed := int64(1); seed <= 300; seed++ {
		cfg := refcodec.GenConfig{
			MBWidth: 8, MBHeight: 8, Frames: 2, Seed: seed,
			SkipPercent: 5, SigPercent: 90,
		}
		stream, gi := refcodec.GenerateStream(cfg)
		if gi.EscapedSpans == 0 {
			continue
		}
		if !bytes.Contains(stream, []byte{0, 0, 3}) {
			t.Fatal("escaped stream lacks the escape sequence")
		}
		info, recoded := roundtrip(t, stream)
		if info.SkipBlocks == 0 {
			t.Fatal("escaped span not classified skip-coded")
		}
		var env recavc.Envelope
		if err := env.UnmarshalBinary(recoded); err != nil {
			t.Fatal(err)
		}
		for i, b := range env.Blocks {
			if b.Kind != recavc.BlockSkip {
				continue
			}
			// the span bytes travel in the next non-skip block,
			// which must be a literal
			j := i + 1
			for j < len(env.Blocks) && env.Blocks[j].Kind == recavc.BlockSkip {
				j++
			}
			if j >= len(env.Blocks) || env.Blocks[j].Kind != recavc.BlockLiteral {
				t.Errorf("skip block %d not covered by a literal", i)
			}
		}
		return
	}
	t.Fatal("no seed produced an escaped span")
}

// TestTrailingStopByteSpan covers the padding ambiguity: a span
// ending in a bare stop-bit byte with odd length must reconstruct
// through the parity and last-byte correction.
func TestTrailingStopByteSpan(t *testing.T) {
	for seed := int64(1); seed <= 500; seed++ {
		stream, gi := refcodec.GenerateStream(refcodec.GenConfig{
			MBWidth: 6, MBHeight: 6, Frames: 2, Seed: seed,
		})
		match := false
		for i, last := range gi.LastBytes {
			if last == 0x80 && gi.SpanSizes[i]%2 == 1 {
				match = true
			}
		}
		if !match {
			continue
		}
		_, recoded := roundtrip(t, stream)
		var env recavc.Envelope
		if err := env.UnmarshalBinary(recoded); err != nil {
			t.Fatal(err)
		}
		found := false
		for _, b := range env.Blocks {
			if b.Kind == recavc.BlockCABAC && b.LastByte == 0x80 &&
				b.LengthParity == 1 {
				found = true
			}
		}
		if !found {
			// the 0x80 span may have been skip-coded; keep looking
			continue
		}
		return
	}
	t.Fatal("no seed produced an odd-length span ending in 0x80")
}

// TestTwoFrameMetadata decodes a second frame of identical geometry:
// its nonzero count contexts read the first frame's records on both
// paths, so the roundtrip only succeeds if the temporal prediction
// state agrees.
func TestTwoFrameMetadata(t *testing.T) {
	cfg := refcodec.GenConfig{MBWidth: 8, MBHeight: 8, Frames: 2, Seed: 77}
	stream, _ := refcodec.GenerateStream(cfg)
	info, _ := roundtrip(t, stream)
	if info.CABACBlocks == 0 {
		t.Fatal("no recoded spans")
	}
}

func TestCompressDeterministic(t *testing.T) {
	stream, _ := refcodec.GenerateStream(refcodec.GenConfig{Seed: 9})
	a, err := recavc.Compress(stream, refcodec.New(), recavc.CompressorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := recavc.Compress(stream, refcodec.New(), recavc.CompressorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("compression is not deterministic")
	}
}

// TestCorruptEnvelope checks that tampering is detected rather than
// silently producing wrong output.
func TestCorruptEnvelope(t *testing.T) {
	stream, _ := refcodec.GenerateStream(refcodec.GenConfig{
		MBWidth: 6, MBHeight: 6, Frames: 2, Seed: 13,
	})
	recoded, err := recavc.Compress(stream, refcodec.New(),
		recavc.CompressorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	var env recavc.Envelope
	if err = env.UnmarshalBinary(recoded); err != nil {
		t.Fatal(err)
	}
	tampered := false
	for i := range env.Blocks {
		if env.Blocks[i].Kind == recavc.BlockCABAC {
			env.Blocks[i].Size++
			tampered = true
			break
		}
	}
	if !tampered {
		t.Skip("no cabac block to tamper with")
	}
	bad, err := env.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if _, err = recavc.Decompress(bad, refcodec.New(),
		recavc.DecompressorConfig{}); err == nil {
		t.Fatal("tampered envelope decoded without error")
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := recavc.Decompress([]byte("not an envelope"), refcodec.New(),
		recavc.DecompressorConfig{}); err == nil {
		t.Fatal("garbage accepted as envelope")
	}
}
