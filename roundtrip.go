// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc

import "bytes"

// RoundtripInfo summarizes a verified compress-decompress roundtrip.
type RoundtripInfo struct {
	OriginalSize int
	RecodedSize  int
	// Ratio is recoded size over original size.
	Ratio float64
	// FramingOverhead is the share of the recoded size that is
	// neither literal bytes nor recoded payload.
	FramingOverhead float64

	LiteralBlocks int
	CABACBlocks   int
	SkipBlocks    int
}

// Roundtrip compresses src, decompresses the result and verifies byte
// equality. It returns the statistics and the recoded bytes.
func Roundtrip(src []byte, dec VideoDecoder, ccfg CompressorConfig,
	dcfg DecompressorConfig) (*RoundtripInfo, []byte, error) {

	recoded, err := Compress(src, dec, ccfg)
	if err != nil {
		return nil, nil, err
	}
	decoded, err := Decompress(recoded, dec, dcfg)
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(src, decoded) {
		return nil, nil, ErrRoundtrip
	}

	var env Envelope
	if err = env.UnmarshalBinary(recoded); err != nil {
		return nil, nil, err
	}
	info := &RoundtripInfo{
		OriginalSize: len(src),
		RecodedSize:  len(recoded),
	}
	if len(src) > 0 {
		info.Ratio = float64(len(recoded)) / float64(len(src))
	}
	if len(recoded) > 0 {
		info.FramingOverhead =
			float64(len(recoded)-env.PayloadBytes()) / float64(len(recoded))
	}
	for i := range env.Blocks {
		switch env.Blocks[i].Kind {
		case BlockLiteral:
			info.LiteralBlocks++
		case BlockCABAC:
			info.CABACBlocks++
		case BlockSkip:
			info.SkipBlocks++
		}
	}
	return info, recoded, nil
}
