// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recavc provides lossless re-compression of CABAC-coded
// video streams. Compression replaces every CABAC-coded span of the
// input with an arithmetic-coded restatement under an adaptive
// predictive model and stores the remainder of the stream verbatim;
// decompression reproduces the original bytes exactly.
//
// The engines are driven by an external hooked decoder implementing
// the VideoDecoder interface, which parses the stream and reports
// every binary decision of its CABAC walk through the Hooks
// interface.
//
// Usage:
//
//	recoded, err := recavc.Compress(src, dec, recavc.CompressorConfig{})
//
//	src, err = recavc.Decompress(recoded, dec, recavc.DecompressorConfig{})
package recavc
