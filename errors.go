// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc

import "errors"

// errEarlyCodedBlock reports a decoder init call with no matching
// coded block in the envelope.
var errEarlyCodedBlock = errors.New(
	"recavc: coded block expected, but not recorded in the recoded data")

// ErrRoundtrip reports that decompressing the recoded data did not
// reproduce the original bytes.
var ErrRoundtrip = errors.New(
	"recavc: compress-decompress roundtrip mismatch")

// ErrIntegrity reports that the reassembled output contradicts the
// size or checksum recorded in the envelope.
var ErrIntegrity = errors.New(
	"recavc: output does not match envelope integrity fields")
