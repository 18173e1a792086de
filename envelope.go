// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recavc

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// BlockKind selects the variant of an envelope block.
type BlockKind int

const (
	// BlockLiteral carries bytes copied verbatim from the source.
	BlockLiteral BlockKind = iota + 1
	// BlockCABAC carries the arithmetic-coded restatement of a
	// CABAC span.
	BlockCABAC
	// BlockSkip marks a CABAC span that could not be captured
	// losslessly; its bytes travel in an adjacent literal.
	BlockSkip
)

// Block is one element of the recoded envelope. Exactly one variant
// is set, selected by Kind.
type Block struct {
	Kind BlockKind

	// Literal bytes (BlockLiteral).
	Literal []byte

	// Recoded payload (BlockCABAC).
	Payload []byte

	// Original span size in bytes (BlockCABAC and BlockSkip).
	Size uint64

	// Parity of the original span length and its final byte
	// (BlockCABAC). They compensate the stop-bit padding ambiguity
	// of the standard encoder.
	LengthParity uint8
	LastByte     byte
}

// verify checks the single-variant invariant of the block.
func (b *Block) verify() error {
	switch b.Kind {
	case BlockLiteral:
		if b.Payload != nil || b.Size != 0 {
			return errors.New("recavc: literal block with coded fields")
		}
	case BlockCABAC:
		if b.Literal != nil {
			return errors.New("recavc: cabac block with literal bytes")
		}
		if b.Size == 0 {
			return errors.New("recavc: cabac block requires size field")
		}
	case BlockSkip:
		if b.Literal != nil || b.Payload != nil {
			return errors.New("recavc: skip block with payload")
		}
		if b.Size == 0 {
			return errors.New("recavc: skip block requires size field")
		}
	default:
		return fmt.Errorf("recavc: invalid block kind %d", b.Kind)
	}
	return nil
}

// Envelope is the recoded representation of a file: an ordered block
// sequence plus integrity information about the original bytes.
type Envelope struct {
	Version      uint64
	OriginalSize uint64
	OriginalHash uint64
	Blocks       []Block
}

// EnvelopeVersion is the version number written into new envelopes.
const EnvelopeVersion = 1

// Field numbers of the envelope message and its block submessage. The
// wire format is protobuf: varints and length-delimited fields,
// little-endian-on-wire.
const (
	fieldBlock        = 1
	fieldVersion      = 2
	fieldOriginalSize = 3
	fieldOriginalHash = 4

	fieldLiteral      = 1
	fieldCABAC        = 2
	fieldSkipCoded    = 3
	fieldSize         = 4
	fieldLengthParity = 5
	fieldLastByte     = 6
)

// MarshalBinary serializes the envelope.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	var out []byte
	out = protowire.AppendTag(out, fieldVersion, protowire.VarintType)
	out = protowire.AppendVarint(out, e.Version)
	out = protowire.AppendTag(out, fieldOriginalSize, protowire.VarintType)
	out = protowire.AppendVarint(out, e.OriginalSize)
	out = protowire.AppendTag(out, fieldOriginalHash, protowire.Fixed64Type)
	out = protowire.AppendFixed64(out, e.OriginalHash)
	for i := range e.Blocks {
		b := &e.Blocks[i]
		if err := b.verify(); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out = protowire.AppendTag(out, fieldBlock, protowire.BytesType)
		out = protowire.AppendBytes(out, appendBlock(nil, b))
	}
	return out, nil
}

func appendBlock(out []byte, b *Block) []byte {
	switch b.Kind {
	case BlockLiteral:
		out = protowire.AppendTag(out, fieldLiteral, protowire.BytesType)
		out = protowire.AppendBytes(out, b.Literal)
	case BlockCABAC:
		out = protowire.AppendTag(out, fieldCABAC, protowire.BytesType)
		out = protowire.AppendBytes(out, b.Payload)
		out = protowire.AppendTag(out, fieldSize, protowire.VarintType)
		out = protowire.AppendVarint(out, b.Size)
		out = protowire.AppendTag(out, fieldLengthParity, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(b.LengthParity))
		out = protowire.AppendTag(out, fieldLastByte, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(b.LastByte))
	case BlockSkip:
		out = protowire.AppendTag(out, fieldSkipCoded, protowire.VarintType)
		out = protowire.AppendVarint(out, 1)
		out = protowire.AppendTag(out, fieldSize, protowire.VarintType)
		out = protowire.AppendVarint(out, b.Size)
	}
	return out
}

// UnmarshalBinary parses an envelope. Any structural violation,
// including a block without exactly one variant, is an error.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	*e = Envelope{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("recavc: envelope: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldBlock && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("recavc: envelope: %w", protowire.ParseError(n))
			}
			data = data[n:]
			b, err := parseBlock(raw)
			if err != nil {
				return fmt.Errorf("recavc: envelope block %d: %w",
					len(e.Blocks), err)
			}
			e.Blocks = append(e.Blocks, b)
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("recavc: envelope: %w", protowire.ParseError(n))
			}
			data = data[n:]
			e.Version = v
		case num == fieldOriginalSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("recavc: envelope: %w", protowire.ParseError(n))
			}
			data = data[n:]
			e.OriginalSize = v
		case num == fieldOriginalHash && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return fmt.Errorf("recavc: envelope: %w", protowire.ParseError(n))
			}
			data = data[n:]
			e.OriginalHash = v
		default:
			return fmt.Errorf("recavc: envelope: unknown field %d", num)
		}
	}
	return nil
}

func parseBlock(data []byte) (Block, error) {
	var (
		b        Block
		variants int
		skipVal  uint64
		skipSeen bool
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return b, protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == fieldLiteral && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			data = data[n:]
			b.Kind = BlockLiteral
			b.Literal = append([]byte(nil), v...)
			variants++
		case num == fieldCABAC && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			data = data[n:]
			b.Kind = BlockCABAC
			b.Payload = append([]byte(nil), v...)
			variants++
		case num == fieldSkipCoded && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			data = data[n:]
			skipVal = v
			skipSeen = true
			b.Kind = BlockSkip
			variants++
		case num == fieldSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			data = data[n:]
			b.Size = v
		case num == fieldLengthParity && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			data = data[n:]
			b.LengthParity = uint8(v & 1)
		case num == fieldLastByte && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			data = data[n:]
			b.LastByte = byte(v)
		default:
			return b, fmt.Errorf("unknown field %d", num)
		}
	}
	if variants != 1 {
		return b, errors.New("block must have exactly one type")
	}
	if skipSeen && skipVal == 0 {
		return b, errors.New("unknown block type")
	}
	if b.Kind == BlockCABAC && b.Size == 0 {
		return b, errors.New("cabac block requires size field")
	}
	if b.Kind == BlockSkip && b.Size == 0 {
		return b, errors.New("skip block requires size field")
	}
	return b, nil
}

// PayloadBytes returns the number of literal and recoded payload bytes
// in the envelope. The difference to the marshaled size is the
// framing overhead.
func (e *Envelope) PayloadBytes() int {
	n := 0
	for i := range e.Blocks {
		n += len(e.Blocks[i].Literal) + len(e.Blocks[i].Payload)
	}
	return n
}
