package ac

// Decoder reproduces the symbol sequence from a compressed stream. It
// mirrors the encoder state and keeps a shift register of recently
// consumed digits; once the input is exhausted it continues with zero
// digits, which matches the trailing digits the encoder omitted.
type Decoder struct {
	in  []byte
	pos int

	code uint64 // value window relative to the interval base
	rng  uint64

	acc     uint64 // bit-level staging of input digits
	accBits uint

	digitBits uint
	minRange  uint64
}

// NewDecoder creates a decoder reading the compressed stream in. The
// configuration must match the encoder's.
func NewDecoder(cfg Config, in []byte) (*Decoder, error) {
	cfg.ApplyDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	d := &Decoder{
		in:        in,
		rng:       fixedOne,
		digitBits: uint(cfg.DigitBits),
		minRange:  cfg.MinRange,
	}
	// Load the integer part of the value window: 63 bits, aligned
	// with the weight of the most significant compressed digit.
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(d.nextByte())
	}
	d.code = v >> 1
	d.acc = v & 1
	d.accBits = 1
	return d, nil
}

func (d *Decoder) nextByte() byte {
	if d.pos >= len(d.in) {
		return 0
	}
	b := d.in[d.pos]
	d.pos++
	return b
}

func (d *Decoder) nextBits(n uint) uint64 {
	for d.accBits < n {
		d.acc = d.acc<<8 | uint64(d.nextByte())
		d.accBits += 8
	}
	d.accBits -= n
	v := d.acc >> d.accBits
	d.acc &= 1<<d.accBits - 1
	return v
}

// Get decodes one symbol using the same probability function the
// encoder used at this position.
func (d *Decoder) Get(p1 ProbFn) int {
	r1 := p1(d.rng)
	r0 := d.rng - r1
	var symbol int
	if d.code >= r0 {
		symbol = 1
		d.code -= r0
		d.rng = r1
	} else {
		d.rng = r0
	}
	for d.rng < d.minRange {
		d.rng <<= d.digitBits
		d.code = d.code<<d.digitBits | d.nextBits(d.digitBits)
	}
	return symbol
}

// Exhausted reports whether the decoder has consumed all input bytes.
func (d *Decoder) Exhausted() bool { return d.pos >= len(d.in) }
