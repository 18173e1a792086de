package ac

import "math/bits"

// Encoder compresses a sequence of binary symbols into digits of the
// configured width. The compressed bytes accumulate in memory and are
// available through Bytes after Finish.
type Encoder struct {
	out   []byte
	queue []uint64 // digits whose carry is not yet resolved
	low   uint64
	rng   uint64

	digitBits uint
	digitMax  uint64 // 2^digitBits - 1
	msd       uint64 // weight of the most significant digit
	minRange  uint64

	finished bool
}

// NewEncoder creates an encoder for the given configuration.
func NewEncoder(cfg Config) (*Encoder, error) {
	cfg.ApplyDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	e := &Encoder{
		rng:       fixedOne,
		digitBits: uint(cfg.DigitBits),
		digitMax:  1<<uint(cfg.DigitBits) - 1,
		msd:       fixedOne >> uint(cfg.DigitBits),
		minRange:  cfg.MinRange,
	}
	return e, nil
}

// Put codes one symbol. The probability function must leave both
// outcomes possible unless the coded symbol is the certain one; coding
// an impossible symbol panics, because the state can no longer
// represent any value.
func (e *Encoder) Put(symbol int, p1 ProbFn) {
	r1 := p1(e.rng)
	r0 := e.rng - r1
	if symbol != 0 {
		e.low += r0
		e.rng = r1
	} else {
		e.rng = r0
	}
	if e.rng == 0 {
		panic("ac: symbol with zero probability coded")
	}
	for e.rng < e.minRange {
		e.emitDigit()
	}
}

// emitDigit renormalizes the state by one digit. The digit is written
// out if its value can no longer change, otherwise it is queued until
// a carry decision is possible.
func (e *Encoder) emitDigit() {
	if e.low >= fixedOne {
		e.low -= fixedOne
		e.carry()
	}
	d := e.low / e.msd
	if d != (e.low+e.rng-1)/e.msd {
		e.queue = append(e.queue, d)
	} else {
		e.flushQueue()
		e.writeDigit(d)
	}
	e.low = (e.low - d*e.msd) << e.digitBits
	e.rng <<= e.digitBits
}

// carry increments the queued digits. The propagation cannot pass the
// oldest queued digit: a digit is only written out once every value in
// the remaining interval shares it.
func (e *Encoder) carry() {
	for i := len(e.queue) - 1; i >= 0; i-- {
		if e.queue[i] < e.digitMax {
			e.queue[i]++
			return
		}
		e.queue[i] = 0
	}
	panic("ac: carry overflow")
}

func (e *Encoder) flushQueue() {
	for _, d := range e.queue {
		e.writeDigit(d)
	}
	e.queue = e.queue[:0]
}

func (e *Encoder) writeDigit(d uint64) {
	for shift := e.digitBits; shift > 0; shift -= 8 {
		e.out = append(e.out, byte(d>>(shift-8)))
	}
}

// Finish terminates the stream. It selects the value in the remaining
// interval with the largest power-of-two factor, so that as few
// trailing digits as possible must be written. Calling Finish more
// than once is equivalent to calling it once.
func (e *Encoder) Finish() {
	if e.finished {
		return
	}
	e.finished = true

	x := e.low
	if x != 0 && e.rng > 1 {
		top := e.low + e.rng - 1
		p := uint(bits.Len64(e.low^top)) - 1
		x = top &^ (1<<p - 1)
	}
	if x >= fixedOne {
		x -= fixedOne
		e.carry()
	}
	e.low = x
	for e.low != 0 || len(e.queue) > 0 {
		e.flushQueue()
		if e.low == 0 {
			break
		}
		d := e.low / e.msd
		e.writeDigit(d)
		e.low = (e.low - d*e.msd) << e.digitBits
	}
}

// Bytes returns the compressed stream. It is only complete after
// Finish has been called.
func (e *Encoder) Bytes() []byte { return e.out }

// Len returns the number of compressed bytes written so far.
func (e *Encoder) Len() int { return len(e.out) }
