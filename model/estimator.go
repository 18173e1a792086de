package model

// handle names the family a context key belongs to. Raw decoder
// states are keyed by their offset in the state array; the synthetic
// families carry their parameters in p0 and p1.
type handle int8

const (
	hState handle = iota
	hBypass
	hTerminate
	hSig
	hNZ
)

// ctxKey identifies one adaptive probability estimator.
type ctxKey struct {
	h   handle
	off int32
	p0  int32
	p1  int32
}

// estimator is a Laplace-smoothed event counter. Both counts stay at
// least 1, so neither outcome ever gets probability zero.
type estimator struct {
	pos uint16
	neg uint16
}

// estimatorLimit bounds the total count of an estimator; exceeding it
// halves both counts so the estimator tracks local statistics.
const (
	estimatorLimit    = 0x60
	sigEstimatorLimit = 0x50
)

// prob returns the share of the range r that belongs to symbol 1.
func (e *estimator) prob(r uint64) uint64 {
	return r / uint64(e.pos+e.neg) * uint64(e.pos)
}

func (e *estimator) update(symbol, limit int) {
	if symbol != 0 {
		e.pos++
	} else {
		e.neg++
	}
	if int(e.pos)+int(e.neg) > limit {
		e.pos = (e.pos + 1) / 2
		e.neg = (e.neg + 1) / 2
	}
}

func (m *Model) estimator(k ctxKey) *estimator {
	e := m.estimators[k]
	if e == nil {
		e = &estimator{pos: 1, neg: 1}
		m.estimators[k] = e
	}
	return e
}

// code runs one symbol through the estimator for k and the bound
// symbol coder. On the encode path the symbol is passed through; on
// the decode path it is produced by the arithmetic decoder.
func (m *Model) code(k ctxKey, symbol, limit int) int {
	e := m.estimator(k)
	out := m.coder.Code(symbol, e.prob)
	e.update(out, limit)
	return out
}
