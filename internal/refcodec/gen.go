package refcodec

import (
	"bytes"
	"math/rand"

	"github.com/ulikunitz/recavc/cabac"
)

// GenConfig parameterizes stream generation. The percentages bias the
// pseudo-random syntax decisions.
type GenConfig struct {
	MBWidth  int
	MBHeight int
	Frames   int
	Seed     int64

	SkipPercent     int // macroblock is skipped
	Is8x8Percent    int // macroblock uses 8x8 sub-blocks
	CodedPercent    int // sub-block carries coefficients
	SigPercent      int // coefficient is significant
	LevelBigPercent int // level needs magnitude bits

	// StaticScene repeats the same pseudo-random content in every
	// frame, giving temporal prediction something to work with.
	StaticScene bool
}

// ApplyDefaults replaces zero values by the default configuration.
func (c *GenConfig) ApplyDefaults() {
	if c.MBWidth == 0 {
		c.MBWidth = 4
	}
	if c.MBHeight == 0 {
		c.MBHeight = 4
	}
	if c.Frames == 0 {
		c.Frames = 2
	}
	if c.SkipPercent == 0 {
		c.SkipPercent = 25
	}
	if c.Is8x8Percent == 0 {
		c.Is8x8Percent = 25
	}
	if c.CodedPercent == 0 {
		c.CodedPercent = 60
	}
	if c.SigPercent == 0 {
		c.SigPercent = 35
	}
	if c.LevelBigPercent == 0 {
		c.LevelBigPercent = 30
	}
}

// GenInfo reports properties of a generated stream that tests select
// on.
type GenInfo struct {
	// SpanSizes and LastBytes describe the unescaped CABAC spans in
	// order.
	SpanSizes []int
	LastBytes []byte
	// EscapedSpans counts spans whose file bytes differ from the
	// span bytes because of NAL escaping.
	EscapedSpans int
}

// GenerateStream builds a synthetic stream the reference codec can
// walk. The result is a pure function of the configuration.
func GenerateStream(cfg GenConfig) ([]byte, GenInfo) {
	cfg.ApplyDefaults()
	var info GenInfo
	var out bytes.Buffer

	out.Write(startCode)
	out.WriteByte(nalSPS)
	out.WriteByte(byte(cfg.MBWidth))
	out.WriteByte(byte(cfg.MBHeight))
	out.WriteByte(byte(cfg.Frames))

	for f := 0; f < cfg.Frames; f++ {
		frameSeed := cfg.Seed + int64(f)
		if cfg.StaticScene {
			frameSeed = cfg.Seed
		}
		rng := rand.New(rand.NewSource(frameSeed))
		enc := cabac.NewEncoder()
		states := newStates()
		for y := 0; y < cfg.MBHeight; y++ {
			for x := 0; x < cfg.MBWidth; x++ {
				genMB(enc, states, rng, &cfg)
				last := y == cfg.MBHeight-1 && x == cfg.MBWidth-1
				if last {
					enc.PutTerminate(1)
				} else {
					enc.PutTerminate(0)
				}
			}
		}
		span := enc.Bytes()
		escaped := escapeNAL(span)
		if !bytes.Equal(escaped, span) {
			info.EscapedSpans++
		}
		info.SpanSizes = append(info.SpanSizes, len(span))
		info.LastBytes = append(info.LastBytes, span[len(span)-1])

		out.Write(startCode)
		out.WriteByte(nalIDR)
		out.WriteByte(byte(f))
		out.WriteByte(byte(len(escaped) >> 8))
		out.WriteByte(byte(len(escaped)))
		out.Write(escaped)
	}
	return out.Bytes(), info
}

func pct(rng *rand.Rand, percent int) int {
	if rng.Intn(100) < percent {
		return 1
	}
	return 0
}

func genMB(enc *cabac.Encoder, states []uint8, rng *rand.Rand, cfg *GenConfig) {
	skip := pct(rng, cfg.SkipPercent)
	enc.Put(states, ctxSkip, skip)
	if skip != 0 {
		return
	}
	is8x8 := pct(rng, cfg.Is8x8Percent)
	enc.Put(states, ctx8x8, is8x8)
	if is8x8 != 0 {
		for b := 0; b < 4; b++ {
			coded := pct(rng, cfg.CodedPercent)
			enc.Put(states, ctxCoded8x8+b, coded)
			if coded != 0 {
				genResidual(enc, states, rng, cfg, subBlock{
					cat: 5, scan8: 4 * b, maxCoeff: 64,
				})
			}
		}
	} else {
		dc := pct(rng, cfg.CodedPercent)
		enc.Put(states, ctxLumaDC, dc)
		if dc != 0 {
			genResidual(enc, states, rng, cfg, subBlock{
				cat: 0, scan8: 48, maxCoeff: 16, isDC: true,
			})
		}
		for i := 0; i < 16; i++ {
			coded := pct(rng, cfg.CodedPercent)
			enc.Put(states, ctxCoded4x4, coded)
			if coded != 0 {
				genResidual(enc, states, rng, cfg, subBlock{
					cat: 2, scan8: i, maxCoeff: 16,
				})
			}
		}
	}
	for c := 0; c < 2; c++ {
		dc := pct(rng, cfg.CodedPercent)
		enc.Put(states, ctxChromaDC+c, dc)
		if dc != 0 {
			genResidual(enc, states, rng, cfg, subBlock{
				cat: 3, scan8: 49 + c, maxCoeff: 4, isDC: true,
			})
		}
		for i := 0; i < 4; i++ {
			coded := pct(rng, cfg.CodedPercent)
			enc.Put(states, ctxChromaAC+c, coded)
			if coded != 0 {
				genResidual(enc, states, rng, cfg, subBlock{
					cat: 4, scan8: 16 + 16*c + i, maxCoeff: 16,
				})
			}
		}
	}
}

// genResidual plans the significant coefficients of one sub-block and
// emits a significance map consistent with the plan: the last-nonzero
// flag is set exactly on the final significant coefficient, and no
// flags are emitted for the final zigzag position.
func genResidual(enc *cabac.Encoder, states []uint8, rng *rand.Rand,
	cfg *GenConfig, sb subBlock) {

	sig := make([]bool, sb.maxCoeff)
	nz := 0
	for z := range sig {
		if pct(rng, cfg.SigPercent) != 0 {
			sig[z] = true
			nz++
		}
	}
	if nz == 0 {
		// a coded sub-block has at least one nonzero coefficient
		sig[rng.Intn(sb.maxCoeff)] = true
		nz = 1
	}
	last := 0
	for z, s := range sig {
		if s {
			last = z
		}
	}

	for z := 0; ; z++ {
		if z == sb.maxCoeff-1 {
			break
		}
		s := 0
		if sig[z] {
			s = 1
		}
		enc.Put(states, sigState(sb.cat, z), s)
		if s != 0 {
			e := 0
			if z == last {
				e = 1
			}
			enc.Put(states, eobState(sb.cat, z), e)
			if e != 0 {
				break
			}
		}
	}

	for i := 0; i < nz; i++ {
		big := pct(rng, cfg.LevelBigPercent)
		enc.Put(states, ctxLevel+sb.cat, big)
		if big != 0 {
			enc.PutBypass(rng.Intn(2))
			enc.PutBypass(rng.Intn(2))
		}
		enc.PutBypass(rng.Intn(2))
	}
}
