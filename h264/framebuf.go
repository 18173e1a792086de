package h264

// SubBlockCount is the number of sub-block slots per macroblock: 16
// per color plane plus the three DC blocks.
const SubBlockCount = 3*16 + 3

// Block is the residual scratchpad of one macroblock. The model only
// records whether a coefficient is nonzero, in raster order per
// sub-block; an 8x8 sub-block spreads its 64 coefficients over its
// four consecutive sub-block slots.
type Block struct {
	Residual [SubBlockCount][16]int16
}

// BlockMeta carries the small per-macroblock metadata the model keys
// its predictions on.
type BlockMeta struct {
	NumNonzeros    [SubBlockCount]uint8
	NonzerosKnown  [SubBlockCount]bool
	SubMBType      [4]uint8
	RefIdx         [4]uint8
	CBP            uint8
	MBType         uint8
	LumaI16x16Mode uint8
	ChromaI8x8Mode uint8
	LastMBQP       uint8
	LumaQP         uint8
	Skip           bool
	Is8x8          bool
	Coded          bool
}

// FrameBuffer holds the residual and metadata records of one frame of
// macroblocks. Two buffers rotate between the current and the previous
// frame.
type FrameBuffer struct {
	blocks   []Block
	meta     []BlockMeta
	width    uint32
	height   uint32
	frameNum int
}

// Init sizes the buffer for a frame of width x height macroblocks and
// zeroes it.
func (f *FrameBuffer) Init(width, height uint32) {
	n := int(width * height)
	f.width = width
	f.height = height
	f.blocks = make([]Block, n)
	f.meta = make([]BlockMeta, n)
}

// Bzero clears all residual and metadata records.
func (f *FrameBuffer) Bzero() {
	for i := range f.blocks {
		f.blocks[i] = Block{}
	}
	for i := range f.meta {
		f.meta[i] = BlockMeta{}
	}
}

// SetFrameNum records the frame number the buffer currently holds.
func (f *FrameBuffer) SetFrameNum(frameNum int) { f.frameNum = frameNum }

// IsSameFrame reports whether the buffer is initialized and holds the
// given frame.
func (f *FrameBuffer) IsSameFrame(frameNum int) bool {
	return f.frameNum == frameNum && f.width != 0 && f.height != 0
}

// Width returns the frame width in macroblocks.
func (f *FrameBuffer) Width() uint32 { return f.width }

// Height returns the frame height in macroblocks.
func (f *FrameBuffer) Height() uint32 { return f.height }

// Initialized reports whether Init has been called.
func (f *FrameBuffer) Initialized() bool { return f.width != 0 && f.height != 0 }

// At returns the residual record of macroblock (x, y).
func (f *FrameBuffer) At(x, y int) *Block {
	return &f.blocks[x+y*int(f.width)]
}

// MetaAt returns the metadata record of macroblock (x, y).
func (f *FrameBuffer) MetaAt(x, y int) *BlockMeta {
	return &f.meta[x+y*int(f.width)]
}
