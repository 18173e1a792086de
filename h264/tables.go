// Package h264 carries the constant coefficient-ordering tables of the
// H.264/AVC standard together with the per-frame macroblock buffers
// and the neighbour queries a residual model needs during a CABAC
// walk.
package h264

// Scan8 maps a sub-block index (0..47 for the three color planes, 48..50
// for the DC blocks) to a cell in the 8-wide scan8 grid. The layout is
// the standard one: luma rows 1..4, the two chroma planes at rows 6..9
// and 11..14, columns 4..7, with the DC cells in column 0.
var Scan8 = [51]uint8{
	4 + 1*8, 5 + 1*8, 4 + 2*8, 5 + 2*8,
	6 + 1*8, 7 + 1*8, 6 + 2*8, 7 + 2*8,
	4 + 3*8, 5 + 3*8, 4 + 4*8, 5 + 4*8,
	6 + 3*8, 7 + 3*8, 6 + 4*8, 7 + 4*8,
	4 + 6*8, 5 + 6*8, 4 + 7*8, 5 + 7*8,
	6 + 6*8, 7 + 6*8, 6 + 7*8, 7 + 7*8,
	4 + 8*8, 5 + 8*8, 4 + 9*8, 5 + 9*8,
	6 + 8*8, 7 + 8*8, 6 + 9*8, 7 + 9*8,
	4 + 11*8, 5 + 11*8, 4 + 12*8, 5 + 12*8,
	6 + 11*8, 7 + 11*8, 6 + 12*8, 7 + 12*8,
	4 + 13*8, 5 + 13*8, 4 + 14*8, 5 + 14*8,
	6 + 13*8, 7 + 13*8, 6 + 14*8, 7 + 14*8,
	0 + 0*8, 0 + 5*8, 0 + 10*8,
}

// ReverseScan8Entry describes the sub-block occupying one cell of the
// scan8 grid.
type ReverseScan8Entry struct {
	Scan8Index int8 // -1 for cells no sub-block maps to
}

// ReverseScan8 is the inverse of Scan8, indexed by grid row and
// column.
var ReverseScan8 [15][8]ReverseScan8Entry

// Zigzag4 is the scan order of the 2x2 chroma DC matrix.
var Zigzag4 = [4]uint8{0, 1, 2, 3}

// Zigzag16 is the standard 4x4 zigzag scan: scan position to raster
// position.
var Zigzag16 = [16]uint8{
	0, 1, 4, 8, 5, 2, 3, 6, 9, 12, 13, 10, 7, 11, 14, 15,
}

// Zigzag64 is the standard 8x8 zigzag scan.
var Zigzag64 = [64]uint8{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// Unzigzag4, Unzigzag16 and Unzigzag64 are the inverse scans, raster
// position to scan position.
var (
	Unzigzag4  [4]uint8
	Unzigzag16 [16]uint8
	Unzigzag64 [64]uint8
)

// SigCoeffFlagOffset8x8 maps a zigzag position of an 8x8 sub-block to
// its significance context offset; row 0 is the frame variant, row 1
// the field variant.
var SigCoeffFlagOffset8x8 = [2][63]uint8{
	{
		0, 1, 2, 3, 4, 5, 5, 4, 4, 3, 3, 4, 4, 4, 5, 5,
		4, 4, 4, 4, 3, 3, 6, 7, 7, 7, 8, 9, 10, 9, 8, 7,
		7, 6, 11, 12, 13, 11, 6, 7, 8, 9, 14, 10, 9, 8, 6, 11,
		12, 13, 11, 6, 9, 14, 10, 9, 11, 12, 13, 11, 14, 10, 12,
	},
	{
		0, 1, 1, 2, 2, 3, 3, 4, 5, 6, 7, 7, 7, 8, 4, 5,
		6, 9, 10, 10, 8, 11, 12, 11, 9, 9, 10, 10, 8, 11, 12, 11,
		9, 9, 10, 10, 8, 11, 12, 11, 9, 9, 10, 10, 8, 13, 13, 9,
		9, 10, 10, 8, 13, 13, 9, 9, 10, 10, 14, 14, 14, 14, 14,
	},
}

// SigCoeffOffsetDC maps a 4:2:2 chroma DC zigzag position to its
// significance context offset.
var SigCoeffOffsetDC = [7]uint8{0, 0, 1, 1, 2, 2, 2}

// CatLookup maps a sub-block category to the base offset of its
// significance contexts in the state array of the standard decoder.
var CatLookup = [14]uint16{
	105, 120, 134, 149, 152, 402, 484, 499, 513, 660, 528, 543, 557, 718,
}

func init() {
	for i := range ReverseScan8 {
		for j := range ReverseScan8[i] {
			ReverseScan8[i][j].Scan8Index = -1
		}
	}
	for i, cell := range Scan8 {
		ReverseScan8[cell>>3][cell&7].Scan8Index = int8(i)
	}
	for i, r := range Zigzag4 {
		Unzigzag4[r] = uint8(i)
	}
	for i, r := range Zigzag16 {
		Unzigzag16[r] = uint8(i)
	}
	for i, r := range Zigzag64 {
		Unzigzag64[r] = uint8(i)
	}
}

// Zigzag returns the raster position of scan position i for a
// sub-block of the given coefficient count.
func Zigzag(subMBSize, i int) int {
	switch {
	case subMBSize <= 4:
		return int(Zigzag4[i])
	case subMBSize <= 16:
		return int(Zigzag16[i])
	default:
		return int(Zigzag64[i])
	}
}

// Unzigzag returns the scan position of raster position r for a
// sub-block of the given coefficient count.
func Unzigzag(subMBSize, r int) int {
	switch {
	case subMBSize <= 4:
		return int(Unzigzag4[r])
	case subMBSize <= 16:
		return int(Unzigzag16[r])
	default:
		return int(Unzigzag64[r])
	}
}
