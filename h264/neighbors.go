package h264

// CoefficientCoord locates one coefficient: the macroblock, the
// sub-block as a scan8 index and the position in the sub-block's
// zigzag scan.
type CoefficientCoord struct {
	MBX         int
	MBY         int
	Scan8Index  int
	ZigzagIndex int
}

// dcDim returns the side length of the DC coefficient matrix for the
// given sub-block coefficient count.
func dcDim(subMBSize int) int {
	if subMBSize <= 4 {
		return 2
	}
	return 4
}

// subBlockDim returns the side length of a sub-block for the given
// coefficient count.
func subBlockDim(subMBSize int) int {
	switch {
	case subMBSize <= 4:
		return 2
	case subMBSize <= 16:
		return 4
	default:
		return 8
	}
}

// GetNeighbor returns the position of the sub-block above or to the
// left of the input coordinate, crossing into the neighbouring
// macroblock where necessary. It reports false if the neighbour lies
// outside the frame. For DC blocks the query navigates the small DC
// matrix instead of the scan8 grid.
func (f *FrameBuffer) GetNeighbor(above bool, subMBSize int, in CoefficientCoord) (out CoefficientCoord, ok bool) {
	if in.Scan8Index >= 48 {
		return f.dcNeighbor(above, subMBSize, in)
	}
	cell := Scan8[in.Scan8Index]
	col, row := int(cell&7), int(cell>>3)
	base := (row/5)*5 + 1
	step := 1
	if subMBSize > 16 {
		step = 2
	}
	out = in
	if above {
		row -= step
		if row < base {
			if in.MBY == 0 {
				return out, false
			}
			out.MBY--
			row += 4
		}
	} else {
		col -= step
		if col < 4 {
			if in.MBX == 0 {
				return out, false
			}
			out.MBX--
			col += 4
		}
	}
	idx := ReverseScan8[row][col].Scan8Index
	if idx < 0 {
		return out, false
	}
	out.Scan8Index = int(idx)
	return out, true
}

// dcNeighbor moves within a DC coefficient matrix, stepping into the
// neighbouring macroblock's DC block at the matrix edge.
func (f *FrameBuffer) dcNeighbor(above bool, subMBSize int, in CoefficientCoord) (out CoefficientCoord, ok bool) {
	dim := dcDim(subMBSize)
	pos := Zigzag(subMBSize, in.ZigzagIndex)
	x, y := pos%dim, pos/dim
	out = in
	if above {
		if y == 0 {
			if in.MBY == 0 {
				return out, false
			}
			out.MBY--
			y = dim - 1
		} else {
			y--
		}
	} else {
		if x == 0 {
			if in.MBX == 0 {
				return out, false
			}
			out.MBX--
			x = dim - 1
		} else {
			x--
		}
	}
	out.ZigzagIndex = Unzigzag(subMBSize, x+y*dim)
	return out, true
}

// GetNeighborCoefficient returns the coordinate of the coefficient
// above or to the left of the input coefficient, crossing sub-block
// and macroblock boundaries where necessary.
func (f *FrameBuffer) GetNeighborCoefficient(above bool, subMBSize int, in CoefficientCoord) (out CoefficientCoord, ok bool) {
	if in.Scan8Index >= 48 {
		return f.dcNeighbor(above, subMBSize, in)
	}
	n := subBlockDim(subMBSize)
	pos := Zigzag(subMBSize, in.ZigzagIndex)
	x, y := pos%n, pos/n
	out = in
	if above {
		if y == 0 {
			out, ok = f.GetNeighbor(true, subMBSize, in)
			if !ok {
				return out, false
			}
			y = n - 1
		} else {
			y--
		}
	} else {
		if x == 0 {
			out, ok = f.GetNeighbor(false, subMBSize, in)
			if !ok {
				return out, false
			}
			x = n - 1
		} else {
			x--
		}
	}
	out.ZigzagIndex = Unzigzag(subMBSize, x+y*n)
	return out, true
}
