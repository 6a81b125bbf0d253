package common

// N-dimensional block indexing. A block is a contiguous buffer in
// lexicographic order with axis 0 fastest: index = sum_i pos_i * stride_i
// where stride_i is the product of all lower-axis side lengths.

// Size returns the number of samples in a block of the given shape
func Size(shape []int) int {
	size := 1
	for _, s := range shape {
		size *= s
	}
	return size
}

// Stride returns the linearization stride of the given axis
func Stride(shape []int, axis int) int {
	stride := 1
	for i := 0; i < axis; i++ {
		stride *= shape[i]
	}
	return stride
}

// Index linearizes a position vector within the given shape
func Index(shape []int, pos []int) int {
	index := 0
	for i := len(shape) - 1; i >= 0; i-- {
		index = index*shape[i] + pos[i]
	}
	return index
}

// Position decomposes a flat index into a position vector
func Position(shape []int, index int, pos []int) {
	for i := range shape {
		pos[i] = index % shape[i]
		index /= shape[i]
	}
}

// NumDiagonals returns 1 + sum_i (shape_i - 1), the number of distinct
// values of sum_i pos_i over the block
func NumDiagonals(shape []int) int {
	diagonals := 1
	for _, s := range shape {
		diagonals += s - 1
	}
	return diagonals
}

// DiagonalOf returns the diagonal (coordinate sum) of a flat index
func DiagonalOf(shape []int, index int) int {
	diagonal := 0
	for _, s := range shape {
		diagonal += index % s
		index /= s
	}
	return diagonal
}

// DiagonalScan returns, for each diagonal, the flat indices belonging to it
// in increasing flat-index order. This order is an encoder/decoder contract.
func DiagonalScan(shape []int) [][]int {
	scan := make([][]int, NumDiagonals(shape))
	for i := 0; i < Size(shape); i++ {
		d := DiagonalOf(shape, i)
		scan[d] = append(scan[d], i)
	}
	return scan
}

// CeilDiv returns ceil(a/b) for positive integers
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// BlockDims returns the per-axis block grid dimensions for an image
func BlockDims(imgDims, blockShape []int) []int {
	dims := make([]int, len(blockShape))
	for i := range blockShape {
		dims[i] = CeilDiv(imgDims[i], blockShape[i])
	}
	return dims
}

// BlockOrigin computes the image coordinates of the first sample of a block.
// Block indices tile the image in lexicographic order, axis 0 fastest.
func BlockOrigin(blockDims, blockShape []int, blockIndex int, origin []int) {
	Position(blockDims, blockIndex, origin)
	for i := range origin {
		origin[i] *= blockShape[i]
	}
}

// GetBlock gathers one block from an image volume through a sample getter,
// replicating edge samples for coordinates past the image boundary.
func GetBlock(blockShape, imgDims []int, blockIndex int, get func(pos []int) float64, out []float64) {
	d := len(blockShape)
	blockDims := BlockDims(imgDims, blockShape)

	origin := make([]int, d)
	BlockOrigin(blockDims, blockShape, blockIndex, origin)

	pos := make([]int, d)
	img := make([]int, d)

	for i := range out {
		Position(blockShape, i, pos)
		for a := 0; a < d; a++ {
			img[a] = origin[a] + pos[a]
			if img[a] >= imgDims[a] {
				img[a] = imgDims[a] - 1
			}
		}
		out[i] = get(img)
	}
}

// PutBlock scatters one block into an image volume through a sample setter,
// dropping samples that fall past the image boundary.
func PutBlock(blockShape, imgDims []int, blockIndex int, in []float64, put func(pos []int, value float64)) {
	d := len(blockShape)
	blockDims := BlockDims(imgDims, blockShape)

	origin := make([]int, d)
	BlockOrigin(blockDims, blockShape, blockIndex, origin)

	pos := make([]int, d)
	img := make([]int, d)

	for i := range in {
		Position(blockShape, i, pos)
		inside := true
		for a := 0; a < d; a++ {
			img[a] = origin[a] + pos[a]
			if img[a] >= imgDims[a] {
				inside = false
				break
			}
		}
		if inside {
			put(img, in[i])
		}
	}
}
