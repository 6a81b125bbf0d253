// Package predict implements block-based intra prediction over already
// reconstructed neighbor samples in D-dimensional space.
//
// Prediction types:
//
//	0        no prediction (zero block)
//	1        DC: mean of the side samples on every face
//	2..D+1   replicate the side hyperplane along axis t-2
//
// One type is selected per block and shared by all three channels.
package predict

import "github.com/lechaosx/light-field-image-format/lfif/common"

// SampleGetter returns a reconstructed sample at an integer offset relative
// to the current block's origin. Offsets with a -1 coordinate reach into the
// neighbor blocks.
type SampleGetter func(offset []int) float64

// NumTypes returns the prediction-type alphabet size for d dimensions
func NumTypes(d int) int {
	return d + 2
}

// NewSideGetter builds the boundary-policy sample getter for one block of an
// image. plane holds the reconstructed channel in block-aligned dimensions
// (blockDims[i] * blockShape[i] per axis); imgDims are the unaligned image
// dimensions the reads finally clamp into.
//
// The policy, in order:
//  1. a block with no neighbor on any axis reads 0 everywhere,
//  2. an offset at or past the block side on an axis with a neighbor clamps
//     to the last in-block coordinate,
//  3. a negative offset on an axis with a neighbor crosses into the neighbor,
//  4. a negative offset on an axis without a neighbor clamps to 0,
//  5. the offset translates to image coordinates and clamps into the image's
//     unaligned bounds.
func NewSideGetter(blockShape, imgDims []int, blockIndex int, plane []float64) SampleGetter {
	d := len(blockShape)
	blockDims := common.BlockDims(imgDims, blockShape)

	alignedDims := make([]int, d)
	for i := range alignedDims {
		alignedDims[i] = blockDims[i] * blockShape[i]
	}

	blockPos := make([]int, d)
	common.Position(blockDims, blockIndex, blockPos)

	origin := make([]int, d)
	for i := range origin {
		origin[i] = blockPos[i] * blockShape[i]
	}

	hasNeighbor := make([]bool, d)
	anyNeighbor := false
	for i := range hasNeighbor {
		hasNeighbor[i] = blockPos[i] > 0
		anyNeighbor = anyNeighbor || hasNeighbor[i]
	}

	return func(offset []int) float64 {
		if !anyNeighbor {
			return 0
		}

		pos := make([]int, d)
		for a := 0; a < d; a++ {
			o := offset[a]
			if o >= blockShape[a] && hasNeighbor[a] {
				o = blockShape[a] - 1
			}
			if o < 0 && !hasNeighbor[a] {
				o = 0
			}

			g := origin[a] + o
			if g < 0 {
				g = 0
			}
			if g >= imgDims[a] {
				g = imgDims[a] - 1
			}
			pos[a] = g
		}

		return plane[common.Index(alignedDims, pos)]
	}
}

// Predict fills pred with the prediction of the given type
func Predict(pred []float64, blockShape []int, predType int, get SampleGetter) {
	switch {
	case predType == 0:
		for i := range pred {
			pred[i] = 0
		}
	case predType == 1:
		predictDC(pred, blockShape, get)
	default:
		predictAxis(pred, blockShape, predType-2, get)
	}
}

// predictDC fills the block with the mean of the side samples adjacent to
// the block on every axis
func predictDC(pred []float64, blockShape []int, get SampleGetter) {
	d := len(blockShape)

	sum := 0.0
	count := 0

	face := make([]int, d)
	offset := make([]int, d)
	for axis := 0; axis < d; axis++ {
		faceShape := make([]int, d)
		copy(faceShape, blockShape)
		faceShape[axis] = 1

		for i := 0; i < common.Size(faceShape); i++ {
			common.Position(faceShape, i, face)
			copy(offset, face)
			offset[axis] = -1
			sum += get(offset)
			count++
		}
	}

	mean := sum / float64(count)
	for i := range pred {
		pred[i] = mean
	}
}

// predictAxis extends the side hyperplane adjacent along one axis across
// the whole block
func predictAxis(pred []float64, blockShape []int, axis int, get SampleGetter) {
	d := len(blockShape)

	pos := make([]int, d)
	offset := make([]int, d)
	for i := range pred {
		common.Position(blockShape, i, pos)
		copy(offset, pos)
		offset[axis] = -1
		pred[i] = get(offset)
	}
}

// SelectType returns the prediction type with the least sum of absolute
// residuals against the input block, ties resolved toward the lower type
func SelectType(input []float64, blockShape []int, get SampleGetter) int {
	d := len(blockShape)

	best := 0
	bestCost := 0.0
	pred := make([]float64, len(input))

	for t := 0; t < NumTypes(d); t++ {
		Predict(pred, blockShape, t, get)

		cost := 0.0
		for i := range input {
			diff := input[i] - pred[i]
			if diff < 0 {
				diff = -diff
			}
			cost += diff
		}

		if t == 0 || cost < bestCost {
			best = t
			bestCost = cost
		}
	}
	return best
}

// ApplyResidual subtracts the prediction from a block in place
func ApplyResidual(block, pred []float64) {
	for i := range block {
		block[i] -= pred[i]
	}
}

// DisuseResidual adds the prediction back onto a reconstructed block
func DisuseResidual(block, pred []float64) {
	for i := range block {
		block[i] += pred[i]
	}
}
