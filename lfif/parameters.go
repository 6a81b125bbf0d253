// Package lfif implements the Light Field Image Format: a block-transform
// codec treating a collection of correlated views as one N-dimensional
// volume (N in {2,3,4}) compressed with an N-dimensional generalization of
// JPEG. Entropy coding is either canonical Huffman over run-length pairs or
// a context-adaptive binary arithmetic coder over a diagonal scan, with
// optional block-based intra prediction.
package lfif

import (
	"math"

	"github.com/lechaosx/light-field-image-format/codec"
	"github.com/lechaosx/light-field-image-format/lfif/common"
)

// PixelSource returns the RGB triplet at a (D+1)-dimensional index; the
// last coordinate selects the view
type PixelSource func(pos []int) [3]uint16

// PixelSink accepts the RGB triplet at a (D+1)-dimensional index
type PixelSink func(pos []int, rgb [3]uint16)

// Parameters configures one encoded file
type Parameters struct {
	// BlockShape holds the per-axis block side lengths; its length is the
	// number of transformed dimensions D
	BlockShape []int

	// Quality in [1,100], higher is better
	Quality int

	// ColorDepth is the number of bits per sample, up to 16
	ColorDepth int

	// ImgDims holds D spatial/angular dimensions plus the view count
	ImgDims []int

	// UseHuffman selects run-length + Huffman coding over CABAC
	UseHuffman bool

	// UsePrediction enables intra prediction; CABAC only
	UsePrediction bool

	// UseShift enables the per-view cyclic shift
	UseShift bool

	// ShiftParam holds the two per-axis shift coefficients
	ShiftParam [2]int64
}

// D returns the number of transformed dimensions
func (p *Parameters) D() int {
	return len(p.BlockShape)
}

// BlockSize returns the number of samples in one block
func (p *Parameters) BlockSize() int {
	return common.Size(p.BlockShape)
}

// Wide reports whether table entries and samples need two bytes
func (p *Parameters) Wide() bool {
	return p.ColorDepth > 8
}

// SpatialDims returns the per-axis image dimensions without the view axis
func (p *Parameters) SpatialDims() []int {
	return p.ImgDims[:p.D()]
}

// ImageCount returns the number of independent views
func (p *Parameters) ImageCount() int {
	return p.ImgDims[p.D()]
}

// PixelsPerImage returns the sample count of one view
func (p *Parameters) PixelsPerImage() int {
	return common.Size(p.SpatialDims())
}

// BlocksPerImage returns the block count of one view
func (p *Parameters) BlocksPerImage() int {
	return common.Size(common.BlockDims(p.SpatialDims(), p.BlockShape))
}

// AmpBits returns the amplitude bit width of run-length pairs
func (p *Parameters) AmpBits() int {
	return common.AmpBits(p.BlockSize(), p.ColorDepth, p.D())
}

// ClassBits returns the bit width of the amplitude class field
func (p *Parameters) ClassBits() int {
	return common.ClassBits(p.AmpBits())
}

// MeanShift returns the luma bias 2^(colorDepth-1)
func (p *Parameters) MeanShift() float64 {
	return math.Pow(2, float64(p.ColorDepth-1))
}

// MaxSample returns the largest representable sample value
func (p *Parameters) MaxSample() int {
	return 1<<uint(p.ColorDepth) - 1
}

// Validate checks the parameter combination
func (p *Parameters) Validate() error {
	d := p.D()
	if d < 2 || d > 4 {
		return codec.ErrInvalidParameter
	}

	for _, b := range p.BlockShape {
		if b < 2 {
			return codec.ErrInvalidParameter
		}
	}

	if len(p.ImgDims) != d+1 {
		return codec.ErrInvalidDimensions
	}
	for _, dim := range p.ImgDims {
		if dim < 1 {
			return codec.ErrInvalidDimensions
		}
	}

	if p.Quality < 1 || p.Quality > 100 {
		return codec.ErrInvalidQuality
	}

	if p.ColorDepth < 1 || p.ColorDepth > 16 {
		return codec.ErrInvalidParameter
	}

	if p.UsePrediction && p.UseHuffman {
		return codec.ErrInvalidParameter
	}

	// run-length symbols must fit one byte: 4 bits of zero run plus the
	// amplitude class field
	if p.UseHuffman && p.ClassBits() > 4 {
		return codec.ErrInvalidParameter
	}

	if p.UseShift {
		side := int(math.Sqrt(float64(p.ImageCount())))
		if side*side != p.ImageCount() {
			return codec.ErrInvalidParameter
		}
	}

	return nil
}
