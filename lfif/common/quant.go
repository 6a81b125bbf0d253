package common

import (
	"encoding/binary"
	"io"
	"math"
)

// QuantTable holds one positive integer divisor per block coefficient.
// Entries occupy one byte for color depths up to 8 bits and two bytes
// beyond that; the two-byte form is serialized little-endian.
type QuantTable struct {
	shape  []int
	wide   bool
	values []uint32
}

// base 8x8 matrices, tiled modulo 64 over deeper blocks
var baseLumaTable = [64]uint32{
	16, 11, 10, 16, 124, 140, 151, 161,
	12, 12, 14, 19, 126, 158, 160, 155,
	14, 13, 16, 24, 140, 157, 169, 156,
	14, 17, 22, 29, 151, 187, 180, 162,
	18, 22, 37, 56, 168, 109, 103, 177,
	24, 35, 55, 64, 181, 104, 113, 192,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 199,
}

var baseChromaTable = [64]uint32{
	17, 18, 24, 47, 99, 99, 99, 99,
	18, 21, 26, 66, 99, 99, 99, 99,
	24, 26, 56, 99, 99, 99, 99, 99,
	47, 66, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
}

func (t *QuantTable) maxValue() float64 {
	if t.wide {
		return 65535
	}
	return 255
}

func newBaseTable(shape []int, wide bool, base *[64]uint32) *QuantTable {
	t := &QuantTable{
		shape:  append([]int(nil), shape...),
		wide:   wide,
		values: make([]uint32, Size(shape)),
	}

	// Rescale the 8-bit base matrix to occupy the table's integer range.
	bits := 8
	if wide {
		bits = 16
	}
	scale := math.Pow(2, float64(bits-1))

	for i := range t.values {
		v := float64(base[i%64]) / 255 * scale
		t.values[i] = uint32(math.Min(math.Max(v, 1), t.maxValue()))
	}
	return t
}

// BaseLuma builds the luma quantization matrix for the given block shape
func BaseLuma(shape []int, wide bool) *QuantTable {
	return newBaseTable(shape, wide, &baseLumaTable)
}

// BaseChroma builds the chroma quantization matrix for the given block shape
func BaseChroma(shape []int, wide bool) *QuantTable {
	return newBaseTable(shape, wide, &baseChromaTable)
}

// ScaleByQuality rescales every entry for a quality in [1,100] and clamps
// it into the table's valid range. Callers validate the quality range.
func (t *QuantTable) ScaleByQuality(quality int) {
	var coef float64
	if quality < 50 {
		coef = 50 / float64(quality)
	} else {
		coef = float64(100-quality) / 50
	}

	for i, v := range t.values {
		scaled := float64(v) * coef
		t.values[i] = uint32(math.Min(math.Max(scaled, 1), t.maxValue()))
	}
}

// At returns the divisor at a flat block index
func (t *QuantTable) At(index int) int64 {
	return int64(t.values[index])
}

// Quantize divides DCT coefficients by the table, rounding to nearest
func (t *QuantTable) Quantize(dct []float64, out []int64) {
	for i := range out {
		out[i] = int64(math.Round(dct[i] / float64(t.values[i])))
	}
}

// Dequantize multiplies quantized coefficients back by the table
func (t *QuantTable) Dequantize(q []int64, out []float64) {
	for i := range out {
		out[i] = float64(q[i]) * float64(t.values[i])
	}
}

// WriteTo serializes the raw table entries
func (t *QuantTable) WriteTo(w io.Writer) error {
	if !t.wide {
		buf := make([]byte, len(t.values))
		for i, v := range t.values {
			buf[i] = byte(v)
		}
		_, err := w.Write(buf)
		return err
	}

	buf := make([]byte, 2*len(t.values))
	for i, v := range t.values {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	_, err := w.Write(buf)
	return err
}

// ReadQuantTable deserializes a table for the given shape and byte width
func ReadQuantTable(r io.Reader, shape []int, wide bool) (*QuantTable, error) {
	t := &QuantTable{
		shape:  append([]int(nil), shape...),
		wide:   wide,
		values: make([]uint32, Size(shape)),
	}

	width := 1
	if wide {
		width = 2
	}

	buf := make([]byte, width*len(t.values))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	for i := range t.values {
		if wide {
			t.values[i] = uint32(binary.LittleEndian.Uint16(buf[2*i:]))
		} else {
			t.values[i] = uint32(buf[i])
		}
	}
	return t, nil
}
