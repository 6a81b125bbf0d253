package lfif

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lechaosx/light-field-image-format/codec"
	"github.com/lechaosx/light-field-image-format/lfif/common"
)

// flatSource adapts an interleaved RGB buffer, axis 0 fastest
func flatSource(dims []int, data []uint16) PixelSource {
	return func(pos []int) [3]uint16 {
		i := common.Index(dims, pos)
		return [3]uint16{data[i*3], data[i*3+1], data[i*3+2]}
	}
}

func flatSink(dims []int, data []uint16) PixelSink {
	return func(pos []int, rgb [3]uint16) {
		i := common.Index(dims, pos)
		data[i*3], data[i*3+1], data[i*3+2] = rgb[0], rgb[1], rgb[2]
	}
}

func psnr(a, b []uint16, maxVal int) float64 {
	mse := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		mse += d * d
	}
	mse /= float64(len(a))
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(float64(maxVal)*float64(maxVal)/mse)
}

func roundTrip(t *testing.T, p Parameters, input []uint16) []uint16 {
	t.Helper()

	encoded, err := Compress(p, flatSource(p.ImgDims, input))
	require.NoError(t, err)

	output := make([]uint16, len(input))
	meta, err := Decompress(encoded, flatSink(p.ImgDims, output))
	require.NoError(t, err)
	assert.Equal(t, p.ImgDims, meta.ImgDims)
	assert.Equal(t, p.ColorDepth, meta.ColorDepth)

	return output
}

// payloadSize returns the byte count following the header in a stream
func payloadSize(t *testing.T, encoded []byte) int {
	t.Helper()

	dec := NewDecoder(bytes.NewReader(encoded))
	_, err := dec.ReadHeader()
	require.NoError(t, err)

	rest, err := io.ReadAll(dec.br)
	require.NoError(t, err)
	return len(rest)
}

func TestConstantGrayHuffmanExact(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8},
		Quality:    50,
		ColorDepth: 8,
		ImgDims:    []int{8, 8, 1},
		UseHuffman: true,
	}
	input := codec.ConstantVolume(p.ImgDims, 128)

	encoded, err := Compress(p, flatSource(p.ImgDims, input))
	require.NoError(t, err)

	output := make([]uint16, len(input))
	_, err = Decompress(encoded, flatSink(p.ImgDims, output))
	require.NoError(t, err)

	assert.Equal(t, input, output)
	assert.Less(t, payloadSize(t, encoded), 30)
}

func TestRampHuffmanPSNR(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8},
		Quality:    80,
		ColorDepth: 8,
		ImgDims:    []int{16, 16, 1},
		UseHuffman: true,
	}
	input := codec.GradientVolume(p.ImgDims, 255)

	output := roundTrip(t, p, input)
	assert.Greater(t, psnr(input, output, 255), 40.0)
}

func TestCABAC3DRandomRoundTrip(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8, 8},
		Quality:    50,
		ColorDepth: 10,
		ImgDims:    []int{8, 8, 8, 1},
	}
	input := codec.RandomVolume(p.ImgDims[:3], 1023, 3)
	// gray noise: copy the red channel over green and blue
	for i := 0; i < len(input); i += 3 {
		input[i+1] = input[i]
		input[i+2] = input[i]
	}

	encoded, err := Compress(p, flatSource(p.ImgDims, input))
	require.NoError(t, err)

	// decoding is exact below the quantization layer: two decodes agree
	out1 := make([]uint16, len(input))
	out2 := make([]uint16, len(input))
	_, err = Decompress(encoded, flatSink(p.ImgDims, out1))
	require.NoError(t, err)
	_, err = Decompress(encoded, flatSink(p.ImgDims, out2))
	require.NoError(t, err)
	assert.Equal(t, out1, out2)

	// strictly shorter than the raw 8^3 x 10 bit volume
	assert.Less(t, payloadSize(t, encoded), 8*8*8*10/8)

	// uniform noise is the worst case for transform coding; this is a
	// sanity floor, the binding checks are determinism and size above
	assert.Greater(t, psnr(input, out1, 1023), 5.0)
}

func TestCABACPredictionRoundTrip(t *testing.T) {
	base := Parameters{
		BlockShape: []int{8, 8, 8},
		Quality:    30,
		ColorDepth: 8,
		ImgDims:    []int{16, 16, 4, 2},
	}
	input := codec.GradientVolume(base.ImgDims, 255)

	withPred := base
	withPred.UsePrediction = true

	outPlain := roundTrip(t, base, input)
	outPred := roundTrip(t, withPred, input)

	plainPSNR := psnr(input, outPlain, 255)
	predPSNR := psnr(input, outPred, 255)

	// prediction must not wreck quality
	assert.Greater(t, predPSNR, plainPSNR-3.0)
	assert.Greater(t, predPSNR, 25.0)
}

func TestNonMultipleDimensions(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8},
		Quality:    75,
		ColorDepth: 8,
		ImgDims:    []int{9, 9, 1},
		UseHuffman: true,
	}
	assert.Equal(t, []int{2, 2}, common.BlockDims(p.SpatialDims(), p.BlockShape))

	input := codec.GradientVolume(p.ImgDims, 200)
	output := roundTrip(t, p, input)
	assert.Greater(t, psnr(input, output, 255), 30.0)
}

func TestConstantBlockDCCoefficient(t *testing.T) {
	// the forward DCT of a constant block concentrates everything in DC:
	// DC = c * prod(B_i / sqrt2); mirrors the transform contract at driver
	// block granularity
	shape := []int{8, 8}
	input := make([]float64, 64)
	for i := range input {
		input[i] = 128
	}

	dct := make([]float64, 64)
	common.ForwardDCT(shape, input, dct)
	assert.InDelta(t, 128*64/2.0, dct[0], 1e-9)
}

func TestHuffman16x16MultiView(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8},
		Quality:    60,
		ColorDepth: 8,
		ImgDims:    []int{16, 16, 4},
		UseHuffman: true,
	}
	input := codec.GradientVolume(p.ImgDims, 255)
	output := roundTrip(t, p, input)
	assert.Greater(t, psnr(input, output, 255), 30.0)
}

func TestCABAC2D(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8},
		Quality:    70,
		ColorDepth: 8,
		ImgDims:    []int{16, 16, 1},
	}
	input := codec.GradientVolume(p.ImgDims, 255)
	output := roundTrip(t, p, input)
	assert.Greater(t, psnr(input, output, 255), 30.0)
}

func TestCABAC4D(t *testing.T) {
	p := Parameters{
		BlockShape: []int{4, 4, 4, 4},
		Quality:    50,
		ColorDepth: 8,
		ImgDims:    []int{8, 8, 4, 4, 1},
	}
	input := codec.GradientVolume(p.ImgDims, 255)
	output := roundTrip(t, p, input)
	assert.Greater(t, psnr(input, output, 255), 25.0)
}

func TestViewShiftRoundTrip(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8},
		Quality:    85,
		ColorDepth: 8,
		ImgDims:    []int{16, 16, 4},
		UseHuffman: true,
		UseShift:   true,
		ShiftParam: [2]int64{2, 1},
	}
	input := codec.GradientVolume(p.ImgDims, 255)
	output := roundTrip(t, p, input)
	assert.Greater(t, psnr(input, output, 255), 25.0)
}

func TestNonCubicBlocks(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 4, 2},
		Quality:    50,
		ColorDepth: 8,
		ImgDims:    []int{16, 8, 4, 1},
		UseHuffman: true,
	}
	input := codec.GradientVolume(p.ImgDims, 255)
	output := roundTrip(t, p, input)
	assert.Greater(t, psnr(input, output, 255), 20.0)
}

func TestInvalidQuality(t *testing.T) {
	for _, q := range []int{0, -1, 101} {
		p := Parameters{
			BlockShape: []int{8, 8},
			Quality:    q,
			ColorDepth: 8,
			ImgDims:    []int{8, 8, 1},
		}
		_, err := NewEncoder(p)
		assert.ErrorIs(t, err, codec.ErrInvalidQuality)
	}
}

func TestInvalidDimensions(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8},
		Quality:    50,
		ColorDepth: 8,
		ImgDims:    []int{8, 0, 1},
	}
	_, err := NewEncoder(p)
	assert.ErrorIs(t, err, codec.ErrInvalidDimensions)
}

func TestPredictionRequiresCABAC(t *testing.T) {
	p := Parameters{
		BlockShape:    []int{8, 8},
		Quality:       50,
		ColorDepth:    8,
		ImgDims:       []int{8, 8, 1},
		UseHuffman:    true,
		UsePrediction: true,
	}
	_, err := NewEncoder(p)
	assert.ErrorIs(t, err, codec.ErrInvalidParameter)
}

func TestMagicMismatch(t *testing.T) {
	_, err := Decompress([]byte("JUNKDATA\n8\n\n"), func([]int, [3]uint16) {})
	assert.ErrorIs(t, err, codec.ErrMagicMismatch)
}

func TestTruncatedHeader(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8},
		Quality:    50,
		ColorDepth: 8,
		ImgDims:    []int{8, 8, 1},
		UseHuffman: true,
	}
	input := codec.ConstantVolume(p.ImgDims, 90)
	encoded, err := Compress(p, flatSource(p.ImgDims, input))
	require.NoError(t, err)

	_, err = Decompress(encoded[:20], func([]int, [3]uint16) {})
	assert.ErrorIs(t, err, codec.ErrTruncatedStream)
}

func TestTruncatedPayload(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8},
		Quality:    50,
		ColorDepth: 8,
		ImgDims:    []int{32, 32, 1},
		UseHuffman: true,
	}
	input := codec.GradientVolume(p.ImgDims, 255)
	encoded, err := Compress(p, flatSource(p.ImgDims, input))
	require.NoError(t, err)

	headerLen := len(encoded) - payloadSize(t, encoded)
	_, err = Decompress(encoded[:headerLen+1], func([]int, [3]uint16) {})
	assert.ErrorIs(t, err, codec.ErrTruncatedStream)
}

func TestHeaderRoundTripMeta(t *testing.T) {
	p := Parameters{
		BlockShape: []int{8, 8, 8},
		Quality:    40,
		ColorDepth: 10,
		ImgDims:    []int{16, 16, 4, 2},
		UseShift:   true,
		ShiftParam: [2]int64{-3, 5},
	}

	quant0 := common.BaseLuma(p.BlockShape, p.Wide())
	quant1 := common.BaseChroma(p.BlockShape, p.Wide())
	quant0.ScaleByQuality(p.Quality)
	quant1.ScaleByQuality(p.Quality)

	m := &Meta{Parameters: p}
	m.QuantTables[0] = quant0
	m.QuantTables[1] = quant1

	var buf bytes.Buffer
	require.NoError(t, writeHeader(&buf, m))

	got, err := ReadHeader(bufio.NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)

	assert.Equal(t, p.BlockShape, got.BlockShape)
	assert.Equal(t, p.ColorDepth, got.ColorDepth)
	assert.Equal(t, p.ImgDims, got.ImgDims)
	assert.Equal(t, p.UseHuffman, got.UseHuffman)
	assert.Equal(t, p.UseShift, got.UseShift)
	assert.Equal(t, p.ShiftParam, got.ShiftParam)
	for i := 0; i < p.BlockSize(); i++ {
		assert.Equal(t, m.QuantTables[0].At(i), got.QuantTables[0].At(i))
		assert.Equal(t, m.QuantTables[1].At(i), got.QuantTables[1].At(i))
	}
}

func TestCodecRegistryRoundTrip(t *testing.T) {
	c, err := codec.Get("lfif2d")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Dimensionality())

	dims := []int{16, 16, 2}
	input := codec.GradientVolume(dims, 255)

	encoded, err := c.Encode(codec.EncodeParams{
		PixelData:  input,
		ImgDims:    dims,
		ColorDepth: 8,
		Options:    &Options{BaseOptions: codec.BaseOptions{Quality: 75}, UseHuffman: true},
	})
	require.NoError(t, err)

	result, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, dims, result.ImgDims)
	assert.Equal(t, 8, result.ColorDepth)
	assert.Greater(t, psnr(input, result.PixelData, 255), 30.0)
}
