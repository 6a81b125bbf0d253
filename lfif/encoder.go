package lfif

import (
	"bytes"
	"io"

	"github.com/lechaosx/light-field-image-format/lfif/cabac"
	"github.com/lechaosx/light-field-image-format/lfif/common"
	"github.com/lechaosx/light-field-image-format/lfif/predict"
)

// Encoder compresses one image volume into an LFIF stream. Instances are
// self-contained; independent encoders never share state.
type Encoder struct {
	params Parameters
	quant  [2]*common.QuantTable
}

// NewEncoder validates the parameters and prepares the quantization tables
func NewEncoder(p Parameters) (*Encoder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	e := &Encoder{params: p}
	e.quant[0] = common.BaseLuma(p.BlockShape, p.Wide())
	e.quant[1] = common.BaseChroma(p.BlockShape, p.Wide())
	e.quant[0].ScaleByQuality(p.Quality)
	e.quant[1].ScaleByQuality(p.Quality)
	return e, nil
}

// Compress encodes a volume into a byte slice
func Compress(p Parameters, src PixelSource) ([]byte, error) {
	e, err := NewEncoder(p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := e.Encode(&buf, src); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// classOf maps a channel to its table/context class: luma for channel 0,
// a shared chroma class for channels 1 and 2
func classOf(channel int) int {
	if channel == 0 {
		return 0
	}
	return 1
}

// Encode writes the full container: header, tables and payload
func (e *Encoder) Encode(w io.Writer, src PixelSource) error {
	if e.params.UseHuffman {
		return e.encodeHuffman(w, src)
	}
	return e.encodeCABAC(w, src)
}

// convertPlanes pulls one view from the source, applies the view shift,
// the color transform and the luma mean shift, and returns the three
// channel planes
func (e *Encoder) convertPlanes(img int, src PixelSource) [3][]float64 {
	p := &e.params
	d := p.D()
	spatial := p.SpatialDims()
	pixels := p.PixelsPerImage()

	var planes [3][]float64
	for ch := range planes {
		planes[ch] = make([]float64, pixels)
	}

	var shift [2]int
	if p.UseShift {
		shift = shiftCoef(img, viewSide(p.ImageCount()), p.ShiftParam)
	}

	mean := p.MeanShift()
	pos := make([]int, d)
	srcPos := make([]int, d+1)

	for i := 0; i < pixels; i++ {
		common.Position(spatial, i, pos)

		if p.UseShift {
			shiftPos(pos, spatial, shift, srcPos[:d])
		} else {
			copy(srcPos[:d], pos)
		}
		srcPos[d] = img

		rgb := src(srcPos)
		r, g, b := float64(rgb[0]), float64(rgb[1]), float64(rgb[2])

		planes[0][i] = rgbToY(r, g, b) - mean
		planes[1][i] = rgbToCb(r, g, b)
		planes[2][i] = rgbToCr(r, g, b)
	}

	return planes
}

// gatherBlock copies one edge-replicated block out of a channel plane
func gatherBlock(shape, spatial []int, blockIndex int, plane []float64, out []float64) {
	common.GetBlock(shape, spatial, blockIndex, func(pos []int) float64 {
		return plane[common.Index(spatial, pos)]
	}, out)
}

// encodeHuffman runs the table-building pass over all quantized blocks,
// then writes header and run-length payload
func (e *Encoder) encodeHuffman(w io.Writer, src PixelSource) error {
	p := &e.params
	shape := p.BlockShape
	spatial := p.SpatialDims()
	size := p.BlockSize()
	blocks := p.BlocksPerImage()
	count := p.ImageCount()

	var quantized [3][][]int64
	var refs [2][]uint64
	refs[0] = make([]uint64, size)
	refs[1] = make([]uint64, size)

	// run-length amplitudes carry at most ampBits bits; the limit drops
	// further where a DC difference, spanning twice that range, would need
	// a class larger than the class field holds. Out-of-range quantizer
	// output clamps silently
	ampLimit := int64(1)<<uint(p.AmpBits()) - 1
	if maxClass := 1<<uint(p.ClassBits()) - 1; p.AmpBits() >= maxClass {
		ampLimit = int64(1)<<uint(maxClass-1) - 1
	}

	input := make([]float64, size)
	dct := make([]float64, size)

	for img := 0; img < count; img++ {
		planes := e.convertPlanes(img, src)

		for b := 0; b < blocks; b++ {
			for ch := 0; ch < 3; ch++ {
				gatherBlock(shape, spatial, b, planes[ch], input)
				common.ForwardDCT(shape, input, dct)

				q := make([]int64, size)
				e.quant[classOf(ch)].Quantize(dct, q)
				for i := range q {
					if q[i] > ampLimit {
						q[i] = ampLimit
					}
					if q[i] < -ampLimit {
						q[i] = -ampLimit
					}
				}
				quantized[ch] = append(quantized[ch], q)

				ref := refs[classOf(ch)]
				for i, v := range q {
					if v < 0 {
						v = -v
					}
					ref[i] += uint64(v)
				}
			}
		}
	}

	var traversal [2]*common.TraversalTable
	traversal[0] = common.BuildTraversal(shape, refs[0])
	traversal[1] = common.BuildTraversal(shape, refs[1])

	// traverse, run-length encode and DC-difference each channel stream
	classBits := p.ClassBits()
	var pairs [3][][]common.RunLengthPair
	var prevDC [3]int64
	scanned := make([]int64, size)

	for ch := 0; ch < 3; ch++ {
		for _, q := range quantized[ch] {
			traversal[classOf(ch)].Traverse(q, scanned)
			pr := common.RunLengthEncode(scanned, nil)
			common.DiffEncodeDC(pr, &prevDC[ch])
			pairs[ch] = append(pairs[ch], pr)
		}
	}

	var weights [2][2]common.HuffmanWeights
	for y := 0; y < 2; y++ {
		weights[y][0] = common.HuffmanWeights{}
		weights[y][1] = common.HuffmanWeights{}
	}
	for ch := 0; ch < 3; ch++ {
		y := classOf(ch)
		for _, pr := range pairs[ch] {
			weights[y][0].Add(pr[0].HuffmanSymbol(classBits))
			for _, pair := range pr[1:] {
				weights[y][1].Add(pair.HuffmanSymbol(classBits))
			}
		}
	}

	var codecs [2][2]*common.HuffmanCodec
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			codecs[y][x] = common.BuildHuffmanCodec(weights[y][x])
		}
	}

	meta := &Meta{
		Parameters:      *p,
		QuantTables:     e.quant,
		TraversalTables: traversal,
		HuffmanCodecs:   codecs,
	}
	if err := writeHeader(w, meta); err != nil {
		return err
	}

	obs := common.NewOBitstream(w)
	for i := 0; i < blocks*count; i++ {
		for ch := 0; ch < 3; ch++ {
			y := classOf(ch)
			pr := pairs[ch][i]
			if err := common.EncodePair(pr[0], codecs[y][0], classBits, obs); err != nil {
				return err
			}
			for _, pair := range pr[1:] {
				if err := common.EncodePair(pair, codecs[y][1], classBits, obs); err != nil {
					return err
				}
			}
		}
	}
	return obs.Flush()
}

// encodeCABAC codes each block through the diagonal scan, optionally with
// intra prediction, and appends the arithmetic payload after the header
func (e *Encoder) encodeCABAC(w io.Writer, src PixelSource) error {
	p := &e.params
	d := p.D()
	shape := p.BlockShape
	spatial := p.SpatialDims()
	size := p.BlockSize()
	blocks := p.BlocksPerImage()
	count := p.ImageCount()
	scale := common.DCTScale(shape)

	meta := &Meta{Parameters: *p, QuantTables: e.quant}
	if err := writeHeader(w, meta); err != nil {
		return err
	}

	layout := newContextLayout(shape, predict.NumTypes(d))
	enc := cabac.NewEncoder(layout.numContexts())
	scan := common.DiagonalScan(shape)

	// reconstructed planes in block-aligned dimensions, for prediction
	var decoded [3][]float64
	var alignedDims []int
	if p.UsePrediction {
		blockDims := common.BlockDims(spatial, shape)
		alignedDims = make([]int, d)
		for i := range alignedDims {
			alignedDims[i] = blockDims[i] * shape[i]
		}
		for ch := range decoded {
			decoded[ch] = make([]float64, common.Size(alignedDims))
		}
	}

	input := make([]float64, size)
	dct := make([]float64, size)
	q := make([]int64, size)
	pred := make([]float64, size)
	rec := make([]float64, size)

	for img := 0; img < count; img++ {
		planes := e.convertPlanes(img, src)
		enc.ResetContexts()

		if p.UsePrediction {
			for ch := range decoded {
				for i := range decoded[ch] {
					decoded[ch][i] = 0
				}
			}
		}

		for b := 0; b < blocks; b++ {
			predType := 0
			if p.UsePrediction {
				gatherBlock(shape, spatial, b, planes[0], input)
				getter := predict.NewSideGetter(shape, spatial, b, decoded[0])
				predType = predict.SelectType(input, shape, getter)
				encodePredType(enc, layout, predType)
			}

			for ch := 0; ch < 3; ch++ {
				gatherBlock(shape, spatial, b, planes[ch], input)

				if p.UsePrediction {
					getter := predict.NewSideGetter(shape, spatial, b, decoded[ch])
					predict.Predict(pred, shape, predType, getter)
					predict.ApplyResidual(input, pred)
				}

				common.ForwardDCT(shape, input, dct)
				e.quant[classOf(ch)].Quantize(dct, q)
				encodeBlockDiagonal(enc, layout, classOf(ch), q, scan)

				if p.UsePrediction {
					// reconstruct exactly as the decoder will
					e.quant[classOf(ch)].Dequantize(q, dct)
					common.InverseDCT(shape, dct, rec)
					for i := range rec {
						rec[i] /= scale
					}
					predict.DisuseResidual(rec, pred)

					plane := decoded[ch]
					common.PutBlock(shape, alignedDims, b, rec, func(pos []int, v float64) {
						plane[common.Index(alignedDims, pos)] = v
					})
				}
			}
		}
	}

	payload := enc.Terminate()
	_, err := w.Write(payload)
	return err
}
