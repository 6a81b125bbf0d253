package lfif

import (
	"bufio"
	"bytes"
	"io"
	"math"

	"github.com/lechaosx/light-field-image-format/lfif/cabac"
	"github.com/lechaosx/light-field-image-format/lfif/common"
	"github.com/lechaosx/light-field-image-format/lfif/predict"
)

// Decoder reconstructs an image volume from an LFIF stream. Instances are
// self-contained; independent decoders never share state.
type Decoder struct {
	br   *bufio.Reader
	meta *Meta
}

// NewDecoder wraps a byte source; the header is read lazily
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{br: bufio.NewReader(r)}
}

// ReadHeader parses the container header up to the payload
func (d *Decoder) ReadHeader() (*Meta, error) {
	m, err := ReadHeader(d.br)
	if err != nil {
		return nil, err
	}
	d.meta = m
	return m, nil
}

// Decode reconstructs every view and pushes pixels into the sink. The
// header is read first if ReadHeader was not called.
func (d *Decoder) Decode(sink PixelSink) error {
	if d.meta == nil {
		if _, err := d.ReadHeader(); err != nil {
			return err
		}
	}

	if d.meta.UseHuffman {
		return d.decodeHuffman(sink)
	}
	return d.decodeCABAC(sink)
}

// Decompress decodes a complete stream from memory
func Decompress(data []byte, sink PixelSink) (*Meta, error) {
	dec := NewDecoder(bytes.NewReader(data))
	meta, err := dec.ReadHeader()
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(sink); err != nil {
		return nil, err
	}
	return meta, nil
}

// emitImage converts one view's channel planes back to RGB and pushes them
// into the sink, undoing the mean shift and the view shift
func emitImage(m *Meta, img int, planes [3][]float64, sink PixelSink) {
	p := &m.Parameters
	d := p.D()
	spatial := p.SpatialDims()
	pixels := p.PixelsPerImage()

	var shift [2]int
	if p.UseShift {
		shift = shiftCoef(img, viewSide(p.ImageCount()), p.ShiftParam)
	}

	mean := p.MeanShift()
	maxSample := float64(p.MaxSample())
	pos := make([]int, d)
	outPos := make([]int, d+1)

	for i := 0; i < pixels; i++ {
		common.Position(spatial, i, pos)

		y := planes[0][i] + mean
		cb := planes[1][i]
		cr := planes[2][i]

		rgb := [3]uint16{
			clampSample(yCbCrToR(y, cb, cr), maxSample),
			clampSample(yCbCrToG(y, cb, cr), maxSample),
			clampSample(yCbCrToB(y, cb, cr), maxSample),
		}

		if p.UseShift {
			shiftPos(pos, spatial, shift, outPos[:d])
		} else {
			copy(outPos[:d], pos)
		}
		outPos[d] = img

		sink(outPos, rgb)
	}
}

func clampSample(v, max float64) uint16 {
	r := math.Round(v)
	if r < 0 {
		r = 0
	}
	if r > max {
		r = max
	}
	return uint16(r)
}

// readBlockPairs reads one block's run: the DC pair, then AC pairs until
// EOB or until the block is full
func readBlockPairs(ibs *common.IBitstream, dc, ac *common.HuffmanCodec, classBits, size int) ([]common.RunLengthPair, error) {
	first, err := common.DecodePair(dc, classBits, ibs)
	if err != nil {
		return nil, err
	}

	pairs := []common.RunLengthPair{first}
	coeffs := 1

	for coeffs < size {
		pair, err := common.DecodePair(ac, classBits, ibs)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
		if pair.IsEOB() {
			break
		}
		coeffs += pair.Zeroes + 1
	}
	return pairs, nil
}

func (d *Decoder) decodeHuffman(sink PixelSink) error {
	m := d.meta
	p := &m.Parameters
	shape := p.BlockShape
	spatial := p.SpatialDims()
	size := p.BlockSize()
	blocks := p.BlocksPerImage()
	count := p.ImageCount()
	classBits := p.ClassBits()
	scale := common.DCTScale(shape)

	ibs := common.NewIBitstream(d.br)

	var planes [3][]float64
	for ch := range planes {
		planes[ch] = make([]float64, p.PixelsPerImage())
	}

	var prevDC [3]int64
	scanned := make([]int64, size)
	q := make([]int64, size)
	dct := make([]float64, size)
	out := make([]float64, size)

	for img := 0; img < count; img++ {
		for b := 0; b < blocks; b++ {
			for ch := 0; ch < 3; ch++ {
				y := classOf(ch)

				pairs, err := readBlockPairs(ibs, m.HuffmanCodecs[y][0], m.HuffmanCodecs[y][1], classBits, size)
				if err != nil {
					return eofToTruncated(err)
				}

				common.DiffDecodeDC(pairs, &prevDC[ch])
				common.RunLengthDecode(pairs, scanned)
				m.TraversalTables[y].Detraverse(scanned, q)
				m.QuantTables[y].Dequantize(q, dct)
				common.InverseDCT(shape, dct, out)
				for i := range out {
					out[i] /= scale
				}

				plane := planes[ch]
				common.PutBlock(shape, spatial, b, out, func(pos []int, v float64) {
					plane[common.Index(spatial, pos)] = v
				})
			}
		}

		emitImage(m, img, planes, sink)
	}
	return nil
}

func (d *Decoder) decodeCABAC(sink PixelSink) error {
	m := d.meta
	p := &m.Parameters
	dd := p.D()
	shape := p.BlockShape
	spatial := p.SpatialDims()
	size := p.BlockSize()
	blocks := p.BlocksPerImage()
	count := p.ImageCount()
	scale := common.DCTScale(shape)

	payload, err := io.ReadAll(d.br)
	if err != nil {
		return eofToTruncated(err)
	}

	layout := newContextLayout(shape, predict.NumTypes(dd))
	dec := cabac.NewDecoder(payload, layout.numContexts())
	scan := common.DiagonalScan(shape)

	var planes [3][]float64
	for ch := range planes {
		planes[ch] = make([]float64, p.PixelsPerImage())
	}

	var decoded [3][]float64
	var alignedDims []int
	if p.UsePrediction {
		blockDims := common.BlockDims(spatial, shape)
		alignedDims = make([]int, dd)
		for i := range alignedDims {
			alignedDims[i] = blockDims[i] * shape[i]
		}
		for ch := range decoded {
			decoded[ch] = make([]float64, common.Size(alignedDims))
		}
	}

	q := make([]int64, size)
	dct := make([]float64, size)
	out := make([]float64, size)
	pred := make([]float64, size)

	for img := 0; img < count; img++ {
		dec.ResetContexts()

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
				predType = decodePredType(dec, layout)
			}

			for ch := 0; ch < 3; ch++ {
				decodeBlockDiagonal(dec, layout, classOf(ch), q, scan)
				m.QuantTables[classOf(ch)].Dequantize(q, dct)
				common.InverseDCT(shape, dct, out)
				for i := range out {
					out[i] /= scale
				}

				if p.UsePrediction {
					getter := predict.NewSideGetter(shape, spatial, b, decoded[ch])
					predict.Predict(pred, shape, predType, getter)
					predict.DisuseResidual(out, pred)

					plane := decoded[ch]
					common.PutBlock(shape, alignedDims, b, out, func(pos []int, v float64) {
						plane[common.Index(alignedDims, pos)] = v
					})
				}

				plane := planes[ch]
				common.PutBlock(shape, spatial, b, out, func(pos []int, v float64) {
					plane[common.Index(spatial, pos)] = v
				})
			}
		}

		emitImage(m, img, planes, sink)
	}
	return nil
}
