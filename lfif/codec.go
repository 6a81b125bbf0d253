package lfif

import (
	"bytes"
	"fmt"

	"github.com/lechaosx/light-field-image-format/codec"
	"github.com/lechaosx/light-field-image-format/lfif/common"
)

// Registry adapters: one registered codec per dimensionality, operating on
// flat interleaved RGB buffers indexed with axis 0 fastest.

// Options configures the registered LFIF codecs
type Options struct {
	codec.BaseOptions

	UseHuffman    bool
	UsePrediction bool
	BlockSide     int // side length on every axis; 0 means 8
}

// Validate checks option consistency
func (o *Options) Validate() error {
	if err := o.BaseOptions.Validate(); err != nil {
		return err
	}
	if o.BlockSide < 0 || o.BlockSide == 1 {
		return codec.ErrInvalidParameter
	}
	if o.UseHuffman && o.UsePrediction {
		return codec.ErrInvalidParameter
	}
	return nil
}

type lfifCodec struct {
	d int
}

func init() {
	codec.Register(&lfifCodec{d: 2})
	codec.Register(&lfifCodec{d: 3})
	codec.Register(&lfifCodec{d: 4})
}

func (c *lfifCodec) Name() string {
	return fmt.Sprintf("lfif%dd", c.d)
}

func (c *lfifCodec) Dimensionality() int {
	return c.d
}

func (c *lfifCodec) Encode(params codec.EncodeParams) ([]byte, error) {
	opts, ok := params.Options.(*Options)
	if !ok {
		return nil, codec.ErrInvalidParameter
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if len(params.ImgDims) != c.d+1 {
		return nil, codec.ErrInvalidDimensions
	}

	pixels := common.Size(params.ImgDims)
	if len(params.PixelData) != pixels*3 {
		return nil, codec.ErrInvalidDimensions
	}

	side := opts.BlockSide
	if side == 0 {
		side = 8
	}
	shape := make([]int, c.d)
	for i := range shape {
		shape[i] = side
	}

	p := Parameters{
		BlockShape:    shape,
		Quality:       opts.Quality,
		ColorDepth:    params.ColorDepth,
		ImgDims:       params.ImgDims,
		UseHuffman:    opts.UseHuffman,
		UsePrediction: opts.UsePrediction,
	}

	dims := params.ImgDims
	data := params.PixelData
	src := func(pos []int) [3]uint16 {
		i := common.Index(dims, pos)
		return [3]uint16{data[i*3], data[i*3+1], data[i*3+2]}
	}

	var buf bytes.Buffer
	e, err := NewEncoder(p)
	if err != nil {
		return nil, err
	}
	if err := e.Encode(&buf, src); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *lfifCodec) Decode(data []byte) (*codec.DecodeResult, error) {
	dec := NewDecoder(bytes.NewReader(data))
	meta, err := dec.ReadHeader()
	if err != nil {
		return nil, err
	}

	if meta.D() != c.d {
		return nil, codec.ErrInvalidDimensions
	}

	dims := meta.ImgDims
	out := make([]uint16, common.Size(dims)*3)
	sink := func(pos []int, rgb [3]uint16) {
		i := common.Index(dims, pos)
		out[i*3], out[i*3+1], out[i*3+2] = rgb[0], rgb[1], rgb[2]
	}

	if err := dec.Decode(sink); err != nil {
		return nil, err
	}

	return &codec.DecodeResult{
		PixelData:  out,
		ImgDims:    dims,
		ColorDepth: meta.ColorDepth,
	}, nil
}
