package lfif

import (
	"bufio"
	"encoding/binary"
	"io"

	pkgerrors "github.com/pkg/errors"

	"github.com/lechaosx/light-field-image-format/codec"
	"github.com/lechaosx/light-field-image-format/lfif/common"
)

// Legacy v1 container, retained for read compatibility only:
//
//	"LFIF-2D\n"                      magic
//	width, height, image_count      3 x 8 bytes, big-endian
//	quant_table                     64 bytes, shared by all channels
//	traversal_table                 64 x 2 bytes little-endian, shared
//	huffman tables, luma-DC,
//	luma-AC, chroma-DC, chroma-AC
//	payload                         run-length bitstream, fixed B=8, 8-bit
//
// readHeaderV1 is entered by ReadHeader after the shared magic line; the
// big-endian dimension bytes distinguish the two generations.
func readHeaderV1(br *bufio.Reader) (*Meta, error) {
	var dims [24]byte
	if _, err := io.ReadFull(br, dims[:]); err != nil {
		return nil, eofToTruncated(err)
	}

	width := binary.BigEndian.Uint64(dims[0:])
	height := binary.BigEndian.Uint64(dims[8:])
	count := binary.BigEndian.Uint64(dims[16:])
	if width == 0 || height == 0 || count == 0 {
		return nil, pkgerrors.WithStack(codec.ErrInvalidDimensions)
	}

	m := &Meta{}
	m.BlockShape = []int{8, 8}
	m.ColorDepth = 8
	m.ImgDims = []int{int(width), int(height), int(count)}
	m.UseHuffman = true

	quant, err := common.ReadQuantTable(br, m.BlockShape, false)
	if err != nil {
		return nil, eofToTruncated(err)
	}
	m.QuantTables[0] = quant
	m.QuantTables[1] = quant

	traversal, err := readTraversalV1(br)
	if err != nil {
		return nil, eofToTruncated(err)
	}
	m.TraversalTables[0] = traversal
	m.TraversalTables[1] = traversal

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			h, err := common.ReadHuffmanCodec(br)
			if err != nil {
				return nil, eofToTruncated(err)
			}
			m.HuffmanCodecs[y][x] = h
		}
	}

	return m, nil
}

// readTraversalV1 reads the fixed-width v1 permutation: 64 entries of two
// little-endian bytes each
func readTraversalV1(br *bufio.Reader) (*common.TraversalTable, error) {
	buf := make([]byte, 128)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, err
	}

	order := make([]int, 64)
	for k := range order {
		idx := binary.LittleEndian.Uint16(buf[2*k:])
		if idx >= 64 {
			return nil, codec.ErrInvalidDimensions
		}
		order[k] = int(idx)
	}
	return common.NewTraversalTable([]int{8, 8}, order), nil
}
