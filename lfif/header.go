package lfif

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/lechaosx/light-field-image-format/codec"
	"github.com/lechaosx/light-field-image-format/lfif/common"
)

// Container layout, all numeric fields little-endian:
//
//	"LFIF-"<D>"D\n"                      ASCII magic
//	B0 "\n" ... B(D-1) "\n" "\n"         block sides, decimal ASCII
//	color_depth                          1 byte
//	img_dims[0..D]                       (D+1) x 8 bytes
//	quant_table[0], quant_table[1]       B^D x {1|2} bytes each
//	use_huffman, use_prediction,
//	use_shift                            1 byte each
//	[shift_param[0..1]]                  2 x 8 bytes, if use_shift
//	[traversal_table[0..1]]              if use_huffman
//	[huffman tables, luma-DC, luma-AC,
//	 chroma-DC, chroma-AC]               if use_huffman
//	payload                              bitstream

// Meta is everything a decoder learns from a stream header
type Meta struct {
	Parameters

	QuantTables     [2]*common.QuantTable
	TraversalTables [2]*common.TraversalTable
	HuffmanCodecs   [2][2]*common.HuffmanCodec // [luma|chroma][DC|AC]
}

// eofToTruncated maps an unexpected end of input onto the codec error surface
func eofToTruncated(err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.Is(err, io.EOF) || pkgerrors.Is(err, io.ErrUnexpectedEOF) {
		return pkgerrors.WithStack(codec.ErrTruncatedStream)
	}
	return err
}

func writeHeader(w io.Writer, m *Meta) error {
	d := m.D()

	if _, err := fmt.Fprintf(w, "LFIF-%dD\n", d); err != nil {
		return err
	}
	for _, b := range m.BlockShape {
		if _, err := fmt.Fprintf(w, "%d\n", b); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	if _, err := w.Write([]byte{byte(m.ColorDepth)}); err != nil {
		return err
	}

	dims := make([]byte, 8*(d+1))
	for i, v := range m.ImgDims {
		binary.LittleEndian.PutUint64(dims[8*i:], uint64(v))
	}
	if _, err := w.Write(dims); err != nil {
		return err
	}

	for i := 0; i < 2; i++ {
		if err := m.QuantTables[i].WriteTo(w); err != nil {
			return err
		}
	}

	flags := []byte{bool2byte(m.UseHuffman), bool2byte(m.UsePrediction), bool2byte(m.UseShift)}
	if _, err := w.Write(flags); err != nil {
		return err
	}

	if m.UseShift {
		var buf [16]byte
		binary.LittleEndian.PutUint64(buf[0:], uint64(m.ShiftParam[0]))
		binary.LittleEndian.PutUint64(buf[8:], uint64(m.ShiftParam[1]))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}

	if m.UseHuffman {
		for i := 0; i < 2; i++ {
			if err := m.TraversalTables[i].WriteTo(w); err != nil {
				return err
			}
		}
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				if err := m.HuffmanCodecs[y][x].WriteTo(w); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// readLine reads up to a newline, returning the line without it
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", eofToTruncated(err)
	}
	return line[:len(line)-1], nil
}

// ReadHeader parses a v2 container header; a legacy v1 stream is detected
// and handed to the v1 parser
func ReadHeader(br *bufio.Reader) (*Meta, error) {
	magic, err := readLine(br)
	if err != nil {
		return nil, err
	}

	var d int
	if n, err := fmt.Sscanf(magic, "LFIF-%dD", &d); n != 1 || err != nil {
		return nil, pkgerrors.Wrapf(codec.ErrMagicMismatch, "magic %q", magic)
	}
	if d < 2 || d > 4 {
		return nil, pkgerrors.Wrapf(codec.ErrMagicMismatch, "magic %q", magic)
	}

	// A legacy v1 stream shares the "LFIF-2D" magic but continues with raw
	// big-endian dimensions instead of ASCII block-size lines.
	if d == 2 {
		peek, err := br.Peek(1)
		if err != nil {
			return nil, eofToTruncated(err)
		}
		if peek[0] < '0' || peek[0] > '9' {
			return readHeaderV1(br)
		}
	}

	m := &Meta{}
	m.BlockShape = make([]int, d)
	for i := 0; i < d; i++ {
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		b, err := strconv.Atoi(line)
		if err != nil || b < 2 {
			return nil, pkgerrors.Wrapf(codec.ErrMagicMismatch, "block size %q", line)
		}
		m.BlockShape[i] = b
	}
	if line, err := readLine(br); err != nil {
		return nil, err
	} else if line != "" {
		return nil, pkgerrors.Wrap(codec.ErrMagicMismatch, "missing block size terminator")
	}

	var depth [1]byte
	if _, err := io.ReadFull(br, depth[:]); err != nil {
		return nil, eofToTruncated(err)
	}
	m.ColorDepth = int(depth[0])
	if m.ColorDepth < 1 || m.ColorDepth > 16 {
		return nil, pkgerrors.Wrapf(codec.ErrInvalidDimensions, "color depth %d", m.ColorDepth)
	}

	dims := make([]byte, 8*(d+1))
	if _, err := io.ReadFull(br, dims); err != nil {
		return nil, eofToTruncated(err)
	}
	m.ImgDims = make([]int, d+1)
	for i := range m.ImgDims {
		v := binary.LittleEndian.Uint64(dims[8*i:])
		if v == 0 {
			return nil, pkgerrors.WithStack(codec.ErrInvalidDimensions)
		}
		m.ImgDims[i] = int(v)
	}

	for i := 0; i < 2; i++ {
		t, err := common.ReadQuantTable(br, m.BlockShape, m.Wide())
		if err != nil {
			return nil, eofToTruncated(err)
		}
		m.QuantTables[i] = t
	}

	var flags [3]byte
	if _, err := io.ReadFull(br, flags[:]); err != nil {
		return nil, eofToTruncated(err)
	}
	m.UseHuffman = flags[0] != 0
	m.UsePrediction = flags[1] != 0
	m.UseShift = flags[2] != 0

	if m.UseShift {
		var buf [16]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, eofToTruncated(err)
		}
		m.ShiftParam[0] = int64(binary.LittleEndian.Uint64(buf[0:]))
		m.ShiftParam[1] = int64(binary.LittleEndian.Uint64(buf[8:]))
	}

	if m.UseHuffman {
		for i := 0; i < 2; i++ {
			t, err := common.ReadTraversalTable(br, m.BlockShape)
			if err != nil {
				return nil, eofToTruncated(err)
			}
			m.TraversalTables[i] = t
		}
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				h, err := common.ReadHuffmanCodec(br)
				if err != nil {
					return nil, eofToTruncated(err)
				}
				m.HuffmanCodecs[y][x] = h
			}
		}
	}

	return m, nil
}
