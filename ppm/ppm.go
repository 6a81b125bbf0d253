// Package ppm reads and writes binary PPM (P6) images with sample depths
// up to 16 bits, plus the '#'-mask helpers used to address a light field
// spread over numbered files.
package ppm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Image is one decoded PPM: interleaved RGB samples, row-major
type Image struct {
	Width  int
	Height int
	MaxVal int
	Pix    []uint16
}

// NewImage allocates a zeroed image
func NewImage(width, height, maxVal int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		MaxVal: maxVal,
		Pix:    make([]uint16, width*height*3),
	}
}

// At returns the RGB triplet at a pixel index
func (img *Image) At(index int) [3]uint16 {
	return [3]uint16{img.Pix[index*3], img.Pix[index*3+1], img.Pix[index*3+2]}
}

// Set stores the RGB triplet at a pixel index
func (img *Image) Set(index int, rgb [3]uint16) {
	img.Pix[index*3] = rgb[0]
	img.Pix[index*3+1] = rgb[1]
	img.Pix[index*3+2] = rgb[2]
}

// readToken reads one whitespace-delimited header token, skipping comments
func readToken(br *bufio.Reader) (string, error) {
	tok := make([]byte, 0, 16)
	for {
		c, err := br.ReadByte()
		if err != nil {
			return "", err
		}

		switch {
		case c == '#':
			for c != '\n' {
				c, err = br.ReadByte()
				if err != nil {
					return "", err
				}
			}
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}

// Decode parses a binary P6 stream
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	magic, err := readToken(br)
	if err != nil {
		return nil, errors.Wrap(err, "ppm header")
	}
	if magic != "P6" {
		return nil, errors.Errorf("ppm: unsupported magic %q", magic)
	}

	var width, height, maxVal int
	for _, dst := range []*int{&width, &height, &maxVal} {
		tok, err := readToken(br)
		if err != nil {
			return nil, errors.Wrap(err, "ppm header")
		}
		if _, err := fmt.Sscanf(tok, "%d", dst); err != nil {
			return nil, errors.Wrapf(err, "ppm header token %q", tok)
		}
	}

	if width < 1 || height < 1 || maxVal < 1 || maxVal > 65535 {
		return nil, errors.Errorf("ppm: invalid header %dx%d maxval %d", width, height, maxVal)
	}

	img := NewImage(width, height, maxVal)

	samples := width * height * 3
	if maxVal < 256 {
		buf := make([]byte, samples)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, errors.Wrap(err, "ppm pixel data")
		}
		for i, b := range buf {
			img.Pix[i] = uint16(b)
		}
	} else {
		buf := make([]byte, samples*2)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, errors.Wrap(err, "ppm pixel data")
		}
		for i := 0; i < samples; i++ {
			img.Pix[i] = uint16(buf[2*i])<<8 | uint16(buf[2*i+1])
		}
	}

	return img, nil
}

// Encode writes a binary P6 stream
func Encode(w io.Writer, img *Image) error {
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n%d\n", img.Width, img.Height, img.MaxVal); err != nil {
		return errors.WithStack(err)
	}

	samples := img.Width * img.Height * 3
	if img.MaxVal < 256 {
		buf := make([]byte, samples)
		for i := 0; i < samples; i++ {
			buf[i] = byte(img.Pix[i])
		}
		_, err := w.Write(buf)
		return errors.WithStack(err)
	}

	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		buf[2*i] = byte(img.Pix[i] >> 8)
		buf[2*i+1] = byte(img.Pix[i])
	}
	_, err := w.Write(buf)
	return errors.WithStack(err)
}
