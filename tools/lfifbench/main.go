// lfifbench sweeps the quality range over a light field and reports PSNR
// and bitrate per quality step, with a zstd pass over the raw samples as a
// general-purpose compression baseline.
//
// Usage:
//
//	lfifbench -i <file-mask> [-d 2|3|4] [-f first] [-l last] [-s step]
//	          [-cabac] [-o output-file]
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"math"
	"math/bits"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/lechaosx/light-field-image-format/lfif"
	"github.com/lechaosx/light-field-image-format/lfif/common"
	"github.com/lechaosx/light-field-image-format/ppm"
)

func main() {
	inputMask := flag.String("i", "", "input PPM file mask")
	d := flag.Int("d", 2, "number of transformed dimensions (2, 3 or 4)")
	qFirst := flag.Int("f", 10, "first quality")
	qLast := flag.Int("l", 100, "last quality")
	qStep := flag.Int("s", 10, "quality step")
	useCABAC := flag.Bool("cabac", false, "arithmetic coding instead of Huffman")
	outputFile := flag.String("o", "", "output file (default stdout)")
	flag.Parse()

	if *inputMask == "" {
		flag.Usage()
		os.Exit(1)
	}

	images, err := ppm.LoadMask(*inputMask)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(2)
	}

	var out io.Writer = os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			os.Exit(2)
		}
		defer f.Close()
		out = f
	}

	width := images[0].Width
	height := images[0].Height
	count := len(images)
	depth := bits.Len(uint(images[0].MaxVal))
	pixels := width * height * count

	imgDims, err := layoutDims(*d, width, height, count)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(2)
	}

	shape := make([]int, *d)
	for i := range shape {
		shape[i] = 8
	}

	viewDims := imgDims[2:]
	src := func(pos []int) [3]uint16 {
		view := common.Index(viewDims, pos[2:])
		return images[view].At(pos[1]*width + pos[0])
	}

	fmt.Fprintf(out, "'%dD' 'PSNR [dB]' 'bitrate [bpp]'\n", *d)
	fmt.Fprintf(out, "# zstd baseline: %.4f bpp\n", zstdBaseline(images)*8/float64(pixels))

	decoded := make([]uint16, pixels*3)
	for q := *qFirst; q <= *qLast; q += *qStep {
		params := lfif.Parameters{
			BlockShape: shape,
			Quality:    q,
			ColorDepth: depth,
			ImgDims:    imgDims,
			UseHuffman: !*useCABAC,
		}

		encoded, err := lfif.Compress(params, src)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			os.Exit(3)
		}

		sink := func(pos []int, rgb [3]uint16) {
			view := common.Index(viewDims, pos[2:])
			i := (view*width*height + pos[1]*width + pos[0]) * 3
			decoded[i], decoded[i+1], decoded[i+2] = rgb[0], rgb[1], rgb[2]
		}
		if _, err := lfif.Decompress(encoded, sink); err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			os.Exit(3)
		}

		psnr := computePSNR(images, decoded, width, height, images[0].MaxVal)
		bpp := float64(len(encoded)) * 8 / float64(pixels)
		fmt.Fprintf(out, "%d %f %f\n", q, psnr, bpp)
	}
}

// zstdBaseline compresses the raw interleaved samples and returns the
// compressed byte count
func zstdBaseline(images []*ppm.Image) float64 {
	var raw bytes.Buffer
	for _, img := range images {
		if img.MaxVal < 256 {
			for _, s := range img.Pix {
				raw.WriteByte(byte(s))
			}
		} else {
			for _, s := range img.Pix {
				raw.WriteByte(byte(s >> 8))
				raw.WriteByte(byte(s))
			}
		}
	}

	var compressed bytes.Buffer
	enc, err := zstd.NewWriter(&compressed,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	)
	if err != nil {
		return float64(raw.Len())
	}
	if _, err := enc.Write(raw.Bytes()); err != nil {
		enc.Close()
		return float64(raw.Len())
	}
	if err := enc.Close(); err != nil {
		return float64(raw.Len())
	}
	return float64(compressed.Len())
}

func computePSNR(images []*ppm.Image, decoded []uint16, width, height, maxVal int) float64 {
	mse := 0.0
	n := 0
	for v, img := range images {
		base := v * width * height * 3
		for i, s := range img.Pix {
			d := float64(s) - float64(decoded[base+i])
			mse += d * d
			n++
		}
	}
	mse /= float64(n)
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(float64(maxVal)*float64(maxVal)/mse)
}

func layoutDims(d, width, height, count int) ([]int, error) {
	switch d {
	case 2:
		return []int{width, height, count}, nil
	case 3, 4:
		side := int(math.Sqrt(float64(count)))
		if side*side != count {
			return nil, fmt.Errorf("%dD layout needs a square view count, got %d", d, count)
		}
		if d == 3 {
			return []int{width, height, side, side}, nil
		}
		return []int{width, height, side, side, 1}, nil
	default:
		return nil, fmt.Errorf("unsupported dimension count %d", d)
	}
}
