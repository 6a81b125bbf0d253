// lfif_compress encodes a collection of PPM views into an LFIF stream.
//
// Usage:
//
//	lfif_compress -i <file-mask> -o <file> -q <quality> [-d 2|3|4] [-b side]
//	              [-cabac] [-predict] [-shift-x n -shift-y n]
package main

import (
	"flag"
	"fmt"
	"math"
	"math/bits"
	"os"

	"github.com/lechaosx/light-field-image-format/lfif"
	"github.com/lechaosx/light-field-image-format/lfif/common"
	"github.com/lechaosx/light-field-image-format/ppm"
)

func main() {
	inputMask := flag.String("i", "", "input PPM file mask ('#' marks digit positions)")
	outputFile := flag.String("o", "", "output file name")
	quality := flag.Int("q", 0, "quality 1-100")
	d := flag.Int("d", 2, "number of transformed dimensions (2, 3 or 4)")
	blockSide := flag.Int("b", 8, "block side length")
	useCABAC := flag.Bool("cabac", false, "arithmetic coding instead of Huffman")
	usePredict := flag.Bool("predict", false, "intra prediction (CABAC only)")
	shiftX := flag.Int64("shift-x", 0, "per-view shift coefficient, x axis")
	shiftY := flag.Int64("shift-y", 0, "per-view shift coefficient, y axis")
	flag.Parse()

	if *inputMask == "" || *outputFile == "" || *quality == 0 {
		flag.Usage()
		os.Exit(1)
	}

	images, err := ppm.LoadMask(*inputMask)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(2)
	}

	width := images[0].Width
	height := images[0].Height
	count := len(images)
	depth := bits.Len(uint(images[0].MaxVal))

	imgDims, err := layoutDims(*d, width, height, count)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(2)
	}

	shape := make([]int, *d)
	for i := range shape {
		shape[i] = *blockSide
	}

	params := lfif.Parameters{
		BlockShape:    shape,
		Quality:       *quality,
		ColorDepth:    depth,
		ImgDims:       imgDims,
		UseHuffman:    !*useCABAC,
		UsePrediction: *usePredict,
		UseShift:      *shiftX != 0 || *shiftY != 0,
		ShiftParam:    [2]int64{*shiftX, *shiftY},
	}

	viewDims := imgDims[2:]
	src := func(pos []int) [3]uint16 {
		view := common.Index(viewDims, pos[2:])
		return images[view].At(pos[1]*width + pos[0])
	}

	out, err := os.Create(*outputFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(3)
	}
	defer out.Close()

	enc, err := lfif.NewEncoder(params)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(3)
	}
	if err := enc.Encode(out, src); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(3)
	}
}

// layoutDims maps a flat view collection onto the (D+1)-dimensional volume:
// 2D keeps views on the appended axis, 3D and 4D spread a square view grid
// over the angular axes
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
