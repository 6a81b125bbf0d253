// lfif_decompress decodes an LFIF stream back into numbered PPM views.
//
// Usage:
//
//	lfif_decompress -i <file> -o <file-mask>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lechaosx/light-field-image-format/lfif"
	"github.com/lechaosx/light-field-image-format/lfif/common"
	"github.com/lechaosx/light-field-image-format/ppm"
)

func main() {
	inputFile := flag.String("i", "", "input LFIF file")
	outputMask := flag.String("o", "", "output PPM file mask ('#' marks digit positions)")
	flag.Parse()

	if *inputFile == "" || *outputMask == "" {
		flag.Usage()
		os.Exit(1)
	}

	in, err := os.Open(*inputFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(2)
	}
	defer in.Close()

	dec := lfif.NewDecoder(in)
	meta, err := dec.ReadHeader()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(2)
	}

	width := meta.ImgDims[0]
	height := meta.ImgDims[1]
	viewDims := meta.ImgDims[2:]
	count := common.Size(viewDims)
	maxVal := meta.MaxSample()

	images := make([]*ppm.Image, count)
	for i := range images {
		images[i] = ppm.NewImage(width, height, maxVal)
	}

	sink := func(pos []int, rgb [3]uint16) {
		view := common.Index(viewDims, pos[2:])
		images[view].Set(pos[1]*width+pos[0], rgb)
	}

	if err := dec.Decode(sink); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(2)
	}

	if err := ppm.SaveMask(*outputMask, images); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(3)
	}
}
