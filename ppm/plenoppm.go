package ppm

import (
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A file mask addresses a numbered collection of views: every '#' in the
// mask is a decimal digit position, so "img_##.ppm" expands to img_00.ppm
// through img_99.ppm. Missing files are skipped on load.

// maskIndexes returns the positions of the '#' characters
func maskIndexes(mask string) []int {
	var idx []int
	for i, c := range mask {
		if c == '#' {
			idx = append(idx, i)
		}
	}
	return idx
}

// substitute replaces the mask digits with the zero-padded number
func substitute(mask string, idx []int, n int) string {
	num := strconv.Itoa(n)
	pad := strings.Repeat("0", len(idx)-len(num)) + num

	buf := []byte(mask)
	for i, p := range idx {
		buf[p] = pad[i]
	}
	return string(buf)
}

// ExpandMask lists the file names a mask can address, in numeric order.
// A mask without '#' characters names a single file.
func ExpandMask(mask string) []string {
	idx := maskIndexes(mask)
	if len(idx) == 0 {
		return []string{mask}
	}
	if len(idx) > 6 {
		// a sane bound on candidate enumeration
		idx = idx[:6]
	}

	limit := int(math.Pow(10, float64(len(idx))))
	names := make([]string, 0, limit)
	for n := 0; n < limit; n++ {
		names = append(names, substitute(mask, idx, n))
	}
	return names
}

// LoadMask reads every existing file a mask addresses. All loaded views
// must agree on dimensions and sample depth.
func LoadMask(mask string) ([]*Image, error) {
	var images []*Image

	for _, name := range ExpandMask(mask) {
		f, err := os.Open(name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.WithStack(err)
		}

		img, err := Decode(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "load %s", name)
		}

		if len(images) > 0 {
			first := images[0]
			if img.Width != first.Width || img.Height != first.Height || img.MaxVal != first.MaxVal {
				return nil, errors.Errorf("%s: dimensions differ from first view", name)
			}
		}
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, errors.Errorf("no files match mask %s", mask)
	}
	return images, nil
}

// SaveMask writes a collection of views under a mask
func SaveMask(mask string, images []*Image) error {
	idx := maskIndexes(mask)
	if len(idx) == 0 && len(images) > 1 {
		return errors.Errorf("mask %s cannot address %d views", mask, len(images))
	}

	for n, img := range images {
		name := mask
		if len(idx) > 0 {
			name = substitute(mask, idx, n)
		}

		f, err := os.Create(name)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := Encode(f, img); err != nil {
			f.Close()
			return errors.Wrapf(err, "save %s", name)
		}
		if err := f.Close(); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
