package lfif

import "math"

// Per-view cyclic shift: views away from the center of the view grid are
// translated on the two spatial axes proportionally to their grid offset,
// aligning scene content across views before the transform. The cyclic form
// makes it exactly invertible.

// shiftCoef returns the shift vector of a view at linear index img within a
// square side x side grid
func shiftCoef(img, side int, param [2]int64) [2]int {
	vx := img % side
	vy := img / side
	return [2]int{
		int(int64(vx-side/2) * param[0]),
		int(int64(vy-side/2) * param[1]),
	}
}

// viewSide returns the view grid side length
func viewSide(imageCount int) int {
	return int(math.Sqrt(float64(imageCount)))
}

// shiftPos translates the two leading coordinates of pos by s, wrapping
// around the spatial dimensions; the result is written to out
func shiftPos(pos []int, dims []int, s [2]int, out []int) {
	copy(out, pos)
	for a := 0; a < 2; a++ {
		out[a] = ((pos[a]+s[a])%dims[a] + dims[a]) % dims[a]
	}
}
