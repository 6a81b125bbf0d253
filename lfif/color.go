package lfif

// JPEG YCbCr transform, generalized to any color depth. Chroma components
// are centered at zero; the luma mean shift is applied by the coding loops.

func rgbToY(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

func rgbToCb(r, g, b float64) float64 {
	return -0.168736*r - 0.331264*g + 0.5*b
}

func rgbToCr(r, g, b float64) float64 {
	return 0.5*r - 0.418688*g - 0.081312*b
}

func yCbCrToR(y, _, cr float64) float64 {
	return y + 1.402*cr
}

func yCbCrToG(y, cb, cr float64) float64 {
	return y - 0.344136*cb - 0.714136*cr
}

func yCbCrToB(y, cb, _ float64) float64 {
	return y + 1.772*cb
}
