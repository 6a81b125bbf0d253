package lfif

import (
	"github.com/lechaosx/light-field-image-format/lfif/cabac"
	"github.com/lechaosx/light-field-image-format/lfif/common"
)

// CABAC block coding over the diagonal scan. Context space is split into a
// luma pool (class 0) and a chroma pool (class 1, shared by channels 1 and
// 2); the prediction-type contexts live in the luma pool. All pools reset
// at image boundaries.

// magCutoff is the length of the context-coded unary magnitude prefix;
// larger magnitudes continue as order-0 exp-Golomb in bypass
const magCutoff = 3

type contextLayout struct {
	numDiagonals int
	threshold    int
	predTypes    int
	poolSize     int
}

func newContextLayout(blockShape []int, predTypes int) *contextLayout {
	l := &contextLayout{
		numDiagonals: common.NumDiagonals(blockShape),
		predTypes:    predTypes,
	}
	l.threshold = l.numDiagonals / 2
	l.poolSize = l.numDiagonals + l.threshold + 1 + magCutoff + predTypes
	return l
}

// numContexts returns the total adaptive context count (both pools)
func (l *contextLayout) numContexts() int {
	return 2 * l.poolSize
}

// sigDiagCtx is the "any nonzero on this diagonal" context
func (l *contextLayout) sigDiagCtx(class, diagonal int) int {
	return class*l.poolSize + diagonal
}

// sigCoefCtx is the per-coefficient significance context; the diagonal
// index collapses above the threshold
func (l *contextLayout) sigCoefCtx(class, diagonal int) int {
	if diagonal > l.threshold {
		diagonal = l.threshold
	}
	return class*l.poolSize + l.numDiagonals + diagonal
}

// magCtx is the context of the i-th unary magnitude prefix bit
func (l *contextLayout) magCtx(class, i int) int {
	return class*l.poolSize + l.numDiagonals + l.threshold + 1 + i
}

// predCtx is the context of the i-th prediction-type prefix bit, luma pool
func (l *contextLayout) predCtx(i int) int {
	return l.numDiagonals + l.threshold + 1 + magCutoff + i
}

// encodeBlockDiagonal codes one quantized block: per-diagonal significance,
// per-coefficient significance, then magnitude and sign of each
// significant coefficient
func encodeBlockDiagonal(e *cabac.Encoder, l *contextLayout, class int, q []int64, scan [][]int) {
	for d, indices := range scan {
		sig := 0
		for _, idx := range indices {
			if q[idx] != 0 {
				sig = 1
				break
			}
		}
		e.EncodeBit(l.sigDiagCtx(class, d), sig)
		if sig == 0 {
			continue
		}

		for _, idx := range indices {
			coefSig := 0
			if q[idx] != 0 {
				coefSig = 1
			}
			e.EncodeBit(l.sigCoefCtx(class, d), coefSig)
			if coefSig == 0 {
				continue
			}

			mag := q[idx]
			neg := 0
			if mag < 0 {
				mag = -mag
				neg = 1
			}

			encodeMagnitude(e, l, class, uint64(mag-1))
			e.EncodeBypass(neg)
		}
	}
}

// decodeBlockDiagonal mirrors encodeBlockDiagonal into q
func decodeBlockDiagonal(d *cabac.Decoder, l *contextLayout, class int, q []int64, scan [][]int) {
	for i := range q {
		q[i] = 0
	}

	for diag, indices := range scan {
		if d.DecodeBit(l.sigDiagCtx(class, diag)) == 0 {
			continue
		}

		for _, idx := range indices {
			if d.DecodeBit(l.sigCoefCtx(class, diag)) == 0 {
				continue
			}

			mag := int64(decodeMagnitude(d, l, class)) + 1
			if d.DecodeBypass() == 1 {
				mag = -mag
			}
			q[idx] = mag
		}
	}
}

// encodeMagnitude codes |q|-1: a unary prefix of up to magCutoff bits in
// contexts, then an exp-Golomb remainder in bypass
func encodeMagnitude(e *cabac.Encoder, l *contextLayout, class int, m uint64) {
	if m >= magCutoff {
		for i := 0; i < magCutoff; i++ {
			e.EncodeBit(l.magCtx(class, i), 1)
		}
		e.EncodeExpGolomb(m - magCutoff)
		return
	}

	for i := 0; i < int(m); i++ {
		e.EncodeBit(l.magCtx(class, i), 1)
	}
	e.EncodeBit(l.magCtx(class, int(m)), 0)
}

func decodeMagnitude(d *cabac.Decoder, l *contextLayout, class int) uint64 {
	prefix := 0
	for prefix < magCutoff && d.DecodeBit(l.magCtx(class, prefix)) == 1 {
		prefix++
	}

	if prefix == magCutoff {
		return uint64(magCutoff) + d.DecodeExpGolomb()
	}
	return uint64(prefix)
}

// encodePredType codes a prediction type as a unary prefix through the
// luma pool
func encodePredType(e *cabac.Encoder, l *contextLayout, predType int) {
	for i := 0; i < predType; i++ {
		e.EncodeBit(l.predCtx(i), 1)
	}
	if predType < l.predTypes-1 {
		e.EncodeBit(l.predCtx(predType), 0)
	}
}

func decodePredType(d *cabac.Decoder, l *contextLayout) int {
	t := 0
	for t < l.predTypes-1 && d.DecodeBit(l.predCtx(t)) == 1 {
		t++
	}
	return t
}
