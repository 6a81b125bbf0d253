package common

import "math/bits"

// RunLengthPair is one (zero-run, amplitude) unit of a coded block.
// The pair (0, 0) is the end-of-block marker; a pair (15, 0) is a filler
// standing for sixteen zeros inside a longer run.
type RunLengthPair struct {
	Zeroes    int
	Amplitude int64
}

// maxZeroes is the longest zero run one pair can carry (4 bits)
const maxZeroes = 15

// IsEOB reports whether the pair is the end-of-block marker
func (p RunLengthPair) IsEOB() bool {
	return p.Zeroes == 0 && p.Amplitude == 0
}

// AmpBits returns the amplitude bit width for a block size, color depth and
// dimension count. The subtraction models the typical DCT coefficient
// magnitude distribution and is a format constant.
func AmpBits(blockSize, colorDepth, d int) int {
	return bits.Len(uint(blockSize-1)) + colorDepth - d - d/2
}

// ClassBits returns the bit width of an amplitude class field,
// ceil(log2(ampBits+1))
func ClassBits(ampBits int) int {
	return bits.Len(uint(ampBits))
}

// AmplitudeClass returns the bit length of |amp|; class 0 means amp == 0
func AmplitudeClass(amp int64) int {
	if amp < 0 {
		amp = -amp
	}
	return bits.Len64(uint64(amp))
}

// HuffmanSymbol packs a pair into its entropy-coding symbol
func (p RunLengthPair) HuffmanSymbol(classBits int) byte {
	return byte(p.Zeroes<<uint(classBits) | AmplitudeClass(p.Amplitude))
}

// RunLengthEncode converts a traversed block into run-length pairs.
// The first pair always carries the first scanned coefficient with a zero
// run of 0; the AC run terminates with EOB unless the last scanned
// coefficient is nonzero.
func RunLengthEncode(traversed []int64, pairs []RunLengthPair) []RunLengthPair {
	pairs = append(pairs, RunLengthPair{Zeroes: 0, Amplitude: traversed[0]})

	zeroes := 0
	for k := 1; k < len(traversed); k++ {
		if traversed[k] == 0 {
			zeroes++
			continue
		}

		for zeroes > maxZeroes {
			pairs = append(pairs, RunLengthPair{Zeroes: maxZeroes, Amplitude: 0})
			zeroes -= maxZeroes + 1
		}
		pairs = append(pairs, RunLengthPair{Zeroes: zeroes, Amplitude: traversed[k]})
		zeroes = 0
	}

	if zeroes > 0 {
		pairs = append(pairs, RunLengthPair{})
	}
	return pairs
}

// RunLengthDecode expands pairs back into a traversed block of len(out)
// coefficients. Decoding stops at EOB or when the block is full.
func RunLengthDecode(pairs []RunLengthPair, out []int64) {
	for i := range out {
		out[i] = 0
	}

	pos := 0
	for i, p := range pairs {
		if i > 0 && p.IsEOB() {
			break
		}
		pos += p.Zeroes
		if pos >= len(out) {
			break
		}
		out[pos] = p.Amplitude
		pos++
	}
}

// DiffEncodeDC replaces the leading amplitude of each block's pair run with
// the difference against the previous block's value, per channel
func DiffEncodeDC(pairs []RunLengthPair, previous *int64) {
	dc := pairs[0].Amplitude
	pairs[0].Amplitude -= *previous
	*previous = dc
}

// DiffDecodeDC reverses DiffEncodeDC
func DiffDecodeDC(pairs []RunLengthPair, previous *int64) {
	pairs[0].Amplitude += *previous
	*previous = pairs[0].Amplitude
}

// EncodePair writes one pair through a Huffman code followed by the raw
// amplitude bits. Negative amplitudes flip all magnitude bits, the JPEG
// one's-complement convention.
func EncodePair(p RunLengthPair, codec *HuffmanCodec, classBits int, obs *OBitstream) error {
	if err := codec.EncodeSymbol(obs, p.HuffmanSymbol(classBits)); err != nil {
		return err
	}

	class := AmplitudeClass(p.Amplitude)
	if class == 0 {
		return nil
	}

	amp := p.Amplitude
	if amp < 0 {
		amp = -amp
		amp ^= (1 << uint(class)) - 1
	}
	return obs.PutBits(class, uint64(amp))
}

// DecodePair reads one pair written by EncodePair
func DecodePair(codec *HuffmanCodec, classBits int, ibs *IBitstream) (RunLengthPair, error) {
	sym, err := codec.DecodeSymbol(ibs)
	if err != nil {
		return RunLengthPair{}, err
	}

	classMask := (1 << uint(classBits)) - 1
	class := int(sym) & classMask
	zeroes := int(sym) >> uint(classBits)

	if class == 0 {
		return RunLengthPair{Zeroes: zeroes}, nil
	}

	raw, err := ibs.GetBits(class)
	if err != nil {
		return RunLengthPair{}, err
	}

	amp := int64(raw)
	if amp < 1<<uint(class-1) {
		amp = -(amp ^ int64((1<<uint(class))-1))
	}
	return RunLengthPair{Zeroes: zeroes, Amplitude: amp}, nil
}
