package common

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuffmanPrefixFree(t *testing.T) {
	weights := HuffmanWeights{}
	rng := rand.New(rand.NewSource(31))
	for s := 0; s < 40; s++ {
		weights[byte(s)] = uint64(1 + rng.Intn(10000))
	}

	h := BuildHuffmanCodec(weights)

	type code struct {
		bits uint32
		len  int
	}
	var codes []code
	for sym := range weights {
		c, ok := h.CodeOf(sym)
		require.True(t, ok)
		require.LessOrEqual(t, c.Len, 16)
		codes = append(codes, code{bits: c.Code, len: c.Len})
	}

	for i := range codes {
		for j := range codes {
			if i == j {
				continue
			}
			a, b := codes[i], codes[j]
			if a.len > b.len {
				a, b = b, a
			}
			// a must not be a prefix of b
			assert.NotEqual(t, a.bits, b.bits>>uint(b.len-a.len))
		}
	}
}

func TestHuffmanCanonicalOrdering(t *testing.T) {
	weights := HuffmanWeights{0: 10, 1: 10, 2: 10, 3: 10}
	h := BuildHuffmanCodec(weights)

	// equal weights give equal lengths; codes follow symbol order
	c0, _ := h.CodeOf(0)
	c1, _ := h.CodeOf(1)
	c2, _ := h.CodeOf(2)
	assert.Equal(t, c0.Code+1, c1.Code)
	assert.Equal(t, c1.Code+1, c2.Code)
}

func TestHuffmanSingleSymbol(t *testing.T) {
	h := BuildHuffmanCodec(HuffmanWeights{42: 7})

	c, ok := h.CodeOf(42)
	require.True(t, ok)
	assert.Equal(t, 1, c.Len)

	var buf bytes.Buffer
	obs := NewOBitstream(&buf)
	require.NoError(t, h.EncodeSymbol(obs, 42))
	require.NoError(t, obs.Flush())

	sym, err := h.DecodeSymbol(NewIBitstream(&buf))
	require.NoError(t, err)
	assert.Equal(t, byte(42), sym)
}

func TestHuffmanEncodeDecodeStream(t *testing.T) {
	rng := rand.New(rand.NewSource(32))

	weights := HuffmanWeights{}
	var stream []byte
	for k := 0; k < 5000; k++ {
		// skewed distribution
		v := rng.ExpFloat64() * 10
		if v > 63 {
			v = 63
		}
		sym := byte(v)
		weights.Add(sym)
		stream = append(stream, sym)
	}

	h := BuildHuffmanCodec(weights)

	var buf bytes.Buffer
	obs := NewOBitstream(&buf)
	for _, sym := range stream {
		require.NoError(t, h.EncodeSymbol(obs, sym))
	}
	require.NoError(t, obs.Flush())

	ibs := NewIBitstream(&buf)
	for _, want := range stream {
		sym, err := h.DecodeSymbol(ibs)
		require.NoError(t, err)
		require.Equal(t, want, sym)
	}
}

func TestHuffmanSerializationRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	weights := HuffmanWeights{}
	for s := 0; s < 100; s++ {
		weights[byte(s)] = uint64(1 + rng.Intn(1 << uint(rng.Intn(20))))
	}

	h := BuildHuffmanCodec(weights)

	var buf bytes.Buffer
	require.NoError(t, h.WriteTo(&buf))

	got, err := ReadHuffmanCodec(&buf)
	require.NoError(t, err)

	assert.Equal(t, h.Bits, got.Bits)
	assert.Equal(t, h.Values, got.Values)
	for sym := range weights {
		wc, _ := h.CodeOf(sym)
		gc, ok := got.CodeOf(sym)
		require.True(t, ok)
		assert.Equal(t, wc, gc)
	}
}

func TestHuffmanLengthLimit(t *testing.T) {
	// exponential weights force deep trees; lengths must be rebalanced to 16
	weights := HuffmanWeights{}
	w := uint64(1)
	for s := 0; s < 40; s++ {
		weights[byte(s)] = w
		if w < 1<<60 {
			w *= 2
		}
	}

	h := BuildHuffmanCodec(weights)
	for sym := range weights {
		c, ok := h.CodeOf(sym)
		require.True(t, ok)
		assert.LessOrEqual(t, c.Len, 16)
		assert.GreaterOrEqual(t, c.Len, 1)
	}
}

func TestRunLengthRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(34))

	for trial := 0; trial < 50; trial++ {
		block := make([]int64, 64)
		// sparse block
		for n := 0; n < rng.Intn(10); n++ {
			block[rng.Intn(64)] = int64(rng.Intn(400) - 200)
		}

		pairs := RunLengthEncode(block, nil)
		out := make([]int64, 64)
		RunLengthDecode(pairs, out)
		require.Equal(t, block, out)
	}
}

func TestRunLengthLongZeroRun(t *testing.T) {
	block := make([]int64, 64)
	block[0] = 5
	block[40] = -3 // 39 zeros in between

	pairs := RunLengthEncode(block, nil)

	// 39 zeros need two filler pairs (16 zeros each) plus a run of 7
	assert.Equal(t, RunLengthPair{Zeroes: 0, Amplitude: 5}, pairs[0])
	assert.Equal(t, RunLengthPair{Zeroes: 15, Amplitude: 0}, pairs[1])
	assert.Equal(t, RunLengthPair{Zeroes: 15, Amplitude: 0}, pairs[2])
	assert.Equal(t, RunLengthPair{Zeroes: 7, Amplitude: -3}, pairs[3])
	assert.True(t, pairs[4].IsEOB())

	out := make([]int64, 64)
	RunLengthDecode(pairs, out)
	assert.Equal(t, block, out)
}

func TestRunLengthDenseBlockHasNoEOB(t *testing.T) {
	block := make([]int64, 16)
	for i := range block {
		block[i] = int64(i + 1)
	}

	pairs := RunLengthEncode(block, nil)
	assert.Len(t, pairs, 16)
	for _, p := range pairs {
		assert.False(t, p.IsEOB())
	}
}

func TestDiffDC(t *testing.T) {
	dcs := []int64{100, 90, 95, 95, -10}

	var prevEnc, prevDec int64
	for _, dc := range dcs {
		pairs := []RunLengthPair{{Amplitude: dc}}
		DiffEncodeDC(pairs, &prevEnc)
		DiffDecodeDC(pairs, &prevDec)
		assert.Equal(t, dc, pairs[0].Amplitude)
	}
}

func TestAmpBits(t *testing.T) {
	// ceil(log2(B^D)) + depth - D - D/2
	assert.Equal(t, 6+8-2-1, AmpBits(64, 8, 2))
	assert.Equal(t, 9+10-3-1, AmpBits(512, 10, 3))
	assert.Equal(t, 12+8-4-2, AmpBits(4096, 8, 4))
}

func TestClassBits(t *testing.T) {
	assert.Equal(t, 4, ClassBits(11))
	assert.Equal(t, 4, ClassBits(15))
	assert.Equal(t, 3, ClassBits(7))
}

func TestEncodeDecodePair(t *testing.T) {
	classBits := 4

	weights := HuffmanWeights{}
	pairs := []RunLengthPair{
		{Zeroes: 0, Amplitude: 0},
		{Zeroes: 0, Amplitude: 1},
		{Zeroes: 3, Amplitude: -7},
		{Zeroes: 15, Amplitude: 0},
		{Zeroes: 2, Amplitude: 255},
		{Zeroes: 1, Amplitude: -256},
	}
	for _, p := range pairs {
		weights.Add(p.HuffmanSymbol(classBits))
	}

	h := BuildHuffmanCodec(weights)

	var buf bytes.Buffer
	obs := NewOBitstream(&buf)
	for _, p := range pairs {
		require.NoError(t, EncodePair(p, h, classBits, obs))
	}
	require.NoError(t, obs.Flush())

	ibs := NewIBitstream(&buf)
	for _, want := range pairs {
		got, err := DecodePair(h, classBits, ibs)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
