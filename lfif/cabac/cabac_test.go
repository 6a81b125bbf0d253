package cabac

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripSingleContext(t *testing.T) {
	bits := []int{0, 1, 1, 0, 1, 0, 0, 0, 1, 1, 1, 1, 0, 1}

	e := NewEncoder(1)
	for _, b := range bits {
		e.EncodeBit(0, b)
	}
	data := e.Terminate()

	d := NewDecoder(data, 1)
	for i, want := range bits {
		assert.Equal(t, want, d.DecodeBit(0), "bit %d", i)
	}
}

func TestRoundTripRandomContexts(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	const numContexts = 32

	type decision struct {
		ctx int
		bit int
	}
	var decisions []decision
	for k := 0; k < 20000; k++ {
		decisions = append(decisions, decision{ctx: rng.Intn(numContexts), bit: rng.Intn(2)})
	}

	e := NewEncoder(numContexts)
	for _, dec := range decisions {
		e.EncodeBit(dec.ctx, dec.bit)
	}
	data := e.Terminate()

	d := NewDecoder(data, numContexts)
	for i, dec := range decisions {
		require.Equal(t, dec.bit, d.DecodeBit(dec.ctx), "decision %d", i)
	}
}

func TestRoundTripSkewed(t *testing.T) {
	// heavily biased input adapts the context and must still round trip
	rng := rand.New(rand.NewSource(42))

	var bits []int
	for k := 0; k < 10000; k++ {
		b := 0
		if rng.Intn(100) == 0 {
			b = 1
		}
		bits = append(bits, b)
	}

	e := NewEncoder(1)
	for _, b := range bits {
		e.EncodeBit(0, b)
	}
	data := e.Terminate()

	// biased input compresses well below one bit per decision
	assert.Less(t, len(data)*8, len(bits)/2)

	d := NewDecoder(data, 1)
	for i, want := range bits {
		require.Equal(t, want, d.DecodeBit(0), "bit %d", i)
	}
}

func TestRoundTripBypass(t *testing.T) {
	rng := rand.New(rand.NewSource(43))

	var bits []int
	for k := 0; k < 5000; k++ {
		bits = append(bits, rng.Intn(2))
	}

	e := NewEncoder(1)
	for _, b := range bits {
		e.EncodeBypass(b)
	}
	data := e.Terminate()

	d := NewDecoder(data, 1)
	for i, want := range bits {
		require.Equal(t, want, d.DecodeBypass(), "bit %d", i)
	}
}

func TestRoundTripMixed(t *testing.T) {
	rng := rand.New(rand.NewSource(44))
	const numContexts = 8

	type op struct {
		bypass bool
		ctx    int
		bit    int
	}
	var ops []op
	for k := 0; k < 20000; k++ {
		ops = append(ops, op{
			bypass: rng.Intn(3) == 0,
			ctx:    rng.Intn(numContexts),
			bit:    rng.Intn(2),
		})
	}

	e := NewEncoder(numContexts)
	for _, o := range ops {
		if o.bypass {
			e.EncodeBypass(o.bit)
		} else {
			e.EncodeBit(o.ctx, o.bit)
		}
	}
	data := e.Terminate()

	d := NewDecoder(data, numContexts)
	for i, o := range ops {
		if o.bypass {
			require.Equal(t, o.bit, d.DecodeBypass(), "op %d", i)
		} else {
			require.Equal(t, o.bit, d.DecodeBit(o.ctx), "op %d", i)
		}
	}
}

func TestRoundTripWithContextReset(t *testing.T) {
	rng := rand.New(rand.NewSource(45))
	const numContexts = 4

	var segments [][]int
	for s := 0; s < 5; s++ {
		var bits []int
		for k := 0; k < 3000; k++ {
			bits = append(bits, rng.Intn(2))
		}
		segments = append(segments, bits)
	}

	e := NewEncoder(numContexts)
	for s, bits := range segments {
		if s > 0 {
			e.ResetContexts()
		}
		for i, b := range bits {
			e.EncodeBit(i%numContexts, b)
		}
	}
	data := e.Terminate()

	d := NewDecoder(data, numContexts)
	for s, bits := range segments {
		if s > 0 {
			d.ResetContexts()
		}
		for i, want := range bits {
			require.Equal(t, want, d.DecodeBit(i%numContexts), "segment %d bit %d", s, i)
		}
	}
}

func TestRoundTripExpGolomb(t *testing.T) {
	values := []uint64{0, 1, 2, 3, 4, 7, 8, 100, 255, 256, 65535, 1 << 20}

	e := NewEncoder(1)
	for _, v := range values {
		e.EncodeExpGolomb(v)
	}
	data := e.Terminate()

	d := NewDecoder(data, 1)
	for i, want := range values {
		require.Equal(t, want, d.DecodeExpGolomb(), "value %d", i)
	}
}

func TestRoundTripBypassBits(t *testing.T) {
	rng := rand.New(rand.NewSource(46))

	var widths []int
	var values []uint64
	e := NewEncoder(1)
	for k := 0; k < 500; k++ {
		n := 1 + rng.Intn(24)
		v := rng.Uint64() & (uint64(1)<<uint(n) - 1)
		widths = append(widths, n)
		values = append(values, v)
		e.EncodeBypassBits(n, v)
	}
	data := e.Terminate()

	d := NewDecoder(data, 1)
	for k := range widths {
		require.Equal(t, values[k], d.DecodeBypassBits(widths[k]), "value %d", k)
	}
}

func TestContextStateStaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(47))

	e := NewEncoder(2)
	for k := 0; k < 1000; k++ {
		e.EncodeBit(0, rng.Intn(2))
		state := e.contexts[0] & 0x7F
		require.Less(t, int(state), numStates)
	}
}
