package cabac

// Decoder decodes binary decisions from a byte slice produced by Encoder.
// The two sides must issue identical context sequences and identical
// ResetContexts calls to stay in sync.
type Decoder struct {
	data     []byte
	pos      int
	lastByte byte

	a  uint32 // probability interval
	c  uint32 // code register
	ct int    // bit counter

	contexts []uint8
	bypass   int
}

// NewDecoder creates a decoder over coded data with numContexts adaptive
// contexts, mirroring NewEncoder
func NewDecoder(data []byte, numContexts int) *Decoder {
	// sentinel marker terminating the bytein routine past the payload
	withSentinel := make([]byte, len(data)+2)
	copy(withSentinel, data)
	withSentinel[len(data)] = 0xFF
	withSentinel[len(data)+1] = 0xFF

	d := &Decoder{
		data:     withSentinel,
		contexts: make([]uint8, numContexts+1),
		bypass:   numContexts,
	}
	d.ResetContexts()
	d.init()
	return d
}

// ResetContexts restores every adaptive context to its initial state
func (d *Decoder) ResetContexts() {
	for i := range d.contexts {
		d.contexts[i] = 0
	}
	d.contexts[d.bypass] = uniformState
}

func (d *Decoder) init() {
	firstByte := byte(0xFF)
	if d.pos < len(d.data) {
		firstByte = d.data[d.pos]
		d.c = uint32(firstByte) << 16
		d.lastByte = firstByte
		d.pos++
	} else {
		d.c = 0xFF << 16
		d.lastByte = 0xFF
	}

	if firstByte == 0xFF {
		if d.pos < len(d.data) {
			secondByte := d.data[d.pos]
			if secondByte > 0x8F {
				d.c += 0xFF00
				d.ct = 8
			} else {
				d.lastByte = secondByte
				d.pos++
				d.c += uint32(secondByte) << 9
				d.ct = 7
			}
		} else {
			d.c += 0xFF00
			d.ct = 8
		}
	} else {
		d.bytein()
	}

	d.c <<= 7
	d.ct -= 7
	d.a = 0x8000
}

// DecodeBit decodes one decision in the given context, updating its state
func (d *Decoder) DecodeBit(ctx int) int {
	cx := &d.contexts[ctx]
	state := *cx & 0x7F
	mps := int(*cx >> 7)

	qe := qeTable[state]
	d.a -= qe

	var bit int

	if (d.c >> 16) < qe {
		// LPS interval selected; conditional exchange may still yield MPS
		if d.a < qe {
			d.a = qe
			bit = mps
			*cx = nmpsTable[state] | (uint8(mps) << 7)
		} else {
			d.a = qe
			bit = 1 - mps
			newMPS := mps
			if switchTable[state] == 1 {
				newMPS = 1 - mps
			}
			*cx = nlpsTable[state] | (uint8(newMPS) << 7)
		}
		d.renorm()
	} else {
		d.c -= qe << 16

		if d.a >= 0x8000 {
			return mps
		}

		if d.a < qe {
			bit = 1 - mps
			newMPS := mps
			if switchTable[state] == 1 {
				newMPS = 1 - mps
			}
			*cx = nlpsTable[state] | (uint8(newMPS) << 7)
		} else {
			bit = mps
			*cx = nmpsTable[state] | (uint8(mps) << 7)
		}
		d.renorm()
	}

	return bit
}

// DecodeBypass decodes one even-odds decision
func (d *Decoder) DecodeBypass() int {
	return d.DecodeBit(d.bypass)
}

// DecodeBypassBits decodes n bits written by EncodeBypassBits
func (d *Decoder) DecodeBypassBits(n int) uint64 {
	var value uint64
	for i := 0; i < n; i++ {
		value = value<<1 | uint64(d.DecodeBypass())
	}
	return value
}

// DecodeExpGolomb decodes a value written by EncodeExpGolomb
func (d *Decoder) DecodeExpGolomb() uint64 {
	k := 0
	for d.DecodeBypass() == 0 {
		k++
	}
	v := uint64(1)
	for i := 0; i < k; i++ {
		v = v<<1 | uint64(d.DecodeBypass())
	}
	return v - 1
}

func (d *Decoder) renorm() {
	for d.a < 0x8000 {
		if d.ct == 0 {
			d.bytein()
		}
		d.a <<= 1
		d.c <<= 1
		d.ct--
	}
}

// bytein feeds the next payload byte into the code register, honoring the
// stuffing convention of the encoder: after a 0xFF byte only seven bits of
// the next byte are live, and a byte above 0x8F marks the end sentinel
func (d *Decoder) bytein() {
	if d.pos >= len(d.data) {
		d.c += 0xFF00
		d.ct = 8
		return
	}

	nextByte := d.data[d.pos]

	if d.lastByte == 0xFF {
		if nextByte > 0x8F {
			d.c += 0xFF00
			d.ct = 8
		} else {
			d.lastByte = nextByte
			d.pos++
			d.c += uint32(nextByte) << 9
			d.ct = 7
		}
	} else {
		d.lastByte = nextByte
		d.pos++
		d.c += uint32(nextByte) << 8
		d.ct = 8
	}
}
