package cabac

// Encoder encodes binary decisions into a growing byte buffer.
// Context state lives in a single byte per context: the lower 7 bits hold
// the probability state, bit 7 the current MPS.
type Encoder struct {
	// buffer index 0 is a dummy byte absorbing the first carry
	buffer []byte
	start  int
	bp     int

	a  uint32 // probability interval
	c  uint32 // code register
	ct int    // bit counter

	contexts []uint8
	bypass   int // index of the pinned bypass context
}

// NewEncoder creates an encoder with numContexts adaptive contexts.
// One extra context is appended internally for bypass coding.
func NewEncoder(numContexts int) *Encoder {
	e := &Encoder{
		buffer:   make([]byte, 1, 1024),
		start:    1,
		bp:       0,
		a:        0x8000,
		c:        0,
		ct:       12,
		contexts: make([]uint8, numContexts+1),
		bypass:   numContexts,
	}
	e.ResetContexts()
	return e
}

// ResetContexts restores every adaptive context to its initial state.
// The coder registers are untouched; this is what happens at image
// boundaries inside a stream.
func (e *Encoder) ResetContexts() {
	for i := range e.contexts {
		e.contexts[i] = 0
	}
	e.contexts[e.bypass] = uniformState
}

// EncodeBit codes one decision in the given context, updating its state
func (e *Encoder) EncodeBit(ctx int, bit int) {
	cx := &e.contexts[ctx]
	state := *cx & 0x7F
	mps := int(*cx >> 7)

	qe := qeTable[state]

	if bit == mps {
		e.a -= qe
		if (e.a & 0x8000) == 0 {
			// conditional exchange
			if e.a < qe {
				e.a = qe
			} else {
				e.c += qe
			}
			*cx = nmpsTable[state] | (uint8(mps) << 7)
			e.renorm()
		} else {
			e.c += qe
		}
	} else {
		e.a -= qe
		if e.a < qe {
			e.c += qe
		} else {
			e.a = qe
		}
		newMPS := mps
		if switchTable[state] == 1 {
			newMPS = 1 - mps
		}
		*cx = nlpsTable[state] | (uint8(newMPS) << 7)
		e.renorm()
	}
}

// EncodeBypass codes one decision at (approximately) even odds
func (e *Encoder) EncodeBypass(bit int) {
	e.EncodeBit(e.bypass, bit)
}

// EncodeBypassBits codes the n least significant bits of value,
// most significant first
func (e *Encoder) EncodeBypassBits(n int, value uint64) {
	for i := n - 1; i >= 0; i-- {
		e.EncodeBypass(int((value >> uint(i)) & 1))
	}
}

// EncodeExpGolomb codes a non-negative value as order-0 exp-Golomb in
// bypass: k zeros, then the (k+1)-bit binary of value+1
func (e *Encoder) EncodeExpGolomb(value uint64) {
	v := value + 1
	k := 0
	for v>>uint(k+1) != 0 {
		k++
	}
	for i := 0; i < k; i++ {
		e.EncodeBypass(0)
	}
	e.EncodeBypassBits(k+1, v)
}

// renorm doubles the probability interval back above the half point
func (e *Encoder) renorm() {
	for e.a < 0x8000 {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteout()
		}
	}
}

// byteout moves the top of the code register into the buffer, inserting a
// stuffing bit after any 0xFF byte so carries cannot propagate past it
func (e *Encoder) byteout() {
	if e.buffer[e.bp] == 0xFF {
		e.bp++
		e.grow()
		e.buffer[e.bp] = byte(e.c >> 20)
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}

	if (e.c & 0x8000000) == 0 {
		e.bp++
		e.grow()
		e.buffer[e.bp] = byte(e.c >> 19)
		e.c &= 0x7FFFF
		e.ct = 8
		return
	}

	// propagate the carry into the previous byte
	e.buffer[e.bp]++
	if e.buffer[e.bp] == 0xFF {
		e.c &= 0x7FFFFFF
		e.bp++
		e.grow()
		e.buffer[e.bp] = byte(e.c >> 20)
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}

	e.bp++
	e.grow()
	e.buffer[e.bp] = byte(e.c >> 19)
	e.c &= 0x7FFFF
	e.ct = 8
}

func (e *Encoder) grow() {
	for e.bp >= len(e.buffer) {
		e.buffer = append(e.buffer, 0)
	}
}

// Terminate flushes the code register and returns the coded payload.
// The encoder must not be used afterwards.
func (e *Encoder) Terminate() []byte {
	// fill the remaining interval with as many 1 bits as fit
	tempC := e.c + e.a
	e.c |= 0xFFFF
	if e.c >= tempC {
		e.c -= 0x8000
	}

	e.c <<= uint(e.ct)
	e.byteout()
	e.c <<= uint(e.ct)
	e.byteout()

	if e.buffer[e.bp] != 0xFF {
		e.bp++
	}

	if e.bp < e.start {
		return []byte{}
	}
	return e.buffer[e.start:e.bp]
}
