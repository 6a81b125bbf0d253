// Package cabac implements the binary arithmetic coder of the LFIF payload:
// a table-driven, multiplication-free coder with adaptive per-context
// probability states (the MQ-coder family of ISO/IEC 15444-1 Annex C).
//
// The state tables below, the 0xFF bit-stuffing of the byte layer and the
// flush procedure are the encoder/decoder contract of this implementation.
// Bypass bits are routed through one dedicated context pinned at state 46,
// whose probability estimate does not adapt, approximating the fixed 0.5
// probability the format calls for.
package cabac

// number of adaptive states per context
const numStates = 47

// uniformState is the non-adapting state used for bypass coding
const uniformState = 46

// qeTable - LPS probability estimates for each state
var qeTable = [numStates]uint32{
	0x5601, 0x3401, 0x1801, 0x0AC1, 0x0521, 0x0221, 0x5601, 0x5401,
	0x4801, 0x3801, 0x3001, 0x2401, 0x1C01, 0x1601, 0x5601, 0x5401,
	0x5101, 0x4801, 0x3801, 0x3401, 0x3001, 0x2801, 0x2401, 0x2201,
	0x1C01, 0x1801, 0x1601, 0x1401, 0x1201, 0x1101, 0x0AC1, 0x09C1,
	0x08A1, 0x0521, 0x0441, 0x02A1, 0x0221, 0x0141, 0x0111, 0x0085,
	0x0049, 0x0025, 0x0015, 0x0009, 0x0005, 0x0001, 0x5601,
}

// nmpsTable - next state after coding the more probable symbol
var nmpsTable = [numStates]uint8{
	1, 2, 3, 4, 5, 38, 7, 8,
	9, 10, 11, 12, 13, 29, 15, 16,
	17, 18, 19, 20, 21, 22, 23, 24,
	25, 26, 27, 28, 29, 30, 31, 32,
	33, 34, 35, 36, 37, 38, 39, 40,
	41, 42, 43, 44, 45, 45, 46,
}

// nlpsTable - next state after coding the less probable symbol
var nlpsTable = [numStates]uint8{
	1, 6, 9, 12, 29, 33, 6, 14,
	14, 14, 17, 18, 20, 21, 14, 14,
	15, 16, 17, 18, 19, 19, 20, 21,
	22, 23, 24, 25, 26, 27, 28, 29,
	30, 31, 32, 33, 34, 35, 36, 37,
	38, 39, 40, 41, 42, 43, 46,
}

// switchTable - whether the MPS flips after coding an LPS
var switchTable = [numStates]uint8{
	1, 0, 0, 0, 0, 0, 1, 0,
	0, 0, 0, 0, 0, 0, 1, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0,
}
