package common

import (
	"container/heap"
	"errors"
	"io"
	"sort"
)

// ErrHuffmanDecode is returned when no code matches the next 16 input bits
var ErrHuffmanDecode = errors.New("invalid huffman code")

// maxCodeLength is the longest permitted code (JPEG convention)
const maxCodeLength = 16

// HuffmanWeights accumulates symbol occurrence counts
type HuffmanWeights map[byte]uint64

// Add counts one occurrence of a symbol
func (w HuffmanWeights) Add(sym byte) {
	w[sym]++
}

// HuffmanCode is one assigned canonical code
type HuffmanCode struct {
	Code uint32
	Len  int
}

// HuffmanCodec is a canonical length-limited Huffman code. Bits holds the
// number of codes of each length 1..16 and Values the symbols in canonical
// order; this is also the serialized representation.
type HuffmanCodec struct {
	Bits   [maxCodeLength]int
	Values []byte

	codes map[byte]HuffmanCode
	// decode tables in the canonical layout
	minCode [maxCodeLength]int32
	maxCode [maxCodeLength]int32
	valPtr  [maxCodeLength]int32
}

type huffNode struct {
	weight uint64
	order  int // deterministic tie-break
	length int
	left   *huffNode
	right  *huffNode
	symbol byte
}

type huffHeap []*huffNode

func (h huffHeap) Len() int { return len(h) }
func (h huffHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	return h[i].order < h[j].order
}
func (h huffHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *huffHeap) Push(x interface{}) { *h = append(*h, x.(*huffNode)) }
func (h *huffHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func markDepths(n *huffNode, depth int, lengths map[byte]int) {
	if n.left == nil && n.right == nil {
		if depth == 0 {
			depth = 1
		}
		lengths[n.symbol] = depth
		return
	}
	markDepths(n.left, depth+1, lengths)
	markDepths(n.right, depth+1, lengths)
}

// adjustLengths rebalances count-per-length so that no code exceeds 16 bits,
// the JPEG Annex K procedure: a pair of longest codes is replaced by one
// code one bit shorter plus an extension of some shorter code.
func adjustLengths(counts []int) []int {
	if len(counts) <= maxCodeLength+1 {
		return counts
	}

	for i := len(counts) - 1; i > maxCodeLength; i-- {
		for counts[i] > 0 {
			j := i - 2
			for counts[j] == 0 {
				j--
			}
			counts[i] -= 2
			counts[i-1]++
			counts[j+1] += 2
			counts[j]--
		}
	}
	return counts[:maxCodeLength+1]
}

// BuildHuffmanCodec generates a canonical length-limited code from weights.
// Symbols of equal length receive consecutive codes in ascending symbol
// order; the first code of each length extends the previous level by
// (prev+1) << lengthDelta.
func BuildHuffmanCodec(weights HuffmanWeights) *HuffmanCodec {
	h := &HuffmanCodec{codes: make(map[byte]HuffmanCode)}

	symbols := make([]byte, 0, len(weights))
	for sym := range weights {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(a, b int) bool { return symbols[a] < symbols[b] })

	if len(symbols) == 0 {
		return h
	}

	// Huffman code lengths with deterministic tie-breaking
	nodes := make(huffHeap, 0, len(symbols))
	for i, sym := range symbols {
		nodes = append(nodes, &huffNode{weight: weights[sym], order: i, symbol: sym})
	}
	heap.Init(&nodes)

	order := len(symbols)
	for nodes.Len() > 1 {
		a := heap.Pop(&nodes).(*huffNode)
		b := heap.Pop(&nodes).(*huffNode)
		heap.Push(&nodes, &huffNode{weight: a.weight + b.weight, order: order, left: a, right: b})
		order++
	}

	lengths := make(map[byte]int, len(symbols))
	markDepths(nodes[0], 0, lengths)

	longest := 0
	for _, l := range lengths {
		if l > longest {
			longest = l
		}
	}

	counts := make([]int, longest+1)
	for _, l := range lengths {
		counts[l]++
	}
	counts = adjustLengths(counts)

	// Canonical order: length ascending, symbol ascending. The adjusted
	// counts are dealt back out to symbols sorted by their pre-adjustment
	// length, which preserves the frequency ordering.
	sort.SliceStable(symbols, func(a, b int) bool {
		la, lb := lengths[symbols[a]], lengths[symbols[b]]
		if la != lb {
			return la < lb
		}
		return symbols[a] < symbols[b]
	})

	assigned := make([]int, len(symbols))
	pos := 0
	for l := 1; l < len(counts); l++ {
		for n := 0; n < counts[l]; n++ {
			assigned[pos] = l
			pos++
		}
	}

	// Within one final length, codes must follow ascending symbol order
	type symLen struct {
		sym byte
		len int
	}
	pairs := make([]symLen, len(symbols))
	for i, sym := range symbols {
		pairs[i] = symLen{sym: sym, len: assigned[i]}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].len != pairs[b].len {
			return pairs[a].len < pairs[b].len
		}
		return pairs[a].sym < pairs[b].sym
	})

	for _, p := range pairs {
		h.Bits[p.len-1]++
		h.Values = append(h.Values, p.sym)
	}

	h.build()
	return h
}

// build derives encode and decode tables from Bits and Values
func (h *HuffmanCodec) build() {
	if h.codes == nil {
		h.codes = make(map[byte]HuffmanCode)
	}

	code := int32(0)
	p := 0
	for l := 0; l < maxCodeLength; l++ {
		if h.Bits[l] == 0 {
			h.maxCode[l] = -1
		} else {
			h.valPtr[l] = int32(p)
			h.minCode[l] = code
			for n := 0; n < h.Bits[l]; n++ {
				h.codes[h.Values[p]] = HuffmanCode{Code: uint32(code), Len: l + 1}
				code++
				p++
			}
			h.maxCode[l] = code - 1
		}
		code <<= 1
	}
}

// EncodeSymbol writes the code assigned to a symbol
func (h *HuffmanCodec) EncodeSymbol(obs *OBitstream, sym byte) error {
	c, ok := h.codes[sym]
	if !ok {
		return ErrHuffmanDecode
	}
	return obs.PutBits(c.Len, uint64(c.Code))
}

// DecodeSymbol reads bits until they form a valid code and returns its symbol
func (h *HuffmanCodec) DecodeSymbol(ibs *IBitstream) (byte, error) {
	code := int32(0)
	for l := 0; l < maxCodeLength; l++ {
		bit, err := ibs.GetBit()
		if err != nil {
			return 0, err
		}
		code = code<<1 | int32(bit)

		if h.maxCode[l] >= 0 && code <= h.maxCode[l] && code >= h.minCode[l] {
			return h.Values[h.valPtr[l]+code-h.minCode[l]], nil
		}
	}
	return 0, ErrHuffmanDecode
}

// CodeOf returns the canonical code assigned to a symbol, for inspection
func (h *HuffmanCodec) CodeOf(sym byte) (HuffmanCode, bool) {
	c, ok := h.codes[sym]
	return c, ok
}

// WriteTo serializes the code: 16 count-per-length bytes, then the symbols
// in canonical order
func (h *HuffmanCodec) WriteTo(w io.Writer) error {
	buf := make([]byte, maxCodeLength, maxCodeLength+len(h.Values))
	for i, n := range h.Bits {
		buf[i] = byte(n)
	}
	buf = append(buf, h.Values...)
	_, err := w.Write(buf)
	return err
}

// ReadHuffmanCodec deserializes a code written by WriteTo
func ReadHuffmanCodec(r io.Reader) (*HuffmanCodec, error) {
	var counts [maxCodeLength]byte
	if _, err := io.ReadFull(r, counts[:]); err != nil {
		return nil, err
	}

	h := &HuffmanCodec{}
	total := 0
	for i, n := range counts {
		h.Bits[i] = int(n)
		total += int(n)
	}

	h.Values = make([]byte, total)
	if _, err := io.ReadFull(r, h.Values); err != nil {
		return nil, err
	}

	h.build()
	return h, nil
}
