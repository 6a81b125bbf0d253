package common

import (
	"encoding/binary"
	"io"
	"math/bits"
	"sort"
)

// TraversalTable is a permutation of block coefficients: scan position k
// holds the flat block index order[k]. Built from a reference block so that
// high-energy coefficients come first in scan order, maximizing the gain of
// the end-of-block marker.
type TraversalTable struct {
	shape []int
	order []int
}

// entryBytes returns the serialized width of one table entry:
// ceil(log2(size) / 8) bytes.
func entryBytes(size int) int {
	b := bits.Len(uint(size - 1))
	if b == 0 {
		b = 1
	}
	return (b + 7) / 8
}

// NewTraversalTable wraps an explicit permutation, used by readers of
// externally fixed table layouts
func NewTraversalTable(shape []int, order []int) *TraversalTable {
	return &TraversalTable{
		shape: append([]int(nil), shape...),
		order: append([]int(nil), order...),
	}
}

// BuildTraversal constructs the permutation from a reference block of
// per-coefficient magnitude sums. Coefficients are ordered by descending
// reference value, ties broken by ascending flat index.
func BuildTraversal(shape []int, reference []uint64) *TraversalTable {
	t := &TraversalTable{
		shape: append([]int(nil), shape...),
		order: make([]int, Size(shape)),
	}
	for i := range t.order {
		t.order[i] = i
	}

	sort.SliceStable(t.order, func(a, b int) bool {
		ia, ib := t.order[a], t.order[b]
		if reference[ia] != reference[ib] {
			return reference[ia] > reference[ib]
		}
		return ia < ib
	})
	return t
}

// Size returns the number of entries in the table
func (t *TraversalTable) Size() int {
	return len(t.order)
}

// At returns the block index scanned at position k
func (t *TraversalTable) At(k int) int {
	return t.order[k]
}

// Traverse reorders a quantized block into scan order
func (t *TraversalTable) Traverse(q []int64, out []int64) {
	for k, idx := range t.order {
		out[k] = q[idx]
	}
}

// Detraverse restores a scanned block to its natural order
func (t *TraversalTable) Detraverse(scanned []int64, out []int64) {
	for k, idx := range t.order {
		out[idx] = scanned[k]
	}
}

// WriteTo serializes the permutation, one little-endian entry per position
func (t *TraversalTable) WriteTo(w io.Writer) error {
	width := entryBytes(len(t.order))
	buf := make([]byte, width*len(t.order))

	var scratch [8]byte
	for k, idx := range t.order {
		binary.LittleEndian.PutUint64(scratch[:], uint64(idx))
		copy(buf[k*width:(k+1)*width], scratch[:width])
	}
	_, err := w.Write(buf)
	return err
}

// ReadTraversalTable deserializes a permutation for the given block shape
func ReadTraversalTable(r io.Reader, shape []int) (*TraversalTable, error) {
	size := Size(shape)
	width := entryBytes(size)

	buf := make([]byte, width*size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	t := &TraversalTable{
		shape: append([]int(nil), shape...),
		order: make([]int, size),
	}

	var scratch [8]byte
	for k := range t.order {
		for i := range scratch {
			scratch[i] = 0
		}
		copy(scratch[:width], buf[k*width:(k+1)*width])
		t.order[k] = int(binary.LittleEndian.Uint64(scratch[:]))
	}
	return t, nil
}
