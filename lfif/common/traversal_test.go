package common

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraversalIsPermutation(t *testing.T) {
	shape := []int{8, 8, 8}
	rng := rand.New(rand.NewSource(21))

	reference := make([]uint64, Size(shape))
	for i := range reference {
		reference[i] = uint64(rng.Intn(1000))
	}

	table := BuildTraversal(shape, reference)

	seen := make(map[int]bool)
	for k := 0; k < table.Size(); k++ {
		seen[table.At(k)] = true
	}
	assert.Len(t, seen, Size(shape))
}

func TestTraversalOrdersByDescendingReference(t *testing.T) {
	shape := []int{4, 4}
	reference := make([]uint64, 16)
	for i := range reference {
		reference[i] = uint64(i)
	}

	table := BuildTraversal(shape, reference)

	// highest reference magnitude scans first
	for k := 0; k < 16; k++ {
		assert.Equal(t, 15-k, table.At(k))
	}
}

func TestTraversalTiesBreakByIndex(t *testing.T) {
	shape := []int{4, 4}
	reference := make([]uint64, 16) // all equal

	table := BuildTraversal(shape, reference)

	for k := 0; k < 16; k++ {
		assert.Equal(t, k, table.At(k))
	}
}

func TestTraverseDetraverseRoundTrip(t *testing.T) {
	shape := []int{8, 8}
	rng := rand.New(rand.NewSource(22))

	reference := make([]uint64, 64)
	q := make([]int64, 64)
	for i := range q {
		reference[i] = uint64(rng.Intn(500))
		q[i] = int64(rng.Intn(201) - 100)
	}

	table := BuildTraversal(shape, reference)

	scanned := make([]int64, 64)
	back := make([]int64, 64)
	table.Traverse(q, scanned)
	table.Detraverse(scanned, back)

	assert.Equal(t, q, back)
}

func TestTraversalSerialization(t *testing.T) {
	for _, shape := range [][]int{{8, 8}, {8, 8, 8}, {4, 4, 4, 4}} {
		rng := rand.New(rand.NewSource(23))
		reference := make([]uint64, Size(shape))
		for i := range reference {
			reference[i] = uint64(rng.Intn(9999))
		}

		table := BuildTraversal(shape, reference)

		var buf bytes.Buffer
		require.NoError(t, table.WriteTo(&buf))

		got, err := ReadTraversalTable(&buf, shape)
		require.NoError(t, err)
		for k := 0; k < table.Size(); k++ {
			assert.Equal(t, table.At(k), got.At(k))
		}
	}
}

func TestTraversalEntryWidth(t *testing.T) {
	// 64 entries fit one byte, 512 and 4096 need two
	var buf bytes.Buffer
	table := BuildTraversal([]int{8, 8}, make([]uint64, 64))
	require.NoError(t, table.WriteTo(&buf))
	assert.Equal(t, 64, buf.Len())

	buf.Reset()
	table = BuildTraversal([]int{8, 8, 8}, make([]uint64, 512))
	require.NoError(t, table.WriteTo(&buf))
	assert.Equal(t, 1024, buf.Len())
}
