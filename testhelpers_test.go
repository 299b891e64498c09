package bwtree

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// tupleKey mirrors a two-column index key (INTEGER, VARCHAR).
type tupleKey struct {
	id   int
	name string
}

func compareTupleKeys(a, b tupleKey) int {
	if a.id != b.id {
		return a.id - b.id
	}
	return strings.Compare(a.name, b.name)
}

// item is a stable tuple pointer into a heap (block, offset).
type item struct {
	block  uint32
	offset uint32
}

var (
	item0 = item{block: 120, offset: 5}
	item1 = item{block: 120, offset: 7}
	item2 = item{block: 123, offset: 19}
)

// longE is the oversized varchar payload used by the workload helpers.
var longE = strings.Repeat("e", 1000)

func newTupleTree(t *testing.T, optFns ...func(o *Options[tupleKey])) *Tree[tupleKey, item] {
	t.Helper()
	tree, err := New[tupleKey, item](compareTupleKeys, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return tree
}

func newIntTree(t *testing.T, optFns ...func(o *Options[int])) *Tree[int, string] {
	t.Helper()
	tree, err := New[int, string](func(a, b int) int { return a - b }, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return tree
}

// insertWorkload inserts nine entries per scale iteration, including
// duplicate keys and duplicate pairs.
func insertWorkload(ctx context.Context, tree *Tree[tupleKey, item], scale int) error {
	for it := 1; it <= scale; it++ {
		entries := []struct {
			key tupleKey
			val item
		}{
			{tupleKey{100 * it, "a"}, item0},
			{tupleKey{100 * it, "b"}, item1},
			{tupleKey{100 * it, "b"}, item2},
			{tupleKey{100 * it, "b"}, item1},
			{tupleKey{100 * it, "b"}, item1},
			{tupleKey{100 * it, "b"}, item0},
			{tupleKey{100 * it, "c"}, item1},
			{tupleKey{400 * it, "d"}, item1},
			{tupleKey{500 * it, longE}, item1},
		}
		for _, e := range entries {
			if err := tree.InsertEntry(ctx, e.key, e.val); err != nil {
				return err
			}
		}
	}
	return nil
}

// deleteWorkload undoes part of insertWorkload. Deleting a pair removes
// every matching duplicate at once.
func deleteWorkload(ctx context.Context, tree *Tree[tupleKey, item], scale int) error {
	for it := 1; it <= scale; it++ {
		entries := []struct {
			key tupleKey
			val item
		}{
			{tupleKey{100 * it, "a"}, item0},
			{tupleKey{100 * it, "b"}, item1},
			{tupleKey{100 * it, "c"}, item2}, // not present; silent no-op
			{tupleKey{400 * it, "d"}, item1},
			{tupleKey{500 * it, longE}, item1},
		}
		for _, e := range entries {
			if err := tree.DeleteEntry(ctx, e.key, e.val); err != nil {
				return err
			}
		}
	}
	return nil
}

func launchParallel(t *testing.T, n int, fn func(i int) error) {
	t.Helper()
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error { return fn(i) })
	}
	require.NoError(t, g.Wait())
}

// checkInvariants verifies the structural invariants of a quiesced tree:
// the leaf chain is acyclic and visits every leaf exactly once in key
// order, sizes match materialized content, children sit one level below
// their parent, and every child's keys stay below the separator above it.
func checkInvariants[K any, V comparable](t *testing.T, tree *Tree[K, V]) {
	t.Helper()

	root := PID(tree.root.Load())
	if root == NullPID {
		return
	}

	seen := make(map[PID]bool)
	var prevKey *K
	var lastLeaf PID
	pid := PID(tree.headLeaf.Load())
	for pid != NullPID {
		require.False(t, seen[pid], "leaf chain revisits pid %d", pid)
		seen[pid] = true

		head := tree.mapping.get(pid)
		require.NotNil(t, head, "mapping must be total for live pid %d", pid)
		require.Equal(t, 0, head.level)

		slots := tree.leafSlots(head)
		require.Equal(t, len(slots), head.size, "declared size must match materialized slots")

		for _, s := range slots {
			require.NotEmpty(t, s.values)
			if prevKey != nil {
				require.Negative(t, tree.compare(*prevKey, s.key), "leaf keys out of order")
			}
			k := s.key
			prevKey = &k
		}
		if high := tree.chainHigh(head); high != nil && len(slots) > 0 {
			require.Negative(t, tree.compare(slots[len(slots)-1].key, *high), "slot past the fence")
		}

		lastLeaf = pid
		pid = tree.chainSibling(head)
	}
	require.Equal(t, lastLeaf, PID(tree.tailLeaf.Load()), "tail pointer must end the chain")

	checkSubtree(t, tree, root)
}

func checkSubtree[K any, V comparable](t *testing.T, tree *Tree[K, V], pid PID) {
	t.Helper()

	head := tree.mapping.get(pid)
	require.NotNil(t, head)
	if head.level == 0 {
		return
	}

	keys, children := tree.innerTable(head)
	require.Len(t, children, len(keys)+1)
	require.Equal(t, len(keys), head.size)

	for i, child := range children {
		cn := tree.mapping.get(child)
		require.NotNil(t, cn, "child pid %d must be mapped", child)
		require.Equal(t, head.level-1, cn.level, "children must sit exactly one level down")

		if cn.level == 0 {
			slots := tree.leafSlots(cn)
			if len(slots) == 0 {
				continue
			}
			if i < len(keys) {
				require.Negative(t, tree.compare(slots[len(slots)-1].key, keys[i]), "child keys must stay below the separator")
			}
			if i > 0 {
				require.GreaterOrEqual(t, tree.compare(slots[0].key, keys[i-1]), 0, "child keys must reach the separator below")
			}
		}
		checkSubtree(t, tree, child)
	}
}
