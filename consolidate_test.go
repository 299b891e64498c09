package bwtree

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidateIsTransparent(t *testing.T) {
	ctx := context.Background()
	tree := newIntTree(t, func(o *Options[int]) {
		o.LeafSplitThreshold = 8
		o.DeltaChainThreshold = 64 // keep chains long so the sweep has work
	})

	for i := 0; i < 50; i++ {
		require.NoError(t, tree.InsertEntry(ctx, i%10, "v"))
	}
	require.NoError(t, tree.DeleteEntry(ctx, 3, "v"))
	require.NoError(t, tree.UpdateEntry(ctx, 4, "w"))

	before := make(map[int][]string)
	for k := 0; k < 10; k++ {
		vals := tree.ScanKey(ctx, k)
		sort.Strings(vals)
		before[k] = vals
	}
	allBefore := tree.ScanAllKeys(ctx)

	swept := tree.Consolidate(ctx)
	assert.Positive(t, swept)

	for k := 0; k < 10; k++ {
		vals := tree.ScanKey(ctx, k)
		sort.Strings(vals)
		assert.Equal(t, before[k], vals, "consolidation changed key %d", k)
	}
	assert.Equal(t, allBefore, tree.ScanAllKeys(ctx))
	assert.Positive(t, tree.Stats().Consolidations)

	// A second sweep finds nothing left to collapse.
	assert.Zero(t, tree.Consolidate(ctx))

	checkInvariants(t, tree)
}

func TestConsolidateTriggersInline(t *testing.T) {
	ctx := context.Background()
	tree := newIntTree(t, func(o *Options[int]) {
		o.DeltaChainThreshold = 3
		o.LeafSplitThreshold = 1024
	})

	for i := 0; i < 20; i++ {
		require.NoError(t, tree.InsertEntry(ctx, 1, "v"))
	}

	s := tree.Stats()
	assert.Positive(t, s.Consolidations)
	require.Len(t, tree.ScanKey(ctx, 1), 20)

	// The surviving chain is bounded by the threshold plus one delta.
	_, head := tree.findLeaf(1)
	assert.LessOrEqual(t, head.chainLength, tree.opts.DeltaChainThreshold+1)
}

func TestConsolidatePreservesFencesAndLinks(t *testing.T) {
	ctx := context.Background()
	tree := newIntTree(t, func(o *Options[int]) {
		o.LeafSplitThreshold = 4
		o.DeltaChainThreshold = 64
	})

	for i := 1; i <= 50; i++ {
		require.NoError(t, tree.InsertEntry(ctx, i, "x"))
	}
	tree.Consolidate(ctx)

	// Every chain is now a single base; fences and links must still form
	// a well-ordered leaf chain covering all keys.
	tree.mapping.forEach(func(pid PID, head *node[int, string]) bool {
		assert.Zero(t, head.chainLength)
		return true
	})
	require.Len(t, tree.ScanAllKeys(ctx), 50)
	checkInvariants(t, tree)
}

func TestConsolidateInnerNodes(t *testing.T) {
	ctx := context.Background()
	tree := newIntTree(t, func(o *Options[int]) {
		o.LeafSplitThreshold = 4
		o.InnerSplitThreshold = 4
		o.DeltaChainThreshold = 64
	})

	// Enough separator deltas accumulate on inner nodes to matter.
	for i := 1; i <= 300; i++ {
		require.NoError(t, tree.InsertEntry(ctx, i, "x"))
	}

	swept := tree.Consolidate(ctx)
	assert.Positive(t, swept)

	root := tree.mapping.get(PID(tree.root.Load()))
	require.NotNil(t, root)
	assert.Positive(t, root.level)
	assert.Zero(t, root.chainLength, "inner chains must consolidate too")

	require.Len(t, tree.ScanAllKeys(ctx), 300)
	checkInvariants(t, tree)
}
