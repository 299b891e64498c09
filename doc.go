// Package bwtree provides a concurrent, latch-free ordered index of the
// Bw-tree family: an in-memory B+-tree whose logical node identity is
// separated from its physical representation.
//
// Mutations never modify a node in place. Each write builds a small delta
// record, prepends it to the target node's chain and commits with a single
// compare-and-swap on the mapping table, the indirection layer that turns a
// stable page identifier (PID) into the chain's current head. Readers
// interpret chains LIFO; long chains are consolidated back into single base
// nodes in the background or inline after writes.
//
// # Quick Start
//
//	ctx := context.Background()
//	tree, err := bwtree.New[int, string](func(a, b int) int { return a - b })
//	if err != nil {
//	    panic(err)
//	}
//	defer tree.Close()
//
//	_ = tree.InsertEntry(ctx, 100, "A")
//	_ = tree.InsertEntry(ctx, 100, "B") // duplicate keys allowed
//	values := tree.ScanKey(ctx, 100)    // ["A", "B"]
//	all := tree.ScanAllKeys(ctx)        // ascending key order
//
// # Concurrency Model
//
// The index is fully re-entrant and never locks a tree node. Every
// mutation commits through a single-word CAS on the root PID or on a
// mapping-table slot, with acquire/release ordering; only the free set of
// recycled PIDs and the default reclaimer's retire lists sit behind short
// mutexes. Contention surfaces as
// CAS failure and is absorbed by retrying from the root; at least one
// thread commits per contention round.
//
// Structural splits are decomposed into two independently publishable
// steps: a split delta on the overflowing node, then a separator delta on
// its parent. Every reader and writer routes correctly whether it observes
// zero, one or both steps. Scans see one linearization point per
// leaf; no cross-key snapshot is offered.
//
// Unlinked chains and recycled PIDs are handed to an epoch-based reclaimer
// and released only once no in-flight operation can still reference them.
// Supply a custom Reclaimer to integrate with an enclosing engine.
//
// # Duplicates and Uniqueness
//
// Keys need not be unique: a key holds a list of values and duplicate
// (key, value) pairs are distinct entries. Setting UniqueKeys rejects
// inserts on existing keys with ErrDuplicateKey.
//
// The index is volatile. Persistence, recovery and merge/underflow
// rebalancing are out of scope: nodes split but never merge.
package bwtree
