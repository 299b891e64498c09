package bwtree

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	ctx := context.Background()

	t.Run("StructuredFields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))

		logger.WithPID(42).LogSplit(ctx, 42, 43, 0)
		out := buf.String()
		assert.Contains(t, out, "node split")
		assert.Contains(t, out, "sibling=43")
	})

	t.Run("NoopDiscardsEverything", func(t *testing.T) {
		logger := NoopLogger()
		logger.LogInsert(ctx, nil)
		logger.LogConsolidate(ctx, 1, 9)
	})

	t.Run("TreeLogsSMOs", func(t *testing.T) {
		var buf bytes.Buffer
		tree := newIntTree(t, func(o *Options[int]) {
			o.Logger = NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}))
			o.LeafSplitThreshold = 4
		})

		for i := 0; i < 20; i++ {
			require.NoError(t, tree.InsertEntry(ctx, i, "x"))
		}
		out := buf.String()
		assert.Contains(t, out, "node split")
		assert.Contains(t, out, "root grown")
	})
}
