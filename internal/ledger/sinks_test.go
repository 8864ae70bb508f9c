package ledger

import (
	"fmt"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parpool/parpool/internal/types"
)

func TestRingSink(t *testing.T) {
	t.Run("KeepsNewestLast", func(t *testing.T) {
		sink := NewRingSink(8)
		sink.Emit(types.AddEvent{Asset: "usda", Amount: math.NewInt(1)})
		sink.Emit(types.RemoveEvent{Asset: "usdb", Amount: math.NewInt(2)})

		recent := sink.Recent(10)
		require.Len(t, recent, 2)
		assert.Equal(t, "add", recent[0].Kind)
		assert.Equal(t, "remove", recent[1].Kind)
	})

	t.Run("EvictsOldestAtCapacity", func(t *testing.T) {
		sink := NewRingSink(3)
		for i := 0; i < 5; i++ {
			sink.Emit(types.AddEvent{Asset: types.AssetID(fmt.Sprintf("asset%d", i)), Amount: math.NewInt(int64(i))})
		}

		recent := sink.Recent(10)
		require.Len(t, recent, 3)
		first, ok := recent[0].Event.(types.AddEvent)
		require.True(t, ok)
		assert.Equal(t, types.AssetID("asset2"), first.Asset)
	})

	t.Run("RecentLimitsCount", func(t *testing.T) {
		sink := NewRingSink(8)
		for i := 0; i < 5; i++ {
			sink.Emit(types.AddEvent{Asset: "usda", Amount: math.NewInt(int64(i))})
		}

		recent := sink.Recent(2)
		require.Len(t, recent, 2)
		last, ok := recent[1].Event.(types.AddEvent)
		require.True(t, ok)
		assert.True(t, last.Amount.Equal(math.NewInt(4)))
	})

	t.Run("EmptySink", func(t *testing.T) {
		sink := NewRingSink(4)
		assert.Empty(t, sink.Recent(10))
	})
}

func TestMultiSink(t *testing.T) {
	first := NewRingSink(4)
	second := NewRingSink(4)
	multi := MultiSink{first, second}

	multi.Emit(types.SwapEvent{From: "usda", To: "usdb", Amount: math.NewInt(10), FeeCut: math.NewInt(1)})

	assert.Len(t, first.Recent(10), 1)
	assert.Len(t, second.Recent(10), 1)
	assert.Equal(t, "swap", first.Recent(10)[0].Kind)
}
