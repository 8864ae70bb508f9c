package ledger

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parpool/parpool/internal/types"
)

const usda = types.AssetID("usda")

func TestMemoryTokenLedger(t *testing.T) {
	t.Run("TransferInMovesFundsToPool", func(t *testing.T) {
		l := NewMemoryTokenLedger()
		l.SetBalance(usda, "alice", math.NewInt(1000))

		require.NoError(t, l.TransferIn(usda, "alice", math.NewInt(400)))

		balance, err := l.BalanceOf(usda)
		require.NoError(t, err)
		assert.True(t, balance.Equal(math.NewInt(400)))
		assert.True(t, l.HolderBalanceOf(usda, "alice").Equal(math.NewInt(600)))
	})

	t.Run("TransferOutMovesFundsFromPool", func(t *testing.T) {
		l := NewMemoryTokenLedger()
		l.SetBalance(usda, PoolAccount, math.NewInt(1000))

		require.NoError(t, l.TransferOut(usda, "bob", math.NewInt(250)))

		balance, err := l.BalanceOf(usda)
		require.NoError(t, err)
		assert.True(t, balance.Equal(math.NewInt(750)))
		assert.True(t, l.HolderBalanceOf(usda, "bob").Equal(math.NewInt(250)))
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		l := NewMemoryTokenLedger()
		l.SetBalance(usda, "alice", math.NewInt(10))

		err := l.TransferIn(usda, "alice", math.NewInt(11))
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		// Failed transfers must not move anything.
		assert.True(t, l.HolderBalanceOf(usda, "alice").Equal(math.NewInt(10)))
		balance, balErr := l.BalanceOf(usda)
		require.NoError(t, balErr)
		assert.True(t, balance.IsZero())
	})

	t.Run("UnknownHolderReadsZero", func(t *testing.T) {
		l := NewMemoryTokenLedger()
		assert.True(t, l.HolderBalanceOf(usda, "nobody").IsZero())
		err := l.TransferIn(usda, "nobody", math.NewInt(1))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("InvalidAmounts", func(t *testing.T) {
		l := NewMemoryTokenLedger()
		l.SetBalance(usda, "alice", math.NewInt(10))

		assert.ErrorIs(t, l.TransferIn(usda, "alice", math.NewInt(-1)), ErrInvalidAmount)
		assert.ErrorIs(t, l.TransferIn(usda, "alice", math.Int{}), ErrInvalidAmount)
		// Zero is a valid no-op transfer.
		assert.NoError(t, l.TransferIn(usda, "alice", math.ZeroInt()))
	})
}

func TestMemoryShareLedger(t *testing.T) {
	t.Run("MintGrowsSupply", func(t *testing.T) {
		l := NewMemoryShareLedger()
		require.NoError(t, l.Mint("alice", math.NewInt(100)))
		require.NoError(t, l.Mint("bob", math.NewInt(50)))

		supply, err := l.TotalSupply()
		require.NoError(t, err)
		assert.True(t, supply.Equal(math.NewInt(150)))
		assert.True(t, l.HoldingOf("alice").Equal(math.NewInt(100)))
		assert.True(t, l.HoldingOf("bob").Equal(math.NewInt(50)))
	})

	t.Run("BurnShrinksSupply", func(t *testing.T) {
		l := NewMemoryShareLedger()
		require.NoError(t, l.Mint("alice", math.NewInt(100)))
		require.NoError(t, l.Burn("alice", math.NewInt(30)))

		supply, err := l.TotalSupply()
		require.NoError(t, err)
		assert.True(t, supply.Equal(math.NewInt(70)))
		assert.True(t, l.HoldingOf("alice").Equal(math.NewInt(70)))
	})

	t.Run("BurnBeyondHoldingFails", func(t *testing.T) {
		l := NewMemoryShareLedger()
		require.NoError(t, l.Mint("alice", math.NewInt(10)))

		err := l.Burn("alice", math.NewInt(11))
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		supply, supplyErr := l.TotalSupply()
		require.NoError(t, supplyErr)
		assert.True(t, supply.Equal(math.NewInt(10)))
	})

	t.Run("InvalidAmounts", func(t *testing.T) {
		l := NewMemoryShareLedger()
		assert.ErrorIs(t, l.Mint("alice", math.NewInt(-1)), ErrInvalidAmount)
		assert.ErrorIs(t, l.Burn("alice", math.Int{}), ErrInvalidAmount)
	})
}

func TestStaticPermissionGate(t *testing.T) {
	gate := NewStaticPermissionGate("admin1", "admin2")

	assert.True(t, gate.IsAuthorized("admin1"))
	assert.True(t, gate.IsAuthorized("admin2"))
	assert.False(t, gate.IsAuthorized("mallory"))
	assert.False(t, gate.IsAuthorized(""))

	empty := NewStaticPermissionGate()
	assert.False(t, empty.IsAuthorized("admin1"))
}
