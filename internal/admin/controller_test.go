package admin

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parpool/parpool/internal/engine"
	"github.com/parpool/parpool/internal/ledger"
	"github.com/parpool/parpool/internal/registry"
	"github.com/parpool/parpool/internal/types"
)

func newTestController(t *testing.T) (*Controller, *engine.Engine) {
	t.Helper()

	eng, err := engine.New(engine.Config{
		Registry: registry.New(),
		Tokens:   ledger.NewMemoryTokenLedger(),
		Shares:   ledger.NewMemoryShareLedger(),
		Events:   ledger.NewRingSink(16),
		FeeRate:  math.ZeroInt(),
	})
	require.NoError(t, err)

	ctrl, err := NewController(eng, ledger.NewStaticPermissionGate("operator"))
	require.NoError(t, err)
	return ctrl, eng
}

func TestNewController(t *testing.T) {
	t.Run("NilEngineRejected", func(t *testing.T) {
		_, err := NewController(nil, ledger.NewStaticPermissionGate())
		assert.Error(t, err)
	})

	t.Run("NilGateRejected", func(t *testing.T) {
		eng, err := engine.New(engine.Config{
			Registry: registry.New(),
			Tokens:   ledger.NewMemoryTokenLedger(),
			Shares:   ledger.NewMemoryShareLedger(),
			Events:   ledger.NewRingSink(16),
			FeeRate:  math.ZeroInt(),
		})
		require.NoError(t, err)
		_, err = NewController(eng, nil)
		assert.Error(t, err)
	})
}

func TestAuthorization(t *testing.T) {
	ctrl, _ := newTestController(t)

	t.Run("UnauthorizedCallerRejectedEverywhere", func(t *testing.T) {
		assert.ErrorIs(t, ctrl.SetFeeRate("mallory", math.NewInt(1)), ErrUnauthorized)
		assert.ErrorIs(t, ctrl.Register("mallory", "usda", math.ZeroInt(), types.BoundScale), ErrUnauthorized)
		assert.ErrorIs(t, ctrl.SetBounds("mallory", "usda", math.ZeroInt(), types.BoundScale), ErrUnauthorized)
		assert.ErrorIs(t, ctrl.SetAccepting("mallory", "usda", true), ErrUnauthorized)
		_, err := ctrl.ToggleAccepting("mallory", "usda")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("AuthorizedCallerPassesThrough", func(t *testing.T) {
		require.NoError(t, ctrl.Register("operator", "usda", math.ZeroInt(), types.BoundScale))
		require.NoError(t, ctrl.SetBounds("operator", "usda", math.NewInt(100_000_000), math.NewInt(900_000_000)))
		require.NoError(t, ctrl.SetAccepting("operator", "usda", true))

		accepting, err := ctrl.ToggleAccepting("operator", "usda")
		require.NoError(t, err)
		assert.False(t, accepting)
	})
}

func TestSetFeeRate(t *testing.T) {
	ctrl, eng := newTestController(t)

	require.NoError(t, ctrl.SetFeeRate("operator", math.NewInt(2_000_000)))
	assert.True(t, eng.FeeRate().Equal(math.NewInt(2_000_000)))

	t.Run("RateAboveScaleRejected", func(t *testing.T) {
		err := ctrl.SetFeeRate("operator", types.BoundScale.AddRaw(1))
		assert.ErrorIs(t, err, engine.ErrInvalidFeeRate)
	})

	t.Run("NegativeRateRejected", func(t *testing.T) {
		err := ctrl.SetFeeRate("operator", math.NewInt(-1))
		assert.ErrorIs(t, err, engine.ErrInvalidFeeRate)
	})
}

func TestRegistryErrorsPropagate(t *testing.T) {
	ctrl, _ := newTestController(t)

	require.NoError(t, ctrl.Register("operator", "usda", math.ZeroInt(), types.BoundScale))
	assert.ErrorIs(t, ctrl.Register("operator", "usda", math.ZeroInt(), types.BoundScale), registry.ErrAlreadyRegistered)
	assert.ErrorIs(t, ctrl.SetBounds("operator", "ghost", math.ZeroInt(), types.BoundScale), registry.ErrNotRegistered)
}
