/*

This file contains the admin controller: the owner-gated surface for fee,
registration, bound and accept-flag mutations. Every entry point consults the
external permission gate before touching the engine; no invariant
re-validation happens on bound changes, so an administrator can set bounds
that place an existing balance out of range. The affected asset then has
zero headroom until rebalanced.

*/

package admin

import (
	"errors"
	"fmt"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/parpool/parpool/internal/engine"
	"github.com/parpool/parpool/internal/ledger"
	"github.com/parpool/parpool/internal/logger"
	"github.com/parpool/parpool/internal/types"
)

// ErrUnauthorized rejects callers the permission gate does not recognize as
// administrators.
var ErrUnauthorized = errors.New("caller is not authorized")

// Controller gates administrative pool mutations behind the permission gate.
type Controller struct {
	logger zerolog.Logger
	engine *engine.Engine
	gate   ledger.PermissionGate
}

// NewController creates an admin controller.
func NewController(eng *engine.Engine, gate ledger.PermissionGate) (*Controller, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if gate == nil {
		return nil, fmt.Errorf("permission gate cannot be nil")
	}
	return &Controller{
		logger: logger.GetForComponent("admin_controller"),
		engine: eng,
		gate:   gate,
	}, nil
}

// SetFeeRate updates the pool fee rate.
func (c *Controller) SetFeeRate(caller string, rate math.Int) error {
	if err := c.authorize(caller, "set_fee_rate"); err != nil {
		return err
	}
	return c.engine.SetFeeRate(rate)
}

// Register adds a new asset with the given allocation bounds. The asset
// starts non-accepting; enable acceptance separately once it is funded.
func (c *Controller) Register(caller string, id types.AssetID, lowBound, highBound math.Int) error {
	if err := c.authorize(caller, "register"); err != nil {
		return err
	}
	return c.engine.RegisterAsset(id, lowBound, highBound)
}

// SetBounds overwrites an asset's allocation bounds.
func (c *Controller) SetBounds(caller string, id types.AssetID, lowBound, highBound math.Int) error {
	if err := c.authorize(caller, "set_bounds"); err != nil {
		return err
	}
	return c.engine.SetBounds(id, lowBound, highBound)
}

// SetAccepting sets an asset's accept-flag.
func (c *Controller) SetAccepting(caller string, id types.AssetID, accepting bool) error {
	if err := c.authorize(caller, "set_accepting"); err != nil {
		return err
	}
	return c.engine.SetAccepting(id, accepting)
}

// ToggleAccepting flips an asset's accept-flag and returns the new value.
func (c *Controller) ToggleAccepting(caller string, id types.AssetID) (bool, error) {
	if err := c.authorize(caller, "toggle_accepting"); err != nil {
		return false, err
	}
	return c.engine.ToggleAccepting(id)
}

func (c *Controller) authorize(caller, operation string) error {
	if !c.gate.IsAuthorized(caller) {
		c.logger.Warn().
			Str("caller", caller).
			Str("operation", operation).
			Msg("Unauthorized admin call rejected")
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}
