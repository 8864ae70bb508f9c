/*

This file contains the asset registry: the set of accepted assets, their
configured allocation bounds and their accept-flags. Registration order is
preserved because the evenly-split operations iterate assets in that order.

The registry performs no locking of its own; the engine serializes every
access under its operation lock.

*/

package registry

import (
	"errors"
	"fmt"

	"cosmossdk.io/math"

	"github.com/parpool/parpool/internal/logger"
	"github.com/parpool/parpool/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAlreadyRegistered = errors.New("asset is already registered")
	ErrNotRegistered     = errors.New("asset is not registered")
	ErrInvalidBound      = errors.New("allocation bound is invalid")
	ErrInvalidAssetID    = errors.New("asset ID is invalid")
)

var registryLogger = logger.GetForComponent("asset_registry")

// Registry holds every registered asset in registration order. Assets are
// never removed; once registered an asset stays enumerable forever.
type Registry struct {
	order  []types.AssetID
	assets map[types.AssetID]*types.PoolAsset
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		order:  make([]types.AssetID, 0),
		assets: make(map[types.AssetID]*types.PoolAsset),
	}
}

// Register inserts a new asset with the given allocation bounds. The asset
// starts with accepting=false; acceptance must be enabled separately before
// the asset can be added to or swapped in.
func (r *Registry) Register(id types.AssetID, lowBound, highBound math.Int) error {
	if id == "" {
		return ErrInvalidAssetID
	}
	if existing, ok := r.assets[id]; ok && existing.Registered {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	if err := validateBound(lowBound); err != nil {
		return err
	}
	if err := validateBound(highBound); err != nil {
		return err
	}

	r.assets[id] = &types.PoolAsset{
		ID:         id,
		LowBound:   lowBound,
		HighBound:  highBound,
		Accepting:  false,
		Registered: true,
	}
	r.order = append(r.order, id)

	registryLogger.Info().
		Str("asset", string(id)).
		Str("lowBound", lowBound.String()).
		Str("highBound", highBound.String()).
		Msg("Asset registered")

	return nil
}

// Get returns the registered asset for id.
func (r *Registry) Get(id types.AssetID) (*types.PoolAsset, error) {
	asset, ok := r.assets[id]
	if !ok || !asset.Registered {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	return asset, nil
}

// SetBounds overwrites the allocation bounds of an asset. Each bound must be
// a valid nine-decimal fraction, but newLow > newHigh is deliberately
// accepted: the original system never enforced an ordering between the two.
// With inverted bounds both maxAddable and maxRemovable clamp to zero, which
// freezes the asset until the bounds are corrected.
func (r *Registry) SetBounds(id types.AssetID, newLow, newHigh math.Int) error {
	asset, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := validateBound(newLow); err != nil {
		return err
	}
	if err := validateBound(newHigh); err != nil {
		return err
	}

	if newLow.GT(newHigh) {
		registryLogger.Warn().
			Str("asset", string(id)).
			Str("lowBound", newLow.String()).
			Str("highBound", newHigh.String()).
			Msg("Inverted bounds set; asset is frozen until corrected")
	}

	asset.LowBound = newLow
	asset.HighBound = newHigh
	return nil
}

// SetAccepting sets the accept-flag of an asset. A non-accepting asset can
// still be removed or used as swap output.
func (r *Registry) SetAccepting(id types.AssetID, accepting bool) error {
	asset, err := r.Get(id)
	if err != nil {
		return err
	}
	asset.Accepting = accepting
	return nil
}

// ToggleAccepting flips the accept-flag and returns the new value.
func (r *Registry) ToggleAccepting(id types.AssetID) (bool, error) {
	asset, err := r.Get(id)
	if err != nil {
		return false, err
	}
	asset.Accepting = !asset.Accepting
	return asset.Accepting, nil
}

// Assets returns the asset IDs in registration order.
func (r *Registry) Assets() []types.AssetID {
	out := make([]types.AssetID, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered assets.
func (r *Registry) Len() int {
	return len(r.order)
}

// validateBound checks that a bound is a nine-decimal fraction in [0, 1e9].
func validateBound(bound math.Int) error {
	if bound.IsNil() {
		return fmt.Errorf("%w: bound is nil", ErrInvalidBound)
	}
	if bound.IsNegative() {
		return fmt.Errorf("%w: bound %s is negative", ErrInvalidBound, bound)
	}
	if bound.GT(types.BoundScale) {
		return fmt.Errorf("%w: bound %s exceeds scale %s", ErrInvalidBound, bound, types.BoundScale)
	}
	return nil
}
