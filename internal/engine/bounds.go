/*

This file contains the bound calculator: how much of an asset may currently
be added, removed or swapped without breaching its allocation bounds.

Headroom that is already breached clamps to zero. A balance sitting above its
ceiling (or below its floor) is a rebalancing problem, not an arithmetic
fault.

*/

package engine

import (
	"cosmossdk.io/math"

	"github.com/parpool/parpool/internal/types"
)

// maxAddable computes the headroom below the asset's ceiling against the
// given aggregate and captured balance. Lock held by caller. Fails with
// ErrNotAccepting when the asset is not enabled for inbound operations.
func (e *Engine) maxAddable(asset *types.PoolAsset, balance, aggregate math.Int) (math.Int, error) {
	if !asset.Accepting {
		return math.Int{}, ErrNotAccepting
	}
	ceiling, err := mulDiv(aggregate, asset.HighBound, types.BoundScale)
	if err != nil {
		return math.Int{}, err
	}
	return clampedSub(ceiling, balance)
}

// maxRemovable computes the headroom above the asset's floor against the
// given aggregate and captured balance. Lock held by caller.
func (e *Engine) maxRemovable(asset *types.PoolAsset, balance, aggregate math.Int) (math.Int, error) {
	floor, err := mulDiv(aggregate, asset.LowBound, types.BoundScale)
	if err != nil {
		return math.Int{}, err
	}
	return clampedSub(balance, floor)
}

// MaxAddable returns how much of the asset may currently be deposited.
func (e *Engine) MaxAddable(id types.AssetID) (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitialized(); err != nil {
		return math.Int{}, err
	}
	asset, err := e.registry.Get(id)
	if err != nil {
		return math.Int{}, err
	}
	balance, err := e.tokens.BalanceOf(id)
	if err != nil {
		return math.Int{}, err
	}
	return e.maxAddable(asset, balance, e.aggregate)
}

// MaxRemovable returns how much of the asset may currently be withdrawn.
func (e *Engine) MaxRemovable(id types.AssetID) (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitialized(); err != nil {
		return math.Int{}, err
	}
	asset, err := e.registry.Get(id)
	if err != nil {
		return math.Int{}, err
	}
	balance, err := e.tokens.BalanceOf(id)
	if err != nil {
		return math.Int{}, err
	}
	return e.maxRemovable(asset, balance, e.aggregate)
}

// MaxSwappable returns the largest amount that may currently be swapped from
// one asset into another: min(maxAddable(from), maxRemovable(to)). Note the
// asymmetry: the swap input is bound-checked as an addition, the output as a
// removal, and the output asset does not need to be accepting.
func (e *Engine) MaxSwappable(from, to types.AssetID) (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitialized(); err != nil {
		return math.Int{}, err
	}
	return e.maxSwappable(from, to)
}

// maxSwappable is the lock-held core of MaxSwappable.
func (e *Engine) maxSwappable(from, to types.AssetID) (math.Int, error) {
	fromAsset, err := e.registry.Get(from)
	if err != nil {
		return math.Int{}, err
	}
	toAsset, err := e.registry.Get(to)
	if err != nil {
		return math.Int{}, err
	}
	fromBalance, err := e.tokens.BalanceOf(from)
	if err != nil {
		return math.Int{}, err
	}
	toBalance, err := e.tokens.BalanceOf(to)
	if err != nil {
		return math.Int{}, err
	}

	addable, err := e.maxAddable(fromAsset, fromBalance, e.aggregate)
	if err != nil {
		return math.Int{}, err
	}
	removable, err := e.maxRemovable(toAsset, toBalance, e.aggregate)
	if err != nil {
		return math.Int{}, err
	}
	return minInt(addable, removable), nil
}

// Limits returns the current balance and headroom of a single asset. The
// MaxAddable field reads zero for a non-accepting asset rather than
// propagating ErrNotAccepting; the read surface reports capacity, it does
// not gate operations.
func (e *Engine) Limits(id types.AssetID) (*types.AssetLimits, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	asset, err := e.registry.Get(id)
	if err != nil {
		return nil, err
	}
	balance, err := e.tokens.BalanceOf(id)
	if err != nil {
		return nil, err
	}

	limits := &types.AssetLimits{
		ID:         id,
		Balance:    balance,
		MaxAddable: math.ZeroInt(),
	}
	if asset.Accepting {
		addable, err := e.maxAddable(asset, balance, e.aggregate)
		if err != nil {
			return nil, err
		}
		limits.MaxAddable = addable
	}
	removable, err := e.maxRemovable(asset, balance, e.aggregate)
	if err != nil {
		return nil, err
	}
	limits.MaxRemovable = removable
	return limits, nil
}
