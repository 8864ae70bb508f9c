/*

This file contains the operation executor: the five state-mutating
operations. Each one follows the same shape:

  1. validate inputs and registry state
  2. capture every balance the bound checks need (one read per asset,
     before any external call)
  3. compute share conversion from the pre-mutation aggregate
  4. check limits
  5. perform external ledger calls, fallible ones first
  6. commit the aggregate and emit events

Step 6 only runs after every external call succeeded, so an error anywhere
leaves the aggregate untouched. The one external call that can still fail
after another has succeeded is compensated explicitly.

*/

package engine

import (
	"fmt"

	"cosmossdk.io/math"

	"github.com/parpool/parpool/internal/types"
)

// Swap trades amount of the from asset for an equal par value of the to
// asset, minus the fee. The fee is retained as pool value: no shares are
// minted against it, so it accrues to existing share holders.
func (e *Engine) Swap(caller string, from types.AssetID, amount math.Int, to types.AssetID) (*types.OperationReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	limit, err := e.maxSwappable(from, to)
	if err != nil {
		return nil, err
	}
	if amount.GT(limit) {
		return nil, fmt.Errorf("%w: swap of %s %s exceeds limit %s", ErrLimitExceeded, amount, from, limit)
	}

	feeCut, err := mulDiv(amount, e.feeRate, types.BoundScale)
	if err != nil {
		return nil, err
	}
	amountOut, err := checkedSub(amount, feeCut)
	if err != nil {
		return nil, err
	}
	newAggregate, err := checkedAdd(e.aggregate, feeCut)
	if err != nil {
		return nil, err
	}

	if err := e.tokens.TransferIn(from, caller, amount); err != nil {
		return nil, fmt.Errorf("swap transfer in failed: %w", err)
	}
	if err := e.tokens.TransferOut(to, caller, amountOut); err != nil {
		e.unwindTransferIn(from, caller, amount)
		return nil, fmt.Errorf("swap transfer out failed: %w", err)
	}

	receipt := e.newReceipt(types.OpSwap, caller)
	receipt.AggregateBefore = e.aggregate
	e.aggregate = newAggregate
	receipt.AggregateAfter = e.aggregate
	receipt.FeePaid = feeCut
	receipt.Legs = []types.OperationLeg{
		{Asset: from, AmountIn: amount, AmountOut: math.ZeroInt()},
		{Asset: to, AmountIn: math.ZeroInt(), AmountOut: amountOut},
	}

	e.events.Emit(types.SwapEvent{From: from, To: to, Amount: amount, FeeCut: feeCut})

	e.logger.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Str("amount", amount.String()).
		Str("feeCut", feeCut.String()).
		Msg("Swap executed")

	return receipt, nil
}

// Add deposits amount of a single asset and mints shares at the pre-deposit
// redemption value. The ceiling check runs against the post-deposit
// aggregate, so the headroom accounts for the very deposit being validated.
func (e *Engine) Add(caller string, asset types.AssetID, amount math.Int) (*types.OperationReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	poolAsset, err := e.registry.Get(asset)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	balance, err := e.tokens.BalanceOf(asset)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance of %s: %w", asset, err)
	}

	// Pre-mutation share conversion.
	minted, err := e.toShares(amount)
	if err != nil {
		return nil, err
	}

	newAggregate, err := checkedAdd(e.aggregate, amount)
	if err != nil {
		return nil, err
	}
	headroom, err := e.maxAddable(poolAsset, balance, newAggregate)
	if err != nil {
		return nil, err
	}
	if amount.GT(headroom) {
		return nil, fmt.Errorf("%w: deposit of %s %s exceeds limit %s", ErrLimitExceeded, amount, asset, headroom)
	}

	if err := e.tokens.TransferIn(asset, caller, amount); err != nil {
		return nil, fmt.Errorf("deposit transfer in failed: %w", err)
	}
	if err := e.shares.Mint(caller, minted); err != nil {
		e.unwindTransferIn(asset, caller, amount)
		return nil, fmt.Errorf("share mint failed: %w", err)
	}

	receipt := e.newReceipt(types.OpAdd, caller)
	receipt.AggregateBefore = e.aggregate
	e.aggregate = newAggregate
	receipt.AggregateAfter = e.aggregate
	receipt.SharesMinted = minted
	receipt.Legs = []types.OperationLeg{{Asset: asset, AmountIn: amount, AmountOut: math.ZeroInt()}}

	e.events.Emit(types.AddEvent{Asset: asset, Amount: amount})

	e.logger.Debug().
		Str("asset", string(asset)).
		Str("amount", amount.String()).
		Str("minted", minted.String()).
		Msg("Deposit executed")

	return receipt, nil
}

// AddEvenly deposits totalAmount split across every registered asset in
// proportion to its current balance. Proportional top-ups cannot change
// relative allocation, so no per-asset bound check runs; that holds only if
// every balance is already within bounds before the call.
func (e *Engine) AddEvenly(caller string, totalAmount math.Int) (*types.OperationReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	if err := validateAmount(totalAmount); err != nil {
		return nil, err
	}

	legs, sum, err := e.proportionalLegs(totalAmount)
	if err != nil {
		return nil, err
	}

	// Pre-mutation share conversion of the accumulated sum.
	minted, err := e.toShares(sum)
	if err != nil {
		return nil, err
	}
	newAggregate, err := checkedAdd(e.aggregate, sum)
	if err != nil {
		return nil, err
	}

	for i, leg := range legs {
		if err := e.tokens.TransferIn(leg.Asset, caller, leg.AmountIn); err != nil {
			for _, done := range legs[:i] {
				e.unwindTransferIn(done.Asset, caller, done.AmountIn)
			}
			return nil, fmt.Errorf("proportional deposit transfer in failed for %s: %w", leg.Asset, err)
		}
	}
	if err := e.shares.Mint(caller, minted); err != nil {
		for _, done := range legs {
			e.unwindTransferIn(done.Asset, caller, done.AmountIn)
		}
		return nil, fmt.Errorf("share mint failed: %w", err)
	}

	receipt := e.newReceipt(types.OpAddEvenly, caller)
	receipt.AggregateBefore = e.aggregate
	e.aggregate = newAggregate
	receipt.AggregateAfter = e.aggregate
	receipt.SharesMinted = minted
	receipt.Legs = legs

	for _, leg := range legs {
		e.events.Emit(types.AddEvent{Asset: leg.Asset, Amount: leg.AmountIn})
	}

	e.logger.Debug().
		Str("totalAmount", totalAmount.String()).
		Str("sum", sum.String()).
		Int("legs", len(legs)).
		Msg("Proportional deposit executed")

	return receipt, nil
}

// Remove withdraws amount of a single asset. Shares worth the gross amount
// are burned; the fee is deducted from the asset leg before the floor check
// and before transfer, and the aggregate decreases by the net amount only,
// so the fee stays in the pool.
func (e *Engine) Remove(caller string, asset types.AssetID, amount math.Int) (*types.OperationReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	poolAsset, err := e.registry.Get(asset)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	balance, err := e.tokens.BalanceOf(asset)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance of %s: %w", asset, err)
	}

	// Pre-mutation share conversion of the gross amount.
	burned, err := e.toShares(amount)
	if err != nil {
		return nil, err
	}

	fee, err := mulDiv(amount, e.feeRate, types.BoundScale)
	if err != nil {
		return nil, err
	}
	netAmount, err := checkedSub(amount, fee)
	if err != nil {
		return nil, err
	}

	removable, err := e.maxRemovable(poolAsset, balance, e.aggregate)
	if err != nil {
		return nil, err
	}
	if netAmount.GT(removable) {
		return nil, fmt.Errorf("%w: withdrawal of %s %s exceeds limit %s", ErrLimitExceeded, netAmount, asset, removable)
	}
	newAggregate, err := checkedSub(e.aggregate, netAmount)
	if err != nil {
		return nil, err
	}

	if err := e.shares.Burn(caller, burned); err != nil {
		return nil, fmt.Errorf("share burn failed: %w", err)
	}
	if err := e.tokens.TransferOut(asset, caller, netAmount); err != nil {
		if mintErr := e.shares.Mint(caller, burned); mintErr != nil {
			e.logger.Error().Err(mintErr).
				Str("caller", caller).
				Str("burned", burned.String()).
				Msg("Failed to unwind share burn")
		}
		return nil, fmt.Errorf("withdrawal transfer out failed: %w", err)
	}

	receipt := e.newReceipt(types.OpRemove, caller)
	receipt.AggregateBefore = e.aggregate
	e.aggregate = newAggregate
	receipt.AggregateAfter = e.aggregate
	receipt.FeePaid = fee
	receipt.SharesBurned = burned
	receipt.Legs = []types.OperationLeg{{Asset: asset, AmountIn: math.ZeroInt(), AmountOut: netAmount}}

	e.events.Emit(types.RemoveEvent{Asset: asset, Amount: netAmount})

	e.logger.Debug().
		Str("asset", string(asset)).
		Str("amount", amount.String()).
		Str("netAmount", netAmount.String()).
		Str("burned", burned.String()).
		Msg("Withdrawal executed")

	return receipt, nil
}

// RemoveEvenly withdraws totalAmount split across every registered asset in
// proportion to its current balance. Shares are burned against the pre-fee
// proportional sum; each leg pays the fee before transfer and the aggregate
// decreases by the post-fee sum.
func (e *Engine) RemoveEvenly(caller string, totalAmount math.Int) (*types.OperationReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	if err := validateAmount(totalAmount); err != nil {
		return nil, err
	}

	grossLegs, sumGross, err := e.proportionalLegs(totalAmount)
	if err != nil {
		return nil, err
	}

	// Pre-mutation share conversion of the pre-fee sum.
	burned, err := e.toShares(sumGross)
	if err != nil {
		return nil, err
	}

	legs := make([]types.OperationLeg, 0, len(grossLegs))
	totalFee := math.ZeroInt()
	sumNet := math.ZeroInt()
	for _, leg := range grossLegs {
		fee, err := mulDiv(leg.AmountIn, e.feeRate, types.BoundScale)
		if err != nil {
			return nil, err
		}
		net, err := checkedSub(leg.AmountIn, fee)
		if err != nil {
			return nil, err
		}
		totalFee = totalFee.Add(fee)
		sumNet = sumNet.Add(net)
		legs = append(legs, types.OperationLeg{Asset: leg.Asset, AmountIn: math.ZeroInt(), AmountOut: net})
	}
	newAggregate, err := checkedSub(e.aggregate, sumNet)
	if err != nil {
		return nil, err
	}

	if err := e.shares.Burn(caller, burned); err != nil {
		return nil, fmt.Errorf("share burn failed: %w", err)
	}
	for i, leg := range legs {
		if err := e.tokens.TransferOut(leg.Asset, caller, leg.AmountOut); err != nil {
			for _, done := range legs[:i] {
				e.unwindTransferOut(done.Asset, caller, done.AmountOut)
			}
			if mintErr := e.shares.Mint(caller, burned); mintErr != nil {
				e.logger.Error().Err(mintErr).
					Str("caller", caller).
					Str("burned", burned.String()).
					Msg("Failed to unwind share burn")
			}
			return nil, fmt.Errorf("proportional withdrawal transfer out failed for %s: %w", leg.Asset, err)
		}
	}

	receipt := e.newReceipt(types.OpRemoveEvenly, caller)
	receipt.AggregateBefore = e.aggregate
	e.aggregate = newAggregate
	receipt.AggregateAfter = e.aggregate
	receipt.FeePaid = totalFee
	receipt.SharesBurned = burned
	receipt.Legs = legs

	for _, leg := range legs {
		e.events.Emit(types.RemoveEvent{Asset: leg.Asset, Amount: leg.AmountOut})
	}

	e.logger.Debug().
		Str("totalAmount", totalAmount.String()).
		Str("sumNet", sumNet.String()).
		Int("legs", len(legs)).
		Msg("Proportional withdrawal executed")

	return receipt, nil
}

// proportionalLegs computes one gross leg per registered asset, in
// registration order: totalAmount * balance / aggregate, skipping assets
// with a zero balance. Balances are captured here, once, before any external
// call the caller will make. Lock held by caller.
func (e *Engine) proportionalLegs(totalAmount math.Int) ([]types.OperationLeg, math.Int, error) {
	legs := make([]types.OperationLeg, 0, e.registry.Len())
	sum := math.ZeroInt()

	for _, id := range e.registry.Assets() {
		balance, err := e.tokens.BalanceOf(id)
		if err != nil {
			return nil, math.Int{}, fmt.Errorf("failed to read balance of %s: %w", id, err)
		}
		if balance.IsZero() {
			continue
		}
		send, err := mulDiv(totalAmount, balance, e.aggregate)
		if err != nil {
			return nil, math.Int{}, err
		}
		if send.IsZero() {
			continue
		}
		sum = sum.Add(send)
		legs = append(legs, types.OperationLeg{Asset: id, AmountIn: send, AmountOut: math.ZeroInt()})
	}

	return legs, sum, nil
}

// unwindTransferOut pulls a pushed amount back from the caller after a later
// leg of the same transition failed.
func (e *Engine) unwindTransferOut(asset types.AssetID, caller string, amount math.Int) {
	if err := e.tokens.TransferIn(asset, caller, amount); err != nil {
		e.logger.Error().Err(err).
			Str("asset", string(asset)).
			Str("caller", caller).
			Str("amount", amount.String()).
			Msg("Failed to unwind transfer-out; funds stranded with caller")
	}
}
