/*

This file contains the valuation engine: the conversion between raw asset
amounts and pool-share amounts through the redemption value.

Share conversion must always be computed from the pre-mutation aggregate.
Callers inside the executor capture the converted amount before touching the
aggregate; depositors must not price their own deposit into the shares they
receive, so the ordering is load-bearing.

*/

package engine

import (
	"cosmossdk.io/math"

	"github.com/parpool/parpool/internal/types"
)

// redemptionValue returns aggregate*1e18/shareSupply, the exchange rate
// between one share and notional value. Lock held by caller. Faults if the
// share supply is zero, which cannot happen once Initialize has run.
func (e *Engine) redemptionValue() (math.Int, error) {
	supply, err := e.shares.TotalSupply()
	if err != nil {
		return math.Int{}, err
	}
	numerator, err := checkedMul(e.aggregate, types.ValueScale)
	if err != nil {
		return math.Int{}, err
	}
	return checkedQuo(numerator, supply)
}

// toShares converts an asset amount to the share amount it is worth at the
// current redemption value: amount*1e18/redemptionValue. Lock held by caller.
func (e *Engine) toShares(amount math.Int) (math.Int, error) {
	rv, err := e.redemptionValue()
	if err != nil {
		return math.Int{}, err
	}
	scaled, err := checkedMul(amount, types.ValueScale)
	if err != nil {
		return math.Int{}, err
	}
	return checkedQuo(scaled, rv)
}

// RedemptionValue returns the current per-share redemption value.
func (e *Engine) RedemptionValue() (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitialized(); err != nil {
		return math.Int{}, err
	}
	return e.redemptionValue()
}
