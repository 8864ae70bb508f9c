/*

This is a custom type for pool assets which contains all the per-asset state
needed for allocation-bound accounting.

*/

package types

import (
	"cosmossdk.io/math"
)

// AssetID identifies a registered asset, e.g. "uusda".
type AssetID string

// PoolAsset holds the configured allocation state for a single registered
// asset. Bounds are nine-decimal fractions of the aggregate pool size:
// 1e9 means 100%. Live balances are tracked by the external token ledger,
// never here.
type PoolAsset struct {
	ID         AssetID  `json:"id"`
	LowBound   math.Int `json:"low_bound"`  // min fraction of aggregate, scaled by 1e9
	HighBound  math.Int `json:"high_bound"` // max fraction of aggregate, scaled by 1e9
	Accepting  bool     `json:"accepting"`  // false blocks add and swap-in, not remove or swap-out
	Registered bool     `json:"registered"`
}

// AssetLimits is the read-model for an asset's current headroom.
type AssetLimits struct {
	ID           AssetID  `json:"id"`
	Balance      math.Int `json:"balance"`
	MaxAddable   math.Int `json:"max_addable"`
	MaxRemovable math.Int `json:"max_removable"`
}
