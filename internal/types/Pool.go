/*

This file contains the pool-wide aggregate state types and the fixed-point
scale constants shared by every component.

*/

package types

import (
	"time"

	"cosmossdk.io/math"
)

// Fixed-point scales. Amounts and the aggregate pool size are eighteen-decimal
// integers; bounds and the fee rate are nine-decimal fractions.
var (
	// BoundScale is the denominator for allocation bounds and the fee rate.
	BoundScale = math.NewInt(1_000_000_000)

	// ValueScale is the denominator for amounts and redemption values.
	ValueScale = math.NewInt(1_000_000_000_000_000_000)
)

// AssetBalance pairs an asset with its live ledger balance.
type AssetBalance struct {
	ID      AssetID  `json:"id"`
	Balance math.Int `json:"balance"`
}

// PoolSnapshot is a consistent point-in-time view of the whole pool, taken
// under the engine lock. Persisted periodically and served over the web API.
type PoolSnapshot struct {
	Timestamp       time.Time      `json:"timestamp"`
	AggregateSize   math.Int       `json:"aggregate_size"`
	ShareSupply     math.Int       `json:"share_supply"`
	RedemptionValue math.Int       `json:"redemption_value"` // aggregate*1e18/supply
	FeeRate         math.Int       `json:"fee_rate"`
	Assets          []PoolAsset    `json:"assets"`
	Balances        []AssetBalance `json:"balances"`
}
