/*

This file contains the default pool parameters.

These defaults are calibrated for a basket of assets trading at par
(stablecoins). Fee and bounds are nine-decimal fractions: 1e9 = 100%.

*/

package config

import (
	"cosmossdk.io/math"

	"github.com/parpool/parpool/internal/types"
)

// DefaultFeeRate is the fee applied on every value-moving operation.
// 1e6 / 1e9 = 0.1%. High enough to make round-trip extraction unprofitable
// against sub-cent par deviations, low enough not to deter rebalancing flow.
var DefaultFeeRate = math.NewInt(1_000_000)

// DefaultLowBound is the default minimum fraction of the aggregate a newly
// registered asset may represent. 0%: a new asset starts empty and must be
// allowed to stay empty until it attracts deposits.
var DefaultLowBound = math.NewInt(0)

// DefaultHighBound is the default maximum fraction of the aggregate a newly
// registered asset may represent. 5e8 / 1e9 = 50%: no single asset of the
// basket should be able to dominate the pool before an operator has looked
// at it and widened the bound deliberately.
var DefaultHighBound = math.NewInt(500_000_000)

// SimAsset seeds one asset in sim mode.
type SimAsset struct {
	ID          types.AssetID
	LowBound    math.Int
	HighBound   math.Int
	SeedBalance math.Int // caller-side balance minted to every sim account
}

// SimSeedBalance is the per-account, per-asset balance sim mode starts with:
// one million units at eighteen decimals.
var SimSeedBalance = math.NewInt(1_000_000).Mul(types.ValueScale)

// SimInitialDeposit is the mandatory initial deposit sim mode makes from the
// first admin account: one unit at eighteen decimals, minted 1:1 to shares.
var SimInitialDeposit = types.ValueScale

// DefaultSimAssets is the basket sim mode boots with. Bounds [10%, 50%]
// match the reference scenario of a three-asset par basket.
var DefaultSimAssets = []SimAsset{
	{ID: "usda", LowBound: math.NewInt(100_000_000), HighBound: math.NewInt(500_000_000), SeedBalance: SimSeedBalance},
	{ID: "usdb", LowBound: math.NewInt(100_000_000), HighBound: math.NewInt(500_000_000), SeedBalance: SimSeedBalance},
	{ID: "usdc", LowBound: math.NewInt(100_000_000), HighBound: math.NewInt(500_000_000), SeedBalance: SimSeedBalance},
}
