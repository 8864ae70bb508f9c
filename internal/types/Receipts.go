/*

This file contains the operation receipt types. Every committed operation
produces exactly one receipt describing what moved, what was charged, and how
the aggregate changed. Receipts are returned to callers, persisted to the
database when one is configured, and served over the web API.

*/

package types

import (
	"time"

	"cosmossdk.io/math"
)

// OperationKind enumerates the state-mutating operations.
type OperationKind string

const (
	OpInitialize   OperationKind = "initialize"
	OpSwap         OperationKind = "swap"
	OpAdd          OperationKind = "add"
	OpAddEvenly    OperationKind = "add_evenly"
	OpRemove       OperationKind = "remove"
	OpRemoveEvenly OperationKind = "remove_evenly"
)

// OperationLeg is a single asset movement within an operation. AmountIn is
// what the pool pulled from the caller, AmountOut what it pushed back.
type OperationLeg struct {
	Asset     AssetID  `json:"asset"`
	AmountIn  math.Int `json:"amount_in"`
	AmountOut math.Int `json:"amount_out"`
}

// OperationReceipt describes one committed operation.
type OperationReceipt struct {
	ID              string         `json:"id"`
	Kind            OperationKind  `json:"kind"`
	Caller          string         `json:"caller"`
	Legs            []OperationLeg `json:"legs"`
	FeePaid         math.Int       `json:"fee_paid"`
	SharesMinted    math.Int       `json:"shares_minted"`
	SharesBurned    math.Int       `json:"shares_burned"`
	AggregateBefore math.Int       `json:"aggregate_before"`
	AggregateAfter  math.Int       `json:"aggregate_after"`
	Timestamp       time.Time      `json:"timestamp"`
}
