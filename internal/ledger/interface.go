package ledger

import (
	"cosmossdk.io/math"

	"github.com/parpool/parpool/internal/types"
)

// TokenLedger defines the interface for the external fungible-token ledger.
// This interface abstracts away where balances actually live, allowing for
// different implementations (in-memory simulation, chain-backed, etc.).
//
// The engine treats a ledger as a capability that may be attacker-controlled:
// every bound check is computed from balances captured before any transfer
// call, never after.
type TokenLedger interface {
	// BalanceOf returns the pool's live holding of the given asset.
	BalanceOf(asset types.AssetID) (math.Int, error)

	// TransferIn pulls amount of asset from the holder into the pool.
	// It fails if the holder's balance is insufficient.
	TransferIn(asset types.AssetID, from string, amount math.Int) error

	// TransferOut pushes amount of asset from the pool to the holder.
	// It fails if the pool's balance is insufficient.
	TransferOut(asset types.AssetID, to string, amount math.Int) error
}

// ShareLedger defines the interface for the external pool-share token ledger.
type ShareLedger interface {
	// Mint creates amount new shares for the holder.
	Mint(holder string, amount math.Int) error

	// Burn destroys amount shares held by the holder.
	// It fails if the holder's share balance is insufficient.
	Burn(holder string, amount math.Int) error

	// TotalSupply returns the total outstanding share supply.
	TotalSupply() (math.Int, error)
}

// PermissionGate answers whether a caller may perform administrative
// operations.
type PermissionGate interface {
	IsAuthorized(caller string) bool
}

// EventSink receives fire-and-forget notifications after a state transition
// has fully committed. Sinks must never fail an operation.
type EventSink interface {
	Emit(event types.Event)
}
