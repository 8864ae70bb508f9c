/*

This file contains the event payloads emitted after each committed state
transition. Events are fire-and-forget: sinks must never influence the
outcome of the operation that produced them.

*/

package types

import (
	"cosmossdk.io/math"
)

// Event is implemented by every pool event payload.
type Event interface {
	EventKind() string
}

// SwapEvent records a completed optimistic swap.
type SwapEvent struct {
	From   AssetID  `json:"from"`
	To     AssetID  `json:"to"`
	Amount math.Int `json:"amount"`
	FeeCut math.Int `json:"fee_cut"`
}

// AddEvent records a completed deposit leg.
type AddEvent struct {
	Asset  AssetID  `json:"asset"`
	Amount math.Int `json:"amount"`
}

// RemoveEvent records a completed withdrawal leg (net of fee).
type RemoveEvent struct {
	Asset  AssetID  `json:"asset"`
	Amount math.Int `json:"amount"`
}

// TokenAddedEvent records a new asset registration.
type TokenAddedEvent struct {
	Asset     AssetID  `json:"asset"`
	LowBound  math.Int `json:"low_bound"`
	HighBound math.Int `json:"high_bound"`
}

// BoundsChangedEvent records an allocation bound update.
type BoundsChangedEvent struct {
	Asset     AssetID  `json:"asset"`
	LowBound  math.Int `json:"low_bound"`
	HighBound math.Int `json:"high_bound"`
}

// AcceptingEvent records an accept-flag change.
type AcceptingEvent struct {
	Asset     AssetID `json:"asset"`
	Accepting bool    `json:"accepting"`
}

// FeeChangedEvent records a fee rate update.
type FeeChangedEvent struct {
	Rate math.Int `json:"rate"`
}

func (SwapEvent) EventKind() string          { return "swap" }
func (AddEvent) EventKind() string           { return "add" }
func (RemoveEvent) EventKind() string        { return "remove" }
func (TokenAddedEvent) EventKind() string    { return "token_added" }
func (BoundsChangedEvent) EventKind() string { return "bounds_changed" }
func (AcceptingEvent) EventKind() string     { return "accepting" }
func (FeeChangedEvent) EventKind() string    { return "fee_changed" }
