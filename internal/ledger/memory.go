/*

This file contains the in-memory implementations of the external
collaborators: a deterministic token ledger, a share ledger and a static
permission gate. They back the service's sim mode and the test suites.

*/

package ledger

import (
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/math"

	"github.com/parpool/parpool/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount is invalid")
	ErrUnknownHolder       = errors.New("holder is unknown")
)

// PoolAccount is the holder identity the in-memory token ledger books pool
// funds under.
const PoolAccount = "pool"

// MemoryTokenLedger is a thread-safe in-memory fungible ledger keyed by
// (asset, holder).
type MemoryTokenLedger struct {
	mu       sync.Mutex
	balances map[types.AssetID]map[string]math.Int
}

// NewMemoryTokenLedger creates an empty in-memory token ledger.
func NewMemoryTokenLedger() *MemoryTokenLedger {
	return &MemoryTokenLedger{
		balances: make(map[types.AssetID]map[string]math.Int),
	}
}

// SetBalance seeds a holder's balance for an asset. Intended for sim-mode
// bootstrapping and tests.
func (l *MemoryTokenLedger) SetBalance(asset types.AssetID, holder string, amount math.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holderBalances(asset)[holder] = amount
}

// BalanceOf returns the pool's live holding of the given asset.
func (l *MemoryTokenLedger) BalanceOf(asset types.AssetID) (math.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(asset, PoolAccount), nil
}

// HolderBalanceOf returns an arbitrary holder's balance. Used by tests and
// the sim-mode web API, not by the engine.
func (l *MemoryTokenLedger) HolderBalanceOf(asset types.AssetID, holder string) math.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(asset, holder)
}

// TransferIn pulls amount of asset from the holder into the pool.
func (l *MemoryTokenLedger) TransferIn(asset types.AssetID, from string, amount math.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(asset, from, PoolAccount, amount)
}

// TransferOut pushes amount of asset from the pool to the holder.
func (l *MemoryTokenLedger) TransferOut(asset types.AssetID, to string, amount math.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(asset, PoolAccount, to, amount)
}

func (l *MemoryTokenLedger) holderBalances(asset types.AssetID) map[string]math.Int {
	holders, ok := l.balances[asset]
	if !ok {
		holders = make(map[string]math.Int)
		l.balances[asset] = holders
	}
	return holders
}

func (l *MemoryTokenLedger) balance(asset types.AssetID, holder string) math.Int {
	if bal, ok := l.holderBalances(asset)[holder]; ok {
		return bal
	}
	return math.ZeroInt()
}

func (l *MemoryTokenLedger) move(asset types.AssetID, from, to string, amount math.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	fromBal := l.balance(asset, from)
	if fromBal.LT(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, need %s",
			ErrInsufficientBalance, from, fromBal, asset, amount)
	}
	holders := l.holderBalances(asset)
	holders[from] = fromBal.Sub(amount)
	holders[to] = l.balance(asset, to).Add(amount)
	return nil
}

// MemoryShareLedger is a thread-safe in-memory pool-share ledger.
type MemoryShareLedger struct {
	mu       sync.Mutex
	holdings map[string]math.Int
	supply   math.Int
}

// NewMemoryShareLedger creates an empty share ledger with zero supply.
func NewMemoryShareLedger() *MemoryShareLedger {
	return &MemoryShareLedger{
		holdings: make(map[string]math.Int),
		supply:   math.ZeroInt(),
	}
}

// Mint creates amount new shares for the holder.
func (l *MemoryShareLedger) Mint(holder string, amount math.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holdings[holder] = l.holding(holder).Add(amount)
	l.supply = l.supply.Add(amount)
	return nil
}

// Burn destroys amount shares held by the holder.
func (l *MemoryShareLedger) Burn(holder string, amount math.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	held := l.holding(holder)
	if held.LT(amount) {
		return fmt.Errorf("%w: %s holds %s shares, need %s",
			ErrInsufficientBalance, holder, held, amount)
	}
	l.holdings[holder] = held.Sub(amount)
	l.supply = l.supply.Sub(amount)
	return nil
}

// TotalSupply returns the total outstanding share supply.
func (l *MemoryShareLedger) TotalSupply() (math.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply, nil
}

// HoldingOf returns a holder's share balance. Used by tests and the sim-mode
// web API.
func (l *MemoryShareLedger) HoldingOf(holder string) math.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holding(holder)
}

func (l *MemoryShareLedger) holding(holder string) math.Int {
	if held, ok := l.holdings[holder]; ok {
		return held
	}
	return math.ZeroInt()
}

// StaticPermissionGate authorizes a fixed allow-list of admin identities.
type StaticPermissionGate struct {
	admins map[string]struct{}
}

// NewStaticPermissionGate creates a gate authorizing exactly the given
// callers.
func NewStaticPermissionGate(admins ...string) *StaticPermissionGate {
	gate := &StaticPermissionGate{admins: make(map[string]struct{}, len(admins))}
	for _, admin := range admins {
		gate.admins[admin] = struct{}{}
	}
	return gate
}

// IsAuthorized reports whether the caller is on the admin allow-list.
func (g *StaticPermissionGate) IsAuthorized(caller string) bool {
	_, ok := g.admins[caller]
	return ok
}

func validateAmount(amount math.Int) error {
	if amount.IsNil() {
		return fmt.Errorf("%w: amount is nil", ErrInvalidAmount)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount %s is negative", ErrInvalidAmount, amount)
	}
	return nil
}
