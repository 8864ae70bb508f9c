/*

This file contains the pool engine: the owning container for all mutable pool
state (aggregate size, fee rate, asset registry) and the single lock that
serializes every public operation.

Every operation is one atomic transition. All validation and every balance
read happens before the first external ledger call, and the aggregate is only
mutated after every external call has succeeded, so a failing collaborator
can never leave partially-applied state behind.

*/

package engine

import (
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parpool/parpool/internal/ledger"
	"github.com/parpool/parpool/internal/logger"
	"github.com/parpool/parpool/internal/registry"
	"github.com/parpool/parpool/internal/types"
)

// Engine is the par-value basket pool core. All exported methods are safe
// for concurrent use; each one holds the engine lock for its full duration.
type Engine struct {
	mu sync.Mutex

	logger   zerolog.Logger
	registry *registry.Registry
	tokens   ledger.TokenLedger
	shares   ledger.ShareLedger
	events   ledger.EventSink

	// aggregate is the pool's total notional size at eighteen decimals.
	// It is tracked incrementally, never recomputed from live balances.
	aggregate math.Int

	// feeRate is a nine-decimal fraction applied on every value-moving
	// operation.
	feeRate math.Int

	// initialized flips once the mandatory initial deposit has happened.
	initialized bool
}

// Config holds the dependencies for creating a new Engine.
type Config struct {
	Registry *registry.Registry
	Tokens   ledger.TokenLedger
	Shares   ledger.ShareLedger
	Events   ledger.EventSink
	FeeRate  math.Int
}

// New creates a pool engine with dependency injection. The engine starts
// uninitialized; every operation except Initialize and the admin setters
// fails until the initial deposit has happened.
func New(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:    logger.GetForComponent("pool_engine"),
		registry:  cfg.Registry,
		tokens:    cfg.Tokens,
		shares:    cfg.Shares,
		events:    cfg.Events,
		aggregate: math.ZeroInt(),
		feeRate:   cfg.FeeRate,
	}

	e.logger.Info().
		Str("feeRate", cfg.FeeRate.String()).
		Msg("Pool engine created")

	return e, nil
}

// validateEngineConfig validates the engine configuration.
func validateEngineConfig(cfg Config) error {
	if cfg.Registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	if cfg.Tokens == nil {
		return fmt.Errorf("token ledger cannot be nil")
	}
	if cfg.Shares == nil {
		return fmt.Errorf("share ledger cannot be nil")
	}
	if cfg.Events == nil {
		return fmt.Errorf("event sink cannot be nil")
	}
	return validateFeeRate(cfg.FeeRate)
}

func validateFeeRate(rate math.Int) error {
	if rate.IsNil() {
		return fmt.Errorf("%w: rate is nil", ErrInvalidFeeRate)
	}
	if rate.IsNegative() {
		return fmt.Errorf("%w: rate %s is negative", ErrInvalidFeeRate, rate)
	}
	if rate.GT(types.BoundScale) {
		return fmt.Errorf("%w: rate %s exceeds scale %s", ErrInvalidFeeRate, rate, types.BoundScale)
	}
	return nil
}

// Initialize performs the mandatory one-shot initial deposit: it pulls the
// amount of the given registered asset from the caller, mints shares 1:1
// against it and sets the aggregate. Allocation bounds are not checked here;
// an empty pool has no headroom to check against.
func (e *Engine) Initialize(caller string, asset types.AssetID, amount math.Int) (*types.OperationReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil, ErrAlreadyInitialized
	}
	if _, err := e.registry.Get(asset); err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: initial deposit must be positive", ErrInvalidAmount)
	}

	if err := e.tokens.TransferIn(asset, caller, amount); err != nil {
		return nil, fmt.Errorf("initial transfer in failed: %w", err)
	}
	if err := e.shares.Mint(caller, amount); err != nil {
		e.unwindTransferIn(asset, caller, amount)
		return nil, fmt.Errorf("initial share mint failed: %w", err)
	}

	receipt := e.newReceipt(types.OpInitialize, caller)
	receipt.AggregateBefore = e.aggregate
	e.aggregate = amount
	e.initialized = true
	receipt.AggregateAfter = e.aggregate
	receipt.Legs = []types.OperationLeg{{Asset: asset, AmountIn: amount, AmountOut: math.ZeroInt()}}
	receipt.SharesMinted = amount

	e.events.Emit(types.AddEvent{Asset: asset, Amount: amount})

	e.logger.Info().
		Str("asset", string(asset)).
		Str("amount", amount.String()).
		Msg("Pool initialized")

	return receipt, nil
}

// FeeRate returns the current fee rate (nine-decimal fraction).
func (e *Engine) FeeRate() math.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feeRate
}

// AggregateSize returns the current aggregate pool size.
func (e *Engine) AggregateSize() math.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aggregate
}

// Initialized reports whether the initial deposit has happened.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Snapshot returns a consistent view of the whole pool taken under the
// engine lock.
func (e *Engine) Snapshot() (*types.PoolSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	supply, err := e.shares.TotalSupply()
	if err != nil {
		return nil, fmt.Errorf("failed to read share supply: %w", err)
	}

	snapshot := &types.PoolSnapshot{
		Timestamp:       time.Now().UTC(),
		AggregateSize:   e.aggregate,
		ShareSupply:     supply,
		RedemptionValue: math.ZeroInt(),
		FeeRate:         e.feeRate,
	}
	if supply.IsPositive() {
		rv, err := e.redemptionValue()
		if err != nil {
			return nil, err
		}
		snapshot.RedemptionValue = rv
	}

	for _, id := range e.registry.Assets() {
		asset, err := e.registry.Get(id)
		if err != nil {
			return nil, err
		}
		balance, err := e.tokens.BalanceOf(id)
		if err != nil {
			return nil, fmt.Errorf("failed to read balance of %s: %w", id, err)
		}
		snapshot.Assets = append(snapshot.Assets, *asset)
		snapshot.Balances = append(snapshot.Balances, types.AssetBalance{ID: id, Balance: balance})
	}

	return snapshot, nil
}

// --- Admin-facing mutations. Gated by the admin controller, which consults
// the permission gate before calling these. ---

// SetFeeRate updates the fee rate applied to every value-moving operation.
func (e *Engine) SetFeeRate(rate math.Int) error {
	if err := validateFeeRate(rate); err != nil {
		return err
	}
	e.mu.Lock()
	e.feeRate = rate
	e.mu.Unlock()

	e.events.Emit(types.FeeChangedEvent{Rate: rate})
	e.logger.Info().Str("feeRate", rate.String()).Msg("Fee rate updated")
	return nil
}

// RegisterAsset adds a new asset to the registry with accepting=false.
func (e *Engine) RegisterAsset(id types.AssetID, lowBound, highBound math.Int) error {
	e.mu.Lock()
	err := e.registry.Register(id, lowBound, highBound)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.events.Emit(types.TokenAddedEvent{Asset: id, LowBound: lowBound, HighBound: highBound})
	return nil
}

// SetBounds overwrites an asset's allocation bounds. No invariant
// re-validation happens here: bounds that place the existing balance out of
// range simply leave the asset with zero headroom until rebalanced.
func (e *Engine) SetBounds(id types.AssetID, lowBound, highBound math.Int) error {
	e.mu.Lock()
	err := e.registry.SetBounds(id, lowBound, highBound)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.events.Emit(types.BoundsChangedEvent{Asset: id, LowBound: lowBound, HighBound: highBound})
	return nil
}

// SetAccepting sets an asset's accept-flag.
func (e *Engine) SetAccepting(id types.AssetID, accepting bool) error {
	e.mu.Lock()
	err := e.registry.SetAccepting(id, accepting)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.events.Emit(types.AcceptingEvent{Asset: id, Accepting: accepting})
	return nil
}

// ToggleAccepting flips an asset's accept-flag and returns the new value.
func (e *Engine) ToggleAccepting(id types.AssetID) (bool, error) {
	e.mu.Lock()
	accepting, err := e.registry.ToggleAccepting(id)
	e.mu.Unlock()
	if err != nil {
		return false, err
	}

	e.events.Emit(types.AcceptingEvent{Asset: id, Accepting: accepting})
	return accepting, nil
}

// --- shared helpers, lock held ---

func (e *Engine) requireInitialized() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (e *Engine) newReceipt(kind types.OperationKind, caller string) *types.OperationReceipt {
	return &types.OperationReceipt{
		ID:           uuid.New().String(),
		Kind:         kind,
		Caller:       caller,
		FeePaid:      math.ZeroInt(),
		SharesMinted: math.ZeroInt(),
		SharesBurned: math.ZeroInt(),
		Timestamp:    time.Now().UTC(),
	}
}

// unwindTransferIn pushes a pulled amount back to the caller after a later
// step of the same transition failed. A failing unwind leaves the ledger
// holding funds the pool does not account for, which is strictly safer than
// the reverse; it is logged at error level for the operator.
func (e *Engine) unwindTransferIn(asset types.AssetID, caller string, amount math.Int) {
	if err := e.tokens.TransferOut(asset, caller, amount); err != nil {
		e.logger.Error().Err(err).
			Str("asset", string(asset)).
			Str("caller", caller).
			Str("amount", amount.String()).
			Msg("Failed to unwind transfer-in; funds stranded in pool account")
	}
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
