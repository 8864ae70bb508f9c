// ./internal/state/receipt_store.go
package state

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/parpool/parpool/internal/types"
)

// SaveOperationReceipt persists one committed operation receipt.
func SaveOperationReceipt(receipt types.OperationReceipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	legsJSON, err := json.Marshal(receipt.Legs)
	if err != nil {
		return fmt.Errorf("failed to marshal legs: %w", err)
	}

	query := `
		INSERT INTO operation_receipts (
			receipt_id, operation_timestamp, kind, caller, legs,
			fee_paid, shares_minted, shares_burned,
			aggregate_before, aggregate_after
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`

	_, err = DB.Exec(
		query,
		receipt.ID, receipt.Timestamp, string(receipt.Kind), receipt.Caller, legsJSON,
		receipt.FeePaid.String(), receipt.SharesMinted.String(), receipt.SharesBurned.String(),
		receipt.AggregateBefore.String(), receipt.AggregateAfter.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save operation receipt: %w", err)
	}

	log.Debug().
		Str("receipt_id", receipt.ID).
		Str("kind", string(receipt.Kind)).
		Msg("Operation receipt saved to database")

	return nil
}

// GetRecentReceipts returns the most recent operation receipts, newest first.
func GetRecentReceipts(limit int) ([]types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT receipt_id, operation_timestamp, kind, caller, legs,
		       fee_paid, shares_minted, shares_burned,
		       aggregate_before, aggregate_after
		FROM operation_receipts
		ORDER BY operation_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]types.OperationReceipt, 0, limit)
	for rows.Next() {
		receipt, err := scanReceipt(rows.Scan)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, *receipt)
	}
	return receipts, rows.Err()
}

// GetReceiptByID returns a single operation receipt.
func GetReceiptByID(id string) (*types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT receipt_id, operation_timestamp, kind, caller, legs,
		       fee_paid, shares_minted, shares_burned,
		       aggregate_before, aggregate_after
		FROM operation_receipts
		WHERE receipt_id = $1;
	`

	return scanReceipt(DB.QueryRow(query, id).Scan)
}

// scanReceipt reads one receipt row through the given scan function.
func scanReceipt(scan func(dest ...any) error) (*types.OperationReceipt, error) {
	var (
		receipt  types.OperationReceipt
		kind     string
		legsJSON []byte

		feePaid, minted, burned, aggBefore, aggAfter string
	)

	err := scan(
		&receipt.ID, &receipt.Timestamp, &kind, &receipt.Caller, &legsJSON,
		&feePaid, &minted, &burned, &aggBefore, &aggAfter,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan operation receipt: %w", err)
	}

	receipt.Kind = types.OperationKind(kind)
	if err := json.Unmarshal(legsJSON, &receipt.Legs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal legs: %w", err)
	}

	for _, field := range []struct {
		raw  string
		dest *math.Int
	}{
		{feePaid, &receipt.FeePaid},
		{minted, &receipt.SharesMinted},
		{burned, &receipt.SharesBurned},
		{aggBefore, &receipt.AggregateBefore},
		{aggAfter, &receipt.AggregateAfter},
	} {
		value, ok := math.NewIntFromString(field.raw)
		if !ok {
			return nil, fmt.Errorf("failed to parse stored amount %q", field.raw)
		}
		*field.dest = value
	}

	return &receipt, nil
}

// OperationSummary aggregates the persisted receipt history.
type OperationSummary struct {
	TotalOperations int64            `json:"total_operations"`
	CountByKind     map[string]int64 `json:"count_by_kind"`
	TotalFeesPaid   string           `json:"total_fees_paid"`
}

// GetOperationSummary returns counts per operation kind and the total fees
// retained by the pool over the full receipt history.
func GetOperationSummary() (*OperationSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT kind, COUNT(*), COALESCE(SUM(fee_paid), 0)
		FROM operation_receipts
		GROUP BY kind;
	`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation summary: %w", err)
	}
	defer rows.Close()

	summary := &OperationSummary{CountByKind: make(map[string]int64)}
	totalFees := math.ZeroInt()
	for rows.Next() {
		var (
			kind  string
			count int64
			fees  string
		)
		if err := rows.Scan(&kind, &count, &fees); err != nil {
			return nil, fmt.Errorf("failed to scan operation summary row: %w", err)
		}
		summary.CountByKind[kind] = count
		summary.TotalOperations += count
		feeSum, ok := math.NewIntFromString(fees)
		if !ok {
			return nil, fmt.Errorf("failed to parse fee sum %q", fees)
		}
		totalFees = totalFees.Add(feeSum)
	}
	summary.TotalFeesPaid = totalFees.String()
	return summary, rows.Err()
}
