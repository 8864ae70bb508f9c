// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/parpool/parpool/internal/types"
)

// SavePoolSnapshot saves a full pool snapshot to the database.
func SavePoolSnapshot(snapshot types.PoolSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	assetsJSON, err := json.Marshal(snapshot.Assets)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal assets: %w", err)
	}
	balancesJSON, err := json.Marshal(snapshot.Balances)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal balances: %w", err)
	}

	query := `
		INSERT INTO pool_snapshots (
			snapshot_timestamp, aggregate_size, share_supply,
			redemption_value, fee_rate, assets, balances
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.Timestamp, snapshot.AggregateSize.String(), snapshot.ShareSupply.String(),
		snapshot.RedemptionValue.String(), snapshot.FeeRate.String(), assetsJSON, balancesJSON,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save pool snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshot_id", snapshotID).
		Str("aggregate_size", snapshot.AggregateSize.String()).
		Msg("Pool snapshot saved to database")

	return snapshotID, nil
}

// GetRecentSnapshots returns the most recent pool snapshots, newest first.
func GetRecentSnapshots(limit int) ([]types.PoolSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT snapshot_timestamp, aggregate_size, share_supply,
		       redemption_value, fee_rate, assets, balances
		FROM pool_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]types.PoolSnapshot, 0, limit)
	for rows.Next() {
		var (
			snapshot     types.PoolSnapshot
			aggregate    string
			supply       string
			redemption   string
			feeRate      string
			assetsJSON   []byte
			balancesJSON []byte
		)
		err := rows.Scan(&snapshot.Timestamp, &aggregate, &supply, &redemption, &feeRate, &assetsJSON, &balancesJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pool snapshot: %w", err)
		}

		for _, field := range []struct {
			raw  string
			dest *math.Int
		}{
			{aggregate, &snapshot.AggregateSize},
			{supply, &snapshot.ShareSupply},
			{redemption, &snapshot.RedemptionValue},
			{feeRate, &snapshot.FeeRate},
		} {
			value, ok := math.NewIntFromString(field.raw)
			if !ok {
				return nil, fmt.Errorf("failed to parse stored amount %q", field.raw)
			}
			*field.dest = value
		}
		if err := json.Unmarshal(assetsJSON, &snapshot.Assets); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assets: %w", err)
		}
		if err := json.Unmarshal(balancesJSON, &snapshot.Balances); err != nil {
			return nil, fmt.Errorf("failed to unmarshal balances: %w", err)
		}

		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}
