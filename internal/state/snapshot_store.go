// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/corridor-network/psm/internal/types"
)

// SaveRebalanceSnapshot saves a complete rebalance snapshot to the database.
func SaveRebalanceSnapshot(snapshot types.RebalanceSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	corridorJSON, err := json.Marshal(snapshot.Corridor)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal corridor: %w", err)
	}
	balancesJSON, err := json.Marshal(snapshot.Balances)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal balances: %w", err)
	}
	weightsJSON, err := json.Marshal(snapshot.Weights)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal weights: %w", err)
	}

	query := `
		INSERT INTO rebalance_snapshots (
			cycle_number, snapshot_timestamp, params_id,
			corridor, balances, weights,
			dampened, lifecycle_state, valuation_want, applied, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.CycleNumber, snapshot.Timestamp, snapshot.ParamsID,
		corridorJSON, balancesJSON, weightsJSON,
		snapshot.Dampened, string(snapshot.State), snapshot.ValuationWant, snapshot.Applied, snapshot.Note,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save rebalance snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("cycle_number", snapshot.CycleNumber).
		Bool("applied", snapshot.Applied).
		Msg("Rebalance snapshot saved to database")

	return snapshotID, nil
}

// GetRecentSnapshots returns the most recent snapshots, newest first.
func GetRecentSnapshots(limit int) ([]types.RebalanceSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := DB.Query(`
		SELECT cycle_number, snapshot_timestamp, params_id,
		       corridor, balances, weights,
		       dampened, lifecycle_state, valuation_want, applied, note
		FROM rebalance_snapshots
		ORDER BY snapshot_id DESC
		LIMIT $1;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.RebalanceSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// GetSnapshotByCycle returns the snapshot recorded for one cycle number.
func GetSnapshotByCycle(cycleNumber int) (*types.RebalanceSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	row := DB.QueryRow(`
		SELECT cycle_number, snapshot_timestamp, params_id,
		       corridor, balances, weights,
		       dampened, lifecycle_state, valuation_want, applied, note
		FROM rebalance_snapshots
		WHERE cycle_number = $1
		ORDER BY snapshot_id DESC
		LIMIT 1;
	`, cycleNumber)

	s, err := scanSnapshot(row)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (types.RebalanceSnapshot, error) {
	var (
		s                                        types.RebalanceSnapshot
		corridorJSON, balancesJSON, weightsJSON  []byte
		state                                    string
	)
	err := row.Scan(
		&s.CycleNumber, &s.Timestamp, &s.ParamsID,
		&corridorJSON, &balancesJSON, &weightsJSON,
		&s.Dampened, &state, &s.ValuationWant, &s.Applied, &s.Note,
	)
	if err != nil {
		return types.RebalanceSnapshot{}, fmt.Errorf("failed to scan snapshot row: %w", err)
	}
	s.State = types.LifecycleState(state)

	if err := json.Unmarshal(corridorJSON, &s.Corridor); err != nil {
		return types.RebalanceSnapshot{}, fmt.Errorf("failed to unmarshal corridor: %w", err)
	}
	if err := json.Unmarshal(balancesJSON, &s.Balances); err != nil {
		return types.RebalanceSnapshot{}, fmt.Errorf("failed to unmarshal balances: %w", err)
	}
	if err := json.Unmarshal(weightsJSON, &s.Weights); err != nil {
		return types.RebalanceSnapshot{}, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return s, nil
}
