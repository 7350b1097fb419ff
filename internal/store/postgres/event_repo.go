package postgres

import (
	"context"
	"fmt"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
)

type EventRepo struct {
	db *DB
}

func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// FindUnprocessed returns up to limit events that have no fill yet, in
// capture order (block, then log index). fill_created is tri-state: both
// false and NULL mean pending.
func (r *EventRepo) FindUnprocessed(ctx context.Context, limit int) ([]model.Event, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, block_hash, block_number, log_index, transaction_hash,
		       protocol_version, data, fill_created
		FROM events
		WHERE fill_created IS NOT TRUE
		ORDER BY block_number, log_index
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("find unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.BlockHash, &e.BlockNumber, &e.LogIndex, &e.TransactionHash,
			&e.ProtocolVersion, &e.Data, &e.FillCreated,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find unprocessed events rows: %w", err)
	}

	return events, nil
}
