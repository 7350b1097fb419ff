package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
)

type TransactionRepo struct {
	db *DB
}

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// FindByHash returns the captured transaction with the given hash, or nil
// when it has not been captured.
func (r *TransactionRepo) FindByHash(ctx context.Context, hash string) (*model.Transaction, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var t model.Transaction
	err := r.db.QueryRowContext(ctx, `
		SELECT id, hash, block_hash, block_number, from_address, to_address,
		       data, value, gas_limit, gas_price, gas_used, tx_index, nonce, date
		FROM transactions
		WHERE hash = $1
	`, hash).Scan(
		&t.ID, &t.Hash, &t.BlockHash, &t.BlockNumber, &t.From, &t.To,
		&t.Data, &t.Value, &t.GasLimit, &t.GasPrice, &t.GasUsed, &t.Index, &t.Nonce, &t.Date,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction by hash: %w", err)
	}
	return &t, nil
}

type BlockRepo struct {
	db *DB
}

func NewBlockRepo(db *DB) *BlockRepo {
	return &BlockRepo{db: db}
}

// FindByHash returns the captured block header with the given hash, or nil
// when the block is not yet available.
func (r *BlockRepo) FindByHash(ctx context.Context, hash string) (*model.Block, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var b model.Block
	err := r.db.QueryRowContext(ctx, `
		SELECT hash, number, timestamp FROM blocks WHERE hash = $1
	`, hash).Scan(&b.Hash, &b.Number, &b.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find block by hash: %w", err)
	}
	return &b, nil
}
