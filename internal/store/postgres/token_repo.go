package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
)

type TokenRepo struct {
	db *DB
}

func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// FindByAddress returns the token registered under address, or nil when the
// token is unknown.
func (r *TokenRepo) FindByAddress(ctx context.Context, address string) (*model.Token, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var t model.Token
	err := r.db.QueryRowContext(ctx, `
		SELECT address, symbol, name, decimals, created_at
		FROM tokens
		WHERE address = $1
	`, address).Scan(&t.Address, &t.Symbol, &t.Name, &t.Decimals, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find token by address: %w", err)
	}
	return &t, nil
}

// Insert registers a token on first sight. Concurrent registrations of the
// same address are write-once-wins: the conflict clause makes duplicates a
// no-op and the returned bool reports whether this call inserted the row.
func (r *TokenRepo) Insert(ctx context.Context, t *model.Token) (bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (address, symbol, name, decimals)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO NOTHING
	`, t.Address, t.Symbol, t.Name, t.Decimals)
	if err != nil {
		return false, fmt.Errorf("insert token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert token rows affected: %w", err)
	}
	return affected > 0, nil
}

type AddressMetadataRepo struct {
	db *DB
}

func NewAddressMetadataRepo(db *DB) *AddressMetadataRepo {
	return &AddressMetadataRepo{db: db}
}

// FindByAddress returns the classification for address, or nil when the
// address has not been classified.
func (r *AddressMetadataRepo) FindByAddress(ctx context.Context, address string) (*model.AddressMetadata, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var m model.AddressMetadata
	err := r.db.QueryRowContext(ctx, `
		SELECT address, is_contract FROM address_metadata WHERE address = $1
	`, address).Scan(&m.Address, &m.IsContract)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find address metadata: %w", err)
	}
	return &m, nil
}

// Upsert stores the classification for an address. Idempotent.
func (r *AddressMetadataRepo) Upsert(ctx context.Context, m *model.AddressMetadata) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO address_metadata (address, is_contract)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET is_contract = EXCLUDED.is_contract
	`, m.Address, m.IsContract)
	if err != nil {
		return fmt.Errorf("upsert address metadata: %w", err)
	}
	return nil
}
