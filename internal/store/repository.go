package store

import (
	"context"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
)

// EventRepository provides access to raw captured trade events.
type EventRepository interface {
	// FindUnprocessed returns up to limit events whose fill_created flag is
	// false or unset, in stable capture order.
	FindUnprocessed(ctx context.Context, limit int) ([]model.Event, error)
}

// FillRepository provides access to fill records.
type FillRepository interface {
	// CreateWithEvent upserts the fill and marks its source event processed
	// in one database transaction. Calling it twice with the same event id
	// and an equivalent fill is a no-op with respect to observable state.
	CreateWithEvent(ctx context.Context, fill *model.Fill) error
	FindByID(ctx context.Context, id string) (*model.Fill, error)
}

// TransactionRepository provides read access to captured transactions.
type TransactionRepository interface {
	FindByHash(ctx context.Context, hash string) (*model.Transaction, error)
}

// BlockRepository provides read access to captured block headers.
type BlockRepository interface {
	FindByHash(ctx context.Context, hash string) (*model.Block, error)
}

// TokenRepository provides access to cached token metadata.
type TokenRepository interface {
	FindByAddress(ctx context.Context, address string) (*model.Token, error)
	// Insert registers a token if it is not already known. Returns true when
	// this call performed the first-time registration.
	Insert(ctx context.Context, t *model.Token) (bool, error)
}

// AddressMetadataRepository provides access to address classifications.
type AddressMetadataRepository interface {
	FindByAddress(ctx context.Context, address string) (*model.AddressMetadata, error)
	Upsert(ctx context.Context, m *model.AddressMetadata) error
}
