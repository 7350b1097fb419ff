package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
)

type FillRepo struct {
	db *DB
}

func NewFillRepo(db *DB) *FillRepo {
	return &FillRepo{db: db}
}

// CreateWithEvent upserts the fill and flips the source event's
// fill_created flag inside one transaction. If either write fails the
// transaction rolls back and the event stays eligible for a later batch.
func (r *FillRepo) CreateWithEvent(ctx context.Context, fill *model.Fill) error {
	assets, err := json.Marshal(fill.Assets)
	if err != nil {
		return fmt.Errorf("marshal fill assets: %w", err)
	}
	fees, err := json.Marshal(fill.Fees)
	if err != nil {
		return fmt.Errorf("marshal fill fees: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fill tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fills (
			id, event_id, status, has_value, immeasurable, assets, fees,
			maker, taker, sender_address, fee_recipient, affiliate_address,
			protocol_fee, protocol_version, relayer_id, order_hash,
			block_hash, block_number, log_index, transaction_hash,
			date, quote_date, conversion_usd_amount, conversion_usd_protocol_fee,
			pricing_status, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, now())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			has_value = EXCLUDED.has_value,
			immeasurable = EXCLUDED.immeasurable,
			assets = EXCLUDED.assets,
			fees = EXCLUDED.fees,
			conversion_usd_amount = EXCLUDED.conversion_usd_amount,
			conversion_usd_protocol_fee = EXCLUDED.conversion_usd_protocol_fee,
			pricing_status = EXCLUDED.pricing_status,
			quote_date = EXCLUDED.quote_date,
			updated_at = now()
	`,
		fill.ID, fill.EventID, fill.Status, fill.HasValue, fill.Immeasurable,
		assets, fees,
		fill.Maker, fill.Taker, fill.SenderAddress, fill.FeeRecipient,
		nullString(fill.AffiliateAddress),
		fill.ProtocolFee, fill.ProtocolVersion, nullInt(fill.RelayerID), fill.OrderHash,
		fill.BlockHash, fill.BlockNumber, fill.LogIndex, fill.TransactionHash,
		fill.Date, nullTime(fill.QuoteDate),
		nullDecimal(fill.Conversions.USD.Amount),
		nullDecimal(fill.Conversions.USD.ProtocolFee),
		fill.PricingStatus,
	)
	if err != nil {
		return fmt.Errorf("upsert fill: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE events SET fill_created = TRUE WHERE id = $1
	`, fill.EventID); err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fill tx: %w", err)
	}
	return nil
}

// FindByID returns the fill with the given id, or nil when none exists.
func (r *FillRepo) FindByID(ctx context.Context, id string) (*model.Fill, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		f                model.Fill
		assets, fees     []byte
		affiliateAddress sql.NullString
		relayerID        sql.NullInt64
		quoteDate        sql.NullTime
		usdAmount        decimal.NullDecimal
		usdProtocolFee   decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, event_id, status, has_value, immeasurable, assets, fees,
		       maker, taker, sender_address, fee_recipient, affiliate_address,
		       protocol_fee, protocol_version, relayer_id, order_hash,
		       block_hash, block_number, log_index, transaction_hash,
		       date, quote_date, conversion_usd_amount, conversion_usd_protocol_fee,
		       pricing_status, created_at, updated_at
		FROM fills
		WHERE id = $1
	`, id).Scan(
		&f.ID, &f.EventID, &f.Status, &f.HasValue, &f.Immeasurable, &assets, &fees,
		&f.Maker, &f.Taker, &f.SenderAddress, &f.FeeRecipient, &affiliateAddress,
		&f.ProtocolFee, &f.ProtocolVersion, &relayerID, &f.OrderHash,
		&f.BlockHash, &f.BlockNumber, &f.LogIndex, &f.TransactionHash,
		&f.Date, &quoteDate, &usdAmount, &usdProtocolFee,
		&f.PricingStatus, &f.CreatedAt, &f.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find fill by id: %w", err)
	}

	if err := json.Unmarshal(assets, &f.Assets); err != nil {
		return nil, fmt.Errorf("unmarshal fill assets: %w", err)
	}
	if err := json.Unmarshal(fees, &f.Fees); err != nil {
		return nil, fmt.Errorf("unmarshal fill fees: %w", err)
	}
	if affiliateAddress.Valid {
		f.AffiliateAddress = affiliateAddress.String
	}
	if relayerID.Valid {
		v := int(relayerID.Int64)
		f.RelayerID = &v
	}
	if quoteDate.Valid {
		f.QuoteDate = &quoteDate.Time
	}
	if usdAmount.Valid {
		f.Conversions.USD.Amount = &usdAmount.Decimal
	}
	if usdProtocolFee.Valid {
		f.Conversions.USD.ProtocolFee = &usdProtocolFee.Decimal
	}

	return &f, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
