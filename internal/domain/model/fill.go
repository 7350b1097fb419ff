package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillStatus describes the lifecycle state of a fill's underlying trade.
type FillStatus int

const (
	FillStatusPending    FillStatus = 0
	FillStatusSuccessful FillStatus = 1
	FillStatusFailed     FillStatus = 2
)

// PricingStatus records the outcome of the valuation stage.
type PricingStatus int

const (
	PricingStatusPriced       PricingStatus = 0
	PricingStatusImmeasurable PricingStatus = 1
)

// TradeActor identifies which side of a trade an asset or fee belongs to.
type TradeActor int

const (
	ActorMaker TradeActor = 0
	ActorTaker TradeActor = 1
)

// Money holds a USD-denominated value.
type Money struct {
	USD decimal.Decimal `json:"USD"`
}

// Asset is one leg of a fill. When BridgeAddress is set, TokenAddress is
// the underlying token decoded from the bridge payload, not the literal
// transfer token. The substitution happens once, in the builder.
type Asset struct {
	TokenAddress  string     `json:"tokenAddress"`
	Amount        string     `json:"amount"`
	Actor         TradeActor `json:"actor"`
	TokenResolved bool       `json:"tokenResolved"`
	BridgeAddress string     `json:"bridgeAddress,omitempty"`
	BridgeData    string     `json:"bridgeData,omitempty"`
	Price         *Money     `json:"price,omitempty"`
	Value         *Money     `json:"value,omitempty"`
}

// FeeAmount carries a fee both in raw token units and, once valued, USD.
type FeeAmount struct {
	Token string           `json:"token"`
	USD   *decimal.Decimal `json:"USD,omitempty"`
}

// Fee is a single fee entry attached to a fill.
type Fee struct {
	TokenAddress string     `json:"tokenAddress"`
	Amount       FeeAmount  `json:"amount"`
	TraderType   TradeActor `json:"traderType"`
}

// USDConversions aggregates the USD-equivalent figures of a fill.
type USDConversions struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	ProtocolFee *decimal.Decimal `json:"protocolFee,omitempty"`
}

// Conversions groups per-currency conversion results. USD is the only
// target currency currently produced.
type Conversions struct {
	USD USDConversions `json:"USD"`
}

// Fill is the canonical record of one executed on-chain trade. A fill
// shares its id with the event it was built from.
type Fill struct {
	ID               string        `db:"id"`
	EventID          string        `db:"event_id"`
	Status           FillStatus    `db:"status"`
	HasValue         bool          `db:"has_value"`
	Immeasurable     bool          `db:"immeasurable"`
	Assets           []Asset       `db:"assets"`
	Fees             []Fee         `db:"fees"`
	Maker            string        `db:"maker"`
	Taker            string        `db:"taker"`
	SenderAddress    string        `db:"sender_address"`
	FeeRecipient     string        `db:"fee_recipient"`
	AffiliateAddress string        `db:"affiliate_address"`
	ProtocolFee      string        `db:"protocol_fee"` // raw wei, NUMERIC(78,0) as string
	ProtocolVersion  int           `db:"protocol_version"`
	RelayerID        *int          `db:"relayer_id"`
	OrderHash        string        `db:"order_hash"`
	BlockHash        string        `db:"block_hash"`
	BlockNumber      int64         `db:"block_number"`
	LogIndex         int           `db:"log_index"`
	TransactionHash  string        `db:"transaction_hash"`
	Date             time.Time     `db:"date"`
	QuoteDate        *time.Time    `db:"quote_date"`
	Conversions      Conversions   `db:"conversions"`
	PricingStatus    PricingStatus `db:"pricing_status"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

// AssetsByActor returns the fill's assets belonging to the given actor,
// preserving their stored order.
func (f *Fill) AssetsByActor(actor TradeActor) []Asset {
	var out []Asset
	for _, a := range f.Assets {
		if a.Actor == actor {
			out = append(out, a)
		}
	}
	return out
}

// TradeCountContribution is 1 for fills whose trade completed successfully,
// 0 otherwise. Used by the search projection for trade-count aggregations.
func (f *Fill) TradeCountContribution() int {
	if f.Status == FillStatusSuccessful {
		return 1
	}
	return 0
}
