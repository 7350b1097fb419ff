package search

import (
	"time"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
)

// AssetDocument is the reduced projection of a fill asset. All pricing and
// amount detail is dropped: the index serves lookup and aggregation, not
// full audit.
type AssetDocument struct {
	TokenAddress  string `json:"tokenAddress"`
	BridgeAddress string `json:"bridgeAddress,omitempty"`
}

// FillDocument is the query-optimized projection of a fill written to the
// search index, keyed by the fill id with full-replace semantics.
type FillDocument struct {
	AffiliateAddress       string          `json:"affiliateAddress,omitempty"`
	Assets                 []AssetDocument `json:"assets"`
	Date                   time.Time       `json:"date"`
	FeeRecipient           string          `json:"feeRecipient"`
	Fees                   []model.Fee     `json:"fees"`
	Maker                  string          `json:"maker"`
	OrderHash              string          `json:"orderHash"`
	ProtocolFeeETH         float64         `json:"protocolFeeETH"`
	ProtocolFeeUSD         *float64        `json:"protocolFeeUSD,omitempty"`
	ProtocolVersion        int             `json:"protocolVersion"`
	RelayerID              *int            `json:"relayerId,omitempty"`
	SenderAddress          string          `json:"senderAddress"`
	Status                 int             `json:"status"`
	Taker                  string          `json:"taker"`
	TradeCountContribution int             `json:"tradeCountContribution"`
	TradeVolume            *float64        `json:"tradeVolume,omitempty"`
	Traders                []string        `json:"traders"`
	TransactionHash        string          `json:"transactionHash"`
	UpdatedAt              time.Time       `json:"updatedAt"`
	Value                  *float64        `json:"value,omitempty"`
}
