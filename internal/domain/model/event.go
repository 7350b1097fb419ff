package model

import "encoding/json"

// Event is one raw captured trade log, written by the upstream capture
// process. FillCreated is tri-state: nil or false means the event is still
// pending fill creation.
type Event struct {
	ID              string          `db:"id"`
	BlockHash       string          `db:"block_hash"`
	BlockNumber     int64           `db:"block_number"`
	LogIndex        int             `db:"log_index"`
	TransactionHash string          `db:"transaction_hash"`
	ProtocolVersion int             `db:"protocol_version"`
	Data            json.RawMessage `db:"data"`
	FillCreated     *bool           `db:"fill_created"`
}

// EventArgs is the decoded-log payload captured inside Event.Data. Raw
// integer quantities are decimal strings.
type EventArgs struct {
	MakerAddress           string `json:"makerAddress"`
	TakerAddress           string `json:"takerAddress"`
	SenderAddress          string `json:"senderAddress"`
	FeeRecipientAddress    string `json:"feeRecipientAddress"`
	MakerAssetData         string `json:"makerAssetData"`
	TakerAssetData         string `json:"takerAssetData"`
	MakerAssetFilledAmount string `json:"makerAssetFilledAmount"`
	TakerAssetFilledAmount string `json:"takerAssetFilledAmount"`
	MakerFeePaid           string `json:"makerFeePaid"`
	TakerFeePaid           string `json:"takerFeePaid"`
	MakerFeeAssetData      string `json:"makerFeeAssetData"` // v3 only
	TakerFeeAssetData      string `json:"takerFeeAssetData"` // v3 only
	ProtocolFeePaid        string `json:"protocolFeePaid"`   // v3 only
	OrderHash              string `json:"orderHash"`
}

// EventData is the envelope stored in Event.Data: the decoded log args plus
// annotations the capture process attaches at ingest time.
type EventData struct {
	Args             EventArgs `json:"args"`
	RelayerID        *int      `json:"relayerId,omitempty"`
	AffiliateAddress string    `json:"affiliateAddress,omitempty"`
}
