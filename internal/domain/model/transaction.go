package model

import "time"

// Transaction is the raw blockchain transaction that contained a trade
// event. Read-only to the pipeline; used when resolving the effective
// taker past a contract proxy.
type Transaction struct {
	ID          string    `db:"id"`
	Hash        string    `db:"hash"`
	BlockHash   string    `db:"block_hash"`
	BlockNumber int64     `db:"block_number"`
	From        string    `db:"from_address"`
	To          string    `db:"to_address"`
	Data        string    `db:"data"`
	Value       string    `db:"value"` // wei, NUMERIC(78,0) as string
	GasLimit    int64     `db:"gas_limit"`
	GasPrice    string    `db:"gas_price"`
	GasUsed     int64     `db:"gas_used"`
	Index       int       `db:"tx_index"`
	Nonce       string    `db:"nonce"`
	Date        time.Time `db:"date"`
}

// Block carries the subset of block data the pipeline needs: the timestamp
// that dates a fill.
type Block struct {
	Hash      string    `db:"hash"`
	Number    int64     `db:"number"`
	Timestamp time.Time `db:"timestamp"`
}
