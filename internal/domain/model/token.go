package model

import "time"

// Token is cached token metadata, populated lazily on first reference.
type Token struct {
	Address   string    `db:"address"`
	Symbol    string    `db:"symbol"`
	Name      string    `db:"name"`
	Decimals  int       `db:"decimals"`
	CreatedAt time.Time `db:"created_at"`
}

// AddressMetadata is the cached classification of an address. Write-once
// per address; read by the builder flow and the index projector.
type AddressMetadata struct {
	Address    string `db:"address"`
	IsContract bool   `db:"is_contract"`
}
