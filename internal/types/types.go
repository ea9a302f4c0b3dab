package types

import (
	"gorm.io/gorm"
)

// Asset is a fungible asset tracked by the ledger. Balance is a decimal
// string so arbitrarily large base-unit quantities survive storage intact.
// The pool and staking engines only ever read assets; balances are mutated
// by the asset subsystem alone.
type Asset struct {
	gorm.Model `json:"-"`
	AssetID    string `gorm:"uniqueIndex" json:"asset_id"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	Decimals   int    `json:"decimals"`
	Balance    string `gorm:"default:0" json:"balance"`
	Creator    string `json:"creator"`
}
