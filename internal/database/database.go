package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/naru6be1/PolkaVault/internal/ledger"
	"github.com/naru6be1/PolkaVault/internal/liquidity"
	"github.com/naru6be1/PolkaVault/internal/staking"
	"github.com/naru6be1/PolkaVault/internal/types"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	// TranslateError lets callers detect duplicate-key violations as
	// gorm.ErrDuplicatedKey instead of driver-specific errors.
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&types.Asset{},
		&ledger.Transaction{},
		&liquidity.Pool{},
		&liquidity.Position{},
		&staking.Pool{},
		&staking.Position{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
