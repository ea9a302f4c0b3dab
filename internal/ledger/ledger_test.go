package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Transaction{}))
	return db
}

func TestNewHash(t *testing.T) {
	h := NewHash()
	if !strings.HasPrefix(h, "0x") || len(h) != 66 {
		t.Errorf("expected 0x-prefixed 64-char hex hash, got %q", h)
	}
	if NewHash() == h {
		t.Error("two hashes should not collide")
	}
}

func TestRecord_FillsEntryFields(t *testing.T) {
	db := newTestDB(t)

	entry := &Transaction{
		Kind:    KindStake,
		AssetID: "asset-a",
		Amount:  "1000",
		Sender:  "alice",
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Record(tx, entry)
	}))

	require.Len(t, entry.Hash, 66)
	require.Equal(t, StatusConfirmed, entry.Status)
	require.False(t, entry.Timestamp.IsZero())

	var stored Transaction
	require.NoError(t, db.Where("hash = ?", entry.Hash).First(&stored).Error)
	require.Equal(t, "1000", stored.Amount)
}

func TestRecord_RollsBackWithCallerTransaction(t *testing.T) {
	db := newTestDB(t)

	sentinel := gorm.ErrInvalidData
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := Record(tx, &Transaction{Kind: KindTransfer, AssetID: "asset-a", Amount: "1"}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int64
	require.NoError(t, db.Model(&Transaction{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestListTransactionsByAsset(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := Record(tx, &Transaction{Kind: KindCreate, AssetID: "asset-a", Amount: "100"}); err != nil {
			return err
		}
		if err := Record(tx, &Transaction{Kind: KindCreate, AssetID: "asset-b", Amount: "200"}); err != nil {
			return err
		}
		return Record(tx, &Transaction{Kind: KindTransfer, AssetID: "asset-a", Amount: "-10"})
	}))

	all, err := svc.ListTransactions()
	require.NoError(t, err)
	require.Len(t, all, 3)

	filtered, err := svc.ListTransactionsByAsset("asset-a")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, txn := range filtered {
		require.Equal(t, "asset-a", txn.AssetID)
	}
}
