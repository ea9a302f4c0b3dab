package optimistic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/naru6be1/PolkaVault/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestRun_ExhaustedRetriesReportContention(t *testing.T) {
	db := newTestDB(t)

	calls := 0
	err := Run(db, 3, func(tx *gorm.DB) error {
		calls++
		return ErrConflict
	})
	require.ErrorIs(t, err, types.ErrContention)
	require.Equal(t, 3, calls)
}

func TestRun_SucceedsAfterConflicts(t *testing.T) {
	db := newTestDB(t)

	calls := 0
	err := Run(db, DefaultAttempts, func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRun_NonConflictErrorStopsImmediately(t *testing.T) {
	db := newTestDB(t)

	sentinel := errors.New("disk on fire")
	calls := 0
	err := Run(db, DefaultAttempts, func(tx *gorm.DB) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestRun_NonPositiveAttemptsUseDefault(t *testing.T) {
	db := newTestDB(t)

	calls := 0
	err := Run(db, 0, func(tx *gorm.DB) error {
		calls++
		return ErrConflict
	})
	require.ErrorIs(t, err, types.ErrContention)
	require.Equal(t, DefaultAttempts, calls)
}
