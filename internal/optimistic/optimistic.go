// Package optimistic serializes mutating ledger operations through
// version-conditioned writes. A read-compute-write block runs inside one
// database transaction; writes are conditioned on the record versions read
// at the start, and the whole block is retried with fresh data when a
// concurrent writer got there first.
package optimistic

import (
	"errors"

	"gorm.io/gorm"

	"github.com/naru6be1/PolkaVault/internal/metrics"
	"github.com/naru6be1/PolkaVault/internal/types"
)

// ErrConflict is reported by a conditioned write whose version check found
// stale data. It never escapes Run.
var ErrConflict = errors.New("version conflict")

// DefaultAttempts bounds the retries before an operation fails with
// ErrContention.
const DefaultAttempts = 5

// Run executes fn inside a transaction, retrying the whole block on
// version conflict. fn must be pure given the snapshot it reads: no
// side effects outside the transaction.
func Run(db *gorm.DB, attempts int, fn func(tx *gorm.DB) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	for i := 0; i < attempts; i++ {
		err := db.Transaction(fn)
		if errors.Is(err, ErrConflict) {
			metrics.VersionConflicts.Inc()
			continue
		}
		return err
	}
	return types.ErrContention
}
