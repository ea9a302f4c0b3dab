package types

import "errors"

// Error kinds surfaced by the accounting engines. All are terminal and
// synchronous; only ErrContention is retried, and only by the optimistic
// coordinator before it gives up.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidAsset        = errors.New("invalid or unknown asset pair")
	ErrDuplicatePool       = errors.New("pool already exists for asset pair")
	ErrInvalidAmount       = errors.New("amount is zero, negative or rounds to zero")
	ErrBelowMinimum        = errors.New("stake below pool minimum")
	ErrInsufficientStake   = errors.New("unstake amount exceeds staked balance")
	ErrInsufficientReserve = errors.New("amount exceeds available balance")
	ErrLocked              = errors.New("position is locked until lock period expires")
	ErrNothingToClaim      = errors.New("no reward accrued")
	ErrContention          = errors.New("operation aborted after repeated version conflicts")
)
