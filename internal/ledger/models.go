package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// Transaction kinds recorded by the engines.
const (
	KindCreate            = "create"
	KindTransfer          = "transfer"
	KindProvideLiquidity  = "provide_liquidity"
	KindWithdrawLiquidity = "withdraw_liquidity"
	KindStake             = "stake"
	KindUnstake           = "unstake"
	KindClaimReward       = "claim_reward"
)

// Transaction statuses. Core operations are synchronous and always
// terminal, so they only ever write StatusConfirmed.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Transaction is an append-only ledger entry documenting a state change.
// Amount is a signed decimal string; negative means an outflow from the
// ledger's perspective. Rows are never mutated except for a status
// transition from pending.
type Transaction struct {
	gorm.Model `json:"-"`
	Hash       string    `gorm:"uniqueIndex" json:"hash"`
	Kind       string    `json:"kind"`
	AssetID    string    `gorm:"index" json:"asset_id"`
	Amount     string    `json:"amount"`
	Sender     string    `json:"sender"`
	Recipient  string    `json:"recipient"`
	Status     string    `json:"status"`
	PoolID     string    `json:"pool_id,omitempty"`
	StakingID  string    `json:"staking_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewHash returns a 0x-prefixed 32-byte random hex hash for a ledger entry.
func NewHash() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return "0x" + hex.EncodeToString(b[:])
}
