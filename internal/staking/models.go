package staking

import (
	"time"

	"gorm.io/gorm"
)

// Position statuses.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Pool is a staking pool paying a time-prorated reward on a single asset.
// RewardRateAPRPermille is the annualized rate in permille (100 = 10% APR).
// A LockPeriodDays of zero means positions are never locked.
type Pool struct {
	gorm.Model            `json:"-"`
	PoolID                string `gorm:"uniqueIndex" json:"pool_id"`
	AssetID               string `json:"asset_id"`
	TotalStaked           string `gorm:"default:0" json:"total_staked"`
	RewardRateAPRPermille int64  `json:"reward_rate_apr_permille"`
	MinStakeAmount        string `gorm:"default:0" json:"min_stake_amount"`
	LockPeriodDays        int    `json:"lock_period_days"`
	Version               int64  `json:"-"`
}

// Position is one owner's stake in a pool. At most one row exists per
// (owner, pool); repeated stakes settle pending reward and merge into it.
// EndDate is set to start + lock period when the pool locks, nil otherwise.
type Position struct {
	gorm.Model      `json:"-"`
	PositionID      string     `gorm:"uniqueIndex" json:"position_id"`
	OwnerID         string     `gorm:"uniqueIndex:idx_staking_owner_pool" json:"owner_id"`
	PoolID          string     `gorm:"uniqueIndex:idx_staking_owner_pool" json:"pool_id"`
	StakedAmount    string     `json:"staked_amount"`
	RewardAccrued   string     `gorm:"default:0" json:"reward_accrued"`
	StartDate       time.Time  `json:"start_date"`
	LastAccrualDate time.Time  `json:"last_accrual_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Status          string     `json:"status"`
	Version         int64      `json:"-"`
}

// StakeResult is returned by a successful stake.
type StakeResult struct {
	Position *Position `json:"position"`
	Pool     *Pool     `json:"pool"`
}

// UnstakeResult is returned by a successful unstake. RewardPaid is nonzero
// only on a full exit, where the settled reward pays out atomically with
// the stake withdrawal.
type UnstakeResult struct {
	AmountOut       string `json:"amount_out"`
	RewardPaid      string `json:"reward_paid"`
	PositionRemoved bool   `json:"position_removed"`
	Pool            *Pool  `json:"pool"`
}

// ClaimResult is returned by a successful reward claim.
type ClaimResult struct {
	AmountClaimed string    `json:"amount_claimed"`
	Position      *Position `json:"position"`
}
