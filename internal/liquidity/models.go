package liquidity

import (
	"gorm.io/gorm"
)

// Pool is a constant-product liquidity pool over two distinct assets.
// Reserves and the share supply are decimal strings holding arbitrary
// precision base-unit integers; the engine converts at the boundary and
// never does float math on them. PairKey is the unordered asset pair, so
// (A,B) and (B,A) collide on the unique index.
//
// A pool is either fully empty or fully funded: reserve_a, reserve_b and
// lp_token_supply are zero together or positive together.
type Pool struct {
	gorm.Model    `json:"-"`
	PoolID        string `gorm:"uniqueIndex" json:"pool_id"`
	AssetAID      string `json:"asset_a_id"`
	AssetBID      string `json:"asset_b_id"`
	PairKey       string `gorm:"uniqueIndex" json:"-"`
	ReserveA      string `gorm:"default:0" json:"reserve_a"`
	ReserveB      string `gorm:"default:0" json:"reserve_b"`
	LPTokenSupply string `gorm:"default:0" json:"lp_token_supply"`
	FeeRateBps    int64  `json:"fee_rate_bps"`
	Version       int64  `json:"-"`
}

// Position holds an owner's LP shares in one pool. At most one row exists
// per (owner, pool); repeated deposits merge into it and it is deleted
// when its share balance reaches zero.
type Position struct {
	gorm.Model `json:"-"`
	PositionID string `gorm:"uniqueIndex" json:"position_id"`
	OwnerID    string `gorm:"uniqueIndex:idx_liquidity_owner_pool" json:"owner_id"`
	PoolID     string `gorm:"uniqueIndex:idx_liquidity_owner_pool" json:"pool_id"`
	LPTokens   string `json:"lp_tokens"`
	Version    int64  `json:"-"`
}

// PoolOverview is the pool detail view: the pool row, its display price
// and every open position in it.
type PoolOverview struct {
	Pool       *Pool      `json:"pool"`
	PriceRatio string     `json:"price_ratio"`
	Positions  []Position `json:"positions"`
}

// DepositResult is returned by a successful liquidity deposit.
type DepositResult struct {
	MintedShares string    `json:"minted_shares"`
	Position     *Position `json:"position"`
	Pool         *Pool     `json:"pool"`
}

// WithdrawResult is returned by a successful liquidity withdrawal.
type WithdrawResult struct {
	AmountAOut      string `json:"amount_a_out"`
	AmountBOut      string `json:"amount_b_out"`
	BurnedShares    string `json:"burned_shares"`
	PositionRemoved bool   `json:"position_removed"`
	Pool            *Pool  `json:"pool"`
}
