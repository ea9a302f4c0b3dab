package liquidity

import (
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/naru6be1/PolkaVault/internal/optimistic"
	"github.com/naru6be1/PolkaVault/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// PairKey builds the unordered-pair uniqueness key for two asset ids.
func PairKey(assetAID, assetBID string) string {
	pair := []string{assetAID, assetBID}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}

func (d *Database) CreatePool(pool *Pool) error {
	return d.db.Create(pool).Error
}

func (d *Database) GetPool(tx *gorm.DB, poolID string) (*Pool, error) {
	var pool Pool
	if err := tx.Where("pool_id = ?", poolID).First(&pool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &pool, nil
}

func (d *Database) GetPoolByPair(assetAID, assetBID string) (*Pool, error) {
	var pool Pool
	if err := d.db.Where("pair_key = ?", PairKey(assetAID, assetBID)).First(&pool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &pool, nil
}

func (d *Database) ListPools() ([]Pool, error) {
	var pools []Pool
	if err := d.db.Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

func (d *Database) GetAsset(assetID string) (*types.Asset, error) {
	var asset types.Asset
	if err := d.db.Where("asset_id = ?", assetID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrInvalidAsset
		}
		return nil, err
	}
	return &asset, nil
}

func (d *Database) GetPosition(tx *gorm.DB, positionID string) (*Position, error) {
	var position Position
	if err := tx.Where("position_id = ?", positionID).First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &position, nil
}

// GetPositionForOwner returns the owner's position in a pool, or nil when
// none exists yet.
func (d *Database) GetPositionForOwner(tx *gorm.DB, ownerID, poolID string) (*Position, error) {
	var position Position
	if err := tx.Where("owner_id = ? AND pool_id = ?", ownerID, poolID).First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

func (d *Database) ListPositionsByOwner(ownerID string) ([]Position, error) {
	var positions []Position
	if err := d.db.Where("owner_id = ?", ownerID).Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (d *Database) ListPositionsByPool(poolID string) ([]Position, error) {
	var positions []Position
	if err := d.db.Where("pool_id = ?", poolID).Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

// CreatePosition inserts a fresh position. A concurrent first deposit for
// the same (owner, pool) races on the unique index; surfacing that failure
// as a conflict lets the coordinator retry and merge instead. Any other
// insert error passes through untouched.
func (d *Database) CreatePosition(tx *gorm.DB, position *Position) error {
	if err := tx.Create(position).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return optimistic.ErrConflict
		}
		return err
	}
	return nil
}

// UpdatePoolConditioned writes the pool's numeric state, conditioned on the
// version read at the start of the operation. Both reserves and the supply
// move in one conditioned write, so no reader ever sees a half-updated pool.
func (d *Database) UpdatePoolConditioned(tx *gorm.DB, pool *Pool) error {
	res := tx.Model(&Pool{}).
		Where("pool_id = ? AND version = ?", pool.PoolID, pool.Version).
		Updates(map[string]interface{}{
			"reserve_a":       pool.ReserveA,
			"reserve_b":       pool.ReserveB,
			"lp_token_supply": pool.LPTokenSupply,
			"version":         pool.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return optimistic.ErrConflict
	}
	pool.Version++
	return nil
}

func (d *Database) UpdatePositionConditioned(tx *gorm.DB, position *Position) error {
	res := tx.Model(&Position{}).
		Where("position_id = ? AND version = ?", position.PositionID, position.Version).
		Updates(map[string]interface{}{
			"lp_tokens": position.LPTokens,
			"version":   position.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return optimistic.ErrConflict
	}
	position.Version++
	return nil
}

// DeletePositionConditioned removes a drained position for good. The delete
// is unscoped so the (owner, pool) unique index frees up for a later
// re-entry.
func (d *Database) DeletePositionConditioned(tx *gorm.DB, position *Position) error {
	res := tx.Unscoped().
		Where("position_id = ? AND version = ?", position.PositionID, position.Version).
		Delete(&Position{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return optimistic.ErrConflict
	}
	return nil
}
