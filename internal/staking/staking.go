package staking

import (
	"fmt"
	"math/big"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/naru6be1/PolkaVault/internal/ledger"
	"github.com/naru6be1/PolkaVault/internal/metrics"
	"github.com/naru6be1/PolkaVault/internal/optimistic"
	"github.com/naru6be1/PolkaVault/internal/types"
	"github.com/naru6be1/PolkaVault/pkg/response"
)

// Service handles staking accrual: stake merging, lock enforcement and
// time-prorated reward settlement.
type Service struct {
	db     *Database
	gormDB *gorm.DB
	clock  func() time.Time
}

// NewService creates a new staking service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		gormDB: gormDB,
		clock:  time.Now,
	}
}

// CreatePool registers a staking pool over a known asset.
func (s *Service) CreatePool(assetID string, aprPermille int64, minStakeAmount string, lockPeriodDays int) (*Pool, error) {
	if aprPermille < 0 || lockPeriodDays < 0 {
		return nil, types.ErrInvalidAmount
	}
	minStake, err := types.ParseAmount(minStakeAmount)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.GetAsset(assetID); err != nil {
		return nil, err
	}

	pool := &Pool{
		PoolID:                "SPOOL_" + uuid.New().String(),
		AssetID:               assetID,
		TotalStaked:           "0",
		RewardRateAPRPermille: aprPermille,
		MinStakeAmount:        minStake.String(),
		LockPeriodDays:        lockPeriodDays,
	}

	if err := s.db.CreatePool(pool); err != nil {
		return nil, err
	}

	log.Info().
		Str("pool_id", pool.PoolID).
		Str("asset_id", assetID).
		Int64("apr_permille", aprPermille).
		Int("lock_period_days", lockPeriodDays).
		Msg("staking pool created")

	return pool, nil
}

// Stake locks amount into a pool for the owner. An existing position first
// settles its pending reward, then grows; a new position starts its lock
// clock at now. The position, pool total and ledger entry commit atomically.
func (s *Service) Stake(poolID, ownerID string, amount *big.Int) (result *StakeResult, err error) {
	defer func(start time.Time) { metrics.Observe("stake", start, err) }(time.Now())

	logger := log.With().
		Str("pool_id", poolID).
		Str("owner_id", ownerID).
		Str("service", "staking").
		Logger()

	err = optimistic.Run(s.gormDB, optimistic.DefaultAttempts, func(tx *gorm.DB) error {
		pool, err := s.db.GetPool(tx, poolID)
		if err != nil {
			return err
		}

		if amount.Sign() <= 0 {
			return types.ErrInvalidAmount
		}
		minStake, err := types.ParseAmount(pool.MinStakeAmount)
		if err != nil {
			return fmt.Errorf("corrupt pool %s min_stake_amount: %w", pool.PoolID, err)
		}
		if amount.Cmp(minStake) < 0 {
			return types.ErrBelowMinimum
		}

		now := s.clock()
		position, err := s.db.GetPositionForOwner(tx, ownerID, poolID)
		if err != nil {
			return err
		}

		if position == nil {
			position = &Position{
				PositionID:      "SPOS_" + uuid.New().String(),
				OwnerID:         ownerID,
				PoolID:          poolID,
				StakedAmount:    amount.String(),
				RewardAccrued:   "0",
				StartDate:       now,
				LastAccrualDate: now,
				Status:          StatusActive,
			}
			if pool.LockPeriodDays > 0 {
				end := now.AddDate(0, 0, pool.LockPeriodDays)
				position.EndDate = &end
			}
			if err := s.db.CreatePosition(tx, position); err != nil {
				return err
			}
		} else {
			staked, accrued, err := s.settleAccrual(position, pool.RewardRateAPRPermille, now)
			if err != nil {
				return err
			}
			position.StakedAmount = new(big.Int).Add(staked, amount).String()
			position.RewardAccrued = accrued.String()
			if err := s.db.UpdatePositionConditioned(tx, position); err != nil {
				return err
			}
		}

		totalStaked, err := types.ParseAmount(pool.TotalStaked)
		if err != nil {
			return fmt.Errorf("corrupt pool %s total_staked: %w", pool.PoolID, err)
		}
		pool.TotalStaked = new(big.Int).Add(totalStaked, amount).String()
		if err := s.db.UpdatePoolConditioned(tx, pool); err != nil {
			return err
		}

		entry := &ledger.Transaction{
			Kind:      ledger.KindStake,
			AssetID:   pool.AssetID,
			Amount:    amount.String(),
			Sender:    ownerID,
			Recipient: poolID,
			StakingID: poolID,
		}
		if err := ledger.Record(tx, entry); err != nil {
			return err
		}

		result = &StakeResult{Position: position, Pool: pool}
		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("stake rejected")
		return nil, err
	}

	logger.Info().
		Str("position_id", result.Position.PositionID).
		Str("staked_amount", result.Position.StakedAmount).
		Str("total_staked", result.Pool.TotalStaked).
		Msg("stake accepted")

	return result, nil
}

// Unstake withdraws amount from an active position. The whole position is
// locked as a unit until its end date; partial unstakes before expiry are
// rejected outright. Pending reward settles before the stake shrinks, and a
// full exit pays the settled reward out in the same transaction so nothing
// is discarded.
func (s *Service) Unstake(positionID string, amount *big.Int) (result *UnstakeResult, err error) {
	defer func(start time.Time) { metrics.Observe("unstake", start, err) }(time.Now())

	logger := log.With().
		Str("position_id", positionID).
		Str("service", "staking").
		Logger()

	err = optimistic.Run(s.gormDB, optimistic.DefaultAttempts, func(tx *gorm.DB) error {
		position, err := s.db.GetPosition(tx, positionID)
		if err != nil {
			return err
		}
		if position.Status != StatusActive {
			return types.ErrNotFound
		}

		pool, err := s.db.GetPool(tx, position.PoolID)
		if err != nil {
			return err
		}

		if amount.Sign() <= 0 {
			return types.ErrInvalidAmount
		}

		now := s.clock()
		if position.EndDate != nil && now.Before(*position.EndDate) {
			return types.ErrLocked
		}

		staked, accrued, err := s.settleAccrual(position, pool.RewardRateAPRPermille, now)
		if err != nil {
			return err
		}
		if amount.Cmp(staked) > 0 {
			return types.ErrInsufficientStake
		}

		remaining := new(big.Int).Sub(staked, amount)
		removed := remaining.Sign() == 0
		rewardPaid := new(big.Int)

		if removed {
			rewardPaid.Set(accrued)
			position.Status = StatusClosed
			if err := s.db.DeletePositionConditioned(tx, position); err != nil {
				return err
			}
		} else {
			position.StakedAmount = remaining.String()
			position.RewardAccrued = accrued.String()
			if err := s.db.UpdatePositionConditioned(tx, position); err != nil {
				return err
			}
		}

		totalStaked, err := types.ParseAmount(pool.TotalStaked)
		if err != nil {
			return fmt.Errorf("corrupt pool %s total_staked: %w", pool.PoolID, err)
		}
		newTotal := new(big.Int).Sub(totalStaked, amount)
		if newTotal.Sign() < 0 {
			return types.ErrInsufficientReserve
		}
		pool.TotalStaked = newTotal.String()
		if err := s.db.UpdatePoolConditioned(tx, pool); err != nil {
			return err
		}

		entry := &ledger.Transaction{
			Kind:      ledger.KindUnstake,
			AssetID:   pool.AssetID,
			Amount:    types.Neg(amount),
			Sender:    pool.PoolID,
			Recipient: position.OwnerID,
			StakingID: pool.PoolID,
		}
		if err := ledger.Record(tx, entry); err != nil {
			return err
		}

		if rewardPaid.Sign() > 0 {
			payout := &ledger.Transaction{
				Kind:      ledger.KindClaimReward,
				AssetID:   pool.AssetID,
				Amount:    types.Neg(rewardPaid),
				Sender:    pool.PoolID,
				Recipient: position.OwnerID,
				StakingID: pool.PoolID,
			}
			if err := ledger.Record(tx, payout); err != nil {
				return err
			}
		}

		result = &UnstakeResult{
			AmountOut:       amount.String(),
			RewardPaid:      rewardPaid.String(),
			PositionRemoved: removed,
			Pool:            pool,
		}
		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("unstake rejected")
		return nil, err
	}

	logger.Info().
		Str("amount_out", result.AmountOut).
		Str("reward_paid", result.RewardPaid).
		Bool("position_removed", result.PositionRemoved).
		Msg("unstake completed")

	return result, nil
}

// Claim settles accrual up to now and pays out the full accrued reward.
// Fails with NothingToClaim when the new accrual floors to zero and no
// previously settled reward is pending.
func (s *Service) Claim(positionID string) (result *ClaimResult, err error) {
	defer func(start time.Time) { metrics.Observe("claim", start, err) }(time.Now())

	logger := log.With().
		Str("position_id", positionID).
		Str("service", "staking").
		Logger()

	err = optimistic.Run(s.gormDB, optimistic.DefaultAttempts, func(tx *gorm.DB) error {
		position, err := s.db.GetPosition(tx, positionID)
		if err != nil {
			return err
		}
		if position.Status != StatusActive {
			return types.ErrNotFound
		}

		pool, err := s.db.GetPool(tx, position.PoolID)
		if err != nil {
			return err
		}

		now := s.clock()
		_, accrued, err := s.settleAccrual(position, pool.RewardRateAPRPermille, now)
		if err != nil {
			return err
		}
		if accrued.Sign() == 0 {
			return types.ErrNothingToClaim
		}

		position.RewardAccrued = "0"
		if err := s.db.UpdatePositionConditioned(tx, position); err != nil {
			return err
		}

		entry := &ledger.Transaction{
			Kind:      ledger.KindClaimReward,
			AssetID:   pool.AssetID,
			Amount:    types.Neg(accrued),
			Sender:    pool.PoolID,
			Recipient: position.OwnerID,
			StakingID: pool.PoolID,
		}
		if err := ledger.Record(tx, entry); err != nil {
			return err
		}

		result = &ClaimResult{
			AmountClaimed: accrued.String(),
			Position:      position,
		}
		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("claim rejected")
		return nil, err
	}

	logger.Info().
		Str("amount_claimed", result.AmountClaimed).
		Msg("reward claimed")

	return result, nil
}

// ListPools returns all staking pools.
func (s *Service) ListPools() ([]Pool, error) {
	return s.db.ListPools()
}

// ListPositions returns an owner's staking positions.
func (s *Service) ListPositions(ownerID string) ([]Position, error) {
	return s.db.ListPositionsByOwner(ownerID)
}

// settleAccrual folds the reward earned since the last accrual into the
// position's pending balance, advancing the accrual clock by whole days
// only so partial days keep accruing toward the next settlement. The
// position is mutated in memory; the caller persists it.
func (s *Service) settleAccrual(position *Position, aprPermille int64, now time.Time) (staked, accrued *big.Int, err error) {
	staked, err = types.ParseAmount(position.StakedAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt position %s staked_amount: %w", position.PositionID, err)
	}
	accrued, err = types.ParseAmount(position.RewardAccrued)
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt position %s reward_accrued: %w", position.PositionID, err)
	}

	days := ElapsedDays(position.LastAccrualDate, now)
	if days > 0 {
		delta := AccruedReward(staked, aprPermille, days)
		accrued.Add(accrued, delta)
		position.LastAccrualDate = position.LastAccrualDate.Add(time.Duration(days) * hoursPerDay * time.Hour)
		position.RewardAccrued = accrued.String()
	}
	return staked, accrued, nil
}

// GinHandlers contains HTTP handlers for staking endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for staking endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

type createPoolRequest struct {
	AssetID        string `json:"asset_id" binding:"required"`
	APRPermille    int64  `json:"apr_permille"`
	MinStakeAmount string `json:"min_stake_amount"`
	LockPeriodDays int    `json:"lock_period_days"`
}

type stakeRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

type unstakeRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// CreatePoolHandler handles POST requests to create staking pools
// Requires internal authentication
func (h *GinHandlers) CreatePoolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPoolRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if req.MinStakeAmount == "" {
			req.MinStakeAmount = "0"
		}

		pool, err := h.service.CreatePool(req.AssetID, req.APRPermille, req.MinStakeAmount, req.LockPeriodDays)
		response.Handle(c, pool, err)
	}
}

// StakeHandler handles POST requests to stake into a pool
// URL parameter: pool_id
func (h *GinHandlers) StakeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stakeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		amount, err := types.ParsePositiveAmount(req.Amount)
		if err != nil {
			response.BadRequest(c, "amount must be a positive integer")
			return
		}

		result, err := h.service.Stake(c.Param("pool_id"), req.OwnerID, amount)
		response.Handle(c, result, err)
	}
}

// UnstakeHandler handles POST requests to unstake from a position
// URL parameter: position_id
func (h *GinHandlers) UnstakeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req unstakeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		amount, err := types.ParsePositiveAmount(req.Amount)
		if err != nil {
			response.BadRequest(c, "amount must be a positive integer")
			return
		}

		result, err := h.service.Unstake(c.Param("position_id"), amount)
		response.Handle(c, result, err)
	}
}

// ClaimHandler handles POST requests to claim accrued rewards
// URL parameter: position_id
func (h *GinHandlers) ClaimHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.Claim(c.Param("position_id"))
		response.Handle(c, result, err)
	}
}

// ListPoolsHandler handles GET requests for all staking pools
func (h *GinHandlers) ListPoolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pools, err := h.service.ListPools()
		response.Handle(c, pools, err)
	}
}

// ListPositionsHandler handles GET requests for an owner's staking positions
// Query parameter: owner_id
func (h *GinHandlers) ListPositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.Query("owner_id")
		if ownerID == "" {
			response.BadRequest(c, "owner_id is required")
			return
		}

		positions, err := h.service.ListPositions(ownerID)
		response.Handle(c, positions, err)
	}
}
