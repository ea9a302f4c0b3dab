package liquidity

import (
	"fmt"
	"math/big"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/naru6be1/PolkaVault/internal/ledger"
	"github.com/naru6be1/PolkaVault/internal/metrics"
	"github.com/naru6be1/PolkaVault/internal/optimistic"
	"github.com/naru6be1/PolkaVault/internal/types"
	"github.com/naru6be1/PolkaVault/pkg/response"
)

// Service handles liquidity pool accounting: pool creation, share-minting
// deposits and proportional withdrawals.
type Service struct {
	db     *Database
	gormDB *gorm.DB
}

// NewService creates a new liquidity service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		gormDB: gormDB,
	}
}

// CreatePool registers a pool for an unordered asset pair. The pair must be
// two distinct, known assets and must not already have a pool.
func (s *Service) CreatePool(assetAID, assetBID string, feeRateBps int64) (*Pool, error) {
	if assetAID == assetBID {
		return nil, types.ErrInvalidAsset
	}
	if feeRateBps < 0 || feeRateBps >= 10000 {
		return nil, types.ErrInvalidAmount
	}
	if _, err := s.db.GetAsset(assetAID); err != nil {
		return nil, err
	}
	if _, err := s.db.GetAsset(assetBID); err != nil {
		return nil, err
	}
	if existing, err := s.db.GetPoolByPair(assetAID, assetBID); err == nil && existing != nil {
		return nil, types.ErrDuplicatePool
	}

	pool := &Pool{
		PoolID:        "POOL_" + uuid.New().String(),
		AssetAID:      assetAID,
		AssetBID:      assetBID,
		PairKey:       PairKey(assetAID, assetBID),
		ReserveA:      "0",
		ReserveB:      "0",
		LPTokenSupply: "0",
		FeeRateBps:    feeRateBps,
	}

	if err := s.db.CreatePool(pool); err != nil {
		// The unique pair index backstops a racing creation.
		return nil, types.ErrDuplicatePool
	}

	log.Info().
		Str("pool_id", pool.PoolID).
		Str("asset_a", assetAID).
		Str("asset_b", assetBID).
		Int64("fee_rate_bps", feeRateBps).
		Msg("liquidity pool created")

	return pool, nil
}

// Deposit adds (amountA, amountB) to a pool and credits the owner with the
// minted LP shares, merging into any existing position. Both reserves, the
// supply, the position and the two ledger entries commit atomically.
func (s *Service) Deposit(poolID, ownerID string, amountA, amountB *big.Int) (result *DepositResult, err error) {
	defer func(start time.Time) { metrics.Observe("deposit", start, err) }(time.Now())

	logger := log.With().
		Str("pool_id", poolID).
		Str("owner_id", ownerID).
		Str("service", "liquidity").
		Logger()

	err = optimistic.Run(s.gormDB, optimistic.DefaultAttempts, func(tx *gorm.DB) error {
		pool, err := s.db.GetPool(tx, poolID)
		if err != nil {
			return err
		}

		reserveA, reserveB, supply, err := poolNumbers(pool)
		if err != nil {
			return err
		}

		minted, err := MintedShares(reserveA, reserveB, supply, amountA, amountB)
		if err != nil {
			return err
		}

		position, err := s.db.GetPositionForOwner(tx, ownerID, poolID)
		if err != nil {
			return err
		}

		if position == nil {
			position = &Position{
				PositionID: "LPOS_" + uuid.New().String(),
				OwnerID:    ownerID,
				PoolID:     poolID,
				LPTokens:   minted.String(),
			}
			if err := s.db.CreatePosition(tx, position); err != nil {
				return err
			}
		} else {
			held, err := types.ParseAmount(position.LPTokens)
			if err != nil {
				return fmt.Errorf("corrupt position %s: %w", position.PositionID, err)
			}
			position.LPTokens = new(big.Int).Add(held, minted).String()
			if err := s.db.UpdatePositionConditioned(tx, position); err != nil {
				return err
			}
		}

		pool.ReserveA = new(big.Int).Add(reserveA, amountA).String()
		pool.ReserveB = new(big.Int).Add(reserveB, amountB).String()
		pool.LPTokenSupply = new(big.Int).Add(supply, minted).String()
		if err := s.db.UpdatePoolConditioned(tx, pool); err != nil {
			return err
		}

		for _, leg := range []struct {
			assetID string
			amount  *big.Int
		}{
			{pool.AssetAID, amountA},
			{pool.AssetBID, amountB},
		} {
			entry := &ledger.Transaction{
				Kind:      ledger.KindProvideLiquidity,
				AssetID:   leg.assetID,
				Amount:    leg.amount.String(),
				Sender:    ownerID,
				Recipient: poolID,
				PoolID:    poolID,
			}
			if err := ledger.Record(tx, entry); err != nil {
				return err
			}
		}

		result = &DepositResult{
			MintedShares: minted.String(),
			Position:     position,
			Pool:         pool,
		}
		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("deposit rejected")
		return nil, err
	}

	logger.Info().
		Str("minted_shares", result.MintedShares).
		Str("lp_token_supply", result.Pool.LPTokenSupply).
		Msg("liquidity deposited")

	return result, nil
}

// Withdraw burns floor(lpTokens * percentage) of a position's shares and
// pays out the proportional slice of both reserves. Burning the entire
// supply empties the pool exactly; a position drained to zero is deleted.
func (s *Service) Withdraw(positionID string, percentage decimal.Decimal) (result *WithdrawResult, err error) {
	defer func(start time.Time) { metrics.Observe("withdraw", start, err) }(time.Now())

	logger := log.With().
		Str("position_id", positionID).
		Str("service", "liquidity").
		Logger()

	err = optimistic.Run(s.gormDB, optimistic.DefaultAttempts, func(tx *gorm.DB) error {
		position, err := s.db.GetPosition(tx, positionID)
		if err != nil {
			return err
		}

		pool, err := s.db.GetPool(tx, position.PoolID)
		if err != nil {
			return err
		}

		held, err := types.ParseAmount(position.LPTokens)
		if err != nil {
			return fmt.Errorf("corrupt position %s: %w", position.PositionID, err)
		}

		burn, err := SharesToBurn(held, percentage)
		if err != nil {
			return err
		}

		reserveA, reserveB, supply, err := poolNumbers(pool)
		if err != nil {
			return err
		}

		amountAOut, amountBOut := WithdrawAmounts(reserveA, reserveB, supply, burn)

		newReserveA := new(big.Int).Sub(reserveA, amountAOut)
		newReserveB := new(big.Int).Sub(reserveB, amountBOut)
		newSupply := new(big.Int).Sub(supply, burn)
		if newReserveA.Sign() < 0 || newReserveB.Sign() < 0 || newSupply.Sign() < 0 {
			return types.ErrInsufficientReserve
		}

		remaining := new(big.Int).Sub(held, burn)
		removed := remaining.Sign() == 0
		if removed {
			if err := s.db.DeletePositionConditioned(tx, position); err != nil {
				return err
			}
		} else {
			position.LPTokens = remaining.String()
			if err := s.db.UpdatePositionConditioned(tx, position); err != nil {
				return err
			}
		}

		pool.ReserveA = newReserveA.String()
		pool.ReserveB = newReserveB.String()
		pool.LPTokenSupply = newSupply.String()
		if err := s.db.UpdatePoolConditioned(tx, pool); err != nil {
			return err
		}

		for _, leg := range []struct {
			assetID string
			amount  *big.Int
		}{
			{pool.AssetAID, amountAOut},
			{pool.AssetBID, amountBOut},
		} {
			entry := &ledger.Transaction{
				Kind:      ledger.KindWithdrawLiquidity,
				AssetID:   leg.assetID,
				Amount:    types.Neg(leg.amount),
				Sender:    pool.PoolID,
				Recipient: position.OwnerID,
				PoolID:    pool.PoolID,
			}
			if err := ledger.Record(tx, entry); err != nil {
				return err
			}
		}

		result = &WithdrawResult{
			AmountAOut:      amountAOut.String(),
			AmountBOut:      amountBOut.String(),
			BurnedShares:    burn.String(),
			PositionRemoved: removed,
			Pool:            pool,
		}
		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("withdrawal rejected")
		return nil, err
	}

	logger.Info().
		Str("amount_a_out", result.AmountAOut).
		Str("amount_b_out", result.AmountBOut).
		Bool("position_removed", result.PositionRemoved).
		Msg("liquidity withdrawn")

	return result, nil
}

// ListPools returns all liquidity pools.
func (s *Service) ListPools() ([]Pool, error) {
	return s.db.ListPools()
}

// GetPoolOverview returns one pool with its current price ratio and the
// positions holding its shares.
func (s *Service) GetPoolOverview(poolID string) (*PoolOverview, error) {
	pool, err := s.db.GetPool(s.gormDB, poolID)
	if err != nil {
		return nil, err
	}

	reserveA, reserveB, _, err := poolNumbers(pool)
	if err != nil {
		return nil, err
	}

	positions, err := s.db.ListPositionsByPool(poolID)
	if err != nil {
		return nil, err
	}

	return &PoolOverview{
		Pool:       pool,
		PriceRatio: PriceRatio(reserveA, reserveB).String(),
		Positions:  positions,
	}, nil
}

// ListPositions returns an owner's liquidity positions.
func (s *Service) ListPositions(ownerID string) ([]Position, error) {
	return s.db.ListPositionsByOwner(ownerID)
}

func poolNumbers(pool *Pool) (reserveA, reserveB, supply *big.Int, err error) {
	if reserveA, err = types.ParseAmount(pool.ReserveA); err != nil {
		return nil, nil, nil, fmt.Errorf("corrupt pool %s reserve_a: %w", pool.PoolID, err)
	}
	if reserveB, err = types.ParseAmount(pool.ReserveB); err != nil {
		return nil, nil, nil, fmt.Errorf("corrupt pool %s reserve_b: %w", pool.PoolID, err)
	}
	if supply, err = types.ParseAmount(pool.LPTokenSupply); err != nil {
		return nil, nil, nil, fmt.Errorf("corrupt pool %s lp_token_supply: %w", pool.PoolID, err)
	}
	return reserveA, reserveB, supply, nil
}

// GinHandlers contains HTTP handlers for liquidity endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for liquidity endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

type createPoolRequest struct {
	AssetAID   string `json:"asset_a_id" binding:"required"`
	AssetBID   string `json:"asset_b_id" binding:"required"`
	FeeRateBps int64  `json:"fee_rate_bps"`
}

type depositRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
	AmountA string `json:"amount_a" binding:"required"`
	AmountB string `json:"amount_b" binding:"required"`
}

type withdrawRequest struct {
	Percentage string `json:"percentage" binding:"required"`
}

// CreatePoolHandler handles POST requests to create liquidity pools
// Requires internal authentication
func (h *GinHandlers) CreatePoolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPoolRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		pool, err := h.service.CreatePool(req.AssetAID, req.AssetBID, req.FeeRateBps)
		response.Handle(c, pool, err)
	}
}

// DepositHandler handles POST requests to provide liquidity
// URL parameter: pool_id
func (h *GinHandlers) DepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req depositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		amountA, err := types.ParsePositiveAmount(req.AmountA)
		if err != nil {
			response.BadRequest(c, "amount_a must be a positive integer")
			return
		}
		amountB, err := types.ParsePositiveAmount(req.AmountB)
		if err != nil {
			response.BadRequest(c, "amount_b must be a positive integer")
			return
		}

		result, err := h.service.Deposit(c.Param("pool_id"), req.OwnerID, amountA, amountB)
		response.Handle(c, result, err)
	}
}

// WithdrawHandler handles POST requests to remove liquidity
// URL parameter: position_id
func (h *GinHandlers) WithdrawHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req withdrawRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		percentage, err := decimal.NewFromString(req.Percentage)
		if err != nil {
			response.BadRequest(c, "percentage must be a decimal in (0, 1]")
			return
		}

		result, err := h.service.Withdraw(c.Param("position_id"), percentage)
		response.Handle(c, result, err)
	}
}

// ListPoolsHandler handles GET requests for all pools
func (h *GinHandlers) ListPoolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pools, err := h.service.ListPools()
		response.Handle(c, pools, err)
	}
}

// GetPoolHandler handles GET requests for one pool's detail view
// URL parameter: pool_id
func (h *GinHandlers) GetPoolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := h.service.GetPoolOverview(c.Param("pool_id"))
		response.Handle(c, overview, err)
	}
}

// ListPositionsHandler handles GET requests for an owner's positions
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
