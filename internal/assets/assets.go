// Package assets covers the asset boundary: creation, listing and plain
// balance transfers. These operations share no pool invariant, so they run
// as simple transactional writes without the optimistic coordinator.
package assets

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/naru6be1/PolkaVault/internal/ledger"
	"github.com/naru6be1/PolkaVault/internal/types"
	"github.com/naru6be1/PolkaVault/pkg/response"
)

// Service handles asset lifecycle and transfers.
type Service struct {
	db     *Database
	gormDB *gorm.DB
}

// NewService creates a new asset service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		gormDB: gormDB,
	}
}

// TransferResult is returned by a successful transfer.
type TransferResult struct {
	Transaction *ledger.Transaction `json:"transaction"`
	NewBalance  string              `json:"new_balance"`
}

// CreateAsset registers a new asset with its initial supply and records a
// creation ledger entry in the same transaction.
func (s *Service) CreateAsset(name, symbol string, decimals int, initialSupply, creator string) (*types.Asset, error) {
	if decimals < 0 || decimals > 18 {
		return nil, types.ErrInvalidAmount
	}
	supply, err := types.ParseAmount(initialSupply)
	if err != nil {
		return nil, err
	}

	asset := &types.Asset{
		AssetID:  "AST_" + uuid.New().String(),
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
		Balance:  supply.String(),
		Creator:  creator,
	}

	err = s.gormDB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(asset).Error; err != nil {
			return err
		}
		entry := &ledger.Transaction{
			Kind:      ledger.KindCreate,
			AssetID:   asset.AssetID,
			Amount:    asset.Balance,
			Sender:    creator,
			Recipient: creator,
		}
		return ledger.Record(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("asset_id", asset.AssetID).
		Str("symbol", symbol).
		Str("supply", asset.Balance).
		Msg("asset created")

	return asset, nil
}

// GetAsset retrieves an asset by its ID.
func (s *Service) GetAsset(assetID string) (*types.Asset, error) {
	return s.db.GetAsset(assetID)
}

// ListAssets returns all assets.
func (s *Service) ListAssets() ([]types.Asset, error) {
	return s.db.ListAssets()
}

// Transfer moves amount out of an asset's tracked balance and records the
// transfer, both in one transaction.
func (s *Service) Transfer(assetID, recipient string, amount *big.Int) (*TransferResult, error) {
	if amount.Sign() <= 0 {
		return nil, types.ErrInvalidAmount
	}

	var result *TransferResult
	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		asset, err := s.db.getAssetTx(tx, assetID)
		if err != nil {
			return err
		}

		balance, err := types.ParseAmount(asset.Balance)
		if err != nil {
			return fmt.Errorf("corrupt asset %s balance: %w", assetID, err)
		}
		if amount.Cmp(balance) > 0 {
			return types.ErrInsufficientReserve
		}

		newBalance := new(big.Int).Sub(balance, amount)
		if err := tx.Model(&types.Asset{}).
			Where("asset_id = ?", assetID).
			Update("balance", newBalance.String()).Error; err != nil {
			return err
		}

		entry := &ledger.Transaction{
			Kind:      ledger.KindTransfer,
			AssetID:   assetID,
			Amount:    types.Neg(amount),
			Sender:    asset.Creator,
			Recipient: recipient,
		}
		if err := ledger.Record(tx, entry); err != nil {
			return err
		}

		result = &TransferResult{
			Transaction: entry,
			NewBalance:  newBalance.String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("asset_id", assetID).
		Str("recipient", recipient).
		Str("amount", amount.String()).
		Msg("asset transferred")

	return result, nil
}

// Database wraps asset persistence.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetAsset(assetID string) (*types.Asset, error) {
	return d.getAssetTx(d.db, assetID)
}

func (d *Database) getAssetTx(tx *gorm.DB, assetID string) (*types.Asset, error) {
	var asset types.Asset
	if err := tx.Where("asset_id = ?", assetID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

func (d *Database) ListAssets() ([]types.Asset, error) {
	var assets []types.Asset
	if err := d.db.Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// GinHandlers contains HTTP handlers for asset endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for asset endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

type createAssetRequest struct {
	Name          string `json:"name" binding:"required"`
	Symbol        string `json:"symbol" binding:"required,max=10"`
	Decimals      int    `json:"decimals"`
	InitialSupply string `json:"initial_supply" binding:"required"`
	Creator       string `json:"creator" binding:"required"`
}

type transferRequest struct {
	AssetID   string `json:"asset_id" binding:"required"`
	Recipient string `json:"recipient" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

// CreateAssetHandler handles POST requests to create assets
func (h *GinHandlers) CreateAssetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createAssetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		asset, err := h.service.CreateAsset(req.Name, req.Symbol, req.Decimals, req.InitialSupply, req.Creator)
		response.Handle(c, asset, err)
	}
}

// GetAssetHandler handles GET requests for one asset
// URL parameter: asset_id
func (h *GinHandlers) GetAssetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, err := h.service.GetAsset(c.Param("asset_id"))
		response.Handle(c, asset, err)
	}
}

// ListAssetsHandler handles GET requests for all assets
func (h *GinHandlers) ListAssetsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assets, err := h.service.ListAssets()
		response.Handle(c, assets, err)
	}
}

// TransferHandler handles POST requests to transfer asset balance
func (h *GinHandlers) TransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		amount, err := types.ParsePositiveAmount(req.Amount)
		if err != nil {
			response.BadRequest(c, "amount must be a positive integer")
			return
		}

		result, err := h.service.Transfer(req.AssetID, req.Recipient, amount)
		response.Handle(c, result, err)
	}
}
