package ledger

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/naru6be1/PolkaVault/pkg/response"
)

// Record appends a confirmed ledger entry inside the caller's transaction.
// The entry commits or rolls back together with the state change it
// documents; hash, status and timestamp are filled in here.
func Record(tx *gorm.DB, entry *Transaction) error {
	entry.Hash = NewHash()
	entry.Status = StatusConfirmed
	entry.Timestamp = time.Now()
	return tx.Create(entry).Error
}

// Service exposes read access to the transaction ledger.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListTransactions returns all ledger entries, newest first.
func (s *Service) ListTransactions() ([]Transaction, error) {
	var txns []Transaction
	if err := s.db.Order("timestamp DESC").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// ListTransactionsByAsset returns ledger entries for one asset, newest first.
func (s *Service) ListTransactionsByAsset(assetID string) ([]Transaction, error) {
	var txns []Transaction
	if err := s.db.Where("asset_id = ?", assetID).Order("timestamp DESC").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// GinHandlers contains HTTP handlers for ledger endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

func (h *GinHandlers) ListTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		txns, err := h.service.ListTransactions()
		response.Handle(c, txns, err)
	}
}

func (h *GinHandlers) ListAssetTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assetID := c.Param("asset_id")

		txns, err := h.service.ListTransactionsByAsset(assetID)
		response.Handle(c, txns, err)
	}
}
