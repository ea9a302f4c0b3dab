package staking

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/naru6be1/PolkaVault/internal/ledger"
	"github.com/naru6be1/PolkaVault/internal/optimistic"
	"github.com/naru6be1/PolkaVault/internal/types"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestService returns a staking service with a frozen clock that tests
// advance explicitly.
func newTestService(t *testing.T) (*Service, *gorm.DB, *time.Time) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&types.Asset{},
		&ledger.Transaction{},
		&Pool{},
		&Position{},
	))

	require.NoError(t, db.Create(&types.Asset{
		AssetID: "asset-a", Name: "Token A", Symbol: "TKA", Decimals: 10, Balance: "0", Creator: "creator",
	}).Error)

	now := testStart
	svc := NewService(db)
	svc.clock = func() time.Time { return now }

	return svc, db, &now
}

func TestCreatePool_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreatePool("unknown", 100, "1000", 0)
	require.ErrorIs(t, err, types.ErrInvalidAsset)

	_, err = svc.CreatePool("asset-a", -1, "1000", 0)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = svc.CreatePool("asset-a", 100, "abc", 0)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 30)
	require.NoError(t, err)
	require.Equal(t, "0", pool.TotalStaked)
	require.Equal(t, 30, pool.LockPeriodDays)
}

func TestStake_BelowMinimumRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	_, err = svc.Stake(pool.PoolID, "alice", big.NewInt(999))
	require.ErrorIs(t, err, types.ErrBelowMinimum)

	_, err = svc.Stake(pool.PoolID, "alice", big.NewInt(1000))
	require.NoError(t, err)
}

func TestStake_MergeSettlesPendingReward(t *testing.T) {
	svc, _, now := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	first, err := svc.Stake(pool.PoolID, "alice", big.NewInt(100000))
	require.NoError(t, err)
	require.Equal(t, "100000", first.Position.StakedAmount)
	require.Equal(t, "0", first.Position.RewardAccrued)

	// Ten days later the merge settles floor(100000*100*10/365000) = 273
	// before the new amount joins the stake.
	*now = testStart.AddDate(0, 0, 10)
	second, err := svc.Stake(pool.PoolID, "alice", big.NewInt(50000))
	require.NoError(t, err)
	require.Equal(t, first.Position.PositionID, second.Position.PositionID)
	require.Equal(t, "150000", second.Position.StakedAmount)
	require.Equal(t, "273", second.Position.RewardAccrued)
	require.Equal(t, "150000", second.Pool.TotalStaked)
}

func TestUnstake_LockEnforced(t *testing.T) {
	svc, _, now := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 30)
	require.NoError(t, err)

	stake, err := svc.Stake(pool.PoolID, "alice", big.NewInt(100000))
	require.NoError(t, err)
	require.NotNil(t, stake.Position.EndDate)

	*now = testStart.AddDate(0, 0, 29)
	_, err = svc.Unstake(stake.Position.PositionID, big.NewInt(100000))
	require.ErrorIs(t, err, types.ErrLocked)

	*now = testStart.AddDate(0, 0, 31)
	result, err := svc.Unstake(stake.Position.PositionID, big.NewInt(100000))
	require.NoError(t, err)
	require.True(t, result.PositionRemoved)

	// A fresh stake after the exit starts a new lock clock.
	again, err := svc.Stake(pool.PoolID, "alice", big.NewInt(1000))
	require.NoError(t, err)
	require.NotEqual(t, stake.Position.PositionID, again.Position.PositionID)
	require.Equal(t, testStart.AddDate(0, 0, 31+30), *again.Position.EndDate)
}

func TestUnstake_InsufficientStake(t *testing.T) {
	svc, _, _ := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	stake, err := svc.Stake(pool.PoolID, "alice", big.NewInt(100000))
	require.NoError(t, err)

	_, err = svc.Unstake(stake.Position.PositionID, big.NewInt(100001))
	require.ErrorIs(t, err, types.ErrInsufficientStake)
}

func TestUnstake_PartialKeepsAccrual(t *testing.T) {
	svc, _, now := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	stake, err := svc.Stake(pool.PoolID, "alice", big.NewInt(100000))
	require.NoError(t, err)

	*now = testStart.AddDate(0, 0, 10)
	result, err := svc.Unstake(stake.Position.PositionID, big.NewInt(40000))
	require.NoError(t, err)
	require.False(t, result.PositionRemoved)
	require.Equal(t, "40000", result.AmountOut)
	require.Equal(t, "0", result.RewardPaid)
	require.Equal(t, "60000", result.Pool.TotalStaked)

	// The settled 273 stays on the position for a later claim.
	claim, err := svc.Claim(stake.Position.PositionID)
	require.NoError(t, err)
	require.Equal(t, "273", claim.AmountClaimed)
}

func TestUnstake_FullExitPaysReward(t *testing.T) {
	svc, db, now := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	stake, err := svc.Stake(pool.PoolID, "alice", big.NewInt(100000))
	require.NoError(t, err)

	*now = testStart.AddDate(1, 0, 0)
	result, err := svc.Unstake(stake.Position.PositionID, big.NewInt(100000))
	require.NoError(t, err)
	require.True(t, result.PositionRemoved)
	require.Equal(t, "100000", result.AmountOut)
	require.Equal(t, "10000", result.RewardPaid)
	require.Equal(t, "0", result.Pool.TotalStaked)

	var count int64
	require.NoError(t, db.Model(&Position{}).Where("position_id = ?", stake.Position.PositionID).Count(&count).Error)
	require.Zero(t, count)

	// One outgoing unstake entry and one reward payout entry.
	var unstakeEntry ledger.Transaction
	require.NoError(t, db.Where("kind = ?", ledger.KindUnstake).First(&unstakeEntry).Error)
	require.Equal(t, "-100000", unstakeEntry.Amount)
	require.Equal(t, "alice", unstakeEntry.Recipient)

	var payout ledger.Transaction
	require.NoError(t, db.Where("kind = ?", ledger.KindClaimReward).First(&payout).Error)
	require.Equal(t, "-10000", payout.Amount)

	_, err = svc.Unstake(stake.Position.PositionID, big.NewInt(1))
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestClaim_FullYearDeterministic(t *testing.T) {
	svc, db, now := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	stake, err := svc.Stake(pool.PoolID, "alice", big.NewInt(100000))
	require.NoError(t, err)

	// 100000 at 100 permille over 365 days pays exactly 10000.
	*now = testStart.AddDate(1, 0, 0)
	claim, err := svc.Claim(stake.Position.PositionID)
	require.NoError(t, err)
	require.Equal(t, "10000", claim.AmountClaimed)
	require.Equal(t, "0", claim.Position.RewardAccrued)

	var payout ledger.Transaction
	require.NoError(t, db.Where("kind = ?", ledger.KindClaimReward).First(&payout).Error)
	require.Equal(t, "-10000", payout.Amount)
	require.Equal(t, pool.PoolID, payout.StakingID)

	// Claiming again the same day finds nothing pending.
	_, err = svc.Claim(stake.Position.PositionID)
	require.ErrorIs(t, err, types.ErrNothingToClaim)
}

func TestClaim_SameDayNothingToClaim(t *testing.T) {
	svc, _, _ := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	stake, err := svc.Stake(pool.PoolID, "alice", big.NewInt(100000))
	require.NoError(t, err)

	_, err = svc.Claim(stake.Position.PositionID)
	require.ErrorIs(t, err, types.ErrNothingToClaim)
}

func TestClaim_PartialDayKeepsAccruing(t *testing.T) {
	svc, _, now := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	stake, err := svc.Stake(pool.PoolID, "alice", big.NewInt(100000))
	require.NoError(t, err)

	// Settling at 1.5 days advances the accrual clock one whole day, so the
	// half day is not forfeited and completes at the 2-day mark.
	*now = testStart.Add(36 * time.Hour)
	first, err := svc.Claim(stake.Position.PositionID)
	require.NoError(t, err)
	require.Equal(t, "27", first.AmountClaimed)

	*now = testStart.Add(48 * time.Hour)
	second, err := svc.Claim(stake.Position.PositionID)
	require.NoError(t, err)
	require.Equal(t, "27", second.AmountClaimed)
}

func TestCreatePosition_OnlyDuplicateMapsToConflict(t *testing.T) {
	svc, db, _ := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	// The (owner, pool) unique index turns a racing first stake into a
	// retryable conflict; other insert errors pass through.
	first := &Position{
		PositionID: "SPOS_one", OwnerID: "alice", PoolID: pool.PoolID,
		StakedAmount: "1000", RewardAccrued: "0", StartDate: testStart, LastAccrualDate: testStart, Status: StatusActive,
	}
	require.NoError(t, svc.db.CreatePosition(db, first))
	dup := &Position{
		PositionID: "SPOS_two", OwnerID: "alice", PoolID: pool.PoolID,
		StakedAmount: "1000", RewardAccrued: "0", StartDate: testStart, LastAccrualDate: testStart, Status: StatusActive,
	}
	require.ErrorIs(t, svc.db.CreatePosition(db, dup), optimistic.ErrConflict)

	require.NoError(t, db.Migrator().DropTable(&Position{}))
	broken := &Position{PositionID: "SPOS_three", OwnerID: "bob", PoolID: pool.PoolID, StakedAmount: "1000"}
	err = svc.db.CreatePosition(db, broken)
	require.Error(t, err)
	require.NotErrorIs(t, err, optimistic.ErrConflict)
}

func TestListPositions(t *testing.T) {
	svc, _, _ := newTestService(t)

	pool, err := svc.CreatePool("asset-a", 100, "1000", 0)
	require.NoError(t, err)

	_, err = svc.Stake(pool.PoolID, "alice", big.NewInt(100000))
	require.NoError(t, err)

	positions, err := svc.ListPositions("alice")
	require.NoError(t, err)
	require.Len(t, positions, 1)

	positions, err = svc.ListPositions("bob")
	require.NoError(t, err)
	require.Empty(t, positions)
}
