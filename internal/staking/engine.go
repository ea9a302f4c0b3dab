package staking

import (
	"math/big"
	"time"
)

const (
	hoursPerDay     = 24
	daysPerYear     = 365
	permilleDivisor = 1000
)

// ElapsedDays returns the number of whole 24-hour periods between two
// instants, flooring. Partial days never accrue.
func ElapsedDays(from, to time.Time) int64 {
	if !to.After(from) {
		return 0
	}
	return int64(to.Sub(from) / (hoursPerDay * time.Hour))
}

// AccruedReward computes floor(staked * aprPermille * elapsedDays / (1000 * 365)).
// The division happens once, after all multiplications, so no precision is
// lost to intermediate flooring and no float ever enters the calculation.
func AccruedReward(staked *big.Int, aprPermille, elapsedDays int64) *big.Int {
	if staked.Sign() <= 0 || aprPermille <= 0 || elapsedDays <= 0 {
		return new(big.Int)
	}
	reward := new(big.Int).Mul(staked, big.NewInt(aprPermille))
	reward.Mul(reward, big.NewInt(elapsedDays))
	return reward.Div(reward, big.NewInt(permilleDivisor*daysPerYear))
}
