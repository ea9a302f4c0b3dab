package staking

import (
	"math/big"
	"testing"
	"time"
)

func TestElapsedDays(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		to   time.Time
		want int64
	}{
		{"same instant", base, 0},
		{"before", base.Add(-time.Hour), 0},
		{"under a day", base.Add(23 * time.Hour), 0},
		{"exactly one day", base.Add(24 * time.Hour), 1},
		{"one day and change", base.Add(36 * time.Hour), 1},
		{"ten days", base.Add(240 * time.Hour), 10},
		{"almost eleven days", base.Add(240*time.Hour + 23*time.Hour), 10},
		{"full year", base.AddDate(1, 0, 0), 365},
	}
	for _, tt := range tests {
		if got := ElapsedDays(base, tt.to); got != tt.want {
			t.Errorf("%s: expected %d days, got %d", tt.name, tt.want, got)
		}
	}
}

func TestAccruedReward(t *testing.T) {
	tests := []struct {
		name        string
		staked      int64
		aprPermille int64
		days        int64
		want        int64
	}{
		// 100000 * 100 * 365 / 365000 = 10000 exactly
		{"full year at 10 percent", 100000, 100, 365, 10000},
		// floor(100000 * 100 * 10 / 365000) = floor(273.97...) = 273
		{"ten days floors", 100000, 100, 10, 273},
		// floor(100000 * 100 * 1 / 365000) = floor(27.39...) = 27
		{"single day", 100000, 100, 1, 27},
		{"zero days", 100000, 100, 0, 0},
		{"zero rate", 100000, 0, 10, 0},
		{"zero stake", 0, 100, 10, 0},
		// tiny stake floors all the way to zero
		{"dust stake", 10, 100, 1, 0},
	}
	for _, tt := range tests {
		got := AccruedReward(big.NewInt(tt.staked), tt.aprPermille, tt.days)
		if got.Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("%s: expected %d, got %s", tt.name, tt.want, got)
		}
	}
}

func TestAccruedReward_NoIntermediateLoss(t *testing.T) {
	// Accruing day by day must never exceed a single accrual over the same
	// span, and the difference is only what the per-day floor discards.
	staked := big.NewInt(100000)
	total := new(big.Int)
	for i := 0; i < 365; i++ {
		total.Add(total, AccruedReward(staked, 100, 1))
	}
	single := AccruedReward(staked, 100, 365)
	if total.Cmp(single) > 0 {
		t.Errorf("daily accrual %s exceeds single-span accrual %s", total, single)
	}
}
