package liquidity

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/naru6be1/PolkaVault/internal/types"
)

// b is a test helper for creating big integers from int64.
func b(n int64) *big.Int {
	return big.NewInt(n)
}

func TestMintedShares_BootstrapSqrt(t *testing.T) {
	minted, err := MintedShares(b(0), b(0), b(0), b(1000), b(4000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted.Cmp(b(2000)) != 0 {
		t.Errorf("expected 2000 shares for sqrt(1000*4000), got %s", minted)
	}
}

func TestMintedShares_BootstrapFloorsSqrt(t *testing.T) {
	// sqrt(10*10) = 10, sqrt(10*11) = 10.48... -> 10
	minted, err := MintedShares(b(0), b(0), b(0), b(10), b(11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted.Cmp(b(10)) != 0 {
		t.Errorf("expected floor(sqrt(110)) = 10, got %s", minted)
	}
}

func TestMintedShares_ProportionalDeposit(t *testing.T) {
	minted, err := MintedShares(b(1000), b(4000), b(2000), b(500), b(2000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted.Cmp(b(1000)) != 0 {
		t.Errorf("expected 1000 shares for a same-ratio deposit, got %s", minted)
	}
}

func TestMintedShares_ImbalancedDepositCreditsLimitingSide(t *testing.T) {
	// byA = 500*2000/1000 = 1000, byB = 1000*2000/4000 = 500
	minted, err := MintedShares(b(1000), b(4000), b(2000), b(500), b(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted.Cmp(b(500)) != 0 {
		t.Errorf("expected the limiting side (500 shares), got %s", minted)
	}
}

func TestMintedShares_TooSmallRoundsToZero(t *testing.T) {
	_, err := MintedShares(b(1000), b(1000), b(10), b(1), b(1))
	if !errors.Is(err, types.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for a deposit that mints 0 shares, got %v", err)
	}
}

func TestMintedShares_NonPositiveAmounts(t *testing.T) {
	for _, tt := range []struct {
		amountA, amountB int64
	}{
		{0, 100},
		{100, 0},
		{-5, 100},
	} {
		_, err := MintedShares(b(0), b(0), b(0), b(tt.amountA), b(tt.amountB))
		if !errors.Is(err, types.ErrInvalidAmount) {
			t.Errorf("amounts (%d, %d): expected ErrInvalidAmount, got %v", tt.amountA, tt.amountB, err)
		}
	}
}

func TestSharesToBurn(t *testing.T) {
	tests := []struct {
		lpTokens   int64
		percentage string
		want       int64
		wantErr    bool
	}{
		{100, "0.5", 50, false},
		{100, "1", 100, false},
		{101, "0.5", 50, false}, // floors
		{100, "0", 0, true},
		{100, "-0.1", 0, true},
		{100, "1.1", 0, true},
		{1, "0.4", 0, true}, // rounds to zero
	}
	for _, tt := range tests {
		pct, err := decimal.NewFromString(tt.percentage)
		if err != nil {
			t.Fatalf("bad percentage %q: %v", tt.percentage, err)
		}
		burn, err := SharesToBurn(b(tt.lpTokens), pct)
		if tt.wantErr {
			if !errors.Is(err, types.ErrInvalidAmount) {
				t.Errorf("lp=%d pct=%s: expected ErrInvalidAmount, got %v", tt.lpTokens, tt.percentage, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("lp=%d pct=%s: unexpected error: %v", tt.lpTokens, tt.percentage, err)
			continue
		}
		if burn.Cmp(b(tt.want)) != 0 {
			t.Errorf("lp=%d pct=%s: expected %d, got %s", tt.lpTokens, tt.percentage, tt.want, burn)
		}
	}
}

func TestWithdrawAmounts_Proportional(t *testing.T) {
	aOut, bOut := WithdrawAmounts(b(1000), b(4000), b(2000), b(1000))
	if aOut.Cmp(b(500)) != 0 || bOut.Cmp(b(2000)) != 0 {
		t.Errorf("expected (500, 2000), got (%s, %s)", aOut, bOut)
	}
}

func TestWithdrawAmounts_FullBurnLeavesNoDust(t *testing.T) {
	// Odd reserves that would leave dust through the ratio formula.
	aOut, bOut := WithdrawAmounts(b(1001), b(3999), b(2000), b(2000))
	if aOut.Cmp(b(1001)) != 0 || bOut.Cmp(b(3999)) != 0 {
		t.Errorf("full burn must pay exact reserves, got (%s, %s)", aOut, bOut)
	}
}

func TestWithdrawAmounts_FloorsPartialBurn(t *testing.T) {
	// 1001 * 999 / 2000 = 499.99... -> 499
	aOut, _ := WithdrawAmounts(b(1001), b(3999), b(2000), b(999))
	if aOut.Cmp(b(499)) != 0 {
		t.Errorf("expected floored payout 499, got %s", aOut)
	}
}

func TestPriceRatio_EmptyPool(t *testing.T) {
	if !PriceRatio(b(0), b(0)).IsZero() {
		t.Error("empty pool should report zero price ratio")
	}
}
