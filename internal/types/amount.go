package types

import "math/big"

// ParseAmount parses a base-unit quantity. Returns ErrInvalidAmount for
// anything that is not a non-negative integer.
func ParseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return n, nil
}

// ParsePositiveAmount is ParseAmount restricted to strictly positive values.
func ParsePositiveAmount(s string) (*big.Int, error) {
	n, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	if n.Sign() == 0 {
		return nil, ErrInvalidAmount
	}
	return n, nil
}

// Neg formats a quantity as a ledger outflow ("-<amount>").
func Neg(n *big.Int) string {
	return new(big.Int).Neg(n).String()
}
