package types

import "math/big"

// Account tracks the fungible holdings of a marketplace participant. The
// marketplace settles exclusively in USDC (6 decimal fixed point), so a single
// balance field is sufficient.
type Account struct {
	Nonce       uint64   `json:"nonce"`
	BalanceUSDC *big.Int `json:"balanceUSDC"`
	Username    string   `json:"username"`
}

// EnsureAccount normalises a possibly nil account into a usable value with a
// non-nil balance.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		return &Account{BalanceUSDC: big.NewInt(0)}
	}
	if acc.BalanceUSDC == nil {
		acc.BalanceUSDC = big.NewInt(0)
	}
	return acc
}
