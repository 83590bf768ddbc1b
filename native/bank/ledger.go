package bank

import (
	"errors"
	"math/big"
	"sync"

	"popmarket/core/types"
	"popmarket/native/access"
)

// Decimals is the fixed-point precision of the settlement currency. All
// marketplace prices and amounts are expressed in these units.
const Decimals = 6

var (
	ErrUnauthorized          = errors.New("bank: unauthorized")
	ErrInvalidAmount         = errors.New("bank: amount must be positive")
	ErrInsufficientBalance   = errors.New("bank: insufficient balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
)

type roleView interface {
	HasRole(role string, addr []byte) bool
}

type allowanceKey struct {
	owner   [20]byte
	spender [20]byte
}

// Ledger is the stablecoin balance and allowance ledger backing marketplace
// settlement. Transfers debit and credit atomically under a single lock so no
// partial movement is observable.
type Ledger struct {
	mu         sync.Mutex
	accounts   map[[20]byte]*types.Account
	allowances map[allowanceKey]*big.Int
	roles      roleView
}

// NewLedger constructs an empty ledger. Minting is gated by the supplied role
// oracle.
func NewLedger(roles roleView) *Ledger {
	return &Ledger{
		accounts:   make(map[[20]byte]*types.Account),
		allowances: make(map[allowanceKey]*big.Int),
		roles:      roles,
	}
}

func (l *Ledger) accountLocked(addr [20]byte) *types.Account {
	acc, ok := l.accounts[addr]
	if !ok {
		acc = types.EnsureAccount(nil)
		l.accounts[addr] = acc
	}
	return types.EnsureAccount(acc)
}

// Mint credits freshly issued units to the recipient. Admin gated.
func (l *Ledger) Mint(caller [20]byte, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if l.roles == nil || !l.roles.HasRole(access.RoleAdmin, caller[:]) {
		return ErrUnauthorized
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := l.accountLocked(to)
	acc.BalanceUSDC = new(big.Int).Add(acc.BalanceUSDC, amount)
	return nil
}

// BalanceOf returns the address balance.
func (l *Ledger) BalanceOf(addr [20]byte) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[addr]
	if !ok || acc.BalanceUSDC == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(acc.BalanceUSDC)
}

// Approve sets the allowance the spender may pull from the owner.
func (l *Ledger) Approve(owner [20]byte, spender [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{owner, spender}] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns the remaining allowance from owner to spender.
func (l *Ledger) Allowance(owner [20]byte, spender [20]byte) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amt, ok := l.allowances[allowanceKey{owner, spender}]; ok {
		return new(big.Int).Set(amt)
	}
	return big.NewInt(0)
}

// Transfer moves amount from one address to another.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, amount)
}

// TransferFrom moves amount from the owner to the destination on behalf of the
// spender, consuming the spender's allowance.
func (l *Ledger) TransferFrom(spender [20]byte, owner [20]byte, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := allowanceKey{owner, spender}
	allowed, ok := l.allowances[k]
	if !ok || allowed.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.transferLocked(owner, to, amount); err != nil {
		return err
	}
	l.allowances[k] = new(big.Int).Sub(allowed, amount)
	return nil
}

func (l *Ledger) transferLocked(from, to [20]byte, amount *big.Int) error {
	fromAcc := l.accountLocked(from)
	if fromAcc.BalanceUSDC.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc := l.accountLocked(to)
	fromAcc.BalanceUSDC = new(big.Int).Sub(fromAcc.BalanceUSDC, amount)
	toAcc.BalanceUSDC = new(big.Int).Add(toAcc.BalanceUSDC, amount)
	return nil
}
