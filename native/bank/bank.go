// Package bank holds the token balances the payment ledger custodies. Native
// coin is addressed by the zero token address; every other token behaves like
// an ERC20 contract with balances and allowances.
package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	ledgerstate "payledger/core/state"
)

// NativeToken is the token address of the native coin.
var NativeToken = common.Address{}

var (
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrTokenInsufficientBalance = errors.New("ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance    = errors.New("ERC20: insufficient allowance")
	ErrNativeAllowance          = errors.New("bank: native coin has no allowance")
	ErrNegativeAmount           = errors.New("bank: amount must not be negative")
)

// Ledger reads and writes balances through a staged state manager, so token
// movements commit or roll back with the operation that caused them.
type Ledger struct {
	state *ledgerstate.Manager
}

// New binds a ledger to the supplied state manager.
func New(manager *ledgerstate.Manager) *Ledger {
	return &Ledger{state: manager}
}

func (l *Ledger) load(key []byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, fmt.Errorf("bank: state manager required")
	}
	value := new(big.Int)
	ok, err := l.state.KVGet(key, value)
	if err != nil {
		return nil, fmt.Errorf("bank: load: %w", err)
	}
	if !ok {
		return new(big.Int), nil
	}
	return value, nil
}

func (l *Ledger) store(key []byte, value *big.Int) error {
	if value.Sign() == 0 {
		return l.state.KVDelete(key)
	}
	return l.state.KVPut(key, value)
}

// BalanceOf returns the balance holder has of token.
func (l *Ledger) BalanceOf(token, holder common.Address) (*big.Int, error) {
	return l.load(ledgerstate.BankBalanceKey(token, holder))
}

// Allowance returns how much spender may still move out of owner's balance.
func (l *Ledger) Allowance(token, owner, spender common.Address) (*big.Int, error) {
	if token == NativeToken {
		return new(big.Int), nil
	}
	return l.load(ledgerstate.BankAllowanceKey(token, owner, spender))
}

// Approve sets the allowance of spender over owner's token balance.
func (l *Ledger) Approve(token, owner, spender common.Address, amount *big.Int) error {
	if token == NativeToken {
		return ErrNativeAllowance
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if l == nil || l.state == nil {
		return fmt.Errorf("bank: state manager required")
	}
	return l.store(ledgerstate.BankAllowanceKey(token, owner, spender), new(big.Int).Set(amount))
}

// Credit mints amount of token to holder. It seeds genesis allocations.
func (l *Ledger) Credit(token, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	balance, err := l.BalanceOf(token, holder)
	if err != nil {
		return err
	}
	return l.store(ledgerstate.BankBalanceKey(token, holder), balance.Add(balance, amount))
}

// Transfer moves amount of token from one holder to another.
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBalance, err := l.BalanceOf(token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		if token == NativeToken {
			return ErrInsufficientBalance
		}
		return ErrTokenInsufficientBalance
	}
	if err := l.store(ledgerstate.BankBalanceKey(token, from), fromBalance.Sub(fromBalance, amount)); err != nil {
		return err
	}
	toBalance, err := l.BalanceOf(token, to)
	if err != nil {
		return err
	}
	return l.store(ledgerstate.BankBalanceKey(token, to), toBalance.Add(toBalance, amount))
}

// TransferFrom moves amount of token out of from's balance on behalf of
// spender, consuming allowance.
func (l *Ledger) TransferFrom(token, spender, from, to common.Address, amount *big.Int) error {
	if token == NativeToken {
		return ErrNativeAllowance
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	allowanceKey := ledgerstate.BankAllowanceKey(token, from, spender)
	allowance, err := l.load(allowanceKey)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.Transfer(token, from, to, amount); err != nil {
		return err
	}
	return l.store(allowanceKey, allowance.Sub(allowance, amount))
}
