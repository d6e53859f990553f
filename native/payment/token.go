package payment

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// The token collaborator shares the ledger's state, so token calls are
// serialised with ledger operations and a failed ledger call never leaves a
// half-applied token movement behind.

// Allocate credits holder with amount of token. Genesis uses it to seed
// balances.
func (e *Engine) Allocate(token, holder common.Address, amount *big.Int) error {
	return e.execute(func(tx *txn) error {
		return tx.bank.Credit(token, holder, amount)
	})
}

// Approve lets the ledger or any other spender pull amount of token from
// owner.
func (e *Engine) Approve(owner, token, spender common.Address, amount *big.Int) error {
	return e.execute(func(tx *txn) error {
		return tx.bank.Approve(token, owner, spender, amount)
	})
}

// TokenTransfer moves amount of token between two wallets outside the ledger.
func (e *Engine) TokenTransfer(from, token, to common.Address, amount *big.Int) error {
	return e.execute(func(tx *txn) error {
		return tx.bank.Transfer(token, from, to, amount)
	})
}

// TokenBalance returns the wallet balance of holder in token.
func (e *Engine) TokenBalance(token, holder common.Address) (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx *txn) error {
		var err error
		out, err = tx.bank.BalanceOf(token, holder)
		return err
	})
	return out, err
}

// TokenAllowance returns how much spender may still pull from owner.
func (e *Engine) TokenAllowance(token, owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx *txn) error {
		var err error
		out, err = tx.bank.Allowance(token, owner, spender)
		return err
	})
	return out, err
}
