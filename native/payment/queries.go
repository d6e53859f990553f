package payment

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UserAccount returns the balances of account in token.
func (e *Engine) UserAccount(account common.Hash, token common.Address) (UserAccount, error) {
	var out UserAccount
	err := e.view(func(tx *txn) error {
		acct, err := tx.store.userAccount(account, token)
		if err != nil {
			return err
		}
		out = acct.Clone()
		return nil
	})
	return out, err
}

// GetBalance returns the custodied total of token.
func (e *Engine) GetBalance(token common.Address) (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx *txn) error {
		var err error
		out, err = tx.bank.BalanceOf(token, e.address)
		return err
	})
	return out, err
}

// GetUserAssets returns the balances of account for each token, in order.
func (e *Engine) GetUserAssets(account common.Hash, tokens []common.Address) ([]UserAccount, error) {
	rows, err := e.GetMultiUserAssets([]common.Hash{account}, tokens)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// GetMultiUserAssets returns one row per account holding the balances for
// each token, in order.
func (e *Engine) GetMultiUserAssets(accounts []common.Hash, tokens []common.Address) ([][]UserAccount, error) {
	out := make([][]UserAccount, len(accounts))
	err := e.view(func(tx *txn) error {
		for i, account := range accounts {
			row := make([]UserAccount, len(tokens))
			for j, token := range tokens {
				acct, err := tx.store.userAccount(account, token)
				if err != nil {
					return err
				}
				row[j] = acct.Clone()
			}
			out[i] = row
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
