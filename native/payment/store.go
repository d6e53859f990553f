package payment

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	ledgerstate "payledger/core/state"
)

// store maps ledger records onto the staged state manager.
type store struct {
	state *ledgerstate.Manager
}

type storedUserAccount struct {
	Available *big.Int
	Frozen    *big.Int
}

func (s *store) settings() (*Settings, error) {
	settings := new(Settings)
	ok, err := s.state.KVGet(ledgerstate.PaymentSettingsKey(), settings)
	if err != nil {
		return nil, fmt.Errorf("payment: load settings: %w", err)
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return settings, nil
}

func (s *store) putSettings(settings *Settings) error {
	return s.state.KVPut(ledgerstate.PaymentSettingsKey(), settings)
}

func (s *store) userAccount(account common.Hash, token common.Address) (*UserAccount, error) {
	stored := new(storedUserAccount)
	ok, err := s.state.KVGet(ledgerstate.PaymentAccountKey(account, token), stored)
	if err != nil {
		return nil, fmt.Errorf("payment: load account: %w", err)
	}
	if !ok {
		return (&UserAccount{}).normalize(), nil
	}
	return (&UserAccount{Available: stored.Available, Frozen: stored.Frozen}).normalize(), nil
}

func (s *store) putUserAccount(account common.Hash, token common.Address, acct *UserAccount) error {
	acct = acct.normalize()
	key := ledgerstate.PaymentAccountKey(account, token)
	if acct.Available.Sign() == 0 && acct.Frozen.Sign() == 0 {
		return s.state.KVDelete(key)
	}
	return s.state.KVPut(key, &storedUserAccount{Available: acct.Available, Frozen: acct.Frozen})
}

func (s *store) accountOf(wallet common.Address) (common.Hash, bool, error) {
	var account common.Hash
	ok, err := s.state.KVGet(ledgerstate.PaymentWalletBindingKey(wallet), &account)
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("payment: load binding: %w", err)
	}
	return account, ok, nil
}

func (s *store) walletsOf(account common.Hash) ([]common.Address, error) {
	raw, err := s.state.KVGetList(ledgerstate.PaymentAccountWalletsKey(account))
	if err != nil {
		return nil, fmt.Errorf("payment: load wallets: %w", err)
	}
	wallets := make([]common.Address, 0, len(raw))
	for _, entry := range raw {
		wallets = append(wallets, common.BytesToAddress(entry))
	}
	return wallets, nil
}

func (s *store) bind(account common.Hash, wallet common.Address) error {
	if err := s.state.KVPut(ledgerstate.PaymentWalletBindingKey(wallet), account); err != nil {
		return err
	}
	return s.state.KVAppend(ledgerstate.PaymentAccountWalletsKey(account), wallet.Bytes())
}

func (s *store) unbind(account common.Hash, wallet common.Address) error {
	if err := s.state.KVDelete(ledgerstate.PaymentWalletBindingKey(wallet)); err != nil {
		return err
	}
	_, err := s.state.KVRemove(ledgerstate.PaymentAccountWalletsKey(account), wallet.Bytes())
	return err
}

func (s *store) record(sn common.Hash) (common.Address, error) {
	var operator common.Address
	if _, err := s.state.KVGet(ledgerstate.PaymentRecordKey(sn), &operator); err != nil {
		return common.Address{}, fmt.Errorf("payment: load record: %w", err)
	}
	return operator, nil
}

func (s *store) putRecord(sn common.Hash, operator common.Address) error {
	return s.state.KVPut(ledgerstate.PaymentRecordKey(sn), operator)
}
