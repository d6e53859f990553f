package payment

import (
	"github.com/ethereum/go-ethereum/common"

	"payledger/core/events"
)

// BindingState is the slice of binding state a deposit consults.
type BindingState struct {
	// AccountWallets lists the wallets bound to the target account in
	// binding order.
	AccountWallets []common.Address
	// WalletAccount is the account the depositing wallet is bound to, nil
	// when the wallet is unbound.
	WalletAccount *common.Hash
}

// Binding is the resolved (account, wallet) relation. Created marks a binding
// that does not exist yet and must be stored.
type Binding struct {
	Account common.Hash
	Wallet  common.Address
	Created bool
}

// ResolveOrCreateBinding decides which binding a deposit from wallet into
// account runs under. A bound account resolves to its primary wallet. An
// unbound account is bound to the depositor when autoBindEnabled is set. The
// zero account is never a binding target.
func ResolveOrCreateBinding(account common.Hash, wallet common.Address, current BindingState, autoBindEnabled bool) (Binding, error) {
	if account == (common.Hash{}) {
		return Binding{}, ErrZero
	}
	if len(current.AccountWallets) > 0 {
		return Binding{Account: account, Wallet: current.AccountWallets[0]}, nil
	}
	if !autoBindEnabled {
		return Binding{}, ErrNoBind
	}
	if current.WalletAccount != nil {
		return Binding{}, ErrAlreadyBound
	}
	if wallet == (common.Address{}) {
		return Binding{}, ErrNoBind
	}
	return Binding{Account: account, Wallet: wallet, Created: true}, nil
}

func (tx *txn) bindingState(account common.Hash, wallet common.Address) (BindingState, error) {
	wallets, err := tx.store.walletsOf(account)
	if err != nil {
		return BindingState{}, err
	}
	state := BindingState{AccountWallets: wallets}
	bound, ok, err := tx.store.accountOf(wallet)
	if err != nil {
		return BindingState{}, err
	}
	if ok {
		state.WalletAccount = &bound
	}
	return state, nil
}

// attach binds wallet to account after enforcing the one-account-per-wallet
// rule and the wallet cap.
func (tx *txn) attach(account common.Hash, wallet common.Address, sn common.Hash) error {
	if _, ok, err := tx.store.accountOf(wallet); err != nil {
		return err
	} else if ok {
		return ErrAlreadyBound
	}
	wallets, err := tx.store.walletsOf(account)
	if err != nil {
		return err
	}
	limit := tx.settings.MaxWalletCount
	if limit == 0 {
		limit = DefaultMaxWalletCount
	}
	if uint64(len(wallets)) >= limit {
		return ErrOverWalletCount
	}
	if err := tx.store.bind(account, wallet); err != nil {
		return err
	}
	tx.events.Emit(events.PaymentBind{Account: account, Wallet: wallet, SN: sn})
	return nil
}

// BindAccount binds the calling wallet to account.
func (e *Engine) BindAccount(msg Msg, account common.Hash, auth Authorization) error {
	return e.execute(func(tx *txn) error {
		hashFn := func(sn common.Hash, expired uint64) (common.Hash, error) {
			return BindHash(e.Domain(), account, msg.Sender, sn, expired)
		}
		if err := e.authorize(tx, msg, auth, hashFn); err != nil {
			return err
		}
		if account == (common.Hash{}) {
			return ErrZero
		}
		return tx.attach(account, msg.Sender, auth.SN)
	})
}

// UnbindAccount removes the binding of the calling wallet. Balances stay with
// the account.
func (e *Engine) UnbindAccount(msg Msg) error {
	return e.execute(func(tx *txn) error {
		if err := e.guard(tx); err != nil {
			return err
		}
		account, ok, err := tx.store.accountOf(msg.Sender)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoBind
		}
		if err := tx.store.unbind(account, msg.Sender); err != nil {
			return err
		}
		tx.events.Emit(events.PaymentUnbind{Account: account, Wallet: msg.Sender})
		return nil
	})
}

// GetWalletsOfAccount lists the wallets bound to account, primary first.
func (e *Engine) GetWalletsOfAccount(account common.Hash) ([]common.Address, error) {
	var wallets []common.Address
	err := e.view(func(tx *txn) error {
		var err error
		wallets, err = tx.store.walletsOf(account)
		return err
	})
	return wallets, err
}

// AccountOfWallet returns the account wallet is bound to.
func (e *Engine) AccountOfWallet(wallet common.Address) (common.Hash, bool, error) {
	var (
		account common.Hash
		ok      bool
	)
	err := e.view(func(tx *txn) error {
		var err error
		account, ok, err = tx.store.accountOf(wallet)
		return err
	})
	return account, ok, err
}
