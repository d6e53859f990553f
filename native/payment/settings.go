package payment

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"payledger/native/access"
)

// Initialize stores the genesis configuration. It fails once the ledger has
// been initialised.
func (e *Engine) Initialize(genesis Settings) error {
	if genesis.Owner == (common.Address{}) {
		return fmt.Errorf("payment: genesis owner required")
	}
	if genesis.MaxWalletCount == 0 {
		genesis.MaxWalletCount = DefaultMaxWalletCount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	tx, err := e.begin(false)
	if err != nil {
		return err
	}
	if tx.settings != nil {
		return ErrAlreadyInitialized
	}
	settings := genesis
	if err := tx.store.putSettings(&settings); err != nil {
		return err
	}
	return tx.state.Commit()
}

// Initialized reports whether genesis settings exist.
func (e *Engine) Initialized() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx, err := e.begin(false)
	if err != nil {
		return false, err
	}
	return tx.settings != nil, nil
}

// Settings returns a copy of the current configuration.
func (e *Engine) Settings() (Settings, error) {
	var out Settings
	err := e.view(func(tx *txn) error {
		out = *tx.settings
		return nil
	})
	return out, err
}

// update checks role for caller, applies mutate and persists the result.
// mutate returns ErrNoChange when the requested value is already in place.
func (e *Engine) update(role access.Role, caller common.Address, mutate func(s *Settings) error) error {
	return e.execute(func(tx *txn) error {
		if err := access.Check(role, caller, tx.holders(), e.admins); err != nil {
			return err
		}
		if err := mutate(tx.settings); err != nil {
			return err
		}
		return tx.store.putSettings(tx.settings)
	})
}

func setAddress(field *common.Address, value common.Address) error {
	if *field == value {
		return ErrNoChange
	}
	*field = value
	return nil
}

func setFlag(field *bool, value bool) error {
	if *field == value {
		return ErrNoChange
	}
	*field = value
	return nil
}

// ChangeOwner hands the owner role to newOwner. Owner only.
func (e *Engine) ChangeOwner(caller, newOwner common.Address) error {
	return e.update(access.RoleOwner, caller, func(s *Settings) error {
		if newOwner == (common.Address{}) {
			return ErrZero
		}
		return setAddress(&s.Owner, newOwner)
	})
}

// ChangeDev hands the dev role to newDev. Owner only.
func (e *Engine) ChangeDev(caller, newDev common.Address) error {
	return e.update(access.RoleOwner, caller, func(s *Settings) error {
		if newDev == (common.Address{}) {
			return ErrZero
		}
		return setAddress(&s.Dev, newDev)
	})
}

// SetSigner replaces the wallet whose personal-message signatures authorise
// operations. Dev only.
func (e *Engine) SetSigner(caller, signer common.Address) error {
	return e.update(access.RoleDev, caller, func(s *Settings) error {
		return setAddress(&s.Signer, signer)
	})
}

// SetSignerContract registers the contract signer and its domain hash. A zero
// contract disables the typed-data path. Dev only.
func (e *Engine) SetSignerContract(caller, contract common.Address, domainHash common.Hash) error {
	return e.update(access.RoleDev, caller, func(s *Settings) error {
		if contract == (common.Address{}) {
			domainHash = common.Hash{}
		}
		if s.SignerContract == contract && s.DomainHash == domainHash {
			return ErrNoChange
		}
		s.SignerContract = contract
		s.DomainHash = domainHash
		return nil
	})
}

// SetFeeTo replaces the fee wallet. Admin only.
func (e *Engine) SetFeeTo(caller, feeTo common.Address) error {
	return e.update(access.RoleAdmin, caller, func(s *Settings) error {
		return setAddress(&s.FeeTo, feeTo)
	})
}

// SetEnabled switches every mutating operation on or off. Dev only.
func (e *Engine) SetEnabled(caller common.Address, enabled bool) error {
	return e.update(access.RoleDev, caller, func(s *Settings) error {
		return setFlag(&s.Enabled, enabled)
	})
}

// SetNoSnEnabled allows or forbids the trusted owner variants. Dev only.
func (e *Engine) SetNoSnEnabled(caller common.Address, enabled bool) error {
	return e.update(access.RoleDev, caller, func(s *Settings) error {
		return setFlag(&s.NoSnEnabled, enabled)
	})
}

// SetAutoBindEnabled toggles binding on first deposit. Dev only.
func (e *Engine) SetAutoBindEnabled(caller common.Address, enabled bool) error {
	return e.update(access.RoleDev, caller, func(s *Settings) error {
		return setFlag(&s.AutoBindEnabled, enabled)
	})
}

// SetMaxWalletCount changes how many wallets one account may bind. Dev only.
func (e *Engine) SetMaxWalletCount(caller common.Address, count uint64) error {
	return e.update(access.RoleDev, caller, func(s *Settings) error {
		if count == 0 {
			return ErrZero
		}
		if s.MaxWalletCount == count {
			return ErrNoChange
		}
		s.MaxWalletCount = count
		return nil
	})
}
