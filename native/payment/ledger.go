package payment

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"payledger/core/events"
	"payledger/native/bank"
)

func msgValue(msg Msg) *big.Int {
	if msg.Value == nil {
		return new(big.Int)
	}
	return msg.Value
}

// collect pulls amount of token from the depositor into custody. Native coin
// must arrive as the attached value; tokens are pulled with the allowance the
// depositor granted the ledger and must not carry value.
func (e *Engine) collect(tx *txn, msg Msg, token common.Address, amount *big.Int) error {
	value := msgValue(msg)
	if token == bank.NativeToken {
		if value.Cmp(amount) != 0 {
			return ErrInvalidValue
		}
		return tx.bank.Transfer(bank.NativeToken, msg.Sender, e.address, amount)
	}
	if value.Sign() != 0 {
		return ErrInvalidValue
	}
	return tx.bank.TransferFrom(token, e.address, msg.Sender, e.address, amount)
}

// Deposit credits req.Amount of req.Token to req.Account, req.Frozen of it
// straight into the frozen balance.
func (e *Engine) Deposit(msg Msg, req DepositRequest, auth Authorization) error {
	if err := amounts(&req.Amount, &req.Frozen); err != nil {
		return err
	}
	return e.execute(func(tx *txn) error {
		hashFn := func(sn common.Hash, expired uint64) (common.Hash, error) {
			return DepositHash(e.Domain(), req, sn, expired)
		}
		if err := e.authorize(tx, msg, auth, hashFn); err != nil {
			return err
		}
		if req.Amount.Sign() == 0 || req.Account == (common.Hash{}) {
			return ErrZero
		}
		if req.Amount.Cmp(req.Frozen) < 0 {
			return ErrInsufficientAvailable
		}
		if err := e.collect(tx, msg, req.Token, req.Amount); err != nil {
			return err
		}
		current, err := tx.bindingState(req.Account, msg.Sender)
		if err != nil {
			return err
		}
		if tx.isOwner(msg.Sender) {
			// The owner funds accounts without binding its own wallet.
			if len(current.AccountWallets) == 0 && !tx.settings.AutoBindEnabled {
				return ErrNoBind
			}
		} else {
			binding, err := ResolveOrCreateBinding(req.Account, msg.Sender, current, tx.settings.AutoBindEnabled)
			if err != nil {
				return err
			}
			if binding.Created {
				if err := tx.attach(binding.Account, binding.Wallet, auth.SN); err != nil {
					return err
				}
			}
		}
		acct, err := tx.store.userAccount(req.Account, req.Token)
		if err != nil {
			return err
		}
		acct.Available.Add(acct.Available, new(big.Int).Sub(req.Amount, req.Frozen))
		acct.Frozen.Add(acct.Frozen, req.Frozen)
		if err := tx.store.putUserAccount(req.Account, req.Token, acct); err != nil {
			return err
		}
		tx.events.Emit(events.PaymentDeposit{
			Account:  req.Account,
			Token:    req.Token,
			Amount:   cloneBigInt(req.Amount),
			Frozen:   cloneBigInt(req.Frozen),
			SN:       auth.SN,
			Operator: msg.Sender,
		})
		return nil
	})
}

// SimpleDeposit is the trusted owner deposit: no signature, no serial number,
// the whole amount lands in available.
func (e *Engine) SimpleDeposit(msg Msg, account common.Hash, token common.Address, amount *big.Int) error {
	return e.Deposit(msg, DepositRequest{Account: account, Token: token, Amount: amount, Frozen: new(big.Int)}, Trusted())
}

// Withdraw pays req.Available+req.Frozen of req.Token out of req.From.
func (e *Engine) Withdraw(msg Msg, req WithdrawRequest, auth Authorization) error {
	if err := amounts(&req.Available, &req.Frozen); err != nil {
		return err
	}
	return e.execute(func(tx *txn) error {
		hashFn := func(sn common.Hash, expired uint64) (common.Hash, error) {
			return WithdrawHash(e.Domain(), req, sn, expired)
		}
		if err := e.authorize(tx, msg, auth, hashFn); err != nil {
			return err
		}
		total := new(big.Int).Add(req.Available, req.Frozen)
		if total.Sign() == 0 {
			return ErrZero
		}
		to := req.To
		if to == (common.Address{}) {
			wallets, err := tx.store.walletsOf(req.From)
			if err != nil {
				return err
			}
			if len(wallets) == 0 {
				return ErrNoBind
			}
			to = wallets[0]
		}
		acct, err := tx.store.userAccount(req.From, req.Token)
		if err != nil {
			return err
		}
		if acct.Available.Cmp(req.Available) < 0 {
			return ErrInsufficientAvailable
		}
		if acct.Frozen.Cmp(req.Frozen) < 0 {
			return ErrInsufficientFrozen
		}
		acct.Available.Sub(acct.Available, req.Available)
		acct.Frozen.Sub(acct.Frozen, req.Frozen)
		if err := tx.store.putUserAccount(req.From, req.Token, acct); err != nil {
			return err
		}
		if err := tx.bank.Transfer(req.Token, e.address, to, total); err != nil {
			return err
		}
		tx.events.Emit(events.PaymentWithdraw{
			Account:   req.From,
			To:        to,
			Token:     req.Token,
			Available: cloneBigInt(req.Available),
			Frozen:    cloneBigInt(req.Frozen),
			SN:        auth.SN,
			Operator:  msg.Sender,
		})
		return nil
	})
}

// SimpleWithdraw is the trusted owner withdrawal of available funds only.
func (e *Engine) SimpleWithdraw(msg Msg, from common.Hash, to common.Address, token common.Address, available *big.Int) error {
	return e.Withdraw(msg, WithdrawRequest{From: from, To: to, Token: token, Available: available, Frozen: new(big.Int)}, Trusted())
}

// Freeze moves req.Amount from available to frozen.
func (e *Engine) Freeze(msg Msg, req FreezeRequest, auth Authorization) error {
	return e.moveFrozen(msg, req, auth, false)
}

// Unfreeze moves req.Amount from frozen back to available.
func (e *Engine) Unfreeze(msg Msg, req FreezeRequest, auth Authorization) error {
	return e.moveFrozen(msg, req, auth, true)
}

func (e *Engine) moveFrozen(msg Msg, req FreezeRequest, auth Authorization, unfreeze bool) error {
	if err := amounts(&req.Amount); err != nil {
		return err
	}
	return e.execute(func(tx *txn) error {
		hashFn := func(sn common.Hash, expired uint64) (common.Hash, error) {
			return FreezeHash(e.Domain(), req, sn, expired)
		}
		if err := e.authorize(tx, msg, auth, hashFn); err != nil {
			return err
		}
		if err := tx.requireCaller(msg.Sender, req.Account); err != nil {
			return err
		}
		if req.Amount.Sign() == 0 {
			return ErrZero
		}
		acct, err := tx.store.userAccount(req.Account, req.Token)
		if err != nil {
			return err
		}
		if unfreeze {
			if acct.Frozen.Cmp(req.Amount) < 0 {
				return ErrInsufficientFrozen
			}
			acct.Frozen.Sub(acct.Frozen, req.Amount)
			acct.Available.Add(acct.Available, req.Amount)
		} else {
			if acct.Available.Cmp(req.Amount) < 0 {
				return ErrInsufficientAvailable
			}
			acct.Available.Sub(acct.Available, req.Amount)
			acct.Frozen.Add(acct.Frozen, req.Amount)
		}
		if err := tx.store.putUserAccount(req.Account, req.Token, acct); err != nil {
			return err
		}
		tx.events.Emit(events.PaymentFreeze{
			Unfreeze: unfreeze,
			Account:  req.Account,
			Token:    req.Token,
			Amount:   cloneBigInt(req.Amount),
			SN:       auth.SN,
			Operator: msg.Sender,
		})
		return nil
	})
}

// ValidateDeal checks the conservation rule of a transfer:
// available + frozen == amount + fee.
func ValidateDeal(deal Deal) error {
	if err := amounts(&deal.Available, &deal.Frozen, &deal.Amount, &deal.Fee); err != nil {
		return ErrInvalidDeal
	}
	debit := new(big.Int).Add(deal.Available, deal.Frozen)
	credit := new(big.Int).Add(deal.Amount, deal.Fee)
	if debit.Cmp(credit) != 0 {
		return ErrInvalidDeal
	}
	return nil
}

// Transfer settles deal out of deal.From. A zero out credits deal.To and the
// fee account inside the ledger; otherwise amount is paid to out and the fee
// to the feeTo wallet.
func (e *Engine) Transfer(msg Msg, out common.Address, deal Deal, auth Authorization) error {
	if err := amounts(&deal.Available, &deal.Frozen, &deal.Amount, &deal.Fee); err != nil {
		return ErrInvalidDeal
	}
	if err := ValidateDeal(deal); err != nil {
		return err
	}
	if out == (common.Address{}) && deal.To == (common.Hash{}) {
		return ErrZero
	}
	return e.execute(func(tx *txn) error {
		hashFn := func(sn common.Hash, expired uint64) (common.Hash, error) {
			return TransferHash(e.Domain(), out, deal, sn, expired)
		}
		if err := e.authorize(tx, msg, auth, hashFn); err != nil {
			return err
		}
		if err := tx.requireCaller(msg.Sender, deal.From); err != nil {
			return err
		}
		sender, err := tx.store.userAccount(deal.From, deal.Token)
		if err != nil {
			return err
		}
		if sender.Available.Cmp(deal.Available) < 0 {
			return ErrInsufficientAvailable
		}
		if sender.Frozen.Cmp(deal.Frozen) < 0 {
			return ErrInsufficientFrozen
		}
		sender.Available.Sub(sender.Available, deal.Available)
		sender.Frozen.Sub(sender.Frozen, deal.Frozen)
		if err := tx.store.putUserAccount(deal.From, deal.Token, sender); err != nil {
			return err
		}
		if out == (common.Address{}) {
			if err := tx.credit(deal.To, deal.Token, deal.Amount); err != nil {
				return err
			}
			if deal.Fee.Sign() > 0 {
				feeAccount, err := tx.feeAccount()
				if err != nil {
					return err
				}
				if err := tx.credit(feeAccount, deal.Token, deal.Fee); err != nil {
					return err
				}
			}
		} else {
			if err := tx.bank.Transfer(deal.Token, e.address, out, deal.Amount); err != nil {
				return err
			}
			if deal.Fee.Sign() > 0 {
				if tx.settings.FeeTo == (common.Address{}) {
					return ErrNoBind
				}
				if err := tx.bank.Transfer(deal.Token, e.address, tx.settings.FeeTo, deal.Fee); err != nil {
					return err
				}
			}
		}
		tx.events.Emit(events.PaymentTransfer{
			Token:     deal.Token,
			From:      deal.From,
			To:        deal.To,
			Out:       out,
			Available: cloneBigInt(deal.Available),
			Frozen:    cloneBigInt(deal.Frozen),
			Amount:    cloneBigInt(deal.Amount),
			Fee:       cloneBigInt(deal.Fee),
			SN:        auth.SN,
			Operator:  msg.Sender,
		})
		return nil
	})
}

func validateLeg(leg *TradeData) error {
	if err := amounts(&leg.Amount, &leg.Fee); err != nil {
		return ErrInvalidDeal
	}
	if leg.Fee.Cmp(leg.Amount) > 0 {
		return ErrInvalidDeal
	}
	return nil
}

// Cancel unwinds the frozen holdings of both trade parties. Each leg returns
// amount-fee to available; the fees are credited to the fee account.
func (e *Engine) Cancel(msg Msg, a, b TradeData, auth Authorization) error {
	if err := validateLeg(&a); err != nil {
		return err
	}
	if err := validateLeg(&b); err != nil {
		return err
	}
	return e.execute(func(tx *txn) error {
		hashFn := func(sn common.Hash, expired uint64) (common.Hash, error) {
			return CancelHash(e.Domain(), a, b, sn, expired)
		}
		if err := e.authorize(tx, msg, auth, hashFn); err != nil {
			return err
		}
		if err := tx.requireCaller(msg.Sender, a.Account, b.Account); err != nil {
			return err
		}
		for _, leg := range []TradeData{a, b} {
			acct, err := tx.store.userAccount(leg.Account, leg.Token)
			if err != nil {
				return err
			}
			if acct.Frozen.Cmp(leg.Amount) < 0 {
				return ErrInsufficientFrozen
			}
			acct.Frozen.Sub(acct.Frozen, leg.Amount)
			acct.Available.Add(acct.Available, new(big.Int).Sub(leg.Amount, leg.Fee))
			if err := tx.store.putUserAccount(leg.Account, leg.Token, acct); err != nil {
				return err
			}
		}
		if a.Fee.Sign() > 0 || b.Fee.Sign() > 0 {
			feeAccount, err := tx.feeAccount()
			if err != nil {
				return err
			}
			for _, leg := range []TradeData{a, b} {
				if err := tx.credit(feeAccount, leg.Token, leg.Fee); err != nil {
					return err
				}
			}
		}
		tx.events.Emit(events.PaymentCancel{
			A:        events.CancelLeg{Account: a.Account, Token: a.Token, Amount: cloneBigInt(a.Amount), Fee: cloneBigInt(a.Fee)},
			B:        events.CancelLeg{Account: b.Account, Token: b.Token, Amount: cloneBigInt(b.Amount), Fee: cloneBigInt(b.Fee)},
			SN:       auth.SN,
			Operator: msg.Sender,
		})
		return nil
	})
}

func (tx *txn) credit(account common.Hash, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	acct, err := tx.store.userAccount(account, token)
	if err != nil {
		return err
	}
	acct.Available.Add(acct.Available, amount)
	return tx.store.putUserAccount(account, token, acct)
}
