package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"payledger/core/types"
)

// Log names of the payment ledger. They match the names external consumers
// index on.
const (
	TypePaymentBind     = "BindLog"
	TypePaymentUnbind   = "UnbindLog"
	TypePaymentDeposit  = "DepositLog"
	TypePaymentWithdraw = "WithdrawLog"
	TypePaymentFreeze   = "FreezeLog"
	TypePaymentUnfreeze = "UnfreezeLog"
	TypePaymentTransfer = "TransferLog"
	TypePaymentCancel   = "CancelLog"
)

// PaymentTypes lists every payment log name.
var PaymentTypes = []string{
	TypePaymentBind,
	TypePaymentUnbind,
	TypePaymentDeposit,
	TypePaymentWithdraw,
	TypePaymentFreeze,
	TypePaymentUnfreeze,
	TypePaymentTransfer,
	TypePaymentCancel,
}

// PaymentBind is emitted when a wallet is attached to an account.
type PaymentBind struct {
	Account common.Hash
	Wallet  common.Address
	SN      common.Hash
}

func (PaymentBind) EventType() string { return TypePaymentBind }

func (e PaymentBind) Event() *types.Event {
	attrs := map[string]string{
		"account": e.Account.Hex(),
		"wallet":  e.Wallet.Hex(),
	}
	putSN(attrs, e.SN)
	return &types.Event{Type: TypePaymentBind, Attributes: attrs}
}

// PaymentUnbind is emitted when a wallet detaches itself from its account.
type PaymentUnbind struct {
	Account common.Hash
	Wallet  common.Address
}

func (PaymentUnbind) EventType() string { return TypePaymentUnbind }

func (e PaymentUnbind) Event() *types.Event {
	return &types.Event{Type: TypePaymentUnbind, Attributes: map[string]string{
		"account": e.Account.Hex(),
		"wallet":  e.Wallet.Hex(),
	}}
}

// PaymentDeposit records funds entering the ledger. Frozen is the part of
// Amount that was credited straight to the frozen balance.
type PaymentDeposit struct {
	Account  common.Hash
	Token    common.Address
	Amount   *big.Int
	Frozen   *big.Int
	SN       common.Hash
	Operator common.Address
}

func (PaymentDeposit) EventType() string { return TypePaymentDeposit }

func (e PaymentDeposit) Event() *types.Event {
	attrs := map[string]string{
		"account":  e.Account.Hex(),
		"token":    e.Token.Hex(),
		"amount":   amountString(e.Amount),
		"frozen":   amountString(e.Frozen),
		"operator": e.Operator.Hex(),
	}
	putSN(attrs, e.SN)
	return &types.Event{Type: TypePaymentDeposit, Attributes: attrs}
}

// PaymentWithdraw records funds leaving the ledger to an external wallet.
type PaymentWithdraw struct {
	Account   common.Hash
	To        common.Address
	Token     common.Address
	Available *big.Int
	Frozen    *big.Int
	SN        common.Hash
	Operator  common.Address
}

func (PaymentWithdraw) EventType() string { return TypePaymentWithdraw }

func (e PaymentWithdraw) Event() *types.Event {
	attrs := map[string]string{
		"account":   e.Account.Hex(),
		"to":        e.To.Hex(),
		"token":     e.Token.Hex(),
		"available": amountString(e.Available),
		"frozen":    amountString(e.Frozen),
		"operator":  e.Operator.Hex(),
	}
	putSN(attrs, e.SN)
	return &types.Event{Type: TypePaymentWithdraw, Attributes: attrs}
}

// PaymentFreeze moves funds from available to frozen. The same payload with
// Unfreeze set describes the inverse movement.
type PaymentFreeze struct {
	Unfreeze bool
	Account  common.Hash
	Token    common.Address
	Amount   *big.Int
	SN       common.Hash
	Operator common.Address
}

func (e PaymentFreeze) EventType() string {
	if e.Unfreeze {
		return TypePaymentUnfreeze
	}
	return TypePaymentFreeze
}

func (e PaymentFreeze) Event() *types.Event {
	attrs := map[string]string{
		"account":  e.Account.Hex(),
		"token":    e.Token.Hex(),
		"amount":   amountString(e.Amount),
		"operator": e.Operator.Hex(),
	}
	putSN(attrs, e.SN)
	return &types.Event{Type: e.EventType(), Attributes: attrs}
}

// PaymentTransfer settles a deal. Out is the zero address for an inner
// transfer between accounts.
type PaymentTransfer struct {
	Token     common.Address
	From      common.Hash
	To        common.Hash
	Out       common.Address
	Available *big.Int
	Frozen    *big.Int
	Amount    *big.Int
	Fee       *big.Int
	SN        common.Hash
	Operator  common.Address
}

func (PaymentTransfer) EventType() string { return TypePaymentTransfer }

func (e PaymentTransfer) Event() *types.Event {
	attrs := map[string]string{
		"token":     e.Token.Hex(),
		"from":      e.From.Hex(),
		"to":        e.To.Hex(),
		"out":       e.Out.Hex(),
		"available": amountString(e.Available),
		"frozen":    amountString(e.Frozen),
		"amount":    amountString(e.Amount),
		"fee":       amountString(e.Fee),
		"operator":  e.Operator.Hex(),
	}
	putSN(attrs, e.SN)
	return &types.Event{Type: TypePaymentTransfer, Attributes: attrs}
}

// CancelLeg describes one party of a cancelled trade.
type CancelLeg struct {
	Account common.Hash
	Token   common.Address
	Amount  *big.Int
	Fee     *big.Int
}

// PaymentCancel unwinds the frozen holdings of both parties of a trade.
type PaymentCancel struct {
	A        CancelLeg
	B        CancelLeg
	SN       common.Hash
	Operator common.Address
}

func (PaymentCancel) EventType() string { return TypePaymentCancel }

func (e PaymentCancel) Event() *types.Event {
	attrs := map[string]string{
		"accountA": e.A.Account.Hex(),
		"tokenA":   e.A.Token.Hex(),
		"amountA":  amountString(e.A.Amount),
		"feeA":     amountString(e.A.Fee),
		"accountB": e.B.Account.Hex(),
		"tokenB":   e.B.Token.Hex(),
		"amountB":  amountString(e.B.Amount),
		"feeB":     amountString(e.B.Fee),
		"operator": e.Operator.Hex(),
	}
	putSN(attrs, e.SN)
	return &types.Event{Type: TypePaymentCancel, Attributes: attrs}
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// putSN omits the serial number of trusted operations, which carry none.
func putSN(attrs map[string]string, sn common.Hash) {
	if sn != (common.Hash{}) {
		attrs["sn"] = sn.Hex()
	}
}
