package payment

import (
	"github.com/ethereum/go-ethereum/common"

	"payledger/crypto"
)

// Canonical message hashes. Each packs the operation fields in a fixed order
// followed by the serial number, the expiry, the chain id and the ledger
// address, then applies keccak256.

func sealHash(p *crypto.Packer, domain Domain, sn common.Hash, expired uint64) (common.Hash, error) {
	hash, err := p.Bytes32(sn).Uint64(expired).Uint256(domain.ChainID).Address(domain.Contract).Hash()
	if err != nil {
		return common.Hash{}, ErrInvalidValue
	}
	return hash, nil
}

// DepositHash covers account, token, amount and frozen.
func DepositHash(domain Domain, req DepositRequest, sn common.Hash, expired uint64) (common.Hash, error) {
	p := crypto.NewPacker().
		Bytes32(req.Account).
		Address(req.Token).
		Uint256(req.Amount).
		Uint256(req.Frozen)
	return sealHash(p, domain, sn, expired)
}

// WithdrawHash covers from, to, token, available and frozen.
func WithdrawHash(domain Domain, req WithdrawRequest, sn common.Hash, expired uint64) (common.Hash, error) {
	p := crypto.NewPacker().
		Bytes32(req.From).
		Address(req.To).
		Address(req.Token).
		Uint256(req.Available).
		Uint256(req.Frozen)
	return sealHash(p, domain, sn, expired)
}

// FreezeHash covers account, token and amount. Unfreeze signs the same
// layout; the serial number keeps the two from being interchangeable.
func FreezeHash(domain Domain, req FreezeRequest, sn common.Hash, expired uint64) (common.Hash, error) {
	p := crypto.NewPacker().
		Bytes32(req.Account).
		Address(req.Token).
		Uint256(req.Amount)
	return sealHash(p, domain, sn, expired)
}

// TransferHash covers out followed by every deal field.
func TransferHash(domain Domain, out common.Address, deal Deal, sn common.Hash, expired uint64) (common.Hash, error) {
	p := crypto.NewPacker().
		Address(out).
		Address(deal.Token).
		Bytes32(deal.From).
		Bytes32(deal.To).
		Uint256(deal.Available).
		Uint256(deal.Frozen).
		Uint256(deal.Amount).
		Uint256(deal.Fee)
	return sealHash(p, domain, sn, expired)
}

// CancelHash covers both trade legs, A first.
func CancelHash(domain Domain, a, b TradeData, sn common.Hash, expired uint64) (common.Hash, error) {
	p := crypto.NewPacker()
	for _, leg := range []TradeData{a, b} {
		p.Bytes32(leg.Account).Address(leg.Token).Uint256(leg.Amount).Uint256(leg.Fee)
	}
	return sealHash(p, domain, sn, expired)
}

// BindHash covers the account and the wallet being bound to it.
func BindHash(domain Domain, account common.Hash, wallet common.Address, sn common.Hash, expired uint64) (common.Hash, error) {
	p := crypto.NewPacker().Bytes32(account).Address(wallet)
	return sealHash(p, domain, sn, expired)
}
