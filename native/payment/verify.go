package payment

import (
	"github.com/ethereum/go-ethereum/common"

	"payledger/crypto"
)

// ContractValidator checks signatures on behalf of a signer contract. The
// digest handed over is already bound to the registered domain.
type ContractValidator interface {
	IsValidSignature(digest common.Hash, signature []byte) bool
}

// verifyMessage accepts sig when either the configured signer produced it
// over the personal-message digest of hash, or the signer contract accepts it
// over the typed digest under the registered domain hash. Without a
// registered validator the contract path compares the recovered signer with
// the signer contract address.
func verifyMessage(settings *Settings, validators map[common.Address]ContractValidator, hash common.Hash, sig []byte) bool {
	if settings == nil {
		return false
	}
	if settings.Signer != (common.Address{}) {
		signer, err := crypto.RecoverAddress(crypto.PersonalDigest(hash), sig)
		if err == nil && signer == settings.Signer {
			return true
		}
	}
	if settings.SignerContract == (common.Address{}) || settings.DomainHash == (common.Hash{}) {
		return false
	}
	digest := crypto.TypedDigest(settings.DomainHash, hash)
	if validator, ok := validators[settings.SignerContract]; ok && validator != nil {
		return validator.IsValidSignature(digest, sig)
	}
	signer, err := crypto.RecoverAddress(digest, sig)
	return err == nil && signer == settings.SignerContract
}

// VerifyMessage reports whether sig authorises hash under the current signer
// configuration. The hash must be the canonical operation hash, never a
// pre-wrapped digest.
func (e *Engine) VerifyMessage(hash common.Hash, sig []byte) bool {
	ok := false
	_ = e.view(func(tx *txn) error {
		ok = verifyMessage(tx.settings, e.validators, hash, sig)
		return nil
	})
	return ok
}

// DefaultDomainHash is the EIP-712 domain separator of this ledger instance:
// name "Payment", version "1", the ledger chain id and address.
func (e *Engine) DefaultDomainHash() (common.Hash, error) {
	return crypto.DomainSeparator("Payment", "1", e.chainID, e.address)
}
