package crypto

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of a compact r||s||v signature.
const SignatureLength = 65

var (
	ErrSignatureLength   = errors.New("signature must be 65 bytes")
	ErrSignatureRecovery = errors.New("invalid recovery id")
	ErrSignatureValues   = errors.New("invalid signature values")
)

// PersonalDigest wraps a 32-byte hash the way wallets do for personal_sign:
// keccak256("\x19Ethereum Signed Message:\n32" || hash).
func PersonalDigest(hash common.Hash) common.Hash {
	return common.BytesToHash(accounts.TextHash(hash.Bytes()))
}

// TypedDigest binds a hash to an EIP-712 domain:
// keccak256(0x19 0x01 || domainSeparator || hash).
func TypedDigest(domainSeparator, hash common.Hash) common.Hash {
	return ethcrypto.Keccak256Hash([]byte{0x19, 0x01}, domainSeparator.Bytes(), hash.Bytes())
}

// normalizeSignature returns a copy of sig with v in {0,1}. Both the 27/28
// convention and the raw recovery id are accepted on input.
func normalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, ErrSignatureLength
	}
	out := make([]byte, SignatureLength)
	copy(out, sig)
	switch out[64] {
	case 27, 28:
		out[64] -= 27
	case 0, 1:
	default:
		return nil, ErrSignatureRecovery
	}
	r := new(big.Int).SetBytes(out[:32])
	s := new(big.Int).SetBytes(out[32:64])
	if !ethcrypto.ValidateSignatureValues(out[64], r, s, true) {
		return nil, ErrSignatureValues
	}
	return out, nil
}

// RecoverAddress returns the wallet that produced sig over digest.
func RecoverAddress(digest common.Hash, sig []byte) (common.Address, error) {
	normalized, err := normalizeSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := ethcrypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// SignDigest signs digest and returns a compact signature with v in {27,28}.
func SignDigest(key *PrivateKey, digest common.Hash) ([]byte, error) {
	if key == nil || key.PrivateKey == nil {
		return nil, errors.New("signing key required")
	}
	sig, err := ethcrypto.Sign(digest.Bytes(), key.PrivateKey)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// SignPersonal signs the personal-message digest of hash.
func SignPersonal(key *PrivateKey, hash common.Hash) ([]byte, error) {
	return SignDigest(key, PersonalDigest(hash))
}

// SignTyped signs the EIP-712 digest of hash under domainSeparator.
func SignTyped(key *PrivateKey, domainSeparator, hash common.Hash) ([]byte, error) {
	return SignDigest(key, TypedDigest(domainSeparator, hash))
}
