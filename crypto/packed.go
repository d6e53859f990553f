package crypto

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ErrUint256Range reports a negative value or one wider than 256 bits.
var ErrUint256Range = errors.New("value out of uint256 range")

// Packer builds the tightly packed encoding of a sequence of typed values:
// addresses take 20 bytes, bytes32 values 32 bytes and every unsigned integer
// a 32-byte big-endian word. The first range error sticks.
type Packer struct {
	buf []byte
	err error
}

// NewPacker returns an empty packer.
func NewPacker() *Packer {
	return &Packer{buf: make([]byte, 0, 256)}
}

// Address appends the 20 address bytes.
func (p *Packer) Address(addr common.Address) *Packer {
	p.buf = append(p.buf, addr.Bytes()...)
	return p
}

// Bytes32 appends a 32-byte word.
func (p *Packer) Bytes32(value common.Hash) *Packer {
	p.buf = append(p.buf, value.Bytes()...)
	return p
}

// Bytes appends raw unpadded.
func (p *Packer) Bytes(raw []byte) *Packer {
	p.buf = append(p.buf, raw...)
	return p
}

// Uint256 appends value as a big-endian 32-byte word. Negative or
// oversized values record ErrUint256Range.
func (p *Packer) Uint256(value *big.Int) *Packer {
	if value == nil {
		value = new(big.Int)
	}
	word, overflow := uint256.FromBig(value)
	if value.Sign() < 0 || overflow {
		if p.err == nil {
			p.err = ErrUint256Range
		}
		word = new(uint256.Int)
	}
	encoded := word.Bytes32()
	p.buf = append(p.buf, encoded[:]...)
	return p
}

// Uint64 appends value widened to a 32-byte word.
func (p *Packer) Uint64(value uint64) *Packer {
	encoded := uint256.NewInt(value).Bytes32()
	p.buf = append(p.buf, encoded[:]...)
	return p
}

// Encoded returns the packed bytes.
func (p *Packer) Encoded() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return append([]byte(nil), p.buf...), nil
}

// Hash returns keccak256 of the packed bytes.
func (p *Packer) Hash() (common.Hash, error) {
	if p.err != nil {
		return common.Hash{}, p.err
	}
	return ethcrypto.Keccak256Hash(p.buf), nil
}
