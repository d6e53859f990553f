package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var domainTypes = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// DomainSeparator computes the EIP-712 domain hash for the supplied domain
// fields.
func DomainSeparator(name, version string, chainID *big.Int, verifyingContract common.Address) (common.Hash, error) {
	if chainID == nil || chainID.Sign() < 0 {
		return common.Hash{}, fmt.Errorf("domain: chain id must be non-negative")
	}
	td := apitypes.TypedData{
		Types: apitypes.Types{"EIP712Domain": domainTypes},
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: verifyingContract.Hex(),
		},
	}
	separator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("domain: hash: %w", err)
	}
	return common.BytesToHash(separator), nil
}
