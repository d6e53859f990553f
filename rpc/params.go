package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"payledger/crypto"
	"payledger/native/bank"
	"payledger/native/payment"
)

// decodeParams strictly decodes a parameter object. An absent object decodes
// to the zero value.
func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return invalidParams("invalid parameter object: %v", err)
	}
	return nil
}

// parseAmount accepts a decimal or 0x-prefixed hex integer.
func parseAmount(field, raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, invalidParams("%s is required", field)
	}
	value, ok := new(big.Int), false
	if lower := strings.ToLower(trimmed); strings.HasPrefix(lower, "0x") {
		_, ok = value.SetString(lower[2:], 16)
	} else {
		_, ok = value.SetString(trimmed, 10)
	}
	if !ok {
		return nil, invalidParams("%s must be an integer: %q", field, raw)
	}
	return value, nil
}

func parseOptionalAmount(field, raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return new(big.Int), nil
	}
	return parseAmount(field, raw)
}

func parseAddress(field, raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, invalidParams("%s is required", field)
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return common.Address{}, invalidParams("%s: %v", field, err)
	}
	return addr, nil
}

// parseOptionalAddress maps an empty string to the zero address.
func parseOptionalAddress(field, raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, nil
	}
	return parseAddress(field, raw)
}

// parseToken accepts a token address, or "native" / "" for the native coin.
func parseToken(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "native") {
		return bank.NativeToken, nil
	}
	return parseAddress("token", trimmed)
}

func parseTokens(raw []string) ([]common.Address, error) {
	tokens := make([]common.Address, 0, len(raw))
	for _, entry := range raw {
		token, err := parseToken(entry)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func parseHash(field, raw string) (common.Hash, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Hash{}, invalidParams("%s is required", field)
	}
	value, err := crypto.ParseHash32(raw)
	if err != nil {
		return common.Hash{}, invalidParams("%s: %v", field, err)
	}
	return value, nil
}

func parseHashes(field string, raw []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(raw))
	for _, entry := range raw {
		value, err := parseHash(field, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func parseSignature(field, raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, invalidParams("%s is required", field)
	}
	sig, err := hexutil.Decode(trimmed)
	if err != nil {
		return nil, invalidParams("%s: %v", field, err)
	}
	return sig, nil
}

// authParams carries the signer authorisation shared by the signed ledger
// operations.
type authParams struct {
	SN        string `json:"sn"`
	Expired   uint64 `json:"expired"`
	Signature string `json:"signature"`
}

func (p authParams) authorization() (payment.Authorization, error) {
	sn, err := parseHash("sn", p.SN)
	if err != nil {
		return payment.Authorization{}, err
	}
	sig, err := parseSignature("signature", p.Signature)
	if err != nil {
		return payment.Authorization{}, err
	}
	return payment.Signed(sn, p.Expired, sig), nil
}
