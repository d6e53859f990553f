package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"payledger/crypto"
	"payledger/native/payment"
	"payledger/observability"
)

// Envelope carries a mutating call. The caller signs the personal-message
// digest of EnvelopeHash with the wallet named in From.
type Envelope struct {
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Value     string          `json:"value,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Signature string          `json:"signature"`
}

type callerEnvelope struct {
	from      common.Address
	nonce     uint64
	value     *big.Int
	payload   json.RawMessage
	signature []byte
}

var emptyPayload = json.RawMessage(`{}`)

func decodeEnvelope(raw json.RawMessage) (*callerEnvelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, invalidParams("invalid envelope: %v", err)
	}
	from, err := parseAddress("from", env.From)
	if err != nil {
		return nil, err
	}
	value, err := parseOptionalAmount("value", env.Value)
	if err != nil {
		return nil, err
	}
	sig, err := parseSignature("signature", env.Signature)
	if err != nil {
		return nil, err
	}
	payload := env.Payload
	if len(bytes.TrimSpace(payload)) == 0 || string(bytes.TrimSpace(payload)) == "null" {
		payload = emptyPayload
	}
	return &callerEnvelope{from: from, nonce: env.Nonce, value: value, payload: payload, signature: sig}, nil
}

// EnvelopeHash is keccak256(method || keccak256(compact(payload)) || value ||
// nonce || chainId || ledger), value, nonce and chainId as 32-byte words.
func EnvelopeHash(method string, payload json.RawMessage, value *big.Int, nonce uint64, domain payment.Domain) (common.Hash, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = emptyPayload
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err != nil {
		return common.Hash{}, fmt.Errorf("compact payload: %w", err)
	}
	return crypto.NewPacker().
		Bytes([]byte(method)).
		Bytes32(ethcrypto.Keccak256Hash(compact.Bytes())).
		Uint256(value).
		Uint64(nonce).
		Uint256(domain.ChainID).
		Address(domain.Contract).
		Hash()
}

// SignEnvelope builds a signed envelope for method. Clients and tests use it
// to produce the exact bytes the server verifies.
func SignEnvelope(key *crypto.PrivateKey, method string, payload interface{}, value *big.Int, nonce uint64, domain payment.Domain) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	if payload == nil {
		raw = emptyPayload
	}
	hash, err := EnvelopeHash(method, raw, value, nonce, domain)
	if err != nil {
		return Envelope{}, err
	}
	sig, err := crypto.SignPersonal(key, hash)
	if err != nil {
		return Envelope{}, err
	}
	env := Envelope{
		From:      key.Address().Hex(),
		Nonce:     nonce,
		Payload:   raw,
		Signature: hexutil.Encode(sig),
	}
	if value != nil && value.Sign() != 0 {
		env.Value = value.String()
	}
	return env, nil
}

// verifyEnvelope checks the envelope signature against its from address.
func (s *Server) verifyEnvelope(method string, env *callerEnvelope) error {
	hash, err := EnvelopeHash(method, env.payload, env.value, env.nonce, s.engine.Domain())
	if err != nil {
		return invalidParams("%v", err)
	}
	signer, err := crypto.RecoverAddress(crypto.PersonalDigest(hash), env.signature)
	if err != nil || signer != env.from {
		return errEnvelopeSignature
	}
	return nil
}

// handleMutation authenticates the envelope, consumes its nonce and runs the
// decoded ledger call. The payload is decoded first so a malformed request
// does not burn a nonce.
func (s *Server) handleMutation(req *RPCRequest, decode mutationDecoder) (interface{}, error) {
	if len(req.Params) != 1 {
		return nil, invalidParams("expected a single envelope parameter")
	}
	env, err := decodeEnvelope(req.Params[0])
	if err != nil {
		return nil, err
	}
	call, err := decode(env.payload)
	if err != nil {
		return nil, err
	}
	if err := s.verifyEnvelope(req.Method, env); err != nil {
		observability.Ledger().RecordEnvelopeRejection("signature")
		return nil, err
	}
	next, err := s.nonces.Consume(env.from, env.nonce)
	if err != nil {
		observability.Ledger().RecordEnvelopeRejection("nonce")
		return nil, err
	}
	result, err := call(payment.Msg{Sender: env.from, Value: env.value})
	if err != nil {
		observability.Ledger().RecordFailure(strings.TrimPrefix(req.Method, moduleOf(req.Method)+"_"), err)
		return nil, err
	}
	if result == nil {
		result = MutationResult{Status: "ok", NextNonce: next}
	}
	return result, nil
}
