package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"payledger/crypto"
	"payledger/native/access"
	"payledger/native/payment"
	"payledger/storage"
	"payledger/storage/eventlog"
)

var (
	testLedger = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testUSDT   = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	testAcctA  = common.HexToHash("0xa1")
	testFeeAcc = common.HexToHash("0xfee")
)

const testNow = 1_700_000_000

type rpcHarness struct {
	t      *testing.T
	db     *storage.MemDB
	engine *payment.Engine
	nonces *NonceStore
	events *eventlog.Store
	server *Server
	snSeq  uint64

	owner  *crypto.PrivateKey
	signer *crypto.PrivateKey
	feeTo  *crypto.PrivateKey
	user   *crypto.PrivateKey
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

// newRPCHarness serves a ledger whose owner is dev and admin, with 1000
// native and USDT base units allocated to the owner and the user.
func newRPCHarness(t *testing.T, opts ServerOptions) *rpcHarness {
	t.Helper()
	h := &rpcHarness{
		t:      t,
		db:     storage.NewMemDB(),
		owner:  mustKey(t),
		signer: mustKey(t),
		feeTo:  mustKey(t),
		user:   mustKey(t),
	}
	engine, err := payment.NewEngine(h.db, payment.Options{
		ChainID: big.NewInt(31337),
		Address: testLedger,
		Admins:  access.NewStaticRegistry(h.owner.Address()),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.SetNowFunc(func() int64 { return testNow })
	if err := engine.Initialize(payment.Settings{
		Owner:           h.owner.Address(),
		Dev:             h.owner.Address(),
		Signer:          h.signer.Address(),
		FeeTo:           h.feeTo.Address(),
		Enabled:         true,
		NoSnEnabled:     true,
		AutoBindEnabled: true,
		MaxWalletCount:  1,
	}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for _, holder := range []*crypto.PrivateKey{h.owner, h.user} {
		for _, token := range []common.Address{{}, testUSDT} {
			if err := engine.Allocate(token, holder.Address(), big.NewInt(1000)); err != nil {
				t.Fatalf("allocate: %v", err)
			}
		}
		if err := engine.Approve(holder.Address(), testUSDT, testLedger, big.NewInt(1_000_000)); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}

	store, err := eventlog.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), nil)
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	engine.SetEmitter(store)
	if opts.Events == nil {
		opts.Events = store
	}

	h.engine = engine
	h.events = store
	h.nonces = NewNonceStore(h.db)
	server, err := NewServer(engine, h.nonces, opts)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	h.server = server
	return h
}

func marshalParam(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal param: %v", err)
	}
	return raw
}

func decodeRPCResponse(t *testing.T, rec *httptest.ResponseRecorder) (json.RawMessage, *RPCError) {
	t.Helper()
	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Result, resp.Error
}

func (h *rpcHarness) post(req *RPCRequest) *httptest.ResponseRecorder {
	h.t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		h.t.Fatalf("marshal request: %v", err)
	}
	rec := httptest.NewRecorder()
	h.server.handle(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	return rec
}

// query calls a read-only method with one parameter object, or none when
// params is nil.
func (h *rpcHarness) query(method string, params interface{}) (json.RawMessage, *RPCError) {
	h.t.Helper()
	req := &RPCRequest{JSONRPC: jsonRPCVersion, Method: method, ID: 1}
	if params != nil {
		req.Params = []json.RawMessage{marshalParam(h.t, params)}
	}
	return decodeRPCResponse(h.t, h.post(req))
}

func (h *rpcHarness) nextNonce(key *crypto.PrivateKey) uint64 {
	h.t.Helper()
	nonce, err := h.nonces.Next(key.Address())
	if err != nil {
		h.t.Fatalf("nonce: %v", err)
	}
	return nonce
}

func (h *rpcHarness) envelope(key *crypto.PrivateKey, method string, payload interface{}, value *big.Int) Envelope {
	h.t.Helper()
	env, err := SignEnvelope(key, method, payload, value, h.nextNonce(key), h.engine.Domain())
	if err != nil {
		h.t.Fatalf("sign envelope: %v", err)
	}
	return env
}

func (h *rpcHarness) sendEnvelope(method string, env Envelope) (json.RawMessage, *RPCError) {
	h.t.Helper()
	req := &RPCRequest{JSONRPC: jsonRPCVersion, Method: method, ID: 1, Params: []json.RawMessage{marshalParam(h.t, env)}}
	return decodeRPCResponse(h.t, h.post(req))
}

// send signs payload as key with the wallet's current nonce and submits it.
func (h *rpcHarness) send(key *crypto.PrivateKey, method string, payload interface{}) (json.RawMessage, *RPCError) {
	h.t.Helper()
	return h.sendEnvelope(method, h.envelope(key, method, payload, nil))
}

func (h *rpcHarness) nextSN() common.Hash {
	h.snSeq++
	return common.BigToHash(new(big.Int).SetUint64(h.snSeq))
}

func (h *rpcHarness) expiry() uint64 {
	return testNow + 600
}

// signerAuth signs hash as the ledger signer and returns the wire fields.
func (h *rpcHarness) signerAuth(hash common.Hash, err error) string {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("hash: %v", err)
	}
	sig, err := crypto.SignPersonal(h.signer, hash)
	if err != nil {
		h.t.Fatalf("sign: %v", err)
	}
	return hexutil.Encode(sig)
}

// depositPayload builds a signed USDT deposit of amount into account.
func (h *rpcHarness) depositPayload(account common.Hash, amount int64) map[string]interface{} {
	h.t.Helper()
	sn := h.nextSN()
	req := payment.DepositRequest{Account: account, Token: testUSDT, Amount: big.NewInt(amount), Frozen: new(big.Int)}
	sig := h.signerAuth(payment.DepositHash(h.engine.Domain(), req, sn, h.expiry()))
	return map[string]interface{}{
		"account":   account.Hex(),
		"token":     testUSDT.Hex(),
		"amount":    fmt.Sprint(amount),
		"sn":        sn.Hex(),
		"expired":   h.expiry(),
		"signature": sig,
	}
}

func expectCode(t *testing.T, rpcErr *RPCError, code int, message string) {
	t.Helper()
	if rpcErr == nil {
		t.Fatalf("expected error %d %q, got success", code, message)
	}
	if rpcErr.Code != code {
		t.Fatalf("expected code %d, got %d (%s)", code, rpcErr.Code, rpcErr.Message)
	}
	if message != "" && rpcErr.Message != message {
		t.Fatalf("expected message %q, got %q", message, rpcErr.Message)
	}
}

func expectOK(t *testing.T, rpcErr *RPCError) {
	t.Helper()
	if rpcErr != nil {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
}
