package payment

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"payledger/core/events"
	"payledger/crypto"
	"payledger/native/access"
	"payledger/native/bank"
	"payledger/storage"
)

const testChainID = 31337

var (
	ledgerAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	usdt          = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	native        = bank.NativeToken

	accountA   = common.HexToHash("0xa1")
	accountB   = common.HexToHash("0xb2")
	feeAccount = common.HexToHash("0xfee")
)

// amt converts a decimal token amount to 18-decimal base units.
func amt(t testing.TB, value string) *big.Int {
	t.Helper()
	r, ok := new(big.Rat).SetString(value)
	if !ok {
		t.Fatalf("bad amount %q", value)
	}
	r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))
	if !r.IsInt() {
		t.Fatalf("amount %q has too many decimals", value)
	}
	return new(big.Int).Set(r.Num())
}

type harness struct {
	t        testing.TB
	db       *storage.MemDB
	engine   *Engine
	admins   *access.StaticRegistry
	recorder *events.Recorder
	now      int64
	snSeq    uint64

	owner  *crypto.PrivateKey
	signer *crypto.PrivateKey
	feeTo  *crypto.PrivateKey
	user1  *crypto.PrivateKey
	user2  *crypto.PrivateKey
	user3  *crypto.PrivateKey
}

func mustKey(t testing.TB) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

// newHarness deploys a ledger where the owner is also dev and admin, the
// fee wallet is bound to feeAccount and every user holds 1000 native coins
// and 1000 USDT.
func newHarness(t testing.TB) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		db:       storage.NewMemDB(),
		recorder: &events.Recorder{},
		now:      1_700_000_000,
		owner:    mustKey(t),
		signer:   mustKey(t),
		feeTo:    mustKey(t),
		user1:    mustKey(t),
		user2:    mustKey(t),
		user3:    mustKey(t),
	}
	h.admins = access.NewStaticRegistry(h.owner.Address())
	engine, err := NewEngine(h.db, Options{
		ChainID: big.NewInt(testChainID),
		Address: ledgerAddress,
		Admins:  h.admins,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.SetNowFunc(func() int64 { return h.now })
	engine.SetEmitter(h.recorder)
	h.engine = engine

	err = engine.Initialize(Settings{
		Owner:           h.owner.Address(),
		Dev:             h.owner.Address(),
		Signer:          h.signer.Address(),
		FeeTo:           h.feeTo.Address(),
		Enabled:         true,
		NoSnEnabled:     true,
		AutoBindEnabled: true,
		MaxWalletCount:  1,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for _, holder := range []*crypto.PrivateKey{h.owner, h.user1, h.user2, h.user3} {
		for _, token := range []common.Address{native, usdt} {
			if err := engine.Allocate(token, holder.Address(), amt(t, "1000")); err != nil {
				t.Fatalf("allocate: %v", err)
			}
		}
		if err := engine.Approve(holder.Address(), usdt, ledgerAddress, amt(t, "1000000")); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}
	h.bind(h.feeTo, feeAccount)
	return h
}

func (h *harness) msg(key *crypto.PrivateKey) Msg {
	return Msg{Sender: key.Address()}
}

func (h *harness) msgValue(key *crypto.PrivateKey, value *big.Int) Msg {
	return Msg{Sender: key.Address(), Value: value}
}

func (h *harness) nextSN() common.Hash {
	h.snSeq++
	return common.BigToHash(new(big.Int).SetUint64(h.snSeq))
}

func (h *harness) expiry() uint64 {
	return uint64(h.now + 600)
}

func (h *harness) sign(hash common.Hash, err error) []byte {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("hash: %v", err)
	}
	sig, err := crypto.SignPersonal(h.signer, hash)
	if err != nil {
		h.t.Fatalf("sign: %v", err)
	}
	return sig
}

func (h *harness) depositAuth(req DepositRequest) Authorization {
	sn, exp := h.nextSN(), h.expiry()
	return Signed(sn, exp, h.sign(DepositHash(h.engine.Domain(), req, sn, exp)))
}

func (h *harness) withdrawAuth(req WithdrawRequest) Authorization {
	sn, exp := h.nextSN(), h.expiry()
	return Signed(sn, exp, h.sign(WithdrawHash(h.engine.Domain(), req, sn, exp)))
}

func (h *harness) freezeAuth(req FreezeRequest) Authorization {
	sn, exp := h.nextSN(), h.expiry()
	return Signed(sn, exp, h.sign(FreezeHash(h.engine.Domain(), req, sn, exp)))
}

func (h *harness) transferAuth(out common.Address, deal Deal) Authorization {
	sn, exp := h.nextSN(), h.expiry()
	return Signed(sn, exp, h.sign(TransferHash(h.engine.Domain(), out, deal, sn, exp)))
}

func (h *harness) cancelAuth(a, b TradeData) Authorization {
	sn, exp := h.nextSN(), h.expiry()
	return Signed(sn, exp, h.sign(CancelHash(h.engine.Domain(), a, b, sn, exp)))
}

func (h *harness) bindAuth(account common.Hash, wallet common.Address) Authorization {
	sn, exp := h.nextSN(), h.expiry()
	return Signed(sn, exp, h.sign(BindHash(h.engine.Domain(), account, wallet, sn, exp)))
}

func (h *harness) bind(key *crypto.PrivateKey, account common.Hash) {
	h.t.Helper()
	if err := h.engine.BindAccount(h.msg(key), account, h.bindAuth(account, key.Address())); err != nil {
		h.t.Fatalf("bind: %v", err)
	}
}

// deposit performs a signed deposit from key, attaching value for native coin.
func (h *harness) deposit(key *crypto.PrivateKey, account common.Hash, token common.Address, amount, frozen *big.Int) error {
	req := DepositRequest{Account: account, Token: token, Amount: amount, Frozen: frozen}
	msg := h.msg(key)
	if token == native {
		msg.Value = amount
	}
	return h.engine.Deposit(msg, req, h.depositAuth(req))
}

func (h *harness) mustDeposit(key *crypto.PrivateKey, account common.Hash, token common.Address, amount, frozen *big.Int) {
	h.t.Helper()
	if err := h.deposit(key, account, token, amount, frozen); err != nil {
		h.t.Fatalf("deposit: %v", err)
	}
}

func (h *harness) account(account common.Hash, token common.Address) UserAccount {
	h.t.Helper()
	acct, err := h.engine.UserAccount(account, token)
	if err != nil {
		h.t.Fatalf("user account: %v", err)
	}
	return acct
}

func (h *harness) expectAccount(account common.Hash, token common.Address, available, frozen *big.Int) {
	h.t.Helper()
	acct := h.account(account, token)
	if acct.Available.Cmp(available) != 0 || acct.Frozen.Cmp(frozen) != 0 {
		h.t.Fatalf("account %s: got available=%s frozen=%s want available=%s frozen=%s",
			account.Hex(), acct.Available, acct.Frozen, available, frozen)
	}
}

func (h *harness) custody(token common.Address) *big.Int {
	h.t.Helper()
	bal, err := h.engine.GetBalance(token)
	if err != nil {
		h.t.Fatalf("get balance: %v", err)
	}
	return bal
}

func (h *harness) eventTypes() []string {
	recorded := h.recorder.Events()
	out := make([]string, 0, len(recorded))
	for _, evt := range recorded {
		out = append(out, evt.EventType())
	}
	return out
}
