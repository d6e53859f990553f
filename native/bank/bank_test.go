package bank

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	ledgerstate "payledger/core/state"
	"payledger/storage"
)

var (
	token = common.HexToAddress("0x7000000000000000000000000000000000000001")
	alice = common.HexToAddress("0x0a")
	bob   = common.HexToAddress("0x0b")
	vault = common.HexToAddress("0x0c")
)

func newLedger(t *testing.T) (*Ledger, *ledgerstate.Manager) {
	t.Helper()
	mgr := ledgerstate.NewManager(storage.NewMemDB())
	return New(mgr), mgr
}

func balance(t *testing.T, l *Ledger, tok, holder common.Address) *big.Int {
	t.Helper()
	bal, err := l.BalanceOf(tok, holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestTransferNative(t *testing.T) {
	l, _ := newLedger(t)
	if err := l.Credit(NativeToken, alice, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Transfer(NativeToken, alice, bob, big.NewInt(4)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := balance(t, l, NativeToken, alice); got.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("alice balance %s", got)
	}
	if got := balance(t, l, NativeToken, bob); got.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("bob balance %s", got)
	}
	if err := l.Transfer(NativeToken, bob, alice, big.NewInt(5)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	l, _ := newLedger(t)
	if err := l.Credit(token, alice, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.TransferFrom(token, vault, alice, vault, big.NewInt(1)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected allowance error, got %v", err)
	}
	if err := l.Approve(token, alice, vault, big.NewInt(60)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(token, vault, alice, vault, big.NewInt(50)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	left, err := l.Allowance(token, alice, vault)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if left.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("remaining allowance %s", left)
	}
	if got := balance(t, l, token, vault); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("vault balance %s", got)
	}
	if err := l.Approve(token, alice, vault, big.NewInt(1000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(token, vault, alice, vault, big.NewInt(51)); !errors.Is(err, ErrTokenInsufficientBalance) {
		t.Fatalf("expected token balance error, got %v", err)
	}
}

func TestNativeHasNoAllowance(t *testing.T) {
	l, _ := newLedger(t)
	if err := l.Approve(NativeToken, alice, vault, big.NewInt(1)); !errors.Is(err, ErrNativeAllowance) {
		t.Fatalf("expected native allowance error, got %v", err)
	}
	if err := l.TransferFrom(NativeToken, vault, alice, vault, big.NewInt(1)); !errors.Is(err, ErrNativeAllowance) {
		t.Fatalf("expected native allowance error, got %v", err)
	}
}

func TestMovementsRollBackWithState(t *testing.T) {
	db := storage.NewMemDB()
	seed := ledgerstate.NewManager(db)
	if err := New(seed).Credit(token, alice, big.NewInt(5)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := seed.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	mgr := ledgerstate.NewManager(db)
	if err := New(mgr).Transfer(token, alice, bob, big.NewInt(5)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	mgr.Discard()

	after := New(ledgerstate.NewManager(db))
	if got := balance(t, after, token, alice); got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("discarded transfer leaked: alice=%s", got)
	}
}
