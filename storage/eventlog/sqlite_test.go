package eventlog

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"payledger/core/events"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := Open(dsn, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreArchivesAndFilters(t *testing.T) {
	store := newTestStore(t)
	account := common.HexToHash("0xa1")
	wallet := common.HexToAddress("0x01")
	sn := common.HexToHash("0x99")

	store.Emit(events.PaymentBind{Account: account, Wallet: wallet, SN: sn})
	store.Emit(events.PaymentDeposit{Account: account, Token: common.Address{}, Amount: big.NewInt(6), Frozen: big.NewInt(3), SN: sn, Operator: wallet})
	store.Emit(events.PaymentUnbind{Account: account, Wallet: wallet})
	store.Emit(nil)

	all, err := store.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].Event.Type != events.TypePaymentBind || all[2].Event.Type != events.TypePaymentUnbind {
		t.Fatalf("unexpected order: %s .. %s", all[0].Event.Type, all[2].Event.Type)
	}
	if all[1].Event.Attr("amount") != "6" {
		t.Fatalf("unexpected amount attribute %q", all[1].Event.Attr("amount"))
	}
	if _, err := uuid.Parse(all[0].ID); err != nil {
		t.Fatalf("record id is not a uuid: %v", err)
	}

	deposits, err := store.List(context.Background(), Filter{Types: []string{events.TypePaymentDeposit}})
	if err != nil {
		t.Fatalf("list deposits: %v", err)
	}
	if len(deposits) != 1 {
		t.Fatalf("expected 1 deposit, got %d", len(deposits))
	}

	bySN, err := store.List(context.Background(), Filter{SN: sn.Hex()})
	if err != nil {
		t.Fatalf("list by sn: %v", err)
	}
	if len(bySN) != 2 {
		t.Fatalf("expected 2 records for sn, got %d", len(bySN))
	}

	page, err := store.List(context.Background(), Filter{AfterSeq: all[0].Seq, Limit: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].Seq != all[1].Seq {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  ", nil); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
