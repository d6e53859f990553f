package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"payledger/core/events"
)

func TestModuleMetricsObserve(t *testing.T) {
	m := ModuleMetrics()
	before := testutil.ToFloat64(m.errors.WithLabelValues("payment", "deposit", "-32044"))
	m.Observe("payment", "deposit", -32044, 5*time.Millisecond)
	m.Observe("payment", "deposit", 0, time.Millisecond)
	after := testutil.ToFloat64(m.errors.WithLabelValues("payment", "deposit", "-32044"))
	if after-before != 1 {
		t.Fatalf("expected one error sample, got %v", after-before)
	}
	var nilMetrics *moduleMetrics
	nilMetrics.Observe("payment", "deposit", 0, 0)
	nilMetrics.RecordThrottle("payment", "rate_limit")
}

func TestLedgerFailureReasons(t *testing.T) {
	m := Ledger()
	counter := m.failures.WithLabelValues("transfer", "invalid deal")
	before := testutil.ToFloat64(counter)
	m.RecordFailure("transfer", errors.New("invalid deal"))
	m.RecordFailure("transfer", nil)
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected one failure, got %v", got)
	}
}

func TestEventsCountSerialNumbers(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(Ledger().serials)
	sn := common.HexToHash("0x01")
	m.Emit(events.PaymentBind{Account: common.HexToHash("0xa1"), Wallet: common.HexToAddress("0x01"), SN: sn})
	m.Emit(events.PaymentFreeze{Account: common.HexToHash("0xa1"), SN: sn})
	m.Emit(events.PaymentUnbind{Account: common.HexToHash("0xa1")})
	if got := testutil.ToFloat64(Ledger().serials) - before; got != 1 {
		t.Fatalf("expected one consumed serial, got %v", got)
	}
	if got := testutil.ToFloat64(m.logs.WithLabelValues(events.TypePaymentUnbind)); got < 1 {
		t.Fatalf("unbind log not counted")
	}
}
