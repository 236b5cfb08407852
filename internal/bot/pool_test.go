package bot

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"stablearb/internal/ledger"
)

const (
	testPoolAddress   = "POOL"
	testInterestAsset = "INTEREST"
	testStableAsset   = "STABLE"
)

func newTestPool(t *testing.T, interestReserve, stableReserve int64) (*ShadowPool, *fakeLedger) {
	t.Helper()
	f := newFakeLedger()
	f.params[testPoolAddress] = map[string]interface{}{
		"asset0":   testInterestAsset,
		"asset1":   testStableAsset,
		"swap_fee": float64(3e8), // 0.003
	}
	f.balances[testPoolAddress] = map[string]int64{
		testInterestAsset: interestReserve,
		testStableAsset:   stableReserve,
	}
	p, err := NewShadowPool(context.Background(), f, testPoolAddress, testInterestAsset, testStableAsset, zap.NewNop())
	if err != nil {
		t.Fatalf("NewShadowPool() error = %v", err)
	}
	return p, f
}

func TestNewShadowPoolRejectsWrongAssets(t *testing.T) {
	f := newFakeLedger()
	f.params[testPoolAddress] = map[string]interface{}{
		"asset0":   "OTHER1",
		"asset1":   "OTHER2",
		"swap_fee": float64(3e8),
	}
	f.balances[testPoolAddress] = map[string]int64{"OTHER1": 1, "OTHER2": 1}

	_, err := NewShadowPool(context.Background(), f, testPoolAddress, testInterestAsset, testStableAsset, zap.NewNop())
	if err == nil {
		t.Fatal("NewShadowPool() with wrong assets: expected error, got nil")
	}
}

// Проекция после последовательного наката свопов должна совпадать с
// проекцией после reset + replay той же очереди
func TestReplayIdempotence(t *testing.T) {
	p, _ := newTestPool(t, 1000000, 2000000)

	swaps := []struct {
		amount int64
		asset  string
	}{
		{5000, testStableAsset},
		{1200, testInterestAsset},
		{333, testStableAsset},
		{70000, testInterestAsset},
	}
	for i, s := range swaps {
		p.ApplyAndQueue(s.amount, s.asset, "unit-"+string(rune('a'+i)))
	}

	sequential := p.Projected()
	p.Replay()
	replayed := p.Projected()

	if !sequential.Equal(replayed) {
		t.Errorf("projected after replay = %v, want %v", replayed, sequential)
	}
}

func TestRemovePendingThrough(t *testing.T) {
	p, _ := newTestPool(t, 1000, 2000)
	p.ApplyAndQueue(10, testStableAsset, "u1")
	p.ApplyAndQueue(20, testStableAsset, "u2")
	p.ApplyAndQueue(30, testInterestAsset, "u3")

	if removed := p.RemovePendingThrough("unknown"); removed != 0 {
		t.Errorf("RemovePendingThrough(unknown) = %d, want 0", removed)
	}
	if p.PendingCount() != 3 {
		t.Fatalf("pending count = %d, want 3", p.PendingCount())
	}

	// подтверждение u2 снимает префикс u1, u2
	if removed := p.RemovePendingThrough("u2"); removed != 2 {
		t.Errorf("RemovePendingThrough(u2) = %d, want 2", removed)
	}
	if p.PendingCount() != 1 {
		t.Errorf("pending count after removal = %d, want 1", p.PendingCount())
	}
}

func TestOnResponseCommitsDeltas(t *testing.T) {
	p, _ := newTestPool(t, 1000, 2000)
	p.ApplyAndQueue(232, testStableAsset, "u1")

	// фактический своп: +232 STABLE, -103 INTEREST
	p.OnResponse(&ledger.ResponseEvent{
		Address:     testPoolAddress,
		TriggerUnit: "u1",
		BalanceDeltas: map[string]int64{
			testStableAsset:   232,
			testInterestAsset: -103,
		},
	})

	if p.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0", p.PendingCount())
	}
	committed := p.Committed()
	if committed[testStableAsset] != 2232 || committed[testInterestAsset] != 897 {
		t.Errorf("committed = %v, want STABLE=2232 INTEREST=897", committed)
	}
	// очередь пуста: проекция совпадает с committed
	if !p.Projected().Equal(committed) {
		t.Errorf("projected = %v, want %v", p.Projected(), committed)
	}
}

func TestOnResponseBounceKeepsCommitted(t *testing.T) {
	p, _ := newTestPool(t, 1000, 2000)
	p.ApplyAndQueue(232, testStableAsset, "u1")

	p.OnResponse(&ledger.ResponseEvent{
		Address:     testPoolAddress,
		TriggerUnit: "u1",
		Bounced:     true,
	})

	committed := p.Committed()
	if committed[testStableAsset] != 2000 || committed[testInterestAsset] != 1000 {
		t.Errorf("committed after bounce = %v, want unchanged", committed)
	}
	if !p.Projected().Equal(committed) {
		t.Errorf("projected after bounce = %v, want %v", p.Projected(), committed)
	}
}

func TestReconcile(t *testing.T) {
	p, _ := newTestPool(t, 1000, 2000)
	p.ApplyAndQueue(232, testStableAsset, "u1")

	// без расхождения сверка ничего не меняет
	if p.Reconcile(map[string]int64{testInterestAsset: 1000, testStableAsset: 2000}) {
		t.Error("Reconcile() with matching balances = true, want false")
	}

	// расхождение на 5 единиц stable-актива
	fresh := map[string]int64{testInterestAsset: 1000, testStableAsset: 2005}
	if !p.Reconcile(fresh) {
		t.Fatal("Reconcile() with mismatch = false, want true")
	}

	committed := p.Committed()
	if committed[testStableAsset] != 2005 || committed[testInterestAsset] != 1000 {
		t.Errorf("committed after reconcile = %v, want observed balances", committed)
	}

	// projected = observed + replay очереди: своп u1 накатывается
	// на новые committed-балансы
	wantOut := AmmOutput(2005, 1000, 232, p.Fee())
	projected := p.Projected()
	if projected[testStableAsset] != 2005+232 || projected[testInterestAsset] != 1000-wantOut {
		t.Errorf("projected after reconcile = %v, want STABLE=%d INTEREST=%d",
			projected, 2005+232, 1000-wantOut)
	}
}
