package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aryaranggads/powerpay/internal/core/domain"
)

var errMockSync = errors.New("mock sync error")

type fakeSource struct {
	mu        sync.Mutex
	pending   []domain.Transaction
	ListCount int
	FailWith  error
}

func (f *fakeSource) ListPending(_ context.Context, afterOrderID string, limit int) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCount++
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	var out []domain.Transaction
	for _, tx := range f.pending {
		if tx.OrderID > afterOrderID {
			out = append(out, tx)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeSyncer struct {
	mu      sync.Mutex
	Synced  []string
	FailFor map[string]error
	OnSync  func(orderID string)
}

func (f *fakeSyncer) SyncFromGateway(_ context.Context, orderID string) error {
	f.mu.Lock()
	f.Synced = append(f.Synced, orderID)
	onSync := f.OnSync
	err := f.FailFor[orderID]
	f.mu.Unlock()
	if onSync != nil {
		onSync(orderID)
	}
	return err
}

func pendingTx(orderID string) domain.Transaction {
	return domain.Transaction{OrderID: orderID, Status: domain.StatusPending}
}

func TestTick_ZeroPending(t *testing.T) {
	src := &fakeSource{}
	syn := &fakeSyncer{}
	r := New(src, syn, Options{BatchSize: 10})

	r.tick(context.Background())

	if src.ListCount != 1 {
		t.Errorf("list calls = %d, want exactly 1 empty-batch fetch", src.ListCount)
	}
	if len(syn.Synced) != 0 {
		t.Errorf("synced %d orders, want 0 gateway calls", len(syn.Synced))
	}
}

func TestTick_PagesUntilEmptyBatch(t *testing.T) {
	src := &fakeSource{pending: []domain.Transaction{
		pendingTx("A-1"), pendingTx("A-2"), pendingTx("A-3"),
		pendingTx("A-4"), pendingTx("A-5"),
	}}
	syn := &fakeSyncer{}
	r := New(src, syn, Options{BatchSize: 2})

	r.tick(context.Background())

	if len(syn.Synced) != 5 {
		t.Fatalf("synced %d orders, want 5", len(syn.Synced))
	}
	// 2 + 2 + 1, then one final empty fetch ends the tick.
	if src.ListCount != 4 {
		t.Errorf("list calls = %d, want 4", src.ListCount)
	}
}

// A transaction whose row leaves pending mid-scan is not revisited and
// does not derail the cursor.
func TestTick_CursorSurvivesShrinkingSet(t *testing.T) {
	src := &fakeSource{pending: []domain.Transaction{
		pendingTx("A-1"), pendingTx("A-2"), pendingTx("A-3"), pendingTx("A-4"),
	}}
	syn := &fakeSyncer{}
	syn.OnSync = func(orderID string) {
		// Each successful sync settles the row, shrinking the pending set.
		src.mu.Lock()
		defer src.mu.Unlock()
		kept := src.pending[:0]
		for _, tx := range src.pending {
			if tx.OrderID != orderID {
				kept = append(kept, tx)
			}
		}
		src.pending = kept
	}
	r := New(src, syn, Options{BatchSize: 2})

	r.tick(context.Background())

	if len(syn.Synced) != 4 {
		t.Fatalf("synced %d orders, want all 4 exactly once: %v", len(syn.Synced), syn.Synced)
	}
	seen := map[string]int{}
	for _, id := range syn.Synced {
		seen[id]++
		if seen[id] > 1 {
			t.Errorf("order %s revisited", id)
		}
	}
}

func TestTick_SingleFailureDoesNotAbortBatch(t *testing.T) {
	src := &fakeSource{pending: []domain.Transaction{
		pendingTx("A-1"), pendingTx("A-2"), pendingTx("A-3"),
	}}
	syn := &fakeSyncer{FailFor: map[string]error{"A-2": errMockSync}}
	r := New(src, syn, Options{BatchSize: 10})

	r.tick(context.Background())

	if len(syn.Synced) != 3 {
		t.Errorf("synced %d orders, want 3; one failure must not abort the tick", len(syn.Synced))
	}
}

func TestTick_ListFailureEndsTick(t *testing.T) {
	src := &fakeSource{FailWith: errMockSync}
	syn := &fakeSyncer{}
	r := New(src, syn, Options{})

	r.tick(context.Background())

	if len(syn.Synced) != 0 {
		t.Error("sync attempted after list failure")
	}
}

func TestTick_SingleFlight(t *testing.T) {
	src := &fakeSource{pending: []domain.Transaction{pendingTx("A-1")}}
	release := make(chan struct{})
	started := make(chan struct{})
	syn := &fakeSyncer{}
	syn.OnSync = func(string) {
		close(started)
		<-release
	}
	r := New(src, syn, Options{BatchSize: 1})

	go r.tick(context.Background())
	<-started

	// Second tick overlaps the first and must be skipped outright.
	r.tick(context.Background())
	if src.ListCount != 1 {
		t.Errorf("list calls = %d, want 1; overlapping tick must be skipped", src.ListCount)
	}
	close(release)
}

func TestStartStop(t *testing.T) {
	src := &fakeSource{}
	syn := &fakeSyncer{}
	r := New(src, syn, Options{Interval: 10 * time.Millisecond, BatchSize: 5})

	r.Start(context.Background())
	time.Sleep(35 * time.Millisecond)
	r.Stop()

	src.mu.Lock()
	ticked := src.ListCount
	src.mu.Unlock()
	if ticked == 0 {
		t.Error("no tick fired while running")
	}

	time.Sleep(25 * time.Millisecond)
	src.mu.Lock()
	after := src.ListCount
	src.mu.Unlock()
	if after != ticked {
		t.Error("ticks continued after Stop")
	}
}

func TestNewDefaults(t *testing.T) {
	r := New(&fakeSource{}, &fakeSyncer{}, Options{})
	if r.opts.Interval != time.Minute {
		t.Errorf("interval = %v, want 1m", r.opts.Interval)
	}
	if r.opts.BatchSize != 10 {
		t.Errorf("batch size = %d, want 10", r.opts.BatchSize)
	}
	if r.opts.CallTimeout != 10*time.Second {
		t.Errorf("call timeout = %v, want 10s", r.opts.CallTimeout)
	}
}
