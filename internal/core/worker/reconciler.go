package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aryaranggads/powerpay/internal/core/domain"
)

// PendingSource pages pending transactions by keyset cursor.
type PendingSource interface {
	ListPending(ctx context.Context, afterOrderID string, limit int) ([]domain.Transaction, error)
}

// StatusSyncer pulls one order's authoritative status from the gateway and
// applies it locally.
type StatusSyncer interface {
	SyncFromGateway(ctx context.Context, orderID string) error
}

// Options tune the reconciliation loop. Zero values fall back to defaults.
type Options struct {
	Interval    time.Duration // default 1m
	BatchSize   int           // default 10
	CallTimeout time.Duration // per gateway call, default 10s
}

// Reconciler is the pull channel of status synchronization: a background
// loop that repairs transactions whose webhooks were missed. One instance,
// one goroutine, explicit Start/Stop.
type Reconciler struct {
	src     PendingSource
	syncer  StatusSyncer
	opts    Options
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(src PendingSource, syncer StatusSyncer, opts Options) *Reconciler {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	return &Reconciler{src: src, syncer: syncer, opts: opts}
}

// Start launches the loop. The first tick fires after one full interval.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx)
	slog.Info("reconciler started",
		"interval", r.opts.Interval, "batch_size", r.opts.BatchSize)
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	slog.Info("reconciler stopped")
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick pages through pending transactions until an empty batch, syncing
// each one. A single transaction's failure never aborts the batch or the
// tick. Single-flight: if a previous tick is still running, skip.
func (r *Reconciler) tick(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		slog.Warn("reconcile tick skipped, previous tick still running")
		return
	}
	defer r.running.Store(false)

	cursor := ""
	for {
		batch, err := r.src.ListPending(ctx, cursor, r.opts.BatchSize)
		if err != nil {
			slog.Error("reconcile: listing pending transactions failed", "error", err)
			return
		}
		if len(batch) == 0 {
			return
		}
		for _, tx := range batch {
			if ctx.Err() != nil {
				return
			}
			callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
			if err := r.syncer.SyncFromGateway(callCtx, tx.OrderID); err != nil {
				slog.Error("reconcile: sync failed", "order_id", tx.OrderID, "error", err)
			}
			cancel()
			cursor = tx.OrderID
		}
	}
}
