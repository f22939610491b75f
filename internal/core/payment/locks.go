package payment

import (
	"hash/fnv"
	"sync"
)

// orderLocks serializes status writes per order_id so a stale poll result
// cannot race a webhook for the same transaction. Striped rather than
// per-key so the lock table stays bounded.
type orderLocks struct {
	shards [64]sync.Mutex
}

// Lock acquires the stripe for orderID and returns its unlock func.
func (l *orderLocks) Lock(orderID string) func() {
	h := fnv.New32a()
	h.Write([]byte(orderID))
	m := &l.shards[h.Sum32()%uint32(len(l.shards))]
	m.Lock()
	return m.Unlock
}
