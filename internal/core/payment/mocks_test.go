package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aryaranggads/powerpay/internal/core/domain"
)

// Common test errors
var (
	ErrMockStore   = errors.New("mock store error")
	ErrMockGateway = errors.New("mock gateway error")
	ErrMockPublish = errors.New("mock publish error")
)

// MockStore implements TransactionStore in memory with the same contract
// the pgx repository honors: duplicate guard, terminal-sticky updates.
type MockStore struct {
	mu          sync.Mutex
	Rows        map[string]*domain.Transaction
	CreateCount int
	UpdateCount int
	ListCount   int
	FailCreate  error
	FailUpdate  error
	FailList    error
}

func NewMockStore() *MockStore {
	return &MockStore{Rows: make(map[string]*domain.Transaction)}
}

func (m *MockStore) Create(_ context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCount++
	if m.FailCreate != nil {
		return m.FailCreate
	}
	if _, exists := m.Rows[tx.OrderID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, tx.OrderID)
	}
	cp := *tx
	m.Rows[tx.OrderID] = &cp
	return nil
}

func (m *MockStore) FindByOrderID(_ context.Context, orderID string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.Rows[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, orderID)
	}
	cp := *tx
	return &cp, nil
}

func (m *MockStore) FindByUser(_ context.Context, userID string, status domain.Status) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range m.Rows {
		if tx.UserID != userID {
			continue
		}
		if status != "" && tx.Status != status {
			continue
		}
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TransactionTime.After(out[j].TransactionTime)
	})
	return out, nil
}

func (m *MockStore) UpdateStatus(_ context.Context, orderID string, patch domain.StatusPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCount++
	if m.FailUpdate != nil {
		return m.FailUpdate
	}
	tx, ok := m.Rows[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, orderID)
	}
	if tx.Status.Terminal() && tx.Status != patch.Status {
		return fmt.Errorf("%w: %s is %s", domain.ErrTerminalState, orderID, tx.Status)
	}
	tx.Status = patch.Status
	tx.PaymentType = patch.PaymentType
	tx.PaymentDetail = patch.PaymentDetail
	tx.TransactionTime = patch.TransactionTime
	return nil
}

func (m *MockStore) ListPending(_ context.Context, afterOrderID string, limit int) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCount++
	if m.FailList != nil {
		return nil, m.FailList
	}
	var ids []string
	for id, tx := range m.Rows {
		if tx.Status == domain.StatusPending && id > afterOrderID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.Rows[id])
	}
	return out, nil
}

// MockGateway implements GatewayClient for testing.
type MockGateway struct {
	mu          sync.Mutex
	ChargeCount int
	StatusCount int
	CancelCount int
	LastParams  ChargeParams
	Session     ChargeSession
	// StatusByOrder drives Status and Cancel responses per order.
	StatusByOrder map[string]*domain.GatewayNotification
	FailCharge    error
	FailStatus    error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Session:       ChargeSession{Token: "snap-token", RedirectURL: "https://pay.example/redirect"},
		StatusByOrder: make(map[string]*domain.GatewayNotification),
	}
}

func (m *MockGateway) CreateCharge(_ context.Context, params ChargeParams) (*ChargeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChargeCount++
	m.LastParams = params
	if m.FailCharge != nil {
		return nil, m.FailCharge
	}
	s := m.Session
	return &s, nil
}

func (m *MockGateway) Status(_ context.Context, orderID string) (*domain.GatewayNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCount++
	if m.FailStatus != nil {
		return nil, m.FailStatus
	}
	n, ok := m.StatusByOrder[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFoundUpstream, orderID)
	}
	cp := *n
	return &cp, nil
}

func (m *MockGateway) Cancel(_ context.Context, orderID string) (*domain.GatewayNotification, error) {
	m.mu.Lock()
	m.CancelCount++
	m.mu.Unlock()
	n, err := m.Status(context.Background(), orderID)
	if err != nil {
		return nil, err
	}
	n.TransactionStatus = string(domain.StatusCancel)
	return n, nil
}

// MockPublisher records status events.
type MockPublisher struct {
	mu       sync.Mutex
	Events   []domain.Transaction
	FailWith error
}

func (m *MockPublisher) StatusChanged(_ context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Events = append(m.Events, *tx)
	return nil
}

// MockCache is an in-memory HistoryCache with hit/miss counters.
type MockCache struct {
	mu              sync.Mutex
	entries         map[string][]domain.Transaction
	Hits, Misses    int
	InvalidateCount int
}

func NewMockCache() *MockCache {
	return &MockCache{entries: make(map[string][]domain.Transaction)}
}

func cacheKey(userID string, status domain.Status) string {
	return userID + "|" + string(status)
}

func (m *MockCache) Get(_ context.Context, userID string, status domain.Status) ([]domain.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txs, ok := m.entries[cacheKey(userID, status)]
	if ok {
		m.Hits++
	} else {
		m.Misses++
	}
	return txs, ok
}

func (m *MockCache) Set(_ context.Context, userID string, status domain.Status, txs []domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey(userID, status)] = txs
}

func (m *MockCache) Invalidate(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvalidateCount++
	for k := range m.entries {
		if len(k) >= len(userID) && k[:len(userID)] == userID {
			delete(m.entries, k)
		}
	}
}
