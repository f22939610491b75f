package payment

import (
	"context"

	"github.com/aryaranggads/powerpay/internal/core/domain"
)

// TransactionStore is the durable record of every purchase, keyed by
// order_id. Create must be atomic: a second create for the same order_id
// fails with domain.ErrDuplicateOrder and never produces a second row.
type TransactionStore interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
	// FindByUser returns the user's transactions ordered by transaction_time
	// descending. An empty status means no filter.
	FindByUser(ctx context.Context, userID string, status domain.Status) ([]domain.Transaction, error)
	// UpdateStatus applies a gateway status result and refreshes updated_at.
	// Returns domain.ErrTransactionNotFound for unknown orders and
	// domain.ErrTerminalState when the row already carries a different
	// terminal status.
	UpdateStatus(ctx context.Context, orderID string, patch domain.StatusPatch) error
	// ListPending pages pending transactions by keyset cursor: rows with
	// order_id greater than afterOrderID, ascending, at most limit.
	ListPending(ctx context.Context, afterOrderID string, limit int) ([]domain.Transaction, error)
}

// Customer identifies the buyer on a charge registration.
type Customer struct {
	FirstName string
	Email     string
	Phone     string
}

// ChargeParams registers one charge with the gateway. Items must sum
// exactly to GrossAmount or the gateway rejects the charge.
type ChargeParams struct {
	OrderID         string
	GrossAmount     int64
	Items           []domain.LineItem
	Customer        Customer
	EnabledPayments []string
}

// ChargeSession is the gateway's handle for a registered charge.
type ChargeSession struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// GatewayClient talks to the remote payment gateway. CreateCharge is not
// idempotent upstream; callers rely on the store's duplicate guard.
type GatewayClient interface {
	CreateCharge(ctx context.Context, params ChargeParams) (*ChargeSession, error)
	Status(ctx context.Context, orderID string) (*domain.GatewayNotification, error)
	Cancel(ctx context.Context, orderID string) (*domain.GatewayNotification, error)
}

// EventPublisher announces status changes to external consumers (mailer,
// alerting). Publishing is best-effort: failures are logged, never returned
// to the webhook caller.
type EventPublisher interface {
	StatusChanged(ctx context.Context, tx *domain.Transaction) error
}

// HistoryCache is a read-through cache over FindByUser results.
type HistoryCache interface {
	Get(ctx context.Context, userID string, status domain.Status) ([]domain.Transaction, bool)
	Set(ctx context.Context, userID string, status domain.Status, txs []domain.Transaction)
	Invalidate(ctx context.Context, userID string)
}
