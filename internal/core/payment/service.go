package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aryaranggads/powerpay/internal/core/domain"
	"github.com/aryaranggads/powerpay/internal/core/security"
)

// Config carries the pricing model and gateway secret. Tax rates, unit
// price and admin fee are operator settings, not client input.
type Config struct {
	ServerKey string
	UnitPrice decimal.Decimal
	TaxRate1  decimal.Decimal // PPN
	TaxRate2  decimal.Decimal // PJU
	AdminFee  int64
	Drift     domain.DriftPolicy
}

// Service owns the transaction lifecycle: registration, webhook-driven
// state transitions and gateway reconciliation. It holds no per-request
// state; every call carries its own payload.
type Service struct {
	store   TransactionStore
	gateway GatewayClient
	events  EventPublisher
	cache   HistoryCache
	cfg     Config
	locks   orderLocks
}

// New wires a Service. events and cache may be nil; both are optional
// collaborators.
func New(store TransactionStore, gateway GatewayClient, events EventPublisher, cache HistoryCache, cfg Config) *Service {
	return &Service{store: store, gateway: gateway, events: events, cache: cache, cfg: cfg}
}

// CreateRequest is one purchase request. Amount is kWh when UnitBased,
// otherwise the tax-inclusive Rupiah total.
type CreateRequest struct {
	OrderID         string
	UserID          string
	FirstName       string
	Email           string
	Phone           string
	UnitBased       bool
	Amount          decimal.Decimal
	EnabledPayments []string
}

// CreateResult is the registered charge plus the local pending record.
type CreateResult struct {
	Token       string                 `json:"token"`
	RedirectURL string                 `json:"redirect_url"`
	Breakdown   domain.ChargeBreakdown `json:"breakdown"`
	Transaction *domain.Transaction    `json:"transaction"`
}

// Create computes the charge, registers it with the gateway and stores the
// pending record. A reused order_id fails with domain.ErrDuplicateOrder.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id", domain.ErrMissingField)
	}

	bd, err := domain.CalculateCharge(domain.ChargeInput{
		UnitBased: req.UnitBased,
		Amount:    req.Amount,
		UnitPrice: s.cfg.UnitPrice,
		TaxRate1:  s.cfg.TaxRate1,
		TaxRate2:  s.cfg.TaxRate2,
		AdminFee:  s.cfg.AdminFee,
		Drift:     s.cfg.Drift,
	})
	if err != nil {
		return nil, err
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = "PWR-" + uuid.New().String()
	}

	session, err := s.gateway.CreateCharge(ctx, ChargeParams{
		OrderID:     orderID,
		GrossAmount: bd.GrossAmount,
		Items:       bd.LineItems,
		Customer: Customer{
			FirstName: req.FirstName,
			Email:     req.Email,
			Phone:     req.Phone,
		},
		EnabledPayments: req.EnabledPayments,
	})
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		OrderID:          orderID,
		UserID:           req.UserID,
		FirstName:        req.FirstName,
		Email:            req.Email,
		Phone:            req.Phone,
		Status:           domain.StatusPending,
		GrossAmount:      bd.GrossAmount,
		BaseAmount:       bd.BaseAmount,
		Tax1:             bd.Tax1,
		Tax2:             bd.Tax2,
		AdminFee:         bd.AdminFee,
		ConsumptionUnits: bd.ConsumptionUnits,
		TransactionTime:  time.Now(),
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, req.UserID)
	}

	slog.Info("transaction registered",
		"order_id", orderID, "user_id", req.UserID, "gross_amount", bd.GrossAmount)

	return &CreateResult{
		Token:       session.Token,
		RedirectURL: session.RedirectURL,
		Breakdown:   bd,
		Transaction: tx,
	}, nil
}

// HandleNotification processes one signed gateway webhook. Verification
// failures reject the request before any state change.
func (s *Service) HandleNotification(ctx context.Context, n *domain.GatewayNotification) error {
	if n.OrderID == "" {
		return fmt.Errorf("%w: order_id missing", domain.ErrMalformedPayload)
	}

	ok, err := security.Verify(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey, s.cfg.ServerKey)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: order %s", domain.ErrInvalidSignature, n.OrderID)
	}

	return s.applyGatewayResult(ctx, n)
}

// SyncFromGateway pulls the authoritative status for one order and applies
// it through the same update path the webhook uses.
func (s *Service) SyncFromGateway(ctx context.Context, orderID string) error {
	n, err := s.gateway.Status(ctx, orderID)
	if err != nil {
		return err
	}
	return s.applyGatewayResult(ctx, n)
}

// applyGatewayResult is the single write path both channels converge on.
// Writes for one order are serialized; terminal statuses are sticky, so a
// late contradicting update is ignored rather than applied.
func (s *Service) applyGatewayResult(ctx context.Context, n *domain.GatewayNotification) error {
	status, ok := domain.ParseStatus(n.TransactionStatus)
	if !ok {
		return fmt.Errorf("%w: unknown transaction_status %q", domain.ErrMalformedPayload, n.TransactionStatus)
	}

	unlock := s.locks.Lock(n.OrderID)
	defer unlock()

	tx, err := s.store.FindByOrderID(ctx, n.OrderID)
	if err != nil {
		return err
	}

	patch := domain.StatusPatch{
		Status:          status,
		PaymentType:     n.PaymentType,
		PaymentDetail:   n.PaymentDetail(),
		TransactionTime: n.EventTime(),
	}
	if err := s.store.UpdateStatus(ctx, n.OrderID, patch); err != nil {
		if errors.Is(err, domain.ErrTerminalState) {
			slog.Warn("ignoring late status update for settled order",
				"order_id", n.OrderID, "current", tx.Status, "reported", status)
			return nil
		}
		return err
	}

	slog.Info("transaction status updated",
		"order_id", n.OrderID, "status", status, "payment_type", n.PaymentType)

	if s.cache != nil {
		s.cache.Invalidate(ctx, tx.UserID)
	}
	if s.events != nil {
		tx.Status = status
		tx.PaymentType = n.PaymentType
		tx.PaymentDetail = patch.PaymentDetail
		tx.TransactionTime = patch.TransactionTime
		if err := s.events.StatusChanged(ctx, tx); err != nil {
			slog.Error("status event publish failed", "order_id", n.OrderID, "error", err)
		}
	}
	return nil
}

// Status proxies the gateway's authoritative view of one order.
func (s *Service) Status(ctx context.Context, orderID string) (*domain.GatewayNotification, error) {
	return s.gateway.Status(ctx, orderID)
}

// Cancel voids a charge upstream and records the resulting status locally.
func (s *Service) Cancel(ctx context.Context, orderID string) (*domain.GatewayNotification, error) {
	n, err := s.gateway.Cancel(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.applyGatewayResult(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// History lists a user's transactions, newest first, through the cache.
func (s *Service) History(ctx context.Context, userID string, status domain.Status) ([]domain.Transaction, error) {
	if s.cache != nil {
		if txs, hit := s.cache.Get(ctx, userID, status); hit {
			return txs, nil
		}
	}
	txs, err := s.store.FindByUser(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, userID, status, txs)
	}
	return txs, nil
}

// ListPending exposes the store's pending page for the reconciler.
func (s *Service) ListPending(ctx context.Context, afterOrderID string, limit int) ([]domain.Transaction, error) {
	return s.store.ListPending(ctx, afterOrderID, limit)
}
