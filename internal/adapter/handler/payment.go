package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/aryaranggads/powerpay/internal/core/domain"
	"github.com/aryaranggads/powerpay/internal/core/payment"
)

type PaymentHandler struct {
	Service  *payment.Service
	validate *validator.Validate
}

func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	return &PaymentHandler{Service: svc, validate: validator.New()}
}

// CreateTransaction registers a purchase and returns the gateway payment
// session.
func (h *PaymentHandler) CreateTransaction(c *fiber.Ctx) error {
	var req CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "ERROR", "message": "invalid json body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "ERROR", "message": err.Error(),
		})
	}

	var enabled []string
	if req.PaymentType != "" {
		enabled = []string{req.PaymentType}
	}

	result, err := h.Service.Create(c.Context(), payment.CreateRequest{
		OrderID:         req.OrderID,
		UserID:          req.UserID,
		FirstName:       req.FirstName,
		Email:           req.Email,
		Phone:           req.Phone,
		UnitBased:       req.IsUnitBased,
		Amount:          decimal.NewFromFloat(req.Amount),
		EnabledPayments: enabled,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "SUCCESS",
		"data":   result,
	})
}

// GetTransactionStatus proxies the gateway's authoritative status.
func (h *PaymentHandler) GetTransactionStatus(c *fiber.Ctx) error {
	n, err := h.Service.Status(c.Context(), c.Params("order_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "SUCCESS", "data": n})
}

// GetHistory lists a user's transactions, optionally filtered by ?status=.
func (h *PaymentHandler) GetHistory(c *fiber.Ctx) error {
	var status domain.Status
	if raw := c.Query("status"); raw != "" {
		parsed, ok := domain.ParseStatus(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status": "ERROR", "message": "unknown status filter: " + raw,
			})
		}
		status = parsed
	}

	txs, err := h.Service.History(c.Context(), c.Params("user_id"), status)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "SUCCESS", "data": txs})
}

// GetPendingHistory is shorthand for ?status=pending.
func (h *PaymentHandler) GetPendingHistory(c *fiber.Ctx) error {
	txs, err := h.Service.History(c.Context(), c.Params("user_id"), domain.StatusPending)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "SUCCESS", "data": txs})
}

// CancelTransaction voids the charge upstream and records the result.
func (h *PaymentHandler) CancelTransaction(c *fiber.Ctx) error {
	n, err := h.Service.Cancel(c.Context(), c.Params("order_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "SUCCESS", "data": n})
}

func (h *PaymentHandler) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// errorResponse maps the domain taxonomy onto HTTP statuses. Upstream
// failures stay 5xx with the original message attached for diagnostics.
func errorResponse(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingField),
		errors.Is(err, domain.ErrMalformedPayload),
		errors.Is(err, domain.ErrInvalidSignature):
		code = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateOrder):
		code = fiber.StatusConflict
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrNotFoundUpstream):
		code = fiber.StatusNotFound
	case errors.Is(err, domain.ErrGatewayUnavailable),
		errors.Is(err, domain.ErrGatewayRejected):
		code = fiber.StatusBadGateway
	}
	return c.Status(code).JSON(fiber.Map{"status": "ERROR", "message": err.Error()})
}
