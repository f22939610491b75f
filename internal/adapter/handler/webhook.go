package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/aryaranggads/powerpay/internal/core/domain"
	"github.com/aryaranggads/powerpay/internal/core/payment"
)

type WebhookHandler struct {
	Service *payment.Service
}

func NewWebhookHandler(svc *payment.Service) *WebhookHandler {
	return &WebhookHandler{Service: svc}
}

// HandleNotification is the gateway's push channel. An unverifiable
// payload is rejected without any state change; the gateway retries on
// non-2xx responses.
func (h *WebhookHandler) HandleNotification(c *fiber.Ctx) error {
	var n domain.GatewayNotification
	if err := c.BodyParser(&n); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "ERROR", "message": "invalid webhook payload",
		})
	}

	slog.Info("webhook received",
		"order_id", n.OrderID, "transaction_status", n.TransactionStatus, "payment_type", n.PaymentType)

	if err := h.Service.HandleNotification(c.Context(), &n); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Webhook processed successfully"})
}
