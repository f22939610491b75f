package domain

import "errors"

var (
	// Validation
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrMissingField  = errors.New("required field is missing")

	// Store
	ErrDuplicateOrder      = errors.New("order_id already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTerminalState       = errors.New("transaction already in a terminal state")

	// Webhook
	ErrMalformedPayload = errors.New("invalid webhook payload")
	ErrInvalidSignature = errors.New("invalid signature")

	// Gateway
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
	ErrNotFoundUpstream   = errors.New("order not found at payment gateway")

	// Config
	ErrMisconfiguredSecret = errors.New("server key is not configured")
)
