package handler

// CreateTransactionRequest is the POST /payment/transaction body. Amount is
// kWh when isUnitBased is true, otherwise the tax-inclusive Rupiah total.
type CreateTransactionRequest struct {
	OrderID     string  `json:"order_id"`
	UserID      string  `json:"user_id" validate:"required"`
	FirstName   string  `json:"first_name" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       string  `json:"phone" validate:"required"`
	IsUnitBased bool    `json:"isUnitBased"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	// Optional hints passed through to the gateway.
	PaymentType string `json:"payment_type"`
	Unit        string `json:"unit"`
	Duration    int    `json:"duration"`
}
