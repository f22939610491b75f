package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a transaction. A transaction starts as
// StatusPending and moves to exactly one of the other values; every
// non-pending status is terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSettlement Status = "settlement"
	StatusCapture    Status = "capture"
	StatusDeny       Status = "deny"
	StatusCancel     Status = "cancel"
	StatusExpire     Status = "expire"
	StatusFailure    Status = "failure"
)

// ParseStatus maps a gateway-reported transaction_status onto the closed
// status set. Unknown values are rejected rather than stored.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusSettlement, StatusCapture,
		StatusDeny, StatusCancel, StatusExpire, StatusFailure:
		return Status(s), true
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s != StatusPending && s != ""
}

// Transaction is one electricity purchase. Amounts are whole Rupiah stored
// in int64; BaseAmount + Tax1 + Tax2 + AdminFee must always equal
// GrossAmount. Rows are never deleted: cancellation is a status value.
type Transaction struct {
	OrderID          string          `json:"order_id"`
	UserID           string          `json:"user_id"`
	FirstName        string          `json:"first_name"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	Status           Status          `json:"status"`
	PaymentType      string          `json:"payment_type,omitempty"`
	PaymentDetail    string          `json:"payment_detail,omitempty"`
	GrossAmount      int64           `json:"gross_amount"`
	BaseAmount       int64           `json:"base_amount"`
	Tax1             int64           `json:"ppn"`
	Tax2             int64           `json:"pju"`
	AdminFee         int64           `json:"admin_fee"`
	ConsumptionUnits decimal.Decimal `json:"kwh"`
	TransactionTime  time.Time       `json:"transaction_time"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// StatusPatch is the set of fields a gateway status update may change.
type StatusPatch struct {
	Status          Status
	PaymentType     string
	PaymentDetail   string
	TransactionTime time.Time
}

// VANumber is one virtual-account entry in a bank_transfer notification.
type VANumber struct {
	Bank     string `json:"bank"`
	VANumber string `json:"va_number"`
}

// GatewayNotification is the gateway's status payload, shared by the
// webhook body and the status-poll response.
type GatewayNotification struct {
	OrderID           string     `json:"order_id"`
	StatusCode        string     `json:"status_code"`
	GrossAmount       string     `json:"gross_amount"`
	SignatureKey      string     `json:"signature_key"`
	TransactionStatus string     `json:"transaction_status"`
	TransactionTime   string     `json:"transaction_time"`
	PaymentType       string     `json:"payment_type"`
	VANumbers         []VANumber `json:"va_numbers"`
	Issuer            string     `json:"issuer"`
	Acquirer          string     `json:"acquirer"`
	Bank              string     `json:"bank"`
	Store             string     `json:"store"`
	MaskedCard        string     `json:"masked_card"`
}

// gatewayTimeLayout is the timestamp format the gateway reports,
// e.g. "2024-03-01 14:05:59".
const gatewayTimeLayout = "2006-01-02 15:04:05"

// EventTime parses the gateway-reported transaction_time, falling back to
// now when the field is absent or malformed.
func (n *GatewayNotification) EventTime() time.Time {
	t, err := time.Parse(gatewayTimeLayout, n.TransactionTime)
	if err != nil {
		return time.Now()
	}
	return t
}

// PaymentDetail derives the human-readable elaboration of PaymentType from
// the method-specific notification fields. The method set is closed; an
// unrecognized payment_type falls through to the generic label.
func (n *GatewayNotification) PaymentDetail() string {
	switch n.PaymentType {
	case "bank_transfer":
		if len(n.VANumbers) > 0 {
			return n.VANumbers[0].Bank
		}
		if n.Bank != "" {
			return n.Bank
		}
		return "Permata"
	case "qris":
		if n.Acquirer != "" {
			return n.Acquirer
		}
		return n.Issuer
	case "gopay":
		return "GoPay"
	case "shopeepay":
		return "ShopeePay"
	case "cstore":
		return n.Store
	case "credit_card":
		if n.Bank != "" {
			return n.Bank
		}
		return n.MaskedCard
	case "echannel":
		return "Mandiri Bill Payment"
	default:
		return n.PaymentType
	}
}
