package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aryaranggads/powerpay/internal/core/domain"
	"github.com/aryaranggads/powerpay/internal/core/payment"
)

const (
	sandboxSnapBase = "https://app.sandbox.midtrans.com/snap/v1"
	sandboxAPIBase  = "https://api.sandbox.midtrans.com/v2"
	prodSnapBase    = "https://app.midtrans.com/snap/v1"
	prodAPIBase     = "https://api.midtrans.com/v2"
)

// Client is the Midtrans implementation of payment.GatewayClient. Every
// call is bounded by the HTTP client timeout so one slow gateway response
// cannot stall a request or a reconcile batch.
type Client struct {
	httpClient *http.Client
	serverKey  string
	snapBase   string
	apiBase    string
}

// NewClient builds a gateway client for the given environment
// ("sandbox" or "production").
func NewClient(serverKey, env string) *Client {
	snapBase, apiBase := sandboxSnapBase, sandboxAPIBase
	if env == "production" {
		snapBase, apiBase = prodSnapBase, prodAPIBase
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		serverKey:  serverKey,
		snapBase:   snapBase,
		apiBase:    apiBase,
	}
}

type snapRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	ItemDetails     []domain.LineItem `json:"item_details"`
	CustomerDetails struct {
		FirstName string `json:"first_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"customer_details"`
	CreditCard struct {
		Secure bool `json:"secure"`
	} `json:"credit_card"`
	EnabledPayments []string `json:"enabled_payments,omitempty"`
}

type snapError struct {
	ErrorMessages []string `json:"error_messages"`
}

// CreateCharge registers the charge with Snap and returns the payment
// session token and redirect URL.
func (c *Client) CreateCharge(ctx context.Context, params payment.ChargeParams) (*payment.ChargeSession, error) {
	var body snapRequest
	body.TransactionDetails.OrderID = params.OrderID
	body.TransactionDetails.GrossAmount = params.GrossAmount
	body.ItemDetails = params.Items
	body.CustomerDetails.FirstName = params.Customer.FirstName
	body.CustomerDetails.Email = params.Customer.Email
	body.CustomerDetails.Phone = params.Customer.Phone
	body.CreditCard.Secure = true
	body.EnabledPayments = params.EnabledPayments

	var session payment.ChargeSession
	if err := c.do(ctx, http.MethodPost, c.snapBase+"/transactions", &body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Status fetches the gateway's authoritative view of one order.
func (c *Client) Status(ctx context.Context, orderID string) (*domain.GatewayNotification, error) {
	var n domain.GatewayNotification
	if err := c.do(ctx, http.MethodGet, c.apiBase+"/"+orderID+"/status", nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Cancel voids a charge upstream.
func (c *Client) Cancel(ctx context.Context, orderID string) (*domain.GatewayNotification, error) {
	var n domain.GatewayNotification
	if err := c.do(ctx, http.MethodPost, c.apiBase+"/"+orderID+"/cancel", nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) do(ctx context.Context, method, url string, in, out any) error {
	var reqBody *bytes.Buffer
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFoundUpstream, url)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: gateway returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var se snapError
		_ = json.NewDecoder(resp.Body).Decode(&se)
		return fmt.Errorf("%w: %s", domain.ErrGatewayRejected, strings.Join(se.ErrorMessages, "; "))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", domain.ErrGatewayUnavailable, err)
	}
	return nil
}
