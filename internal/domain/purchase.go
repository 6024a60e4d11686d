package domain

import "time"

// Charge statuses.
const (
	ChargeSucceeded = "succeeded"
	ChargePending   = "pending"
	ChargeFailed    = "failed"

	// ChargeStatusAll disables status filtering in the charge aggregator.
	ChargeStatusAll = "all"
)

// PaymentMethod is a short card summary.
type PaymentMethod struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

// Purchase is a one-time payment as shown in the purchase history.
// Nullable processor fields are pointers so that null survives encoding.
type Purchase struct {
	ID                   string         `json:"id"`
	Amount               int64          `json:"amount"`
	Currency             string         `json:"currency"`
	Date                 time.Time      `json:"date"`
	Status               string         `json:"status"`
	Description          *string        `json:"description"`
	ReceiptURL           *string        `json:"receiptUrl"`
	InvoiceID            *string        `json:"invoiceId"`
	PaymentIntentID      *string        `json:"paymentIntentId"`
	PaymentMethod        *PaymentMethod `json:"paymentMethod,omitempty"`
	SessionPaymentStatus *string        `json:"sessionPaymentStatus,omitempty"`
}

// CheckoutSession is a historical hosted-checkout interaction.
type CheckoutSession struct {
	ID              string    `json:"id"`
	Mode            string    `json:"mode"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"paymentStatus"`
	Description     *string   `json:"description"`
	Date            time.Time `json:"date"`
	PaymentIntentID *string   `json:"paymentIntentId"`
}

// StringPtr returns nil for an empty string, else a pointer to a copy of s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, treating nil as "".
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
