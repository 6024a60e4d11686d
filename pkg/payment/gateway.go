package payment

import (
	"context"
	"errors"
	"time"
)

// Gateway errors. Implementations wrap one of these so callers can tell
// a missing record from an outage without knowing the provider.
var (
	ErrNotFound       = errors.New("payment: not found")
	ErrUnavailable    = errors.New("payment: provider unavailable")
	ErrNotConfigured  = errors.New("payment: provider not configured")
	ErrInvalidRequest = errors.New("payment: invalid request")
)

// Gateway defines the read and redirect operations the billing service
// needs from a payment provider. List methods return every record across
// all provider pages, or an error; never a partial list.
type Gateway interface {
	// FindCustomersByEmail returns the customers registered under email,
	// most recently created first. An empty result is not an error.
	FindCustomersByEmail(ctx context.Context, email string) ([]Customer, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error)
	ListCharges(ctx context.Context, customerID string) ([]Charge, error)
	ListCheckoutSessions(ctx context.Context, customerID string) ([]CheckoutSession, error)
	// ListPrices returns the active catalog prices with their products.
	ListPrices(ctx context.Context) ([]Price, error)
	// CreateCheckoutSession creates a hosted checkout page and returns its URL.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	// CreatePortalSession creates a customer portal session and returns its URL.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	Ping(ctx context.Context) error
}

// Customer is a provider customer record.
type Customer struct {
	ID      string
	Email   string
	Created time.Time
}

// Subscription is a provider subscription record flattened to its first item.
type Subscription struct {
	ID                 string
	Status             string
	ProductID          string
	PlanName           string
	PriceID            string
	Amount             int64
	Currency           string
	Interval           string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	Created            time.Time
}

// Charge is a provider charge record.
type Charge struct {
	ID              string
	Amount          int64
	Currency        string
	Created         time.Time
	Status          string
	Description     string
	ReceiptURL      string
	InvoiceID       string
	PaymentIntentID string
	// SubscriptionInvoice is set when the charge paid a subscription invoice.
	SubscriptionInvoice bool
	CardBrand           string
	CardLast4           string
}

// CheckoutSession is a provider hosted-checkout record.
type CheckoutSession struct {
	ID              string
	Mode            string
	Amount          int64
	Currency        string
	Status          string
	PaymentStatus   string
	Description     string
	Created         time.Time
	PaymentIntentID string
}

// Price is an active catalog price joined with its product.
type Price struct {
	ID                 string
	ProductID          string
	ProductName        string
	ProductDescription string
	Image              string
	Nickname           string
	Amount             int64
	Currency           string
	// Interval is "month", "year" or "one_time".
	Interval string
}

// Checkout modes.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// CheckoutParams describes a hosted checkout page to create.
type CheckoutParams struct {
	PriceID        string
	Mode           string
	CustomerID     string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Description    string
	IdempotencyKey string
}
