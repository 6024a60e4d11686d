package domain

import "time"

// Account is a billing identity in the payment processor. Email is the
// processor's canonical copy and may differ from the lookup input.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Subscription statuses as enumerated by the processor.
const (
	SubscriptionActive            = "active"
	SubscriptionTrialing          = "trialing"
	SubscriptionPastDue           = "past_due"
	SubscriptionIncomplete        = "incomplete"
	SubscriptionIncompleteExpired = "incomplete_expired"
	SubscriptionUnpaid            = "unpaid"
	SubscriptionCanceled          = "canceled"
)

// Billing intervals.
const (
	IntervalMonth   = "month"
	IntervalYear    = "year"
	IntervalOneTime = "one_time"
)

// Subscription represents a user's recurring billing relationship with a plan.
type Subscription struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	PlanName           string     `json:"planName"`
	Amount             int64      `json:"amount"` // minor currency units
	Currency           string     `json:"currency"`
	Interval           string     `json:"interval"`
	CurrentPeriodStart time.Time  `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `json:"currentPeriodEnd"`
	CancelAtPeriodEnd  bool       `json:"cancelAtPeriodEnd"`
	CanceledAt         *time.Time `json:"canceledAt"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// CheckoutRequest is the validated input for starting a hosted checkout.
type CheckoutRequest struct {
	PriceID    string `json:"priceId" validate:"required"`
	AccountID  string `json:"accountId"`
	Email      string `json:"email" validate:"omitempty,email"`
	SuccessURL string `json:"successUrl" validate:"required,url"`
	CancelURL  string `json:"cancelUrl" validate:"required,url"`
}

// PortalRequest is the validated input for opening the customer portal.
type PortalRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	ReturnURL string `json:"returnUrl" validate:"required,url"`
}

// RedirectResponse carries a processor-hosted page to send the user to.
type RedirectResponse struct {
	URL string `json:"url"`
}

// Overview is everything the billing page needs for one email.
type Overview struct {
	Account      *Account      `json:"account"`
	NewCustomer  bool          `json:"newCustomer"`
	Subscription *Subscription `json:"subscription"`
	Purchases    []Purchase    `json:"purchases"`
	Plans        []Plan        `json:"plans"`
}
