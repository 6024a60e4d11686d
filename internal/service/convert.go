package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/gamalabdu/trash-billing/pkg/payment"
)

// gatewayError maps a gateway failure onto the application error taxonomy.
// subject names the record for NotFound messages ("account", "subscription").
func gatewayError(op, subject string, err error) error {
	switch {
	case errors.Is(err, payment.ErrNotFound):
		return domain.ErrNotFound(subject + " not found")
	case errors.Is(err, payment.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return domain.ErrTransient("payment provider unavailable while trying to "+op, err)
	case errors.Is(err, payment.ErrNotConfigured):
		appErr := domain.ErrConfiguration("payment provider rejected the configured credentials; check STRIPE_SECRET_KEY")
		appErr.Err = err
		return appErr
	case errors.Is(err, payment.ErrInvalidRequest):
		appErr := domain.ErrBadRequest("payment provider rejected the request to " + op)
		appErr.Err = err
		return appErr
	default:
		return domain.ErrInternal("failed to "+op, err)
	}
}

func toSubscription(s payment.Subscription) domain.Subscription {
	out := domain.Subscription{
		ID:                 s.ID,
		Status:             s.Status,
		PlanName:           s.PlanName,
		Amount:             s.Amount,
		Currency:           strings.ToLower(s.Currency),
		Interval:           s.Interval,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CreatedAt:          s.Created,
	}
	if s.CanceledAt != nil {
		t := *s.CanceledAt
		out.CanceledAt = &t
	}
	return out
}

func toPurchase(c payment.Charge) domain.Purchase {
	p := domain.Purchase{
		ID:              c.ID,
		Amount:          c.Amount,
		Currency:        strings.ToLower(c.Currency),
		Date:            c.Created,
		Status:          c.Status,
		Description:     domain.StringPtr(c.Description),
		ReceiptURL:      domain.StringPtr(c.ReceiptURL),
		InvoiceID:       domain.StringPtr(c.InvoiceID),
		PaymentIntentID: domain.StringPtr(c.PaymentIntentID),
	}
	if c.CardBrand != "" || c.CardLast4 != "" {
		p.PaymentMethod = &domain.PaymentMethod{Brand: c.CardBrand, Last4: c.CardLast4}
	}
	return p
}

func toCheckoutSession(s payment.CheckoutSession) domain.CheckoutSession {
	return domain.CheckoutSession{
		ID:              s.ID,
		Mode:            s.Mode,
		Amount:          s.Amount,
		Currency:        strings.ToLower(s.Currency),
		Status:          s.Status,
		PaymentStatus:   s.PaymentStatus,
		Description:     domain.StringPtr(s.Description),
		Date:            s.Created,
		PaymentIntentID: domain.StringPtr(s.PaymentIntentID),
	}
}

// toPlan reports false for recurring prices billed other than monthly or
// yearly; the storefront has no checkout mode for them.
func toPlan(p payment.Price) (domain.Plan, bool) {
	name := p.ProductName
	if name == "" {
		name = p.Nickname
	}
	switch p.Interval {
	case domain.IntervalMonth, domain.IntervalYear, domain.IntervalOneTime:
	default:
		return domain.Plan{}, false
	}
	return domain.Plan{
		ID:          p.ID,
		ProductID:   p.ProductID,
		Name:        name,
		Description: p.ProductDescription,
		Image:       domain.StringPtr(p.Image),
		Price:       p.Amount,
		Currency:    strings.ToLower(p.Currency),
		Interval:    p.Interval,
		PriceID:     p.ID,
	}, true
}
