package service

import (
	"strings"

	"github.com/gamalabdu/trash-billing/internal/domain"
)

// IntegrityWarning reports malformed processor data found while
// reconciling. It never stops reconciliation.
type IntegrityWarning struct {
	Reason string
	// Key is the duplicated payment intent or charge id.
	Key string
	// Kept is the session that won (first seen); Ignored lists the rest.
	Kept    string
	Ignored []string
}

const (
	WarnDuplicatePaymentIntent = "duplicate payment intent across checkout sessions"
	WarnDuplicateChargeID      = "duplicate charge id"
)

// Reconcile enriches one-time charges with the checkout session that
// created them, joined on payment intent id.
//
// A charge keeps its own description when it has one; otherwise it takes
// the session's. The session payment status is attached alongside the
// charge status, which is never changed. The result has exactly one entry
// per input charge, in input order. Reconcile is a pure function of its
// arguments.
func Reconcile(charges []domain.Purchase, sessions []domain.CheckoutSession) ([]domain.Purchase, []IntegrityWarning) {
	var warnings []IntegrityWarning

	byIntent := make(map[string]domain.CheckoutSession, len(sessions))
	dupIndex := make(map[string]int)
	for _, s := range sessions {
		pi := strings.TrimSpace(domain.StringValue(s.PaymentIntentID))
		if pi == "" {
			continue
		}
		kept, seen := byIntent[pi]
		if !seen {
			byIntent[pi] = s
			continue
		}
		if i, ok := dupIndex[pi]; ok {
			warnings[i].Ignored = append(warnings[i].Ignored, s.ID)
			continue
		}
		dupIndex[pi] = len(warnings)
		warnings = append(warnings, IntegrityWarning{
			Reason:  WarnDuplicatePaymentIntent,
			Key:     pi,
			Kept:    kept.ID,
			Ignored: []string{s.ID},
		})
	}

	seenCharges := make(map[string]struct{}, len(charges))
	out := make([]domain.Purchase, 0, len(charges))
	for _, c := range charges {
		if _, dup := seenCharges[c.ID]; dup {
			warnings = append(warnings, IntegrityWarning{Reason: WarnDuplicateChargeID, Key: c.ID})
		}
		seenCharges[c.ID] = struct{}{}

		out = append(out, enrich(c, byIntent))
	}
	return out, warnings
}

func enrich(c domain.Purchase, byIntent map[string]domain.CheckoutSession) domain.Purchase {
	pi := strings.TrimSpace(domain.StringValue(c.PaymentIntentID))
	if pi == "" {
		return c
	}
	s, ok := byIntent[pi]
	if !ok {
		return c
	}

	if isBlank(c.Description) && !isBlank(s.Description) {
		c.Description = domain.StringPtr(*s.Description)
	}
	if s.PaymentStatus != "" {
		c.SessionPaymentStatus = domain.StringPtr(s.PaymentStatus)
	}
	return c
}

func isBlank(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}
