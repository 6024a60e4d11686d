package service

import (
	"sort"

	"github.com/gamalabdu/trash-billing/internal/domain"
)

// SelectCurrentSubscription picks the one subscription shown for an account:
// the newest active one, else the newest that is not canceled or expired.
// Equal creation times fall back to id order so the choice is stable.
// It returns nil when nothing qualifies.
func SelectCurrentSubscription(subs []domain.Subscription) *domain.Subscription {
	candidates := make([]domain.Subscription, 0, len(subs))
	for _, s := range subs {
		if isCurrentCandidate(s.Status) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aActive, bActive := a.Status == domain.SubscriptionActive, b.Status == domain.SubscriptionActive
		if aActive != bActive {
			return aActive
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	selected := candidates[0]
	return &selected
}

func isCurrentCandidate(status string) bool {
	switch status {
	case domain.SubscriptionCanceled, domain.SubscriptionIncompleteExpired, "":
		return false
	default:
		return true
	}
}
