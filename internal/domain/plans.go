package domain

import "sort"

// Plan is a purchasable catalog entry. ID is the processor price id, so a
// product sold monthly and yearly yields two plans.
type Plan struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
	Price       int64   `json:"price"` // minor currency units
	Currency    string  `json:"currency"`
	Interval    string  `json:"interval"` // month, year or one_time
	PriceID     string  `json:"priceId"`
}

// Recurring reports whether buying the plan starts a subscription.
func (p Plan) Recurring() bool {
	return p.Interval == IntervalMonth || p.Interval == IntervalYear
}

func intervalRank(interval string) int {
	switch interval {
	case IntervalMonth:
		return 0
	case IntervalYear:
		return 1
	default:
		return 2
	}
}

// SortPlans orders plans for the plans grid: monthly, yearly, then one-time
// offerings, each by price and name.
func SortPlans(plans []Plan) {
	sort.SliceStable(plans, func(i, j int) bool {
		a, b := plans[i], plans[j]
		if ra, rb := intervalRank(a.Interval), intervalRank(b.Interval); ra != rb {
			return ra < rb
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// FindPlan returns the plan with the given price id.
func FindPlan(plans []Plan, priceID string) (Plan, bool) {
	for _, p := range plans {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}
