package payment

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// MockGateway is an in-memory Gateway for local development and tests.
type MockGateway struct {
	mu            sync.RWMutex
	customers     []Customer
	subscriptions map[string][]Subscription
	charges       map[string][]Charge
	sessions      map[string][]CheckoutSession
	prices        []Price

	// Err, when set, is returned by every call.
	Err error
	// Checkouts records every CreateCheckoutSession call.
	Checkouts []CheckoutParams
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		subscriptions: make(map[string][]Subscription),
		charges:       make(map[string][]Charge),
		sessions:      make(map[string][]CheckoutSession),
	}
}

// NewDemoGateway returns a mock seeded with a small agency catalog.
func NewDemoGateway() *MockGateway {
	g := NewMockGateway()
	g.AddPrice(Price{ID: "price_studio_monthly", ProductID: "prod_studio", ProductName: "Studio", ProductDescription: "Monthly creative retainer", Amount: 50000, Currency: "usd", Interval: "month"})
	g.AddPrice(Price{ID: "price_studio_yearly", ProductID: "prod_studio", ProductName: "Studio", ProductDescription: "Yearly creative retainer", Amount: 500000, Currency: "usd", Interval: "year"})
	g.AddPrice(Price{ID: "price_pro_pack", ProductID: "prod_pro_pack", ProductName: "Pro Pack", ProductDescription: "One-time asset pack", Amount: 5000, Currency: "usd", Interval: "one_time"})
	return g
}

func (g *MockGateway) AddCustomer(c Customer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customers = append(g.customers, c)
}

func (g *MockGateway) AddSubscription(customerID string, s Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscriptions[customerID] = append(g.subscriptions[customerID], s)
}

func (g *MockGateway) AddCharge(customerID string, c Charge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges[customerID] = append(g.charges[customerID], c)
}

func (g *MockGateway) AddCheckoutSession(customerID string, s CheckoutSession) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[customerID] = append(g.sessions[customerID], s)
}

func (g *MockGateway) AddPrice(p Price) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prices = append(g.prices, p)
}

func (g *MockGateway) FindCustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.Err != nil {
		return nil, g.Err
	}

	want := strings.ToLower(strings.TrimSpace(email))
	var out []Customer
	for _, c := range g.customers {
		if strings.ToLower(strings.TrimSpace(c.Email)) == want {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

func (g *MockGateway) ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return append([]Subscription(nil), g.subscriptions[customerID]...), nil
}

func (g *MockGateway) ListCharges(ctx context.Context, customerID string) ([]Charge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return append([]Charge(nil), g.charges[customerID]...), nil
}

func (g *MockGateway) ListCheckoutSessions(ctx context.Context, customerID string) ([]CheckoutSession, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return append([]CheckoutSession(nil), g.sessions[customerID]...), nil
}

func (g *MockGateway) ListPrices(ctx context.Context) ([]Price, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return append([]Price(nil), g.prices...), nil
}

func (g *MockGateway) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	g.Checkouts = append(g.Checkouts, params)

	q := url.Values{}
	q.Set("price", params.PriceID)
	q.Set("mode", params.Mode)
	return "https://checkout.example.com/pay?" + q.Encode(), nil
}

func (g *MockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.Err != nil {
		return "", g.Err
	}
	for _, c := range g.customers {
		if c.ID == customerID {
			return fmt.Sprintf("https://billing.example.com/portal/%s?return=%s", customerID, url.QueryEscape(returnURL)), nil
		}
	}
	return "", fmt.Errorf("portal for %s: %w", customerID, ErrNotFound)
}

func (g *MockGateway) Ping(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.Err
}

// Ensure the mock satisfies the interface.
var _ Gateway = (*MockGateway)(nil)
