package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// StripeConfig configures a StripeGateway.
type StripeConfig struct {
	SecretKey string
	// APIURL overrides the Stripe API base, e.g. for stripe-mock or tests.
	APIURL            string
	MaxNetworkRetries int64
	HTTPClient        *http.Client
	Logger            *logrus.Entry
}

// StripeGateway implements Gateway on top of the Stripe API. It owns its
// own client instance; the package-level stripe.Key is never touched.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a gateway with an explicitly configured backend.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, fmt.Errorf("%w: STRIPE_SECRET_KEY is not set", ErrNotConfigured)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.Logger != nil {
		backendCfg.LeveledLogger = cfg.Logger
	}
	if u := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"); u != "" {
		backendCfg.URL = stripe.String(u)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &StripeGateway{api: client.New(key, backends)}, nil
}

// FindCustomersByEmail matches email case-insensitively through customer
// search. Search indexing lags by up to a minute, so an empty result falls
// back to the exact-match list filter to catch customers created moments ago.
func (g *StripeGateway) FindCustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	params := &stripe.CustomerSearchParams{}
	params.Query = "email:'" + escapeSearchValue(email) + "'"
	params.Context = ctx
	params.Limit = stripe.Int64(2)
	params.Single = true

	var out []Customer
	sit := g.api.Customers.Search(params)
	for sit.Next() {
		out = append(out, convertCustomer(sit.Customer()))
	}
	if err := sit.Err(); err != nil {
		return nil, classify("search customers", err)
	}
	if len(out) > 0 {
		return out, nil
	}

	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(2)
	listParams.Single = true

	it := g.api.Customers.List(listParams)
	for it.Next() {
		out = append(out, convertCustomer(it.Customer()))
	}
	if err := it.Err(); err != nil {
		return nil, classify("list customers", err)
	}
	return out, nil
}

func convertCustomer(c *stripe.Customer) Customer {
	return Customer{
		ID:      c.ID,
		Email:   c.Email,
		Created: unixTime(c.Created),
	}
}

// escapeSearchValue quotes a value for a single-quoted search clause.
func escapeSearchValue(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

func (g *StripeGateway) ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx

	var out []Subscription
	it := g.api.Subscriptions.List(params)
	for it.Next() {
		out = append(out, convertSubscription(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		return nil, classify("list subscriptions", err)
	}

	if err := g.nameSubscriptions(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// nameSubscriptions fills PlanName from the product of each subscription's
// price. Stripe caps expansion at four levels, one short of
// data.items.data.price.product, so products are fetched in one extra call.
func (g *StripeGateway) nameSubscriptions(ctx context.Context, subs []Subscription) error {
	seen := make(map[string]bool)
	var ids []*string
	for _, s := range subs {
		if s.ProductID != "" && !seen[s.ProductID] {
			seen[s.ProductID] = true
			ids = append(ids, stripe.String(s.ProductID))
		}
	}
	if len(ids) == 0 {
		return nil
	}

	params := &stripe.ProductListParams{IDs: ids}
	params.Context = ctx
	params.Limit = stripe.Int64(100)

	names := make(map[string]string, len(ids))
	it := g.api.Products.List(params)
	for it.Next() {
		p := it.Product()
		names[p.ID] = p.Name
	}
	if err := it.Err(); err != nil {
		return classify("list products", err)
	}

	for i := range subs {
		if name := names[subs[i].ProductID]; name != "" {
			subs[i].PlanName = name
		}
	}
	return nil
}

func convertSubscription(s *stripe.Subscription) Subscription {
	sub := Subscription{
		ID:                 s.ID,
		Status:             string(s.Status),
		CurrentPeriodStart: unixTime(s.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(s.CurrentPeriodEnd),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		Created:            unixTime(s.Created),
	}
	if s.CanceledAt > 0 {
		t := unixTime(s.CanceledAt)
		sub.CanceledAt = &t
	}

	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		price := s.Items.Data[0].Price
		sub.PriceID = price.ID
		sub.Amount = price.UnitAmount
		sub.Currency = string(price.Currency)
		// Nickname stands in until the product name is known.
		sub.PlanName = price.Nickname
		if price.Recurring != nil {
			sub.Interval = string(price.Recurring.Interval)
		}
		if price.Product != nil {
			sub.ProductID = price.Product.ID
			if price.Product.Name != "" {
				sub.PlanName = price.Product.Name
			}
		}
	}
	return sub
}

func (g *StripeGateway) ListCharges(ctx context.Context, customerID string) ([]Charge, error) {
	params := &stripe.ChargeListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.invoice")

	var out []Charge
	it := g.api.Charges.List(params)
	for it.Next() {
		out = append(out, convertCharge(it.Charge()))
	}
	if err := it.Err(); err != nil {
		return nil, classify("list charges", err)
	}
	return out, nil
}

func convertCharge(c *stripe.Charge) Charge {
	ch := Charge{
		ID:          c.ID,
		Amount:      c.Amount,
		Currency:    string(c.Currency),
		Created:     unixTime(c.Created),
		Status:      string(c.Status),
		Description: c.Description,
		ReceiptURL:  c.ReceiptURL,
	}
	if c.Invoice != nil {
		ch.InvoiceID = c.Invoice.ID
		ch.SubscriptionInvoice = c.Invoice.Subscription != nil
	}
	if c.PaymentIntent != nil {
		ch.PaymentIntentID = c.PaymentIntent.ID
	}
	if d := c.PaymentMethodDetails; d != nil && d.Card != nil {
		ch.CardBrand = string(d.Card.Brand)
		ch.CardLast4 = d.Card.Last4
	}
	return ch
}

func (g *StripeGateway) ListCheckoutSessions(ctx context.Context, customerID string) ([]CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.line_items")

	var out []CheckoutSession
	it := g.api.CheckoutSessions.List(params)
	for it.Next() {
		out = append(out, convertCheckoutSession(it.CheckoutSession()))
	}
	if err := it.Err(); err != nil {
		return nil, classify("list checkout sessions", err)
	}
	return out, nil
}

func convertCheckoutSession(s *stripe.CheckoutSession) CheckoutSession {
	cs := CheckoutSession{
		ID:            s.ID,
		Mode:          string(s.Mode),
		Amount:        s.AmountTotal,
		Currency:      string(s.Currency),
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		Created:       unixTime(s.Created),
		Description:   strings.TrimSpace(s.Metadata["description"]),
	}
	if cs.Description == "" && s.LineItems != nil {
		for _, li := range s.LineItems.Data {
			if d := strings.TrimSpace(li.Description); d != "" {
				cs.Description = d
				break
			}
		}
	}
	if s.PaymentIntent != nil {
		cs.PaymentIntentID = s.PaymentIntent.ID
	}
	return cs
}

func (g *StripeGateway) ListPrices(ctx context.Context) ([]Price, error) {
	params := &stripe.PriceListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.product")

	var out []Price
	it := g.api.Prices.List(params)
	for it.Next() {
		p := it.Price()
		if p.Product != nil && !p.Product.Active {
			continue
		}
		out = append(out, convertPrice(p))
	}
	if err := it.Err(); err != nil {
		return nil, classify("list prices", err)
	}
	return out, nil
}

func convertPrice(p *stripe.Price) Price {
	price := Price{
		ID:       p.ID,
		Nickname: p.Nickname,
		Amount:   p.UnitAmount,
		Currency: string(p.Currency),
		Interval: "one_time",
	}
	if p.Recurring != nil {
		price.Interval = string(p.Recurring.Interval)
	}
	if p.Product != nil {
		price.ProductID = p.Product.ID
		price.ProductName = p.Product.Name
		price.ProductDescription = p.Product.Description
		if len(p.Product.Images) > 0 {
			price.Image = p.Product.Images[0]
		}
	}
	return price
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(in.Mode),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(in.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	switch {
	case in.CustomerID != "":
		params.Customer = stripe.String(in.CustomerID)
	case in.CustomerEmail != "":
		params.CustomerEmail = stripe.String(in.CustomerEmail)
		if in.Mode == ModePayment {
			params.CustomerCreation = stripe.String("always")
		}
	}

	if in.Description != "" {
		params.AddMetadata("description", in.Description)
		if in.Mode == ModePayment {
			params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
				Description: stripe.String(in.Description),
			}
		}
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", classify("create checkout session", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", classify("create portal session", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) Ping(ctx context.Context) error {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	if _, err := g.api.Balance.Get(params); err != nil {
		return classify("ping", err)
	}
	return nil
}

// classify maps a Stripe SDK error onto the gateway sentinels. Anything
// that is not an API error response is a transport failure.
func classify(op string, err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		switch {
		case serr.HTTPStatusCode == http.StatusNotFound || serr.Code == stripe.ErrorCodeResourceMissing:
			return fmt.Errorf("stripe %s: %w: %s", op, ErrNotFound, serr.Msg)
		case serr.HTTPStatusCode == http.StatusUnauthorized || serr.HTTPStatusCode == http.StatusForbidden:
			return fmt.Errorf("stripe %s: %w: %s", op, ErrNotConfigured, serr.Msg)
		case serr.HTTPStatusCode == http.StatusTooManyRequests || serr.HTTPStatusCode >= 500:
			return fmt.Errorf("stripe %s: %w: %s", op, ErrUnavailable, serr.Msg)
		default:
			return fmt.Errorf("stripe %s: %w: %s", op, ErrInvalidRequest, serr.Msg)
		}
	}
	return fmt.Errorf("stripe %s: %w: %w", op, ErrUnavailable, err)
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
