package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/gamalabdu/trash-billing/internal/repository"
	"github.com/gamalabdu/trash-billing/pkg/payment"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultCallTimeout bounds each payment provider call.
const DefaultCallTimeout = 12 * time.Second

// BillingOptions tunes a BillingService.
type BillingOptions struct {
	CallTimeout time.Duration
	CatalogTTL  time.Duration
	Logger      *logrus.Logger
}

// BillingService answers billing questions for the presentation layer:
// who the customer is, what they subscribe to, what they bought, and
// where to send them to pay.
type BillingService struct {
	gateway  payment.Gateway
	catalog  repository.CatalogCache
	timeout  time.Duration
	ttl      time.Duration
	log      *logrus.Entry
	validate *validator.Validate
	refresh  singleflight.Group
}

func NewBillingService(gateway payment.Gateway, catalog repository.CatalogCache, opts BillingOptions) *BillingService {
	if catalog == nil {
		catalog = repository.NewMemoryCatalogCache()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.CatalogTTL <= 0 {
		opts.CatalogTTL = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BillingService{
		gateway:  gateway,
		catalog:  catalog,
		timeout:  opts.CallTimeout,
		ttl:      opts.CatalogTTL,
		log:      logger.WithField("component", "billing"),
		validate: validator.New(),
	}
}

func (s *BillingService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ResolveAccount looks up the billing account registered under email.
func (s *BillingService) ResolveAccount(ctx context.Context, email string) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrValidation("email is required")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	customers, err := s.gateway.FindCustomersByEmail(ctx, email)
	if err != nil {
		return nil, gatewayError("look up account", "account", err)
	}
	if len(customers) == 0 {
		return nil, domain.ErrNotFound("account not found")
	}
	if len(customers) > 1 {
		ids := make([]string, 0, len(customers))
		for _, c := range customers {
			ids = append(ids, c.ID)
		}
		s.log.WithFields(logrus.Fields{
			"customer_ids": ids,
			"kept":         customers[0].ID,
		}).Warn("data integrity: several accounts share one email")
	}

	c := customers[0]
	return &domain.Account{ID: c.ID, Email: c.Email}, nil
}

// AllSubscriptions returns every subscription record for an account,
// newest first. Used by the admin view of the selection input.
func (s *BillingService) AllSubscriptions(ctx context.Context, accountID string) ([]domain.Subscription, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, domain.ErrValidation("account id is required")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	records, err := s.gateway.ListSubscriptions(ctx, accountID)
	if err != nil {
		return nil, gatewayError("list subscriptions", "account", err)
	}

	subs := make([]domain.Subscription, 0, len(records))
	for _, r := range records {
		subs = append(subs, toSubscription(r))
	}
	sort.SliceStable(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.After(subs[j].CreatedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

// CurrentSubscription returns the account's current subscription, or nil
// when it has none.
func (s *BillingService) CurrentSubscription(ctx context.Context, accountID string) (*domain.Subscription, error) {
	subs, err := s.AllSubscriptions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return SelectCurrentSubscription(subs), nil
}

// ListCharges returns the account's one-time charges with the given status,
// newest first. An empty status means succeeded; domain.ChargeStatusAll
// disables the filter.
func (s *BillingService) ListCharges(ctx context.Context, accountID, status string) ([]domain.Purchase, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, domain.ErrValidation("account id is required")
	}
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "":
		status = domain.ChargeSucceeded
	case domain.ChargeSucceeded, domain.ChargePending, domain.ChargeFailed, domain.ChargeStatusAll:
	default:
		return nil, domain.ErrValidation("status must be one of succeeded, pending, failed, all")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	records, err := s.gateway.ListCharges(ctx, accountID)
	if err != nil {
		return nil, gatewayError("list charges", "account", err)
	}

	purchases := make([]domain.Purchase, 0, len(records))
	for _, c := range records {
		if c.SubscriptionInvoice {
			continue
		}
		if status != domain.ChargeStatusAll && c.Status != status {
			continue
		}
		purchases = append(purchases, toPurchase(c))
	}
	SortPurchases(purchases)
	return purchases, nil
}

// SortPurchases orders purchases newest first, breaking ties on id.
func SortPurchases(purchases []domain.Purchase) {
	sort.SliceStable(purchases, func(i, j int) bool {
		a, b := purchases[i], purchases[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID < b.ID
	})
}

// ListPaymentSessions returns the account's one-time-payment checkout sessions.
func (s *BillingService) ListPaymentSessions(ctx context.Context, accountID string) ([]domain.CheckoutSession, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, domain.ErrValidation("account id is required")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	records, err := s.gateway.ListCheckoutSessions(ctx, accountID)
	if err != nil {
		return nil, gatewayError("list checkout sessions", "account", err)
	}

	sessions := make([]domain.CheckoutSession, 0, len(records))
	for _, r := range records {
		if r.Mode != payment.ModePayment {
			continue
		}
		sessions = append(sessions, toCheckoutSession(r))
	}
	return sessions, nil
}

// PurchaseHistory fetches charges and payment sessions concurrently and
// returns the reconciled purchase list.
func (s *BillingService) PurchaseHistory(ctx context.Context, accountID string) ([]domain.Purchase, error) {
	var (
		charges  []domain.Purchase
		sessions []domain.CheckoutSession
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		charges, err = s.ListCharges(gctx, accountID, "")
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = s.ListPaymentSessions(gctx, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	purchases, warnings := Reconcile(charges, sessions)
	for _, w := range warnings {
		s.log.WithFields(logrus.Fields{
			"account_id": accountID,
			"key":        w.Key,
			"kept":       w.Kept,
			"ignored":    w.Ignored,
		}).Warn("data integrity: " + w.Reason)
	}
	return purchases, nil
}

// Overview gathers the billing page for an email. An unknown email is a
// new customer, not an error.
func (s *BillingService) Overview(ctx context.Context, email string) (*domain.Overview, error) {
	account, err := s.ResolveAccount(ctx, email)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}

	out := &domain.Overview{Account: account, Purchases: []domain.Purchase{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plans, err := s.ListPlans(gctx)
		out.Plans = plans
		return err
	})

	if account == nil {
		out.NewCustomer = true
	} else {
		g.Go(func() error {
			sub, err := s.CurrentSubscription(gctx, account.ID)
			out.Subscription = sub
			return err
		})
		g.Go(func() error {
			purchases, err := s.PurchaseHistory(gctx, account.ID)
			if purchases != nil {
				out.Purchases = purchases
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPlans returns the purchasable catalog, served from the catalog cache
// while fresh.
func (s *BillingService) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	if plans, ok, err := s.catalog.GetPlans(ctx); err != nil {
		s.log.WithError(err).Warn("plan cache read failed, fetching from provider")
	} else if ok {
		return plans, nil
	}

	// Concurrent misses share one provider round trip. The shared fetch is
	// detached from the caller that started it; each caller still stops
	// waiting when its own context ends.
	ch := s.refresh.DoChan("plans", func() (interface{}, error) {
		fetchCtx, cancel := s.bounded(context.WithoutCancel(ctx))
		defer cancel()
		return s.fetchPlans(fetchCtx)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, gatewayError("list plans", "plan catalog", ctx.Err())
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Val.([]domain.Plan)
	plans := make([]domain.Plan, len(shared))
	copy(plans, shared)
	return plans, nil
}

func (s *BillingService) fetchPlans(ctx context.Context) ([]domain.Plan, error) {
	if unlock, err := s.catalog.LockRefresh(ctx); err != nil {
		if errors.Is(err, repository.ErrRefreshBusy) {
			s.log.WithError(err).Debug("catalog refresh in progress elsewhere, fetching directly")
		} else {
			s.log.WithError(err).Warn("catalog refresh lock failed, fetching directly")
		}
	} else {
		defer unlock()
		// Another process may have refreshed just before we got the lock.
		if plans, ok, err := s.catalog.GetPlans(ctx); err == nil && ok {
			return plans, nil
		}
	}

	callCtx, cancel := s.bounded(ctx)
	defer cancel()

	prices, err := s.gateway.ListPrices(callCtx)
	if err != nil {
		return nil, gatewayError("list plans", "plan catalog", err)
	}

	plans := make([]domain.Plan, 0, len(prices))
	for _, p := range prices {
		plan, ok := toPlan(p)
		if !ok {
			s.log.WithFields(logrus.Fields{
				"price_id": p.ID,
				"interval": p.Interval,
			}).Debug("skipping price with unsupported billing interval")
			continue
		}
		plans = append(plans, plan)
	}
	domain.SortPlans(plans)

	if err := s.catalog.SetPlans(ctx, plans, s.ttl); err != nil {
		s.log.WithError(err).Warn("plan cache write failed")
	}
	return plans, nil
}

// CreateCheckout starts a hosted checkout for a catalog price and returns
// the page to redirect to.
func (s *BillingService) CreateCheckout(ctx context.Context, req *domain.CheckoutRequest) (*domain.RedirectResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(formatValidationErrors(err))
	}

	plans, err := s.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	plan, ok := domain.FindPlan(plans, req.PriceID)
	if !ok {
		return nil, domain.ErrBadRequest("unknown price")
	}

	params := payment.CheckoutParams{
		PriceID:        plan.PriceID,
		Mode:           payment.ModePayment,
		CustomerID:     strings.TrimSpace(req.AccountID),
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
		Description:    plan.Name,
		IdempotencyKey: uuid.New().String(),
	}
	if plan.Recurring() {
		params.Mode = payment.ModeSubscription
	}

	if params.CustomerID == "" && req.Email != "" {
		account, err := s.ResolveAccount(ctx, req.Email)
		switch {
		case err == nil:
			params.CustomerID = account.ID
		case domain.IsNotFound(err):
			params.CustomerEmail = strings.TrimSpace(req.Email)
		default:
			return nil, err
		}
	}

	callCtx, cancel := s.bounded(ctx)
	defer cancel()

	url, err := s.gateway.CreateCheckoutSession(callCtx, params)
	if err != nil {
		return nil, gatewayError("create checkout session", "account", err)
	}

	s.log.WithFields(logrus.Fields{
		"price_id": plan.PriceID,
		"mode":     params.Mode,
		"existing": params.CustomerID != "",
	}).Info("checkout session created")
	return &domain.RedirectResponse{URL: url}, nil
}

// CreatePortalSession opens the provider's customer portal for an account.
func (s *BillingService) CreatePortalSession(ctx context.Context, req *domain.PortalRequest) (*domain.RedirectResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(formatValidationErrors(err))
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	url, err := s.gateway.CreatePortalSession(ctx, req.AccountID, req.ReturnURL)
	if err != nil {
		return nil, gatewayError("create portal session", "account", err)
	}
	return &domain.RedirectResponse{URL: url}, nil
}

// Ping reports whether the provider is reachable.
func (s *BillingService) Ping(ctx context.Context) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.gateway.Ping(ctx); err != nil {
		return gatewayError("reach payment provider", "provider", err)
	}
	return nil
}

func formatValidationErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}
