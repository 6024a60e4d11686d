// Package client talks to the billing proxy the way the site front end
// does: relative to a resolved /api base, with transient failures retried
// and NotFound kept distinct from "empty".
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/sirupsen/logrus"
)

// DevelopmentBaseURL is used when neither a base URL nor an origin is known.
const DevelopmentBaseURL = "http://localhost:4001/api"

// ResolveBaseURL picks the proxy base URL. An explicit absolute raw value
// wins; a relative raw value is joined to origin; with nothing configured
// the same-origin /api is used, else the local development address.
func ResolveBaseURL(raw, origin string) (string, error) {
	raw = strings.TrimSpace(raw)
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")

	if raw == "" {
		if origin == "" {
			return DevelopmentBaseURL, nil
		}
		raw = "/api"
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", domain.ErrConfiguration(fmt.Sprintf("BILLING_API_URL %q is not a valid URL", raw))
	}
	if u.IsAbs() {
		if u.Host == "" {
			return "", domain.ErrConfiguration(fmt.Sprintf("BILLING_API_URL %q has no host", raw))
		}
		return strings.TrimRight(u.String(), "/"), nil
	}

	if origin == "" {
		return "", domain.ErrConfiguration(fmt.Sprintf("BILLING_API_URL %q is relative and no origin is known; set an absolute URL", raw))
	}
	base, err := url.Parse(origin)
	if err != nil || !base.IsAbs() {
		return "", domain.ErrConfiguration(fmt.Sprintf("origin %q is not an absolute URL", origin))
	}
	return strings.TrimRight(base.ResolveReference(u).String(), "/"), nil
}

// Options tunes a Client.
type Options struct {
	HTTPClient *http.Client
	// MaxRetries bounds retries of idempotent reads after a transient failure.
	MaxRetries uint64
	// RetryInterval is the first backoff delay.
	RetryInterval time.Duration
	// Token, when set, is sent as a bearer token (admin routes).
	Token  string
	Logger *logrus.Entry
}

// Client is a typed client of the billing proxy.
type Client struct {
	base    string
	http    *http.Client
	retries uint64
	initial time.Duration
	token   string
	log     *logrus.Entry
}

// New creates a client for an already resolved base URL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() {
		return nil, domain.ErrConfiguration(fmt.Sprintf("billing API base %q must be an absolute URL", baseURL))
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    opts.HTTPClient,
		retries: opts.MaxRetries,
		initial: opts.RetryInterval,
		token:   opts.Token,
		log:     opts.Logger.WithField("component", "billing-client"),
	}, nil
}

// BaseURL returns the resolved base.
func (c *Client) BaseURL() string { return c.base }

func (c *Client) Account(ctx context.Context, email string) (*domain.Account, error) {
	var out domain.Account
	if err := c.get(ctx, "/billing/account", url.Values{"email": {email}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Subscription returns the account's current subscription, or nil when it
// has none.
func (c *Client) Subscription(ctx context.Context, accountID string) (*domain.Subscription, error) {
	var out domain.Subscription
	err := c.get(ctx, "/billing/accounts/"+url.PathEscape(accountID)+"/subscription", nil, &out)
	if domain.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Charges(ctx context.Context, accountID string) ([]domain.Purchase, error) {
	out := []domain.Purchase{}
	err := c.get(ctx, "/billing/accounts/"+url.PathEscape(accountID)+"/charges", nil, &out)
	return out, err
}

func (c *Client) Sessions(ctx context.Context, accountID string) ([]domain.CheckoutSession, error) {
	out := []domain.CheckoutSession{}
	err := c.get(ctx, "/billing/accounts/"+url.PathEscape(accountID)+"/sessions", nil, &out)
	return out, err
}

func (c *Client) Purchases(ctx context.Context, accountID string) ([]domain.Purchase, error) {
	out := []domain.Purchase{}
	err := c.get(ctx, "/billing/accounts/"+url.PathEscape(accountID)+"/purchases", nil, &out)
	return out, err
}

func (c *Client) Overview(ctx context.Context, email string) (*domain.Overview, error) {
	var out domain.Overview
	if err := c.get(ctx, "/billing/overview", url.Values{"email": {email}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Plans(ctx context.Context) ([]domain.Plan, error) {
	out := []domain.Plan{}
	err := c.get(ctx, "/plans", nil, &out)
	return out, err
}

// AdminCharges lists charges of any status. Requires an admin token.
func (c *Client) AdminCharges(ctx context.Context, accountID, status string) ([]domain.Purchase, error) {
	out := []domain.Purchase{}
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	err := c.get(ctx, "/admin/billing/accounts/"+url.PathEscape(accountID)+"/charges", q, &out)
	return out, err
}

// AdminSubscriptions lists every subscription record. Requires an admin token.
func (c *Client) AdminSubscriptions(ctx context.Context, accountID string) ([]domain.Subscription, error) {
	out := []domain.Subscription{}
	err := c.get(ctx, "/admin/billing/accounts/"+url.PathEscape(accountID)+"/subscriptions", nil, &out)
	return out, err
}

// Checkout is never retried; each attempt would open a new session.
func (c *Client) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.RedirectResponse, error) {
	var out domain.RedirectResponse
	if err := c.do(ctx, http.MethodPost, "/billing/checkout", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Portal(ctx context.Context, req domain.PortalRequest) (*domain.RedirectResponse, error) {
	var out domain.RedirectResponse
	if err := c.do(ctx, http.MethodPost, "/billing/portal", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs an idempotent read, retrying transient failures with
// exponential backoff up to MaxRetries.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		err := c.do(ctx, http.MethodGet, path, query, nil, out)
		if err == nil || domain.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		c.log.WithError(err).WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt,
			"wait":    wait.String(),
		}).Warn("transient billing API failure, retrying")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx), notify)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return domain.ErrTransient("billing API request cancelled", err)
	}
	return err
}

type errorBody struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return domain.ErrInternal("failed to encode request", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return domain.ErrConfiguration(fmt.Sprintf("invalid billing API request %s %s: %v", method, target, err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ErrTransient("billing API unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.ErrTransient("failed to read billing API response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return domain.ErrInternal("failed to decode billing API response", err)
		}
		return nil
	}
	return responseError(resp.StatusCode, raw)
}

// responseError rebuilds the server's AppError from an error response,
// falling back to the status code when the body carries no kind.
func responseError(status int, raw []byte) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Error
	if msg == "" {
		msg = fmt.Sprintf("billing API returned %d", status)
	}

	kind := eb.Kind
	if kind == "" {
		kind = kindForStatus(status)
	}

	var appErr *domain.AppError
	switch kind {
	case domain.KindNotFound:
		appErr = domain.ErrNotFound(msg)
	case domain.KindTransient:
		appErr = domain.ErrTransient(msg, nil)
	case domain.KindConfiguration:
		appErr = domain.ErrConfiguration(msg)
	case domain.KindValidation:
		appErr = domain.ErrValidation(msg)
	case domain.KindBadRequest:
		appErr = domain.ErrBadRequest(msg)
	case domain.KindUnauthorized:
		appErr = domain.ErrUnauthorized(msg)
	case domain.KindForbidden:
		appErr = domain.ErrForbidden(msg)
	default:
		appErr = domain.ErrInternal(msg, nil)
	}
	appErr.Code = status
	return appErr
}

func kindForStatus(status int) domain.ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return domain.KindNotFound
	case status == http.StatusTooManyRequests,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return domain.KindTransient
	case status == http.StatusUnauthorized:
		return domain.KindUnauthorized
	case status == http.StatusForbidden:
		return domain.KindForbidden
	case status == http.StatusUnprocessableEntity:
		return domain.KindValidation
	case status >= 400 && status < 500:
		return domain.KindBadRequest
	default:
		return domain.KindInternal
	}
}
