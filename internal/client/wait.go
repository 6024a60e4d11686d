package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/sirupsen/logrus"
)

// WaitOptions bounds WaitForSubscription.
type WaitOptions struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 8
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 5 * time.Second
	}
	return o
}

var errNoSubscriptionYet = errors.New("no current subscription yet")

// WaitForSubscription polls until the account has a current subscription,
// as happens shortly after a hosted checkout completes. It stops at the
// first non-transient error, when MaxAttempts is used up, or when ctx is
// done. On exhaustion it returns the last transient error, or NotFound if
// every poll simply found nothing.
func (c *Client) WaitForSubscription(ctx context.Context, accountID string, opts WaitOptions) (*domain.Subscription, error) {
	opts = opts.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialInterval
	b.MaxInterval = opts.MaxInterval
	b.MaxElapsedTime = 0

	var (
		found   *domain.Subscription
		lastErr error
	)
	op := func() error {
		var sub domain.Subscription
		err := c.do(ctx, http.MethodGet, "/billing/accounts/"+url.PathEscape(accountID)+"/subscription", nil, nil, &sub)
		switch {
		case err == nil:
			found = &sub
			return nil
		case domain.IsNotFound(err):
			lastErr = nil
			return errNoSubscriptionYet
		case domain.IsTransient(err):
			lastErr = err
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	notify := func(err error, wait time.Duration) {
		c.log.WithFields(logrus.Fields{
			"account_id": accountID,
			"wait":       wait.String(),
			"reason":     err.Error(),
		}).Debug("waiting for subscription")
	}

	// MaxAttempts counts polls; WithMaxRetries counts retries after the first.
	policy := backoff.WithContext(backoff.WithMaxRetries(b, opts.MaxAttempts-1), ctx)
	err := backoff.RetryNotify(op, policy, notify)
	if err == nil {
		return found, nil
	}

	switch {
	case errors.Is(err, errNoSubscriptionYet):
		return nil, domain.ErrNotFound("subscription not active yet")
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, domain.ErrTransient("stopped waiting for subscription", err)
	default:
		return nil, err
	}
}
