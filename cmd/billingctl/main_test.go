package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gamalabdu/trash-billing/internal/repository"
	"github.com/gamalabdu/trash-billing/internal/server"
	"github.com/gamalabdu/trash-billing/internal/service"
	"github.com/gamalabdu/trash-billing/pkg/payment"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliSecret = "cli-test-secret"

func startProxy(t *testing.T) string {
	t.Helper()
	g := payment.NewDemoGateway()
	created := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	g.AddCustomer(payment.Customer{ID: "cus_1", Email: "jo@example.com", Created: created})
	g.AddSubscription("cus_1", payment.Subscription{ID: "sub_1", Status: "active", PlanName: "Studio", Amount: 50000, Currency: "usd", Interval: "month", Created: created})
	g.AddCharge("cus_1", payment.Charge{ID: "ch_1", Amount: 5000, Currency: "usd", Status: "succeeded", Created: created, PaymentIntentID: "pi_1"})
	g.AddCheckoutSession("cus_1", payment.CheckoutSession{ID: "cs_1", Mode: payment.ModePayment, Description: "Pro Pack", PaymentStatus: "paid", PaymentIntentID: "pi_1"})

	logger, _ := logtest.NewNullLogger()
	cache := repository.NewMemoryCatalogCache()
	h := server.NewRouter(server.Deps{
		Billing: service.NewBillingService(g, cache, service.BillingOptions{Logger: logger}),
		Auth:    service.NewAuthService(cliSecret),
		Cache:   cache,
		Logger:  logger,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAccountCommand(t *testing.T) {
	api := startProxy(t)

	out, err := run(t, "--api-url", api, "account", "jo@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "cus_1")

	out, err = run(t, "--api-url", api, "account", "new@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "new customer")
}

func TestSubscriptionCommand(t *testing.T) {
	api := startProxy(t)

	out, err := run(t, "--api-url", api, "subscription", "cus_1")
	require.NoError(t, err)
	assert.Contains(t, out, "Studio")
	assert.Contains(t, out, "500.00 USD")

	out, err = run(t, "--api-url", api, "subscription", "cus_none")
	require.NoError(t, err)
	assert.Contains(t, out, "No current subscription")
}

func TestPurchasesCommand(t *testing.T) {
	api := startProxy(t)

	out, err := run(t, "--api-url", api, "purchases", "cus_1")
	require.NoError(t, err)
	assert.Contains(t, out, "Pro Pack")
	assert.Contains(t, out, "50.00 USD")
}

func TestPurchasesCommand_AdminNeedsToken(t *testing.T) {
	api := startProxy(t)

	_, err := run(t, "--api-url", api, "purchases", "cus_1", "--status", "all")
	require.Error(t, err)

	t.Setenv("JWT_SECRET", cliSecret)
	token, err := run(t, "token")
	require.NoError(t, err)

	out, err := run(t, "--api-url", api, "--token", strings.TrimSpace(token), "purchases", "cus_1", "--status", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "ch_1")
}

func TestPlansCommandJSON(t *testing.T) {
	api := startProxy(t)

	out, err := run(t, "--api-url", api, "--json", "plans")
	require.NoError(t, err)
	assert.Contains(t, out, `"priceId": "price_studio_monthly"`)
}

func TestWaitCommand(t *testing.T) {
	api := startProxy(t)

	out, err := run(t, "--api-url", api, "wait", "cus_1", "--attempts", "2", "--interval", "1ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Studio")

	_, err = run(t, "--api-url", api, "wait", "cus_none", "--attempts", "2", "--interval", "1ms")
	assert.Error(t, err)
}

func TestRelativeAPIURLWithoutOriginFails(t *testing.T) {
	_, err := run(t, "--api-url", "/api", "plans")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relative")
}
