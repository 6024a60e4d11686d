package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStripeGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewStripeGateway(StripeConfig{
		SecretKey:         "sk_test_123",
		APIURL:            server.URL,
		MaxNetworkRetries: 0,
	})
	require.NoError(t, err)
	return g
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway(StripeConfig{SecretKey: "  "})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripeGateway_ListChargesFollowsPages(t *testing.T) {
	var calls int
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1/charges", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "cus_1", r.URL.Query().Get("customer"))

		if r.URL.Query().Get("starting_after") == "" {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"object":   "list",
				"url":      "/v1/charges",
				"has_more": true,
				"data": []map[string]interface{}{
					{"id": "ch_3", "amount": 3000, "currency": "usd", "created": 300, "status": "succeeded", "payment_intent": "pi_3"},
					{"id": "ch_2", "amount": 2000, "currency": "usd", "created": 200, "status": "succeeded",
						"invoice": map[string]interface{}{"id": "in_1", "subscription": "sub_1"}},
				},
			})
			return
		}

		assert.Equal(t, "ch_2", r.URL.Query().Get("starting_after"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"object":   "list",
			"url":      "/v1/charges",
			"has_more": false,
			"data": []map[string]interface{}{
				{"id": "ch_1", "amount": 1000, "currency": "usd", "created": 100, "status": "failed",
					"receipt_url": "https://pay.example.com/r/1",
					"payment_method_details": map[string]interface{}{
						"card": map[string]interface{}{"brand": "visa", "last4": "4242"},
					}},
			},
		})
	})

	charges, err := g.ListCharges(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, charges, 3)

	assert.Equal(t, "ch_3", charges[0].ID)
	assert.Equal(t, "pi_3", charges[0].PaymentIntentID)
	assert.False(t, charges[0].SubscriptionInvoice)

	assert.Equal(t, "in_1", charges[1].InvoiceID)
	assert.True(t, charges[1].SubscriptionInvoice)

	assert.Equal(t, "ch_1", charges[2].ID)
	assert.Equal(t, "failed", charges[2].Status)
	assert.Equal(t, "visa", charges[2].CardBrand)
	assert.Equal(t, "4242", charges[2].CardLast4)
	assert.Equal(t, int64(100), charges[2].Created.Unix())
}

func TestStripeGateway_ListChargesFailsOnLaterPage(t *testing.T) {
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("starting_after") == "" {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"object":   "list",
				"url":      "/v1/charges",
				"has_more": true,
				"data": []map[string]interface{}{
					{"id": "ch_2", "amount": 2000, "currency": "usd", "created": 200, "status": "succeeded"},
				},
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]interface{}{"type": "api_error", "message": "boom"},
		})
	})

	charges, err := g.ListCharges(context.Background(), "cus_1")
	require.Error(t, err)
	assert.Nil(t, charges)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStripeGateway_FindCustomersByEmail_MixedCase(t *testing.T) {
	var listed bool
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/customers/search":
			assert.Equal(t, "email:'Jane@Example.com'", r.URL.Query().Get("query"))
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"object":   "search_result",
				"url":      "/v1/customers/search",
				"has_more": false,
				"data": []map[string]interface{}{
					{"id": "cus_1", "email": "jane@example.com", "created": 1700000000},
				},
			})
		default:
			listed = true
			w.WriteHeader(http.StatusNotFound)
		}
	})

	customers, err := g.FindCustomersByEmail(context.Background(), "Jane@Example.com")
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "cus_1", customers[0].ID)
	assert.Equal(t, "jane@example.com", customers[0].Email)
	assert.False(t, listed)
}

func TestStripeGateway_FindCustomersByEmail_FallsBackToList(t *testing.T) {
	var paths []string
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/v1/customers/search":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"object": "search_result", "url": "/v1/customers/search",
				"has_more": false, "data": []map[string]interface{}{},
			})
		case "/v1/customers":
			assert.Equal(t, "new@example.com", r.URL.Query().Get("email"))
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"object": "list", "url": "/v1/customers", "has_more": false,
				"data": []map[string]interface{}{
					{"id": "cus_new", "email": "new@example.com", "created": 1700000100},
				},
			})
		}
	})

	customers, err := g.FindCustomersByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "cus_new", customers[0].ID)
	assert.Equal(t, []string{"/v1/customers/search", "/v1/customers"}, paths)
}

func TestEscapeSearchValue(t *testing.T) {
	assert.Equal(t, "jane@example.com", escapeSearchValue("jane@example.com"))
	assert.Equal(t, `o\'brien@example.com`, escapeSearchValue(`o'brien@example.com`))
	assert.Equal(t, `a\\b`, escapeSearchValue(`a\b`))
}

func TestStripeGateway_ListCheckoutSessions(t *testing.T) {
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"object":   "list",
			"url":      "/v1/checkout/sessions",
			"has_more": false,
			"data": []map[string]interface{}{
				{"id": "cs_1", "mode": "payment", "amount_total": 5000, "currency": "usd", "status": "complete",
					"payment_status": "paid", "created": 100, "payment_intent": "pi_1",
					"line_items": map[string]interface{}{
						"object": "list",
						"data":   []map[string]interface{}{{"id": "li_1", "description": "Pro Pack"}},
					}},
				{"id": "cs_2", "mode": "subscription", "amount_total": 50000, "currency": "usd", "status": "complete",
					"payment_status": "paid", "created": 200, "metadata": map[string]string{"description": "Studio"}},
			},
		})
	})

	sessions, err := g.ListCheckoutSessions(context.Background(), "cus_1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "Pro Pack", sessions[0].Description)
	assert.Equal(t, "pi_1", sessions[0].PaymentIntentID)
	assert.Equal(t, "paid", sessions[0].PaymentStatus)
	assert.Equal(t, "Studio", sessions[1].Description)
	assert.Equal(t, "", sessions[1].PaymentIntentID)
}

func TestStripeGateway_ListSubscriptions(t *testing.T) {
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/subscriptions":
			assert.Equal(t, "all", r.URL.Query().Get("status"))
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"object":   "list",
				"url":      "/v1/subscriptions",
				"has_more": false,
				"data": []map[string]interface{}{
					{
						"id": "sub_1", "status": "active", "created": 100,
						"current_period_start": 100, "current_period_end": 200,
						"cancel_at_period_end": true,
						"items": map[string]interface{}{
							"object": "list",
							"data": []map[string]interface{}{{
								"id": "si_1",
								"price": map[string]interface{}{
									"id": "price_1", "unit_amount": 50000, "currency": "usd",
									"nickname": "studio-monthly", "product": "prod_1",
									"recurring": map[string]interface{}{"interval": "month"},
								},
							}},
						},
					},
					{
						"id": "sub_0", "status": "canceled", "created": 50, "canceled_at": 90,
						"items": map[string]interface{}{
							"object": "list",
							"data": []map[string]interface{}{{
								"id": "si_0",
								"price": map[string]interface{}{
									"id": "price_0", "unit_amount": 9000, "currency": "usd",
									"nickname": "legacy", "product": "prod_gone",
									"recurring": map[string]interface{}{"interval": "year"},
								},
							}},
						},
					},
				},
			})
		case "/v1/products":
			q := r.URL.Query()
			assert.ElementsMatch(t, []string{"prod_1", "prod_gone"}, []string{q.Get("ids[0]"), q.Get("ids[1]")})
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"object":   "list",
				"url":      "/v1/products",
				"has_more": false,
				"data": []map[string]interface{}{
					{"id": "prod_1", "name": "Studio", "active": true},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	subs, err := g.ListSubscriptions(context.Background(), "cus_1")
	require.NoError(t, err)
	require.Len(t, subs, 2)

	s := subs[0]
	assert.Equal(t, "Studio", s.PlanName)
	assert.Equal(t, int64(50000), s.Amount)
	assert.Equal(t, "month", s.Interval)
	assert.Equal(t, "prod_1", s.ProductID)
	assert.Equal(t, "price_1", s.PriceID)
	assert.True(t, s.CancelAtPeriodEnd)
	assert.Nil(t, s.CanceledAt)
	assert.Equal(t, int64(200), s.CurrentPeriodEnd.Unix())

	// Product not returned: the price nickname remains the name.
	assert.Equal(t, "legacy", subs[1].PlanName)
	require.NotNil(t, subs[1].CanceledAt)
	assert.Equal(t, int64(90), subs[1].CanceledAt.Unix())
}

func TestStripeGateway_ListSubscriptions_ProductLookupFails(t *testing.T) {
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/products" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"error": map[string]interface{}{"type": "api_error", "message": "down"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"object": "list", "url": "/v1/subscriptions", "has_more": false,
			"data": []map[string]interface{}{{
				"id": "sub_1", "status": "active", "created": 100,
				"items": map[string]interface{}{
					"object": "list",
					"data": []map[string]interface{}{{
						"id": "si_1", "price": map[string]interface{}{"id": "price_1", "product": "prod_1"},
					}},
				},
			}},
		})
	})

	subs, err := g.ListSubscriptions(context.Background(), "cus_1")
	require.Error(t, err)
	assert.Nil(t, subs)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStripeGateway_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]interface{}
		want   error
	}{
		{"missing", http.StatusNotFound, map[string]interface{}{"type": "invalid_request_error", "code": "resource_missing", "message": "No such customer"}, ErrNotFound},
		{"bad key", http.StatusUnauthorized, map[string]interface{}{"type": "invalid_request_error", "message": "Invalid API Key"}, ErrNotConfigured},
		{"rate limited", http.StatusTooManyRequests, map[string]interface{}{"type": "invalid_request_error", "code": "rate_limit", "message": "slow down"}, ErrUnavailable},
		{"bad request", http.StatusBadRequest, map[string]interface{}{"type": "invalid_request_error", "message": "bad param"}, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]interface{}{"error": tt.body})
			})
			_, err := g.CreatePortalSession(context.Background(), "cus_1", "https://example.com/billing")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestClassify_TransportErrorIsUnavailable(t *testing.T) {
	err := classify("list charges", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.FormValue("mode"))
		assert.Equal(t, "price_pack", r.FormValue("line_items[0][price]"))
		assert.Equal(t, "new@example.com", r.FormValue("customer_email"))
		assert.Equal(t, "always", r.FormValue("customer_creation"))
		assert.Equal(t, "Pro Pack", r.FormValue("payment_intent_data[description]"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "cs_new", "url": "https://checkout.stripe.com/c/cs_new"})
	})

	url, err := g.CreateCheckoutSession(context.Background(), CheckoutParams{
		PriceID:        "price_pack",
		Mode:           ModePayment,
		CustomerEmail:  "new@example.com",
		SuccessURL:     "https://example.com/ok",
		CancelURL:      "https://example.com/cancel",
		Description:    "Pro Pack",
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_new", url)
}
