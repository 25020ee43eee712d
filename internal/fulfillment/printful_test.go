package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printarcade/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Printful {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewPrintful(PrintfulConfig{BaseURL: srv.URL, Token: "pf-token", StoreID: "42"}, nil)
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": 200, "result": result})
}

func TestPrintful_CreateDraftOrder(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("confirm"))
		assert.Equal(t, "Bearer pf-token", r.Header.Get("Authorization"))
		assert.Equal(t, "42", r.Header.Get("X-PF-Store-Id"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeResult(w, map[string]any{"id": 9001, "external_id": "ORD-1", "status": "draft", "created": 1700000000})
	})

	order, err := client.CreateDraftOrder(context.Background(), DraftOrder{
		ExternalID: "ORD-1",
		Recipient:  Recipient{Name: "Ada", Address1: "1 Main St", City: "Portland", CountryCode: "US", Zip: "97201"},
		Items:      []Item{{ExternalVariantID: "ev-1", Quantity: 2, RetailPriceCents: 1700}},
	})
	require.NoError(t, err)
	assert.Equal(t, "9001", order.ID)
	assert.Equal(t, ProviderDraft, order.Status)
	assert.Equal(t, "ORD-1", got["external_id"])

	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "ev-1", item["external_variant_id"])
	assert.Equal(t, "17.00", item["retail_price"])
}

func TestPrintful_EstimateShippingTakesFirstRate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shipping/rates", r.URL.Path)
		writeResult(w, []map[string]any{
			{"id": "STANDARD", "name": "Flat Rate", "rate": "4.99", "currency": "USD"},
			{"id": "EXPRESS", "name": "Express", "rate": "15.00", "currency": "USD"},
		})
	})

	cents, err := client.EstimateShipping(context.Background(), Recipient{CountryCode: "US"}, []Item{{ExternalVariantID: "ev-1", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(499), cents)
}

func TestPrintful_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"result":"Not found","error":{"reason":"NotFound","message":"Order not found"}}`))
	})

	for i := 0; i < breakerFailures+2; i++ {
		_, err := client.GetOrder(context.Background(), "@ORD-MISSING")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	}
	assert.Equal(t, int32(breakerFailures+2), atomic.LoadInt32(&calls))
}

func TestPrintful_ServerErrorsOpenBreaker(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	})

	for i := 0; i < breakerFailures+3; i++ {
		_, err := client.ConfirmOrder(context.Background(), "9001")
		require.Error(t, err)
	}
	assert.Equal(t, int32(breakerFailures), atomic.LoadInt32(&calls))
}

func TestPrintful_ListOrdersPages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ProviderDraft, r.URL.Query().Get("status"))
		offset := r.URL.Query().Get("offset")
		var batch []map[string]any
		total := pageSize + 1
		if offset == "0" {
			for i := 0; i < pageSize; i++ {
				batch = append(batch, map[string]any{"id": i + 1, "external_id": "", "status": "draft"})
			}
		} else {
			batch = append(batch, map[string]any{"id": 777, "external_id": "ORD-LAST", "status": "draft"})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200, "result": batch,
			"paging": map[string]int{"total": total, "offset": 0, "limit": pageSize},
		})
	})

	orders, err := client.ListOrders(context.Background(), ProviderDraft)
	require.NoError(t, err)
	require.Len(t, orders, pageSize+1)
	assert.Equal(t, "777", orders[pageSize].ID)
}

func TestMapStatus(t *testing.T) {
	cases := map[string]domain.OrderStatus{
		"draft":     domain.StatusDraft,
		"pending":   domain.StatusConfirmed,
		"inprocess": domain.StatusProcessing,
		"onhold":    domain.StatusOnHold,
		"partial":   domain.StatusPartial,
		"fulfilled": domain.StatusFulfilled,
		"canceled":  domain.StatusCancelled,
		"failed":    domain.StatusFailed,
	}
	for in, want := range cases {
		got, ok := MapStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := MapStatus("archived")
	assert.False(t, ok)
}
