package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

func newShopifyTestAdapter(serverURL string) (*ShopifyAdapter, domain.Credentials) {
	a := NewShopifyAdapter(&http.Client{Timeout: 5 * time.Second}, 500, zap.NewNop())
	a.scheme = "http"
	creds := domain.Credentials{
		// The adapter must strip the scheme and trailing slash itself
		"shopDomain":  "https://" + strings.TrimPrefix(serverURL, "http://") + "/",
		"accessToken": "shpat_test",
	}
	return a, creds
}

func TestShopifyFetchOrdersCursorPagination(t *testing.T) {
	var requests []graphQLRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		hasNext := len(requests) == 1
		name := "#1002"
		if hasNext {
			name = "#1001"
		}
		orders := map[string]any{
			"pageInfo": map[string]any{"hasNextPage": hasNext, "endCursor": "cursor-1"},
			"edges": []map[string]any{
				{"node": map[string]any{"id": "gid://shopify/Order/1", "name": name}},
			},
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"orders": orders}})
	}))
	defer server.Close()

	a, creds := newShopifyTestAdapter(server.URL)
	orders, err := a.FetchOrders(context.Background(), creds, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "1001", orders[0].PlatformOrderID)
	assert.Equal(t, "1002", orders[1].PlatformOrderID)

	require.Len(t, requests, 2)
	// First page carries the date filter, second page the cursor
	assert.Contains(t, requests[0].Variables["query"], "created_at:>=")
	assert.Nil(t, requests[0].Variables["after"])
	assert.Equal(t, "cursor-1", requests[1].Variables["after"])
}

func TestShopifyGraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "Throttled"}},
		})
	}))
	defer server.Close()

	a, creds := newShopifyTestAdapter(server.URL)
	_, err := a.FetchOrders(context.Background(), creds, time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	var transportErr *errors.ErrAdapterTransport
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, err.Error(), "Throttled")
}

func TestShopifyTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "shop")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"shop": map[string]any{"name": "Test Shop"}}})
	}))
	defer server.Close()

	a, creds := newShopifyTestAdapter(server.URL)
	result := a.TestConnection(context.Background(), creds)
	assert.True(t, result.OK)
}

func TestShopifyInvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":"[API] Invalid API key or access token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	a, creds := newShopifyTestAdapter(server.URL)
	result := a.TestConnection(context.Background(), creds)
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "authentication rejected")
}
