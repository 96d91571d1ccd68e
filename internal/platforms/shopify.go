package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

// shopifyOrdersQuery pages through orders with a created_at search filter
const shopifyOrdersQuery = `
query getOrders($first: Int!, $after: String, $query: String) {
  orders(first: $first, after: $after, query: $query) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        name
        displayFulfillmentStatus
        displayFinancialStatus
        createdAt
        updatedAt
        currencyCode
        subtotalPriceSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        totalShippingPriceSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        totalTaxSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        totalPriceSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        customer {
          firstName
          lastName
          email
          phone
        }
        shippingAddress {
          name
          address1
          address2
          city
          province
          zip
          country
          phone
        }
        billingAddress {
          name
          address1
          address2
          city
          province
          zip
          country
          phone
        }
        lineItems(first: 250) {
          edges {
            node {
              title
              quantity
              sku
              originalUnitPriceSet {
                shopMoney {
                  amount
                  currencyCode
                }
              }
            }
          }
        }
        fulfillments {
          status
          trackingInfo {
            number
            company
          }
        }
      }
    }
  }
}
`

// shopifyShopQuery is the cheapest authenticated call for connection tests
const shopifyShopQuery = `
query getShop {
  shop {
    name
  }
}
`

// ShopifyAdapter pulls orders through the Shopify Admin GraphQL API.
// Authentication is the X-Shopify-Access-Token header; pagination is
// GraphQL cursors via pageInfo.hasNextPage/endCursor.
type ShopifyAdapter struct {
	scheme   string // https, overridable for tests
	client   *http.Client
	maxPages int
	logger   *zap.Logger
}

// NewShopifyAdapter creates a new Shopify adapter
func NewShopifyAdapter(client *http.Client, maxPages int, logger *zap.Logger) *ShopifyAdapter {
	return &ShopifyAdapter{
		scheme:   "https",
		client:   client,
		maxPages: maxPages,
		logger:   logger,
	}
}

func (a *ShopifyAdapter) PlatformType() domain.PlatformType {
	return domain.PlatformShopify
}

func (a *ShopifyAdapter) RequiredCredentialFields() []string {
	return domain.RequiredCredentialFields(domain.PlatformShopify)
}

// graphQLRequest represents a GraphQL request
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphQLResponse represents a GraphQL response
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// graphQLError represents a GraphQL error
type graphQLError struct {
	Message string `json:"message"`
}

type shopifyOrdersData struct {
	Orders struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node json.RawMessage `json:"node"`
		} `json:"edges"`
	} `json:"orders"`
}

type shopifyOrderID struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a *ShopifyAdapter) TestConnection(ctx context.Context, creds domain.Credentials) TestResult {
	_, err := a.execute(ctx, creds, shopifyShopQuery, nil)
	return testByFetch(domain.PlatformShopify, err)
}

func (a *ShopifyAdapter) FetchOrders(ctx context.Context, creds domain.Credentials, from, to time.Time) ([]domain.RawOrder, error) {
	var orders []domain.RawOrder

	search := fmt.Sprintf("created_at:>='%s' created_at:<='%s'",
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	var after *string
	for page := 0; page < a.maxPages; page++ {
		variables := map[string]interface{}{
			"first": 100,
			"query": search,
		}
		if after != nil {
			variables["after"] = *after
		}

		data, err := a.execute(ctx, creds, shopifyOrdersQuery, variables)
		if err != nil {
			return nil, err
		}

		var result shopifyOrdersData
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, &errors.ErrAdapterTransport{
				Platform: domain.PlatformShopify,
				Err:      fmt.Errorf("unexpected response shape: %w", err),
			}
		}

		for _, edge := range result.Orders.Edges {
			var key shopifyOrderID
			if err := json.Unmarshal(edge.Node, &key); err != nil {
				a.logger.Warn("shopify order missing identifier, skipping", zap.Error(err))
				continue
			}
			id := strings.TrimPrefix(key.Name, "#")
			if id == "" {
				id = key.ID
			}
			orders = append(orders, domain.RawOrder{PlatformOrderID: id, Payload: edge.Node})
		}

		if !result.Orders.PageInfo.HasNextPage {
			break
		}
		cursor := result.Orders.PageInfo.EndCursor
		after = &cursor
	}

	return orders, nil
}

// execute runs a GraphQL query against the shop's admin endpoint
func (a *ShopifyAdapter) execute(ctx context.Context, creds domain.Credentials, query string, variables map[string]interface{}) (json.RawMessage, error) {
	// Normalize shop domain - remove https://, http://, and trailing slashes
	shopDomain := creds.Get("shopDomain")
	shopDomain = strings.TrimPrefix(shopDomain, "https://")
	shopDomain = strings.TrimPrefix(shopDomain, "http://")
	shopDomain = strings.TrimSuffix(shopDomain, "/")

	endpoint := fmt.Sprintf("%s://%s/admin/api/2024-01/graphql.json", a.scheme, shopDomain)

	jsonData, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, &errors.ErrAdapterTransport{Platform: domain.PlatformShopify, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &errors.ErrAdapterTransport{Platform: domain.PlatformShopify, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", creds.Get("accessToken"))

	body, err := doRequest(a.client, domain.PlatformShopify, req)
	if err != nil {
		return nil, err
	}

	var graphQLResp graphQLResponse
	if err := json.Unmarshal(body, &graphQLResp); err != nil {
		return nil, &errors.ErrAdapterTransport{
			Platform: domain.PlatformShopify,
			Err:      fmt.Errorf("unexpected response shape: %w", err),
		}
	}

	if len(graphQLResp.Errors) > 0 {
		msgs := make([]string, 0, len(graphQLResp.Errors))
		for _, e := range graphQLResp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &errors.ErrAdapterTransport{
			Platform: domain.PlatformShopify,
			Err:      fmt.Errorf("graphQL errors: %s", strings.Join(msgs, "; ")),
		}
	}

	return graphQLResp.Data, nil
}
