package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

const (
	amazonTokenURL        = "https://api.amazon.com/auth/o2/token"
	amazonEndpointPattern = "https://sellingpartnerapi-%s.amazon.com"
)

// AmazonAdapter pulls orders from the Amazon Selling Partner API. Every call
// is two-step: exchange the connection's LWA refresh token for a short-lived
// access token, then call the regional SP-API orders endpoint with the
// x-amz-access-token header. Pagination is NextToken cursors.
type AmazonAdapter struct {
	tokenURL         string
	endpointOverride string // tests only; normally derived from the region credential
	client           *http.Client
	maxPages         int
	logger           *zap.Logger
}

// NewAmazonAdapter creates a new Amazon SP-API adapter
func NewAmazonAdapter(client *http.Client, maxPages int, logger *zap.Logger) *AmazonAdapter {
	return &AmazonAdapter{
		tokenURL: amazonTokenURL,
		client:   client,
		maxPages: maxPages,
		logger:   logger,
	}
}

func (a *AmazonAdapter) PlatformType() domain.PlatformType {
	return domain.PlatformAmazon
}

func (a *AmazonAdapter) RequiredCredentialFields() []string {
	return domain.RequiredCredentialFields(domain.PlatformAmazon)
}

func (a *AmazonAdapter) endpoint(creds domain.Credentials) string {
	if a.endpointOverride != "" {
		return a.endpointOverride
	}
	region := creds.Get("region")
	if region == "" {
		region = "na"
	}
	return fmt.Sprintf(amazonEndpointPattern, region)
}

// amazonOrdersResponse mirrors the SP-API listing envelope
type amazonOrdersResponse struct {
	Payload struct {
		Orders    []json.RawMessage `json:"Orders"`
		NextToken string            `json:"NextToken"`
	} `json:"payload"`
}

type amazonOrderID struct {
	AmazonOrderID string `json:"AmazonOrderId"`
}

func (a *AmazonAdapter) TestConnection(ctx context.Context, creds domain.Credentials) TestResult {
	// Token exchange alone proves the LWA credentials; it is the cheapest
	// authenticated call and touches no order data.
	_, err := a.exchangeToken(ctx, creds)
	return testByFetch(domain.PlatformAmazon, err)
}

func (a *AmazonAdapter) FetchOrders(ctx context.Context, creds domain.Credentials, from, to time.Time) ([]domain.RawOrder, error) {
	accessToken, err := a.exchangeToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	var orders []domain.RawOrder
	nextToken := ""

	for page := 0; page < a.maxPages; page++ {
		query := url.Values{}
		query.Set("MarketplaceIds", creds.Get("marketplaceId"))
		if nextToken != "" {
			query.Set("NextToken", nextToken)
		} else {
			query.Set("CreatedAfter", from.UTC().Format(time.RFC3339))
			query.Set("CreatedBefore", to.UTC().Format(time.RFC3339))
		}

		endpoint := fmt.Sprintf("%s/orders/v0/orders?%s", a.endpoint(creds), query.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, &errors.ErrAdapterTransport{Platform: domain.PlatformAmazon, Err: err}
		}
		req.Header.Set("x-amz-access-token", accessToken)
		req.Header.Set("Accept", "application/json")

		body, err := doRequest(a.client, domain.PlatformAmazon, req)
		if err != nil {
			return nil, err
		}

		var result amazonOrdersResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, &errors.ErrAdapterTransport{
				Platform: domain.PlatformAmazon,
				Err:      fmt.Errorf("unexpected response shape: %w", err),
			}
		}

		for _, raw := range result.Payload.Orders {
			var key amazonOrderID
			if err := json.Unmarshal(raw, &key); err != nil || key.AmazonOrderID == "" {
				a.logger.Warn("amazon order missing identifier, skipping")
				continue
			}
			orders = append(orders, domain.RawOrder{PlatformOrderID: key.AmazonOrderID, Payload: raw})
		}

		nextToken = result.Payload.NextToken
		if nextToken == "" {
			break
		}
	}

	return orders, nil
}

// exchangeToken performs the LWA refresh-token grant and returns the
// short-lived access token.
func (a *AmazonAdapter) exchangeToken(ctx context.Context, creds domain.Credentials) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", creds.Get("refreshToken"))
	form.Set("client_id", creds.Get("clientId"))
	form.Set("client_secret", creds.Get("clientSecret"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &errors.ErrAdapterTransport{Platform: domain.PlatformAmazon, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &errors.ErrAdapterTransport{Platform: domain.PlatformAmazon, Err: err}
	}
	defer resp.Body.Close()

	var token struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", &errors.ErrAdapterTransport{
			Platform: domain.PlatformAmazon,
			Err:      fmt.Errorf("token response: %w", err),
		}
	}

	// LWA reports credential problems as a 400 with an error payload
	if resp.StatusCode != http.StatusOK || token.AccessToken == "" {
		msg := token.ErrorDescription
		if msg == "" {
			msg = token.Error
		}
		return "", &errors.ErrAdapterAuth{Platform: domain.PlatformAmazon, Message: msg}
	}

	return token.AccessToken, nil
}
