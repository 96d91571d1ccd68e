package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"time"

	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

const etsyBaseURL = "https://openapi.etsy.com/v3/application"

// etsyPageSize is the maximum receipt page size Etsy allows
const etsyPageSize = 100

// EtsyAdapter pulls shop receipts from the Etsy v3 API. Every request carries
// both the application x-api-key header and the shop's OAuth bearer token.
// Pagination is offset/limit against the reported result count; date filters
// are unix epochs.
type EtsyAdapter struct {
	baseURL  string
	client   *http.Client
	maxPages int
	logger   *zap.Logger
}

// NewEtsyAdapter creates a new Etsy adapter
func NewEtsyAdapter(client *http.Client, maxPages int, logger *zap.Logger) *EtsyAdapter {
	return &EtsyAdapter{
		baseURL:  etsyBaseURL,
		client:   client,
		maxPages: maxPages,
		logger:   logger,
	}
}

func (a *EtsyAdapter) PlatformType() domain.PlatformType {
	return domain.PlatformEtsy
}

func (a *EtsyAdapter) RequiredCredentialFields() []string {
	return domain.RequiredCredentialFields(domain.PlatformEtsy)
}

type etsyReceiptsPage struct {
	Count   int               `json:"count"`
	Results []json.RawMessage `json:"results"`
}

type etsyReceiptID struct {
	ReceiptID int64 `json:"receipt_id"`
}

func (a *EtsyAdapter) TestConnection(ctx context.Context, creds domain.Credentials) TestResult {
	now := time.Now()
	_, err := a.fetchPage(ctx, creds, now.Add(-24*time.Hour), now, 0, 1)
	return testByFetch(domain.PlatformEtsy, err)
}

func (a *EtsyAdapter) FetchOrders(ctx context.Context, creds domain.Credentials, from, to time.Time) ([]domain.RawOrder, error) {
	var orders []domain.RawOrder

	for page := 0; page < a.maxPages; page++ {
		result, err := a.fetchPage(ctx, creds, from, to, page*etsyPageSize, etsyPageSize)
		if err != nil {
			return nil, err
		}

		for _, raw := range result.Results {
			var key etsyReceiptID
			if err := json.Unmarshal(raw, &key); err != nil || key.ReceiptID == 0 {
				a.logger.Warn("etsy receipt missing identifier, skipping")
				continue
			}
			orders = append(orders, domain.RawOrder{
				PlatformOrderID: strconv.FormatInt(key.ReceiptID, 10),
				Payload:         raw,
			})
		}

		if len(result.Results) < etsyPageSize || (page+1)*etsyPageSize >= result.Count {
			break
		}
	}

	return orders, nil
}

func (a *EtsyAdapter) fetchPage(ctx context.Context, creds domain.Credentials, from, to time.Time, offset, limit int) (*etsyReceiptsPage, error) {
	query := url.Values{}
	query.Set("min_created", strconv.FormatInt(from.Unix(), 10))
	query.Set("max_created", strconv.FormatInt(to.Unix(), 10))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/shops/%s/receipts?%s", a.baseURL, creds.Get("shopId"), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &errors.ErrAdapterTransport{Platform: domain.PlatformEtsy, Err: err}
	}

	req.Header.Set("x-api-key", creds.Get("apiKey"))
	req.Header.Set("Authorization", "Bearer "+creds.Get("accessToken"))
	req.Header.Set("Accept", "application/json")

	body, err := doRequest(a.client, domain.PlatformEtsy, req)
	if err != nil {
		return nil, err
	}

	var result etsyReceiptsPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &errors.ErrAdapterTransport{
			Platform: domain.PlatformEtsy,
			Err:      fmt.Errorf("unexpected response shape: %w", err),
		}
	}
	return &result, nil
}
