package platforms

import (
	"context"
	"encoding/base64"
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

const hepsiburadaBaseURL = "https://oms-external.hepsiburada.com"

// hepsiburadaPageSize is the fixed page size for package listing requests
const hepsiburadaPageSize = 100

// HepsiburadaAdapter pulls packages from the Hepsiburada OMS external API.
// Authentication is Basic auth over merchantId:secretKey. Pagination is
// offset/limit; a short page signals the end of the listing. Packages arrive
// in two shapes (package-with-items and order-with-items) which the
// normalizer reconciles.
type HepsiburadaAdapter struct {
	baseURL  string
	client   *http.Client
	maxPages int
	logger   *zap.Logger
}

// NewHepsiburadaAdapter creates a new Hepsiburada adapter
func NewHepsiburadaAdapter(client *http.Client, maxPages int, logger *zap.Logger) *HepsiburadaAdapter {
	return &HepsiburadaAdapter{
		baseURL:  hepsiburadaBaseURL,
		client:   client,
		maxPages: maxPages,
		logger:   logger,
	}
}

func (a *HepsiburadaAdapter) PlatformType() domain.PlatformType {
	return domain.PlatformHepsiburada
}

func (a *HepsiburadaAdapter) RequiredCredentialFields() []string {
	return domain.RequiredCredentialFields(domain.PlatformHepsiburada)
}

// hepsiburadaPackageID covers both listing shapes: packages carry a
// packageNumber, plain orders an orderNumber.
type hepsiburadaPackageID struct {
	PackageNumber string `json:"packageNumber"`
	OrderNumber   string `json:"orderNumber"`
}

func (a *HepsiburadaAdapter) TestConnection(ctx context.Context, creds domain.Credentials) TestResult {
	now := time.Now()
	_, err := a.fetchPage(ctx, creds, now.Add(-24*time.Hour), now, 0, 1)
	return testByFetch(domain.PlatformHepsiburada, err)
}

func (a *HepsiburadaAdapter) FetchOrders(ctx context.Context, creds domain.Credentials, from, to time.Time) ([]domain.RawOrder, error) {
	var orders []domain.RawOrder

	for page := 0; page < a.maxPages; page++ {
		items, err := a.fetchPage(ctx, creds, from, to, page*hepsiburadaPageSize, hepsiburadaPageSize)
		if err != nil {
			return nil, err
		}

		for _, raw := range items {
			var key hepsiburadaPackageID
			if err := json.Unmarshal(raw, &key); err != nil {
				a.logger.Warn("hepsiburada package missing identifier, skipping",
					zap.Error(err))
				continue
			}
			id := key.PackageNumber
			if id == "" {
				id = key.OrderNumber
			}
			orders = append(orders, domain.RawOrder{PlatformOrderID: id, Payload: raw})
		}

		if len(items) < hepsiburadaPageSize {
			break
		}
	}

	return orders, nil
}

func (a *HepsiburadaAdapter) fetchPage(ctx context.Context, creds domain.Credentials, from, to time.Time, offset, limit int) ([]json.RawMessage, error) {
	merchantID := creds.Get("merchantId")

	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("beginDate", from.UTC().Format(time.RFC3339))
	query.Set("endDate", to.UTC().Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/packages/merchantid/%s?%s", a.baseURL, merchantID, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &errors.ErrAdapterTransport{Platform: domain.PlatformHepsiburada, Err: err}
	}

	auth := base64.StdEncoding.EncodeToString([]byte(merchantID + ":" + creds.Get("secretKey")))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("User-Agent", fmt.Sprintf("%s - SelfIntegration", merchantID))
	req.Header.Set("Accept", "application/json")

	body, err := doRequest(a.client, domain.PlatformHepsiburada, req)
	if err != nil {
		return nil, err
	}

	// The OMS API answers either a bare array or an {items: [...]} envelope
	// depending on the endpoint revision. Accept both.
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &errors.ErrAdapterTransport{
			Platform: domain.PlatformHepsiburada,
			Err:      fmt.Errorf("unexpected response shape: %w", err),
		}
	}
	return envelope.Items, nil
}
