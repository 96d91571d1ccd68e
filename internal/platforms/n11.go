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

const n11BaseURL = "https://api.n11.com/ms"

// N11Adapter pulls orders from the N11 marketplace REST API. Authentication
// is the appkey/appsecret header pair; pagination is page/size with a
// totalPages count. Date-range parameters use N11's dd/MM/yyyy format.
type N11Adapter struct {
	baseURL  string
	client   *http.Client
	maxPages int
	logger   *zap.Logger
}

// NewN11Adapter creates a new N11 adapter
func NewN11Adapter(client *http.Client, maxPages int, logger *zap.Logger) *N11Adapter {
	return &N11Adapter{
		baseURL:  n11BaseURL,
		client:   client,
		maxPages: maxPages,
		logger:   logger,
	}
}

func (a *N11Adapter) PlatformType() domain.PlatformType {
	return domain.PlatformN11
}

func (a *N11Adapter) RequiredCredentialFields() []string {
	return domain.RequiredCredentialFields(domain.PlatformN11)
}

type n11OrdersPage struct {
	Content    []json.RawMessage `json:"content"`
	TotalPages int               `json:"totalPages"`
}

type n11OrderID struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"orderNumber"`
}

func (a *N11Adapter) TestConnection(ctx context.Context, creds domain.Credentials) TestResult {
	now := time.Now()
	_, err := a.fetchPage(ctx, creds, now.Add(-24*time.Hour), now, 0, 1)
	return testByFetch(domain.PlatformN11, err)
}

func (a *N11Adapter) FetchOrders(ctx context.Context, creds domain.Credentials, from, to time.Time) ([]domain.RawOrder, error) {
	var orders []domain.RawOrder

	for page := 0; page < a.maxPages; page++ {
		result, err := a.fetchPage(ctx, creds, from, to, page, 100)
		if err != nil {
			return nil, err
		}

		for _, raw := range result.Content {
			var key n11OrderID
			if err := json.Unmarshal(raw, &key); err != nil {
				a.logger.Warn("n11 order missing identifier, skipping", zap.Error(err))
				continue
			}
			id := key.OrderNumber
			if id == "" && key.ID > 0 {
				id = strconv.FormatInt(key.ID, 10)
			}
			orders = append(orders, domain.RawOrder{PlatformOrderID: id, Payload: raw})
		}

		if len(result.Content) == 0 || page >= result.TotalPages-1 {
			break
		}
	}

	return orders, nil
}

func (a *N11Adapter) fetchPage(ctx context.Context, creds domain.Credentials, from, to time.Time, page, size int) (*n11OrdersPage, error) {
	query := url.Values{}
	query.Set("startDate", from.Format("02/01/2006"))
	query.Set("endDate", to.Format("02/01/2006"))
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	endpoint := fmt.Sprintf("%s/order/order-list?%s", a.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &errors.ErrAdapterTransport{Platform: domain.PlatformN11, Err: err}
	}

	// N11 authenticates with bare appkey/appsecret headers
	req.Header.Set("appkey", creds.Get("appKey"))
	req.Header.Set("appsecret", creds.Get("appSecret"))
	req.Header.Set("Accept", "application/json")

	body, err := doRequest(a.client, domain.PlatformN11, req)
	if err != nil {
		return nil, err
	}

	var result n11OrdersPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &errors.ErrAdapterTransport{
			Platform: domain.PlatformN11,
			Err:      fmt.Errorf("unexpected response shape: %w", err),
		}
	}
	return &result, nil
}
