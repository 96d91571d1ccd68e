package platforms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/config"
	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

// TestResult is the outcome of a connection test. Expected auth failures are
// reported as OK=false with the provider's message, not as errors.
type TestResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Adapter is the per-marketplace port. Implementations translate between one
// provider's wire contract and the raw-order shape the normalizer consumes.
// Credentials are injected per request; adapters hold no per-connection state,
// so concurrent syncs for different connections are safe.
type Adapter interface {
	// PlatformType returns the platform this adapter handles
	PlatformType() domain.PlatformType

	// RequiredCredentialFields returns the credential manifest for validation
	// and form generation
	RequiredCredentialFields() []string

	// TestConnection makes one minimal authenticated request. It never
	// mutates remote state.
	TestConnection(ctx context.Context, creds domain.Credentials) TestResult

	// FetchOrders paginates through the provider's order listing across
	// [from, to]. It keeps fetching until the provider reports no more pages
	// or the page cap is hit. Auth and network failures come back as
	// *errors.ErrAdapterAuth / *errors.ErrAdapterTransport.
	FetchOrders(ctx context.Context, creds domain.Credentials, from, to time.Time) ([]domain.RawOrder, error)
}

// Registry holds one adapter per remote platform type. The csv source is not
// registered here: its adapter is built per import from the uploaded rows.
type Registry struct {
	adapters map[domain.PlatformType]Adapter
}

// NewRegistry builds the registry with all remote platform adapters
func NewRegistry(cfg config.SyncConfig, logger *zap.Logger) *Registry {
	client := &http.Client{
		Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}

	r := &Registry{adapters: make(map[domain.PlatformType]Adapter)}
	for _, a := range []Adapter{
		NewTrendyolAdapter(client, cfg.MaxPages, logger),
		NewHepsiburadaAdapter(client, cfg.MaxPages, logger),
		NewN11Adapter(client, cfg.MaxPages, logger),
		NewAmazonAdapter(client, cfg.MaxPages, logger),
		NewEtsyAdapter(client, cfg.MaxPages, logger),
		NewShopifyAdapter(client, cfg.MaxPages, logger),
	} {
		r.adapters[a.PlatformType()] = a
	}
	return r
}

// Register adds or replaces the adapter for its platform type
func (r *Registry) Register(a Adapter) {
	r.adapters[a.PlatformType()] = a
}

// Get returns the adapter for the platform type
func (r *Registry) Get(platform domain.PlatformType) (Adapter, error) {
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q", platform)
	}
	return adapter, nil
}

// doRequest executes a provider request and classifies failures per the error
// taxonomy: 401/403 map to auth errors carrying the provider's body text,
// everything else (network, non-2xx) to transport errors. Returns the raw
// response body on success.
func doRequest(client *http.Client, platform domain.PlatformType, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &errors.ErrAdapterTransport{Platform: platform, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.ErrAdapterTransport{Platform: platform, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &errors.ErrAdapterAuth{Platform: platform, Message: truncate(string(body), 500)}
	case resp.StatusCode >= 400:
		return nil, &errors.ErrAdapterTransport{
			Platform: platform,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 500)),
		}
	}

	return body, nil
}

// testByFetch implements the common connection-test pattern: issue the
// provider's cheapest authenticated listing call and report the outcome.
func testByFetch(platform domain.PlatformType, err error) TestResult {
	if err == nil {
		return TestResult{OK: true, Message: fmt.Sprintf("%s connection verified", platform)}
	}
	return TestResult{OK: false, Message: err.Error()}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
