package platforms

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/config"
	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

func TestRegistryCoversRemotePlatforms(t *testing.T) {
	registry := NewRegistry(config.SyncConfig{RequestTimeoutSeconds: 5, MaxPages: 10}, zap.NewNop())

	remote := []domain.PlatformType{
		domain.PlatformTrendyol,
		domain.PlatformHepsiburada,
		domain.PlatformN11,
		domain.PlatformAmazon,
		domain.PlatformEtsy,
		domain.PlatformShopify,
	}
	for _, platform := range remote {
		adapter, err := registry.Get(platform)
		require.NoError(t, err, "platform %s", platform)
		assert.Equal(t, platform, adapter.PlatformType())
		assert.Equal(t, domain.RequiredCredentialFields(platform), adapter.RequiredCredentialFields())
	}

	// csv is built per import, never registered
	_, err := registry.Get(domain.PlatformCSV)
	assert.Error(t, err)
}

func TestDoRequestClassifiesFailures(t *testing.T) {
	t.Run("401 is an auth error carrying the body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
		}))
		defer server.Close()

		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		_, err := doRequest(server.Client(), domain.PlatformN11, req)
		var authErr *errors.ErrAdapterAuth
		require.ErrorAs(t, err, &authErr)
		assert.Contains(t, authErr.Message, "bad credentials")
	})

	t.Run("500 is a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		_, err := doRequest(server.Client(), domain.PlatformN11, req)
		var transportErr *errors.ErrAdapterTransport
		require.ErrorAs(t, err, &transportErr)
	})

	t.Run("network failure is a transport error", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)
		_, err := doRequest(&http.Client{}, domain.PlatformN11, req)
		var transportErr *errors.ErrAdapterTransport
		require.ErrorAs(t, err, &transportErr)
	})

	t.Run("oversized error bodies are truncated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(strings.Repeat("x", 2000)))
		}))
		defer server.Close()

		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		_, err := doRequest(server.Client(), domain.PlatformN11, req)
		var authErr *errors.ErrAdapterAuth
		require.ErrorAs(t, err, &authErr)
		assert.Len(t, authErr.Message, 500)
	})
}
