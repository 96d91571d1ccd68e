package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/config"
	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/internal/platforms"
	"github.com/merchanthub/omsapi/internal/repository"
	"github.com/merchanthub/omsapi/pkg/errors"
)

type stubConnectionRepo struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*domain.PlatformConnection
}

func newStubConnectionRepo(conns ...*domain.PlatformConnection) *stubConnectionRepo {
	r := &stubConnectionRepo{conns: make(map[uuid.UUID]*domain.PlatformConnection)}
	for _, conn := range conns {
		r.conns[conn.ID] = conn
	}
	return r
}

func (r *stubConnectionRepo) Create(ctx context.Context, conn *domain.PlatformConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID] = conn
	return nil
}

func (r *stubConnectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "connection", ID: id.String()}
	}
	copied := *conn
	return &copied, nil
}

func (r *stubConnectionRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PlatformConnection
	for _, conn := range r.conns {
		if conn.OwnerID == ownerID {
			copied := *conn
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *stubConnectionRepo) Update(ctx context.Context, conn *domain.PlatformConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID] = conn
	return nil
}

func (r *stubConnectionRepo) UpdateSyncState(ctx context.Context, id uuid.UUID, status domain.ConnectionStatus, lastError *string, lastSyncedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "connection", ID: id.String()}
	}
	conn.Status = status
	conn.LastError = lastError
	if lastSyncedAt != nil {
		conn.LastSyncedAt = lastSyncedAt
	}
	return nil
}

func (r *stubConnectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return &errors.ErrNotFound{Resource: "connection", ID: id.String()}
	}
	delete(r.conns, id)
	return nil
}

func newConnectionService(conns *stubConnectionRepo) *ConnectionService {
	logger := zap.NewNop()
	registry := platforms.NewRegistry(config.SyncConfig{RequestTimeoutSeconds: 1, MaxPages: 1}, logger)
	return NewConnectionService(&repository.Repositories{Connection: conns}, registry, nil, logger)
}

func TestConnectionServiceAddRejectsUnknownPlatform(t *testing.T) {
	svc := newConnectionService(newStubConnectionRepo())

	_, err := svc.Add(context.Background(), uuid.New(), &CreateConnectionRequest{
		PlatformType: "ebay",
		Name:         "My Shop",
	})
	var validation *errors.ErrValidation
	require.ErrorAs(t, err, &validation)
}

func TestConnectionServiceAddValidatesCredentialManifest(t *testing.T) {
	conns := newStubConnectionRepo()
	svc := newConnectionService(conns)

	_, err := svc.Add(context.Background(), uuid.New(), &CreateConnectionRequest{
		PlatformType: "trendyol",
		Name:         "My Store",
		Credentials:  map[string]string{"apiKey": "k"},
	})
	var credErr *errors.ErrCredential
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, domain.PlatformTrendyol, credErr.Platform)
	assert.Equal(t, "apiSecret", credErr.Field)

	// Nothing persisted on validation failure
	assert.Empty(t, conns.conns)
}

func TestConnectionServiceAddCSVSkipsProbe(t *testing.T) {
	conns := newStubConnectionRepo()
	svc := newConnectionService(conns)
	owner := uuid.New()

	conn, err := svc.Add(context.Background(), owner, &CreateConnectionRequest{
		PlatformType: "csv",
		Name:         "Spreadsheet Imports",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionStatusActive, conn.Status)
	assert.Equal(t, owner, conn.OwnerID)
	assert.Len(t, conns.conns, 1)
}

func TestConnectionServiceGetScopedToOwner(t *testing.T) {
	owner := uuid.New()
	conn := &domain.PlatformConnection{
		ID:           uuid.New(),
		OwnerID:      owner,
		PlatformType: domain.PlatformCSV,
		Status:       domain.ConnectionStatusActive,
	}
	svc := newConnectionService(newStubConnectionRepo(conn))

	got, err := svc.Get(context.Background(), owner, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New(), conn.ID)
	var notFound *errors.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestConnectionServiceUpdateRevalidatesCredentials(t *testing.T) {
	owner := uuid.New()
	conn := &domain.PlatformConnection{
		ID:           uuid.New(),
		OwnerID:      owner,
		PlatformType: domain.PlatformShopify,
		Credentials:  domain.Credentials{"shopDomain": "x.myshopify.com", "accessToken": "t"},
		Status:       domain.ConnectionStatusActive,
	}
	svc := newConnectionService(newStubConnectionRepo(conn))

	_, err := svc.Update(context.Background(), owner, conn.ID, &UpdateConnectionRequest{
		Credentials: map[string]string{"shopDomain": "x.myshopify.com"},
	})
	var credErr *errors.ErrCredential
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, "accessToken", credErr.Field)
}

func TestConnectionServiceDisableEnable(t *testing.T) {
	owner := uuid.New()
	conn := &domain.PlatformConnection{
		ID:           uuid.New(),
		OwnerID:      owner,
		PlatformType: domain.PlatformCSV,
		Status:       domain.ConnectionStatusActive,
	}
	conns := newStubConnectionRepo(conn)
	svc := newConnectionService(conns)

	disabled := true
	updated, err := svc.Update(context.Background(), owner, conn.ID, &UpdateConnectionRequest{Disabled: &disabled})
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionStatusDisabled, updated.Status)

	disabled = false
	updated, err = svc.Update(context.Background(), owner, conn.ID, &UpdateConnectionRequest{Disabled: &disabled})
	require.NoError(t, err)
	// Re-enabling lands in pending until the next probe or sync succeeds
	assert.Equal(t, domain.ConnectionStatusPending, updated.Status)
}

func TestConnectionServiceCredentialFields(t *testing.T) {
	svc := newConnectionService(newStubConnectionRepo())

	fields, err := svc.CredentialFields(domain.PlatformAmazon)
	require.NoError(t, err)
	assert.Equal(t, []string{"refreshToken", "clientId", "clientSecret", "marketplaceId", "region"}, fields)

	_, err = svc.CredentialFields(domain.PlatformType("fax"))
	require.Error(t, err)
}
