package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/internal/platforms"
	"github.com/merchanthub/omsapi/internal/repository"
	"github.com/merchanthub/omsapi/internal/syncer"
	"github.com/merchanthub/omsapi/pkg/errors"
)

// ConnectionService manages platform connections and delegates sync runs to
// the orchestrator. All operations are scoped to the owning user.
type ConnectionService struct {
	repos        *repository.Repositories
	registry     *platforms.Registry
	orchestrator *syncer.Orchestrator
	logger       *zap.Logger
}

// NewConnectionService creates a new connection service
func NewConnectionService(repos *repository.Repositories, registry *platforms.Registry, orchestrator *syncer.Orchestrator, logger *zap.Logger) *ConnectionService {
	return &ConnectionService{
		repos:        repos,
		registry:     registry,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Add validates credentials against the platform manifest, probes the
// connection, and persists it. A failed probe still persists the connection,
// in status error, so the owner can fix the credentials later.
func (s *ConnectionService) Add(ctx context.Context, ownerID uuid.UUID, req *CreateConnectionRequest) (*domain.PlatformConnection, error) {
	platform := domain.PlatformType(req.PlatformType)
	if !platform.IsValid() {
		return nil, &errors.ErrValidation{Message: "unsupported platform type: " + req.PlatformType}
	}

	creds := domain.Credentials(req.Credentials)
	if missing := domain.MissingCredentialFields(platform, creds); len(missing) > 0 {
		return nil, &errors.ErrCredential{
			Platform: platform,
			Field:    missing[0],
			Reason:   "is required",
		}
	}

	conn := &domain.PlatformConnection{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		PlatformType: platform,
		Name:         req.Name,
		Credentials:  creds,
		Status:       domain.ConnectionStatusPending,
	}

	if platform == domain.PlatformCSV {
		// Nothing remote to probe
		conn.Status = domain.ConnectionStatusActive
	} else {
		result := s.test(ctx, conn)
		if result.OK {
			conn.Status = domain.ConnectionStatusActive
		} else {
			conn.Status = domain.ConnectionStatusError
			conn.LastError = &result.Message
		}
	}

	if err := s.repos.Connection.Create(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("Connection created",
		zap.String("connection_id", conn.ID.String()),
		zap.String("platform", string(conn.PlatformType)),
		zap.String("status", string(conn.Status)),
	)
	return conn, nil
}

// Get returns a connection owned by the given user
func (s *ConnectionService) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.PlatformConnection, error) {
	conn, err := s.repos.Connection.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn.OwnerID != ownerID {
		// Do not reveal that the connection exists
		return nil, &errors.ErrNotFound{Resource: "connection", ID: id.String()}
	}
	return conn, nil
}

// List returns all connections of the owner
func (s *ConnectionService) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.PlatformConnection, error) {
	return s.repos.Connection.ListByOwner(ctx, ownerID)
}

// Update edits a connection's name, credentials or disabled flag. The platform
// type never changes; delete and re-create instead. Changed credentials are
// re-probed before saving.
func (s *ConnectionService) Update(ctx context.Context, ownerID, id uuid.UUID, req *UpdateConnectionRequest) (*domain.PlatformConnection, error) {
	conn, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		conn.Name = *req.Name
	}

	credsChanged := false
	if req.Credentials != nil {
		creds := domain.Credentials(req.Credentials)
		if missing := domain.MissingCredentialFields(conn.PlatformType, creds); len(missing) > 0 {
			return nil, &errors.ErrCredential{
				Platform: conn.PlatformType,
				Field:    missing[0],
				Reason:   "is required",
			}
		}
		conn.Credentials = creds
		credsChanged = true
	}

	if req.Disabled != nil {
		if *req.Disabled {
			conn.Status = domain.ConnectionStatusDisabled
		} else if conn.Status == domain.ConnectionStatusDisabled {
			conn.Status = domain.ConnectionStatusPending
		}
	}

	if credsChanged && conn.Status != domain.ConnectionStatusDisabled && conn.PlatformType != domain.PlatformCSV {
		result := s.test(ctx, conn)
		if result.OK {
			conn.Status = domain.ConnectionStatusActive
			conn.LastError = nil
		} else {
			conn.Status = domain.ConnectionStatusError
			conn.LastError = &result.Message
		}
	}

	if err := s.repos.Connection.Update(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Delete removes a connection. Imported orders are kept as historical records.
func (s *ConnectionService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.repos.Connection.Delete(ctx, id)
}

// Test probes a stored connection's credentials against the live platform and
// records the outcome on the connection.
func (s *ConnectionService) Test(ctx context.Context, ownerID, id uuid.UUID) (platforms.TestResult, error) {
	conn, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return platforms.TestResult{}, err
	}

	if conn.PlatformType == domain.PlatformCSV {
		return platforms.TestResult{OK: true, Message: "csv connections have no remote endpoint"}, nil
	}

	result := s.test(ctx, conn)
	status := domain.ConnectionStatusActive
	var lastError *string
	if !result.OK {
		status = domain.ConnectionStatusError
		lastError = &result.Message
	}
	if err := s.repos.Connection.UpdateSyncState(ctx, conn.ID, status, lastError, nil); err != nil {
		s.logger.Error("Failed to record connection test outcome", zap.Error(err))
	}
	return result, nil
}

// Sync runs one sync for the connection over the requested window
func (s *ConnectionService) Sync(ctx context.Context, ownerID, id uuid.UUID, req *SyncRequest) (*domain.SyncResult, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	from, to := req.Window()
	return s.orchestrator.Sync(ctx, id, from, to)
}

// SyncAll syncs every syncable connection of the owner sequentially
func (s *ConnectionService) SyncAll(ctx context.Context, ownerID uuid.UUID, req *SyncRequest) ([]*domain.SyncResult, error) {
	from, to := req.Window()
	return s.orchestrator.SyncAll(ctx, ownerID, from, to)
}

// ImportCSV ingests uploaded rows through a csv connection
func (s *ConnectionService) ImportCSV(ctx context.Context, ownerID, id uuid.UUID, req *CSVImportRequest) (*domain.SyncResult, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.orchestrator.ImportCSV(ctx, id, req.Header, req.Rows, req.Mapping)
}

// CredentialFields returns the credential manifest for a platform type, for
// rendering connection forms.
func (s *ConnectionService) CredentialFields(platform domain.PlatformType) ([]string, error) {
	if !platform.IsValid() {
		return nil, &errors.ErrValidation{Message: "unsupported platform type: " + string(platform)}
	}
	return domain.RequiredCredentialFields(platform), nil
}

func (s *ConnectionService) test(ctx context.Context, conn *domain.PlatformConnection) platforms.TestResult {
	adapter, err := s.registry.Get(conn.PlatformType)
	if err != nil {
		return platforms.TestResult{OK: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return adapter.TestConnection(ctx, conn.Credentials)
}
