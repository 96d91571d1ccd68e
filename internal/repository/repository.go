package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/merchanthub/omsapi/internal/domain"
)

// UserRepository provides access to user accounts
type UserRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

// ConnectionRepository provides access to platform connections
type ConnectionRepository interface {
	Create(ctx context.Context, conn *domain.PlatformConnection) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PlatformConnection, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.PlatformConnection, error)
	Update(ctx context.Context, conn *domain.PlatformConnection) error
	// UpdateSyncState records the outcome of a sync attempt on the connection
	UpdateSyncState(ctx context.Context, id uuid.UUID, status domain.ConnectionStatus, lastError *string, lastSyncedAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderRepository provides access to canonical orders. The
// (connection, platform order id) pair is the de-duplication key; lookups by
// it drive the sync upsert path.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByPlatformOrderID(ctx context.Context, connectionID uuid.UUID, platformOrderID string) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Order, error)
	// UpdateFromSync applies the fields that legitimately change after
	// creation: status, tracking, status history.
	UpdateFromSync(ctx context.Context, order *domain.Order) error
	// UpdateStatus appends a history entry alongside the status change
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, entry domain.StatusHistoryEntry) error
	// UpdateTracking sets carrier/tracking and appends a history entry
	UpdateTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber *string, entry domain.StatusHistoryEntry) error
	GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
}

// Repositories bundles all repositories for injection
type Repositories struct {
	User       UserRepository
	Connection ConnectionRepository
	Order      OrderRepository
}
