package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/internal/platforms"
	"github.com/merchanthub/omsapi/internal/repository"
	"github.com/merchanthub/omsapi/pkg/errors"
)

// fakeAdapter serves canned raw orders. Setting blockFetch makes FetchOrders
// park until release is closed, which the single-flight test uses.
type fakeAdapter struct {
	platform domain.PlatformType
	orders   []domain.RawOrder
	err      error

	blockFetch   bool
	fetchStarted chan struct{}
	release      chan struct{}

	mu    sync.Mutex
	calls int
}

func (f *fakeAdapter) PlatformType() domain.PlatformType { return f.platform }

func (f *fakeAdapter) RequiredCredentialFields() []string {
	return domain.RequiredCredentialFields(f.platform)
}

func (f *fakeAdapter) TestConnection(ctx context.Context, creds domain.Credentials) platforms.TestResult {
	return platforms.TestResult{OK: true, Message: "ok"}
}

func (f *fakeAdapter) FetchOrders(ctx context.Context, creds domain.Credentials, from, to time.Time) ([]domain.RawOrder, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.blockFetch {
		close(f.fetchStarted)
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

type fakeConnectionRepo struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*domain.PlatformConnection
}

func newFakeConnectionRepo(conns ...*domain.PlatformConnection) *fakeConnectionRepo {
	r := &fakeConnectionRepo{conns: make(map[uuid.UUID]*domain.PlatformConnection)}
	for _, conn := range conns {
		r.conns[conn.ID] = conn
	}
	return r
}

func (r *fakeConnectionRepo) Create(ctx context.Context, conn *domain.PlatformConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID] = conn
	return nil
}

func (r *fakeConnectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "connection", ID: id.String()}
	}
	copied := *conn
	return &copied, nil
}

func (r *fakeConnectionRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.PlatformConnection, error) {
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

func (r *fakeConnectionRepo) Update(ctx context.Context, conn *domain.PlatformConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID] = conn
	return nil
}

func (r *fakeConnectionRepo) UpdateSyncState(ctx context.Context, id uuid.UUID, status domain.ConnectionStatus, lastError *string, lastSyncedAt *time.Time) error {
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

func (r *fakeConnectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
	return nil
}

type orderKey struct {
	connectionID    uuid.UUID
	platformOrderID string
}

type fakeOrderRepo struct {
	mu      sync.Mutex
	orders  map[orderKey]*domain.Order
	creates int

	// failCreateFor simulates a storage failure for specific platform order IDs
	failCreateFor map[string]error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:        make(map[orderKey]*domain.Order),
		failCreateFor: make(map[string]error),
	}
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failCreateFor[order.PlatformOrderID]; ok {
		return err
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	r.orders[orderKey{order.ConnectionID, order.PlatformOrderID}] = &copied
	r.creates++
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.ID == id {
			copied := *order
			return &copied, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
}

func (r *fakeOrderRepo) FindByPlatformOrderID(ctx context.Context, connectionID uuid.UUID, platformOrderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderKey{connectionID, platformOrderID}]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: platformOrderID}
	}
	copied := *order
	return &copied, nil
}

func (r *fakeOrderRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.OwnerID == ownerID {
			copied := *order
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateFromSync(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := orderKey{order.ConnectionID, order.PlatformOrderID}
	stored, ok := r.orders[key]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: order.PlatformOrderID}
	}
	stored.Status = order.Status
	stored.TrackingNumber = order.TrackingNumber
	stored.Carrier = order.Carrier
	stored.StatusHistory = order.StatusHistory
	return nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, entry domain.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.ID == id {
			order.Status = status
			order.StatusHistory = append(order.StatusHistory, entry)
			return nil
		}
	}
	return &errors.ErrNotFound{Resource: "order", ID: id.String()}
}

func (r *fakeOrderRepo) UpdateTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber *string, entry domain.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.ID == id {
			order.Status = entry.Status
			order.Carrier = carrier
			order.TrackingNumber = trackingNumber
			order.StatusHistory = append(order.StatusHistory, entry)
			return nil
		}
	}
	return &errors.ErrNotFound{Resource: "order", ID: id.String()}
}

func (r *fakeOrderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	return nil, nil
}

func fakeRepos(conns *fakeConnectionRepo, orders *fakeOrderRepo) *repository.Repositories {
	return &repository.Repositories{Connection: conns, Order: orders}
}
