package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/internal/events"
	"github.com/merchanthub/omsapi/internal/repository"
	"github.com/merchanthub/omsapi/pkg/errors"
)

type stubOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func newStubOrderRepo(orders ...*domain.Order) *stubOrderRepo {
	r := &stubOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
	for _, order := range orders {
		r.orders[order.ID] = order
	}
	return r
}

func (r *stubOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *stubOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	copied := *order
	return &copied, nil
}

func (r *stubOrderRepo) FindByPlatformOrderID(ctx context.Context, connectionID uuid.UUID, platformOrderID string) (*domain.Order, error) {
	return nil, &errors.ErrNotFound{Resource: "order", ID: platformOrderID}
}

func (r *stubOrderRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
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

func (r *stubOrderRepo) UpdateFromSync(ctx context.Context, order *domain.Order) error {
	return nil
}

func (r *stubOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, entry domain.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.Status = status
	order.StatusHistory = append(order.StatusHistory, entry)
	return nil
}

func (r *stubOrderRepo) UpdateTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber *string, entry domain.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.Status = entry.Status
	order.Carrier = carrier
	order.TrackingNumber = trackingNumber
	order.StatusHistory = append(order.StatusHistory, entry)
	return nil
}

func (r *stubOrderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	return nil, nil
}

func newOrderServiceWith(orders ...*domain.Order) (*OrderService, *stubOrderRepo) {
	repo := newStubOrderRepo(orders...)
	svc := NewOrderService(&repository.Repositories{Order: repo}, events.NopPublisher{}, zap.NewNop())
	return svc, repo
}

func testOrder(owner uuid.UUID, status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		ID:      uuid.New(),
		OwnerID: owner,
		Status:  status,
	}
}

func TestOrderServiceShip(t *testing.T) {
	owner := uuid.New()
	order := testOrder(owner, domain.OrderStatusProcessing)
	svc, repo := newOrderServiceWith(order)

	shipped, err := svc.Ship(context.Background(), owner, order.ID, &ShipOrderRequest{
		Carrier:        "UPS",
		TrackingNumber: "1Z999",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.TrackingNumber)
	assert.Equal(t, "1Z999", *shipped.TrackingNumber)

	stored, _ := repo.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusShipped, stored.Status)
	require.Len(t, stored.StatusHistory, 1)
	assert.Equal(t, "operator", stored.StatusHistory[0].Actor)
}

func TestOrderServiceShipRejectsDeliveredOrder(t *testing.T) {
	owner := uuid.New()
	order := testOrder(owner, domain.OrderStatusDelivered)
	svc, _ := newOrderServiceWith(order)

	_, err := svc.Ship(context.Background(), owner, order.ID, &ShipOrderRequest{
		Carrier:        "UPS",
		TrackingNumber: "1Z999",
	})
	var transition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.OrderStatusDelivered, transition.From)
	assert.Equal(t, domain.OrderStatusShipped, transition.To)
}

func TestOrderServiceCancelTerminalOrderRejected(t *testing.T) {
	owner := uuid.New()
	order := testOrder(owner, domain.OrderStatusCancelled)
	svc, _ := newOrderServiceWith(order)

	_, err := svc.Cancel(context.Background(), owner, order.ID, &CancelOrderRequest{})
	var transition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transition)
}

func TestOrderServiceUpdateStatusFromUnknown(t *testing.T) {
	owner := uuid.New()
	order := testOrder(owner, domain.OrderStatusUnknown)
	svc, _ := newOrderServiceWith(order)

	updated, err := svc.UpdateStatus(context.Background(), owner, order.ID, &UpdateOrderStatusRequest{
		Status:  string(domain.OrderStatusProcessing),
		Comment: "verified manually",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, updated.Status)
}

func TestOrderServiceUpdateStatusInvalidValue(t *testing.T) {
	owner := uuid.New()
	order := testOrder(owner, domain.OrderStatusNew)
	svc, _ := newOrderServiceWith(order)

	_, err := svc.UpdateStatus(context.Background(), owner, order.ID, &UpdateOrderStatusRequest{Status: "teleported"})
	var validation *errors.ErrValidation
	require.ErrorAs(t, err, &validation)
}

func TestOrderServiceOwnershipScoping(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	order := testOrder(owner, domain.OrderStatusNew)
	svc, _ := newOrderServiceWith(order)

	// Another user's lookup must read as not-found, not forbidden
	_, err := svc.Get(context.Background(), stranger, order.ID)
	var notFound *errors.ErrNotFound
	require.ErrorAs(t, err, &notFound)

	_, err = svc.Cancel(context.Background(), stranger, order.ID, &CancelOrderRequest{})
	require.ErrorAs(t, err, &notFound)
}
