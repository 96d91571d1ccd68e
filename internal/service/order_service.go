package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/internal/events"
	"github.com/merchanthub/omsapi/internal/repository"
	"github.com/merchanthub/omsapi/pkg/errors"
)

// OrderService exposes read and operator-action operations on canonical
// orders. Manual status changes go through the state machine; sync updates do
// not pass through here.
type OrderService struct {
	repos     *repository.Repositories
	publisher events.Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, publisher events.Publisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		repos:     repos,
		publisher: publisher,
		logger:    logger,
	}
}

// Get returns an order, with items, owned by the given user
func (s *OrderService) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != ownerID {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	return order, nil
}

// List returns the owner's orders, newest first
func (s *OrderService) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	return s.repos.Order.ListByOwner(ctx, ownerID, limit, offset)
}

// UpdateStatus applies a manual status change, enforcing the transition rules
func (s *OrderService) UpdateStatus(ctx context.Context, ownerID, id uuid.UUID, req *UpdateOrderStatusRequest) (*domain.Order, error) {
	newStatus := domain.OrderStatus(req.Status)
	if !newStatus.IsValid() {
		return nil, &errors.ErrValidation{Message: "invalid order status: " + req.Status}
	}

	order, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, &errors.ErrInvalidStateTransition{From: order.Status, To: newStatus}
	}

	entry := domain.StatusHistoryEntry{
		Timestamp: time.Now().UTC(),
		Status:    newStatus,
		Comment:   req.Comment,
		Actor:     "operator",
	}
	if err := s.repos.Order.UpdateStatus(ctx, order.ID, newStatus, entry); err != nil {
		return nil, err
	}

	order.Status = newStatus
	order.StatusHistory = append(order.StatusHistory, entry)

	s.publisher.Publish(events.OrderUpdated, map[string]any{
		"order_id": order.ID,
		"status":   newStatus,
	})
	return order, nil
}

// Ship marks an order shipped and records its carrier and tracking number
func (s *OrderService) Ship(ctx context.Context, ownerID, id uuid.UUID, req *ShipOrderRequest) (*domain.Order, error) {
	order, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(domain.OrderStatusShipped) {
		return nil, &errors.ErrInvalidStateTransition{From: order.Status, To: domain.OrderStatusShipped}
	}

	entry := domain.StatusHistoryEntry{
		Timestamp: time.Now().UTC(),
		Status:    domain.OrderStatusShipped,
		Comment:   "shipped via " + req.Carrier,
		Actor:     "operator",
	}
	if err := s.repos.Order.UpdateTracking(ctx, order.ID, &req.Carrier, &req.TrackingNumber, entry); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusShipped
	order.Carrier = &req.Carrier
	order.TrackingNumber = &req.TrackingNumber
	order.StatusHistory = append(order.StatusHistory, entry)

	s.publisher.Publish(events.OrderUpdated, map[string]any{
		"order_id":        order.ID,
		"status":          domain.OrderStatusShipped,
		"tracking_number": req.TrackingNumber,
	})
	return order, nil
}

// Cancel cancels an order that has not shipped yet
func (s *OrderService) Cancel(ctx context.Context, ownerID, id uuid.UUID, req *CancelOrderRequest) (*domain.Order, error) {
	order, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
		return nil, &errors.ErrInvalidStateTransition{From: order.Status, To: domain.OrderStatusCancelled}
	}

	comment := req.Reason
	if comment == "" {
		comment = "cancelled by operator"
	}
	entry := domain.StatusHistoryEntry{
		Timestamp: time.Now().UTC(),
		Status:    domain.OrderStatusCancelled,
		Comment:   comment,
		Actor:     "operator",
	}
	if err := s.repos.Order.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, entry); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusCancelled
	order.StatusHistory = append(order.StatusHistory, entry)

	s.publisher.Publish(events.OrderUpdated, map[string]any{
		"order_id": order.ID,
		"status":   domain.OrderStatusCancelled,
	})
	return order, nil
}
