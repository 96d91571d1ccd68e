package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/internal/events"
	"github.com/merchanthub/omsapi/internal/normalize"
	"github.com/merchanthub/omsapi/internal/platforms"
	"github.com/merchanthub/omsapi/internal/repository"
	"github.com/merchanthub/omsapi/pkg/errors"
)

// Orchestrator drives the fetch -> normalize -> upsert pipeline for one
// connection at a time. Fetch failures are fatal for the run and mark the
// connection; per-order failures are isolated and only counted.
type Orchestrator struct {
	repos      *repository.Repositories
	registry   *platforms.Registry
	normalizer *normalize.Normalizer
	locker     Locker
	publisher  events.Publisher
	logger     *zap.Logger
}

// New creates a sync orchestrator
func New(repos *repository.Repositories, registry *platforms.Registry, normalizer *normalize.Normalizer, locker Locker, publisher events.Publisher, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		repos:      repos,
		registry:   registry,
		normalizer: normalizer,
		locker:     locker,
		publisher:  publisher,
		logger:     logger,
	}
}

// Sync runs one sync for a remote connection over [from, to]. At most one sync
// per connection runs at a time; a second caller gets ErrSyncInProgress.
func (o *Orchestrator) Sync(ctx context.Context, connectionID uuid.UUID, from, to time.Time) (*domain.SyncResult, error) {
	conn, err := o.repos.Connection.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if conn.PlatformType == domain.PlatformCSV {
		return nil, fmt.Errorf("csv connections import orders via file upload, not sync")
	}
	if conn.Status == domain.ConnectionStatusDisabled {
		return nil, fmt.Errorf("connection %s is disabled", conn.ID)
	}
	if missing := domain.MissingCredentialFields(conn.PlatformType, conn.Credentials); len(missing) > 0 {
		return nil, &errors.ErrCredential{
			Platform: conn.PlatformType,
			Field:    missing[0],
			Reason:   "required credential missing",
		}
	}

	adapter, err := o.registry.Get(conn.PlatformType)
	if err != nil {
		return nil, err
	}

	return o.runLocked(ctx, conn, adapter, from, to)
}

// ImportCSV ingests uploaded rows through a csv connection. It shares the
// normalize/upsert path and the single-flight lock with remote syncs; only the
// fetch side differs.
func (o *Orchestrator) ImportCSV(ctx context.Context, connectionID uuid.UUID, header []string, rows [][]string, mapping platforms.ColumnMapping) (*domain.SyncResult, error) {
	conn, err := o.repos.Connection.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if conn.PlatformType != domain.PlatformCSV {
		return nil, fmt.Errorf("connection %s is %s, not csv", conn.ID, conn.PlatformType)
	}
	if conn.Status == domain.ConnectionStatusDisabled {
		return nil, fmt.Errorf("connection %s is disabled", conn.ID)
	}

	adapter := platforms.NewCSVAdapter(header, rows, mapping, o.logger)
	if res := adapter.TestConnection(ctx, conn.Credentials); !res.OK {
		return nil, fmt.Errorf("invalid csv import: %s", res.Message)
	}

	// The adapter holds the whole upload; the window is irrelevant
	return o.runLocked(ctx, conn, adapter, time.Time{}, time.Now())
}

// SyncAll syncs every syncable connection of an owner sequentially. Disabled
// and csv connections are skipped; a connection already being synced is
// skipped rather than failing the batch.
func (o *Orchestrator) SyncAll(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*domain.SyncResult, error) {
	conns, err := o.repos.Connection.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var results []*domain.SyncResult
	for _, conn := range conns {
		if conn.PlatformType == domain.PlatformCSV || conn.Status == domain.ConnectionStatusDisabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := o.Sync(ctx, conn.ID, from, to)
		if err != nil {
			if _, busy := err.(*errors.ErrSyncInProgress); busy {
				o.logger.Info("Skipping connection with sync in progress", zap.String("connection_id", conn.ID.String()))
				continue
			}
			o.logger.Warn("Sync failed for connection",
				zap.String("connection_id", conn.ID.String()),
				zap.String("platform", string(conn.PlatformType)),
				zap.Error(err),
			)
			continue
		}
		results = append(results, result)
	}

	return results, nil
}

func (o *Orchestrator) runLocked(ctx context.Context, conn *domain.PlatformConnection, adapter platforms.Adapter, from, to time.Time) (*domain.SyncResult, error) {
	acquired, err := o.locker.TryLock(ctx, conn.ID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, &errors.ErrSyncInProgress{ConnectionID: conn.ID.String()}
	}
	defer o.locker.Unlock(ctx, conn.ID)

	return o.run(ctx, conn, adapter, from, to)
}

func (o *Orchestrator) run(ctx context.Context, conn *domain.PlatformConnection, adapter platforms.Adapter, from, to time.Time) (*domain.SyncResult, error) {
	result := &domain.SyncResult{
		ConnectionID: conn.ID,
		StartedAt:    time.Now().UTC(),
	}

	o.logger.Info("Starting sync",
		zap.String("connection_id", conn.ID.String()),
		zap.String("platform", string(conn.PlatformType)),
		zap.Time("from", from),
		zap.Time("to", to),
	)

	raws, err := adapter.FetchOrders(ctx, conn.Credentials, from, to)
	if err != nil {
		// Fetch failure is fatal: nothing was written, the connection is
		// marked so the owner sees the broken state.
		msg := err.Error()
		if updateErr := o.repos.Connection.UpdateSyncState(ctx, conn.ID, domain.ConnectionStatusError, &msg, nil); updateErr != nil {
			o.logger.Error("Failed to record sync failure on connection",
				zap.String("connection_id", conn.ID.String()),
				zap.Error(updateErr),
			)
		}
		return nil, err
	}
	result.Fetched = len(raws)

	for _, raw := range raws {
		// Each order commits on its own, so cancellation mid-run leaves a
		// consistent partial import.
		if err := ctx.Err(); err != nil {
			result.FinishedAt = time.Now().UTC()
			return result, err
		}
		o.processOrder(ctx, conn, raw, result)
	}

	now := time.Now().UTC()
	if err := o.repos.Connection.UpdateSyncState(ctx, conn.ID, domain.ConnectionStatusActive, nil, &now); err != nil {
		o.logger.Error("Failed to record sync success on connection",
			zap.String("connection_id", conn.ID.String()),
			zap.Error(err),
		)
	}
	result.FinishedAt = now

	o.logger.Info("Sync finished",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("fetched", result.Fetched),
		zap.Int("imported", result.Imported),
		zap.Int("updated", result.Updated),
		zap.Int("skipped_duplicate", result.SkippedDuplicate),
		zap.Int("failed", result.Failed),
	)

	if result.Imported > 0 || result.Updated > 0 {
		o.publisher.Publish(events.OrdersChanged, map[string]any{
			"connection_id": conn.ID,
			"platform":      conn.PlatformType,
			"imported":      result.Imported,
			"updated":       result.Updated,
		})
	}

	return result, nil
}

func (o *Orchestrator) processOrder(ctx context.Context, conn *domain.PlatformConnection, raw domain.RawOrder, result *domain.SyncResult) {
	order, err := o.normalizer.Normalize(conn.PlatformType, raw)
	if err != nil {
		o.logger.Warn("Failed to normalize order",
			zap.String("connection_id", conn.ID.String()),
			zap.String("platform_order_id", raw.PlatformOrderID),
			zap.Error(err),
		)
		result.RecordFailure(raw.PlatformOrderID, err.Error())
		return
	}
	order.ConnectionID = conn.ID
	order.OwnerID = conn.OwnerID

	existing, err := o.repos.Order.FindByPlatformOrderID(ctx, conn.ID, order.PlatformOrderID)
	if err != nil {
		if _, notFound := err.(*errors.ErrNotFound); !notFound {
			result.RecordFailure(order.PlatformOrderID, err.Error())
			return
		}
		if err := o.repos.Order.Create(ctx, order); err != nil {
			result.RecordFailure(order.PlatformOrderID, err.Error())
			return
		}
		result.Imported++
		return
	}

	o.applyUpdate(ctx, existing, order, result)
}

// applyUpdate reconciles a re-fetched order against the stored one. Only
// status and tracking may change after import; identical data counts as a
// skipped duplicate.
func (o *Orchestrator) applyUpdate(ctx context.Context, existing, incoming *domain.Order, result *domain.SyncResult) {
	statusChanged := incoming.Status != existing.Status && incoming.Status != domain.OrderStatusUnknown
	trackingChanged := differs(existing.TrackingNumber, incoming.TrackingNumber) ||
		differs(existing.Carrier, incoming.Carrier)

	if !statusChanged && !trackingChanged {
		result.SkippedDuplicate++
		return
	}

	if statusChanged {
		existing.StatusHistory = append(existing.StatusHistory, domain.StatusHistoryEntry{
			Timestamp: time.Now().UTC(),
			Status:    incoming.Status,
			Comment:   fmt.Sprintf("status changed from %s on %s", existing.Status, existing.PlatformType),
			Actor:     "sync",
		})
		existing.Status = incoming.Status
	}
	if incoming.TrackingNumber != nil {
		existing.TrackingNumber = incoming.TrackingNumber
	}
	if incoming.Carrier != nil {
		existing.Carrier = incoming.Carrier
	}

	if err := o.repos.Order.UpdateFromSync(ctx, existing); err != nil {
		result.RecordFailure(existing.PlatformOrderID, err.Error())
		return
	}
	result.Updated++
}

func differs(current, incoming *string) bool {
	if incoming == nil {
		return false
	}
	return current == nil || *current != *incoming
}
