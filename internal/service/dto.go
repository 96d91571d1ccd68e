package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/internal/platforms"
)

// CreateConnectionRequest is the payload for adding a platform connection
type CreateConnectionRequest struct {
	PlatformType string            `json:"platform_type" binding:"required"`
	Name         string            `json:"name" binding:"required"`
	Credentials  map[string]string `json:"credentials"`
}

// UpdateConnectionRequest is the payload for editing a connection. Nil fields
// are left unchanged; the platform type is immutable after creation.
type UpdateConnectionRequest struct {
	Name        *string           `json:"name"`
	Credentials map[string]string `json:"credentials"`
	Disabled    *bool             `json:"disabled"`
}

// SyncRequest selects the order-date window for a sync run
type SyncRequest struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// Window resolves the request to a concrete interval, defaulting to the last
// 14 days ending now.
func (r *SyncRequest) Window() (time.Time, time.Time) {
	to := time.Now().UTC()
	if r != nil && r.To != nil {
		to = r.To.UTC()
	}
	from := to.AddDate(0, 0, -14)
	if r != nil && r.From != nil {
		from = r.From.UTC()
	}
	return from, to
}

// CSVImportRequest carries parsed upload rows and the column mapping for a
// csv connection import
type CSVImportRequest struct {
	Header  []string                `json:"header" binding:"required"`
	Rows    [][]string              `json:"rows" binding:"required"`
	Mapping platforms.ColumnMapping `json:"mapping" binding:"required"`
}

// UpdateOrderStatusRequest is the payload for a manual status change
type UpdateOrderStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

// ShipOrderRequest is the payload for marking an order shipped
type ShipOrderRequest struct {
	Carrier        string `json:"carrier" binding:"required"`
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

// CancelOrderRequest is the payload for cancelling an order
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// ConnectionResponse is the API view of a platform connection. Credentials are
// never echoed back; only the field names are exposed so a client can render
// an edit form.
type ConnectionResponse struct {
	ID               uuid.UUID  `json:"id"`
	PlatformType     string     `json:"platform_type"`
	Name             string     `json:"name"`
	Status           string     `json:"status"`
	CredentialFields []string   `json:"credential_fields"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`
	LastError        *string    `json:"last_error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewConnectionResponse maps a connection to its API view
func NewConnectionResponse(conn *domain.PlatformConnection) *ConnectionResponse {
	return &ConnectionResponse{
		ID:               conn.ID,
		PlatformType:     string(conn.PlatformType),
		Name:             conn.Name,
		Status:           string(conn.Status),
		CredentialFields: domain.RequiredCredentialFields(conn.PlatformType),
		LastSyncedAt:     conn.LastSyncedAt,
		LastError:        conn.LastError,
		CreatedAt:        conn.CreatedAt,
		UpdatedAt:        conn.UpdatedAt,
	}
}
