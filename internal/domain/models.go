package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents an account that owns platform connections
type User struct {
	ID         uuid.UUID
	Email      string
	Name       string
	APIKeyHash string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PlatformConnection links the system to one marketplace account
type PlatformConnection struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	PlatformType PlatformType
	Name         string
	Credentials  Credentials // JSONB
	Status       ConnectionStatus
	LastSyncedAt *time.Time
	LastError    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Customer holds buyer contact details on a canonical order
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Address is the canonical address shape shared by billing and shipping
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	District   string `json:"district,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Order is the canonical order representation, independent of source platform.
// (ConnectionID, PlatformOrderID) is the de-duplication key.
type Order struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	// OwnerID is denormalized onto the order so imported orders survive
	// deletion of their connection as historical records.
	OwnerID         uuid.UUID
	PlatformType    PlatformType
	PlatformOrderID string
	OrderDate       time.Time
	Status          OrderStatus
	Customer        Customer
	BillingAddress  Address // JSONB
	ShippingAddress Address // JSONB
	Items           []OrderItem
	Subtotal        float64
	ShippingAmount  float64
	TaxAmount       float64
	TotalAmount     float64
	Currency        string
	TrackingNumber  *string
	Carrier         *string
	StatusHistory   []StatusHistoryEntry // JSONB
	PlatformDetails json.RawMessage      // original platform payload, kept for detail views
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem represents a line item in a canonical order
type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductTitle string   `json:"product_title"`
	SKU         *string   `json:"sku,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Currency    string    `json:"currency"`
}

// StatusHistoryEntry records one status change on an order
type StatusHistoryEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Status    OrderStatus `json:"status"`
	Comment   string      `json:"comment,omitempty"`
	Actor     string      `json:"actor,omitempty"`
}

// RawOrder is a platform-native order as fetched by an adapter. Payload keeps
// the provider's shape opaque; only the normalizer interprets it.
type RawOrder struct {
	PlatformOrderID string
	Payload         json.RawMessage
}

// SyncError records a single order that failed during a sync
type SyncError struct {
	PlatformOrderID string `json:"platform_order_id"`
	Reason          string `json:"reason"`
}

// SyncResult aggregates the outcome of one sync invocation
type SyncResult struct {
	ConnectionID     uuid.UUID   `json:"connection_id"`
	StartedAt        time.Time   `json:"started_at"`
	FinishedAt       time.Time   `json:"finished_at"`
	Fetched          int         `json:"fetched"`
	Imported         int         `json:"imported"`
	Updated          int         `json:"updated"`
	SkippedDuplicate int         `json:"skipped_duplicate"`
	Failed           int         `json:"failed"`
	Errors           []SyncError `json:"errors,omitempty"`
}

// MaxSyncErrors bounds the per-order failure list in a SyncResult. Counts keep
// accumulating past the cap; only the reasons list is truncated.
const MaxSyncErrors = 50

// RecordFailure increments the failure count and appends a bounded error entry
func (r *SyncResult) RecordFailure(platformOrderID, reason string) {
	r.Failed++
	if len(r.Errors) < MaxSyncErrors {
		r.Errors = append(r.Errors, SyncError{PlatformOrderID: platformOrderID, Reason: reason})
	}
}
