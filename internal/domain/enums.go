package domain

// PlatformType identifies a marketplace source
type PlatformType string

const (
	PlatformTrendyol    PlatformType = "trendyol"
	PlatformHepsiburada PlatformType = "hepsiburada"
	PlatformN11         PlatformType = "n11"
	PlatformAmazon      PlatformType = "amazon"
	PlatformEtsy        PlatformType = "etsy"
	PlatformShopify     PlatformType = "shopify"
	PlatformCSV         PlatformType = "csv"
)

// IsValid checks if the platform type is supported
func (p PlatformType) IsValid() bool {
	switch p {
	case PlatformTrendyol, PlatformHepsiburada, PlatformN11,
		PlatformAmazon, PlatformEtsy, PlatformShopify, PlatformCSV:
		return true
	default:
		return false
	}
}

func (p PlatformType) String() string {
	return string(p)
}

// ConnectionStatus represents the health of a platform connection
type ConnectionStatus string

const (
	ConnectionStatusActive   ConnectionStatus = "active"
	ConnectionStatusError    ConnectionStatus = "error"
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusDisabled ConnectionStatus = "disabled"
)

// IsValid checks if the connection status is valid
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusActive, ConnectionStatusError,
		ConnectionStatusPending, ConnectionStatusDisabled:
		return true
	default:
		return false
	}
}

// OrderStatus represents the canonical status of an order
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
	OrderStatusFailed     OrderStatus = "failed"

	// OrderStatusUnknown is the fallback bucket for native platform statuses
	// that have no mapping. Logged for operator follow-up, never dropped.
	OrderStatusUnknown OrderStatus = "unknown"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned,
		OrderStatusFailed, OrderStatusUnknown:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a manual status transition is valid.
// Sync updates bypass this check; it only gates operator actions.
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusNew:
		return newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusShipped ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusFailed
	case OrderStatusProcessing:
		return newStatus == OrderStatusShipped ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusFailed
	case OrderStatusShipped:
		return newStatus == OrderStatusDelivered ||
			newStatus == OrderStatusReturned
	case OrderStatusDelivered:
		return newStatus == OrderStatusReturned
	case OrderStatusUnknown:
		// Operator may reclassify an unknown order freely
		return newStatus != OrderStatusUnknown
	case OrderStatusCancelled, OrderStatusReturned, OrderStatusFailed:
		return false // Terminal states
	default:
		return false
	}
}
