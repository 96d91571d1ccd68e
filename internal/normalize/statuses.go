package normalize

import (
	"strings"

	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
)

// statusTables maps each platform's native status vocabulary onto the
// canonical enum. Keys are lowercase; lookups are case-insensitive. Native
// statuses absent from a table land in the "unknown" bucket and are logged,
// never dropped and never fatal to a sync.
var statusTables = map[domain.PlatformType]map[string]domain.OrderStatus{
	domain.PlatformTrendyol: {
		"awaiting":    domain.OrderStatusNew,
		"created":     domain.OrderStatusNew,
		"picking":     domain.OrderStatusProcessing,
		"invoiced":    domain.OrderStatusProcessing,
		"unpacked":    domain.OrderStatusProcessing,
		"shipped":     domain.OrderStatusShipped,
		"delivered":   domain.OrderStatusDelivered,
		"undelivered": domain.OrderStatusFailed,
		"cancelled":   domain.OrderStatusCancelled,
		"returned":    domain.OrderStatusReturned,
	},
	domain.PlatformHepsiburada: {
		"open":                   domain.OrderStatusNew,
		"packaged":               domain.OrderStatusProcessing,
		"readytoship":            domain.OrderStatusProcessing,
		"intransit":              domain.OrderStatusShipped,
		"shipped":                domain.OrderStatusShipped,
		"delivered":              domain.OrderStatusDelivered,
		"cancelledbycustomer":    domain.OrderStatusCancelled,
		"cancelledbymerchant":    domain.OrderStatusCancelled,
		"cancelledbyhepsiburada": domain.OrderStatusCancelled,
		"returned":               domain.OrderStatusReturned,
		"undeliveredandreturned": domain.OrderStatusReturned,
	},
	domain.PlatformN11: {
		"created":   domain.OrderStatusNew,
		"approved":  domain.OrderStatusProcessing,
		"picking":   domain.OrderStatusProcessing,
		"invoiced":  domain.OrderStatusProcessing,
		"shipped":   domain.OrderStatusShipped,
		"delivered": domain.OrderStatusDelivered,
		"completed": domain.OrderStatusDelivered,
		"rejected":  domain.OrderStatusFailed,
		"cancelled": domain.OrderStatusCancelled,
		"returned":  domain.OrderStatusReturned,
	},
	domain.PlatformAmazon: {
		"pending":            domain.OrderStatusNew,
		"pendingavailability": domain.OrderStatusNew,
		"unshipped":          domain.OrderStatusProcessing,
		"partiallyshipped":   domain.OrderStatusProcessing,
		"invoiceunconfirmed": domain.OrderStatusProcessing,
		"shipped":            domain.OrderStatusShipped,
		"canceled":           domain.OrderStatusCancelled,
		"unfulfillable":      domain.OrderStatusFailed,
	},
	domain.PlatformEtsy: {
		"open":               domain.OrderStatusNew,
		"payment processing": domain.OrderStatusNew,
		"paid":               domain.OrderStatusProcessing,
		"completed":          domain.OrderStatusShipped,
		"canceled":           domain.OrderStatusCancelled,
		"fully refunded":     domain.OrderStatusReturned,
		"partially refunded": domain.OrderStatusReturned,
	},
	domain.PlatformShopify: {
		"unfulfilled":         domain.OrderStatusNew,
		"scheduled":           domain.OrderStatusProcessing,
		"on_hold":             domain.OrderStatusProcessing,
		"in_progress":         domain.OrderStatusProcessing,
		"partially_fulfilled": domain.OrderStatusProcessing,
		"fulfilled":           domain.OrderStatusShipped,
		"restocked":           domain.OrderStatusReturned,
	},
	domain.PlatformCSV: {
		// CSV imports often carry canonical names already
		"new":        domain.OrderStatusNew,
		"processing": domain.OrderStatusProcessing,
		"shipped":    domain.OrderStatusShipped,
		"delivered":  domain.OrderStatusDelivered,
		"cancelled":  domain.OrderStatusCancelled,
		"canceled":   domain.OrderStatusCancelled,
		"returned":   domain.OrderStatusReturned,
		"failed":     domain.OrderStatusFailed,
	},
}

// mapStatus resolves a platform-native status to the canonical enum. Unmapped
// vocabulary goes to the unknown bucket with an operator-visible warning.
func mapStatus(platform domain.PlatformType, native string, logger *zap.Logger) domain.OrderStatus {
	native = strings.TrimSpace(native)
	if native == "" {
		return domain.OrderStatusNew
	}

	table := statusTables[platform]
	if status, ok := table[strings.ToLower(native)]; ok {
		return status
	}

	logger.Warn("unmapped platform order status",
		zap.String("platform", platform.String()),
		zap.String("native_status", native))
	return domain.OrderStatusUnknown
}
