package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

// Normalizer maps platform-native order payloads into the canonical order
// model. It is the single place where marketplace field-name differences are
// resolved; platform shapes never leak past it.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a new normalizer
func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize converts one raw platform order into a canonical order. The
// returned order has no connection or database identity yet; the sync
// orchestrator assigns those. Missing optional fields become zero values,
// never errors; only an undecodable payload or a missing native order ID is
// a normalization failure.
func (n *Normalizer) Normalize(platform domain.PlatformType, raw domain.RawOrder) (*domain.Order, error) {
	var (
		order *domain.Order
		err   error
	)

	switch platform {
	case domain.PlatformTrendyol:
		order, err = n.normalizeTrendyol(raw)
	case domain.PlatformHepsiburada:
		order, err = n.normalizeHepsiburada(raw)
	case domain.PlatformN11:
		order, err = n.normalizeN11(raw)
	case domain.PlatformAmazon:
		order, err = n.normalizeAmazon(raw)
	case domain.PlatformEtsy:
		order, err = n.normalizeEtsy(raw)
	case domain.PlatformShopify:
		order, err = n.normalizeShopify(raw)
	case domain.PlatformCSV:
		order, err = n.normalizeCSV(raw)
	default:
		return nil, &errors.ErrNormalization{
			Platform:        platform,
			PlatformOrderID: raw.PlatformOrderID,
			Reason:          "unsupported platform type",
		}
	}
	if err != nil {
		return nil, err
	}

	order.PlatformType = platform
	if order.PlatformOrderID == "" {
		order.PlatformOrderID = raw.PlatformOrderID
	}
	if order.PlatformOrderID == "" {
		return nil, &errors.ErrNormalization{
			Platform:        platform,
			PlatformOrderID: raw.PlatformOrderID,
			Reason:          "payload carries no order identifier",
		}
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now().UTC()
	}
	order.PlatformDetails = raw.Payload

	n.computeAmounts(order)

	order.StatusHistory = []domain.StatusHistoryEntry{{
		Timestamp: order.OrderDate,
		Status:    order.Status,
		Comment:   fmt.Sprintf("imported from %s", platform),
		Actor:     "sync",
	}}

	return order, nil
}

// computeAmounts applies the canonical totals rule: the subtotal is always
// recomputed from line items when any exist, and the total is then
// subtotal + shipping + tax. The provider-stated total is trusted only when
// the payload carries no line items, since platforms report totals
// inconsistently. Arithmetic runs on decimals to keep cents exact.
func (n *Normalizer) computeAmounts(order *domain.Order) {
	if len(order.Items) == 0 {
		return
	}

	subtotal := decimal.Zero
	for _, item := range order.Items {
		price := decimal.NewFromFloat(item.UnitPrice)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	order.Subtotal = subtotal.InexactFloat64()
	total := subtotal.
		Add(decimal.NewFromFloat(order.ShippingAmount)).
		Add(decimal.NewFromFloat(order.TaxAmount))
	order.TotalAmount = total.InexactFloat64()

	if order.Currency == "" && len(order.Items) > 0 {
		order.Currency = order.Items[0].Currency
	}
}

// decodeError wraps a payload decode failure as a normalization error
func decodeError(platform domain.PlatformType, raw domain.RawOrder, err error) error {
	return &errors.ErrNormalization{
		Platform:        platform,
		PlatformOrderID: raw.PlatformOrderID,
		Reason:          fmt.Sprintf("malformed payload: %v", err),
	}
}

// flexString decodes JSON values that providers send either as strings or
// numbers (tracking numbers being the usual offender).
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*f = flexString(num.String())
	return nil
}

func (f flexString) String() string {
	return string(f)
}

// optional converts a string to a nullable pointer, mapping "" to nil
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseEpochMillis converts a millisecond epoch to UTC time, zero on 0
func parseEpochMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// parseTimeAny tries the given layouts in order and returns the first match
func parseTimeAny(value string, layouts ...string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseAmountString parses a provider money amount sent as a string
func parseAmountString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
