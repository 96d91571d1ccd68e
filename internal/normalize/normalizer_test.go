package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

func raw(id, payload string) domain.RawOrder {
	return domain.RawOrder{PlatformOrderID: id, Payload: json.RawMessage(payload)}
}

func TestNormalizeTrendyolPackage(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{
		"id": 7240110,
		"orderNumber": "TY-98765",
		"orderDate": 1700000000000,
		"status": "Shipped",
		"cargoTrackingNumber": "TR123",
		"cargoProviderName": "Yurtici Kargo",
		"customerFirstName": "Ayse",
		"customerLastName": "Yilmaz",
		"customerEmail": "ayse@example.com",
		"totalPrice": 199.80,
		"currencyCode": "TRY",
		"shipmentAddress": {
			"fullName": "Ayse Yilmaz",
			"address1": "Bagdat Cad. 42",
			"city": "Istanbul",
			"district": "Kadikoy",
			"postalCode": 34710,
			"countryCode": "TR"
		},
		"lines": [
			{"productName": "Ceramic Mug", "merchantSku": "MUG-01", "quantity": 2, "price": 49.90},
			{"productName": "Tea Set", "sku": "TEA-05", "quantity": 1, "price": 100.00}
		]
	}`

	order, err := n.Normalize(domain.PlatformTrendyol, raw("", payload))
	require.NoError(t, err)

	// Packages are keyed by their numeric id, not the shared order number
	assert.Equal(t, "7240110", order.PlatformOrderID)
	assert.Equal(t, domain.OrderStatusShipped, order.Status)
	require.NotNil(t, order.TrackingNumber)
	assert.Equal(t, "TR123", *order.TrackingNumber)
	require.NotNil(t, order.Carrier)
	assert.Equal(t, "Yurtici Kargo", *order.Carrier)

	assert.Equal(t, "Ayse Yilmaz", order.Customer.Name)
	assert.Equal(t, "Istanbul", order.ShippingAddress.City)
	assert.Equal(t, "Kadikoy", order.ShippingAddress.District)
	assert.Equal(t, "34710", order.ShippingAddress.PostalCode)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "MUG-01", *order.Items[0].SKU)
	assert.Equal(t, "TEA-05", *order.Items[1].SKU)

	// Totals are recomputed from the lines: 2*49.90 + 100.00
	assert.InDelta(t, 199.80, order.Subtotal, 0.001)
	assert.InDelta(t, 199.80, order.TotalAmount, 0.001)
	assert.Equal(t, "TRY", order.Currency)

	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), order.OrderDate)

	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, domain.OrderStatusShipped, order.StatusHistory[0].Status)
	assert.Equal(t, "sync", order.StatusHistory[0].Actor)
}

func TestNormalizeTrendyolNumericTrackingNumber(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{"orderNumber": "TY-1", "cargoTrackingNumber": 7240112345}`
	order, err := n.Normalize(domain.PlatformTrendyol, raw("", payload))
	require.NoError(t, err)
	require.NotNil(t, order.TrackingNumber)
	assert.Equal(t, "7240112345", *order.TrackingNumber)
}

func TestNormalizeHepsiburadaEmbeddedAddress(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{
		"packageNumber": "HB-555",
		"orderDate": "2024-03-01T10:30:00Z",
		"status": "InTransit",
		"customerName": "Mehmet Demir",
		"shippingAddressJson": "{\"name\":\"Mehmet Demir\",\"address\":\"Alsancak Mah. 12\",\"city\":\"Izmir\",\"town\":\"Konak\",\"postalCode\":\"35220\"}",
		"totalPrice": {"amount": 250.0, "currency": "TRY"},
		"items": [
			{"productName": "Notebook Sleeve", "merchantSku": "NS-13", "quantity": 1, "price": {"amount": 250.0, "currency": "TRY"}}
		]
	}`

	order, err := n.Normalize(domain.PlatformHepsiburada, raw("", payload))
	require.NoError(t, err)

	assert.Equal(t, "HB-555", order.PlatformOrderID)
	assert.Equal(t, domain.OrderStatusShipped, order.Status)
	assert.Equal(t, "Izmir", order.ShippingAddress.City)
	// Town carries the district in the embedded address shape
	assert.Equal(t, "Konak", order.ShippingAddress.District)
	assert.Equal(t, "TRY", order.Currency)
	require.Len(t, order.Items, 1)
	assert.InDelta(t, 250.0, order.TotalAmount, 0.001)
}

func TestNormalizeHepsiburadaMalformedEmbeddedAddress(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{"orderNumber": "HB-9", "status": "Open", "shippingAddressJson": "{not json"}`
	order, err := n.Normalize(domain.PlatformHepsiburada, raw("", payload))

	// A broken embedded address degrades to an empty address, never an error
	require.NoError(t, err)
	assert.Equal(t, domain.Address{}, order.ShippingAddress)
	assert.Equal(t, domain.OrderStatusNew, order.Status)
}

func TestNormalizeHepsiburadaLineItemsVariant(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{
		"orderNumber": 123456,
		"status": "Delivered",
		"lineItems": [{"name": "Desk Lamp", "sku": "DL-2", "quantity": 2, "unitPrice": 75.5}]
	}`

	order, err := n.Normalize(domain.PlatformHepsiburada, raw("", payload))
	require.NoError(t, err)
	assert.Equal(t, "123456", order.PlatformOrderID)
	assert.Equal(t, domain.OrderStatusDelivered, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Desk Lamp", order.Items[0].ProductTitle)
	assert.InDelta(t, 151.0, order.Subtotal, 0.001)
}

func TestNormalizeN11DateFormat(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{
		"orderNumber": "N11-42",
		"createDate": "15/02/2024 13:45:00",
		"status": "Approved",
		"totalAmount": 80,
		"currency": "TL",
		"lines": [{"productName": "Phone Case", "productSellerCode": "PC-9", "quantity": 1, "price": 80}]
	}`

	order, err := n.Normalize(domain.PlatformN11, raw("", payload))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	assert.Equal(t, 2024, order.OrderDate.Year())
	assert.Equal(t, time.February, order.OrderDate.Month())
	// N11 reports TL; the canonical currency code is TRY
	assert.Equal(t, "TRY", order.Currency)
}

func TestNormalizeAmazonProviderTotalTrusted(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{
		"AmazonOrderId": "902-3159896-1390916",
		"PurchaseDate": "2024-01-05T12:00:00Z",
		"OrderStatus": "Unshipped",
		"OrderTotal": {"Amount": "64.99", "CurrencyCode": "USD"},
		"BuyerInfo": {"BuyerName": "John Doe"}
	}`

	order, err := n.Normalize(domain.PlatformAmazon, raw("", payload))
	require.NoError(t, err)
	assert.Equal(t, "902-3159896-1390916", order.PlatformOrderID)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	// No line items, so the provider-stated total stands
	assert.Empty(t, order.Items)
	assert.InDelta(t, 64.99, order.TotalAmount, 0.001)
	assert.Equal(t, "USD", order.Currency)
}

func TestNormalizeEtsyDivisorMoney(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{
		"receipt_id": 3100,
		"created_timestamp": 1700000000,
		"status": "Completed",
		"name": "Jane Maker",
		"grandtotal": {"amount": 2550, "divisor": 100, "currency_code": "USD"},
		"total_shipping_cost": {"amount": 550, "divisor": 100, "currency_code": "USD"},
		"transactions": [{"title": "Handmade Bowl", "sku": "BOWL-1", "quantity": 1, "price": {"amount": 2000, "divisor": 100, "currency_code": "USD"}}],
		"shipments": [{"tracking_code": "9400100000000000000000", "carrier_name": "usps"}]
	}`

	order, err := n.Normalize(domain.PlatformEtsy, raw("", payload))
	require.NoError(t, err)
	assert.Equal(t, "3100", order.PlatformOrderID)
	assert.Equal(t, domain.OrderStatusShipped, order.Status)
	assert.InDelta(t, 20.0, order.Subtotal, 0.001)
	assert.InDelta(t, 5.50, order.ShippingAmount, 0.001)
	// subtotal + shipping + tax overrides the provider grandtotal
	assert.InDelta(t, 25.50, order.TotalAmount, 0.001)
	require.NotNil(t, order.TrackingNumber)
	assert.Equal(t, "9400100000000000000000", *order.TrackingNumber)
}

func TestNormalizeShopifyRefundOverridesFulfillment(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{
		"id": "gid://shopify/Order/111",
		"name": "#1001",
		"createdAt": "2024-04-01T09:00:00Z",
		"displayFulfillmentStatus": "FULFILLED",
		"displayFinancialStatus": "REFUNDED",
		"currencyCode": "EUR",
		"totalPriceSet": {"shopMoney": {"amount": "30.00", "currencyCode": "EUR"}}
	}`

	order, err := n.Normalize(domain.PlatformShopify, raw("", payload))
	require.NoError(t, err)
	assert.Equal(t, "1001", order.PlatformOrderID)
	assert.Equal(t, domain.OrderStatusReturned, order.Status)
	assert.InDelta(t, 30.0, order.TotalAmount, 0.001)
}

func TestNormalizeShopifyLineItems(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{
		"name": "#1002",
		"displayFulfillmentStatus": "UNFULFILLED",
		"currencyCode": "USD",
		"lineItems": {"edges": [
			{"node": {"title": "T-Shirt", "sku": "TS-M", "quantity": 3, "originalUnitPriceSet": {"shopMoney": {"amount": "15.00", "currencyCode": "USD"}}}}
		]},
		"fulfillments": [{"status": "SUCCESS", "trackingInfo": [{"number": "SHOP-TRACK-1", "company": "DHL"}]}]
	}`

	order, err := n.Normalize(domain.PlatformShopify, raw("", payload))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusNew, order.Status)
	require.Len(t, order.Items, 1)
	assert.InDelta(t, 45.0, order.Subtotal, 0.001)
	assert.InDelta(t, 45.0, order.TotalAmount, 0.001)
	require.NotNil(t, order.TrackingNumber)
	assert.Equal(t, "SHOP-TRACK-1", *order.TrackingNumber)
	assert.Equal(t, "DHL", *order.Carrier)
}

func TestNormalizeCSVTotalsRecomputed(t *testing.T) {
	n := New(zap.NewNop())

	// Provider-stated total disagrees with the lines; the lines win
	payload := `{
		"orderId": "CSV-7",
		"orderDate": "2024-05-01",
		"status": "shipped",
		"customerName": "Ali Kaya",
		"currency": "TRY",
		"shippingAmount": 10,
		"taxAmount": 5,
		"totalAmount": 999,
		"items": [{"productTitle": "Poster", "quantity": 2, "unitPrice": 20}]
	}`

	order, err := n.Normalize(domain.PlatformCSV, raw("", payload))
	require.NoError(t, err)
	assert.InDelta(t, 40.0, order.Subtotal, 0.001)
	assert.InDelta(t, 55.0, order.TotalAmount, 0.001)
	assert.Equal(t, domain.OrderStatusShipped, order.Status)
}

func TestNormalizeUnknownStatusBucket(t *testing.T) {
	n := New(zap.NewNop())

	payload := `{"orderNumber": "TY-2", "status": "SomethingBrandNew"}`
	order, err := n.Normalize(domain.PlatformTrendyol, raw("", payload))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusUnknown, order.Status)
}

func TestNormalizeMissingOrderIdentifier(t *testing.T) {
	n := New(zap.NewNop())

	_, err := n.Normalize(domain.PlatformTrendyol, raw("", `{}`))
	require.Error(t, err)
	var normErr *errors.ErrNormalization
	require.ErrorAs(t, err, &normErr)
}

func TestNormalizeFallsBackToRawIdentifier(t *testing.T) {
	n := New(zap.NewNop())

	order, err := n.Normalize(domain.PlatformTrendyol, raw("fallback-id", `{}`))
	require.NoError(t, err)
	assert.Equal(t, "fallback-id", order.PlatformOrderID)
	assert.False(t, order.OrderDate.IsZero())
}

func TestNormalizeMalformedPayload(t *testing.T) {
	n := New(zap.NewNop())

	_, err := n.Normalize(domain.PlatformShopify, raw("x", `{broken`))
	require.Error(t, err)
	var normErr *errors.ErrNormalization
	require.ErrorAs(t, err, &normErr)
}

func TestNormalizeMinimalPayloadsNeverPanic(t *testing.T) {
	n := New(zap.NewNop())

	platforms := []domain.PlatformType{
		domain.PlatformTrendyol,
		domain.PlatformHepsiburada,
		domain.PlatformN11,
		domain.PlatformAmazon,
		domain.PlatformEtsy,
		domain.PlatformShopify,
		domain.PlatformCSV,
	}
	for _, platform := range platforms {
		order, err := n.Normalize(platform, raw("min-1", `{}`))
		require.NoError(t, err, "platform %s", platform)
		assert.Equal(t, "min-1", order.PlatformOrderID)
		assert.Equal(t, platform, order.PlatformType)
		require.Len(t, order.StatusHistory, 1)
	}
}

func TestMapStatusEmptyDefaultsToNew(t *testing.T) {
	status := mapStatus(domain.PlatformAmazon, "", zap.NewNop())
	assert.Equal(t, domain.OrderStatusNew, status)
}

func TestMapStatusCaseInsensitive(t *testing.T) {
	status := mapStatus(domain.PlatformAmazon, "CANCELED", zap.NewNop())
	assert.Equal(t, domain.OrderStatusCancelled, status)
}
