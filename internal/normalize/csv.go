package normalize

import (
	"encoding/json"
	"time"

	"github.com/merchanthub/omsapi/internal/domain"
)

// csvOrder is the payload shape the CSV source adapter emits after applying
// the user's column mapping.
type csvOrder struct {
	OrderID        string  `json:"orderId"`
	OrderDate      string  `json:"orderDate"`
	Status         string  `json:"status"`
	CustomerName   string  `json:"customerName"`
	CustomerEmail  string  `json:"customerEmail"`
	CustomerPhone  string  `json:"customerPhone"`
	Currency       string  `json:"currency"`
	ShippingAmount float64 `json:"shippingAmount"`
	TaxAmount      float64 `json:"taxAmount"`
	TotalAmount    float64 `json:"totalAmount"`
	AddressLine    string  `json:"addressLine"`
	City           string  `json:"city"`
	District       string  `json:"district"`
	PostalCode     string  `json:"postalCode"`
	Country        string  `json:"country"`
	TrackingNumber string  `json:"trackingNumber"`
	Carrier        string  `json:"carrier"`
	Items          []struct {
		ProductTitle string  `json:"productTitle"`
		SKU          string  `json:"sku"`
		Quantity     int     `json:"quantity"`
		UnitPrice    float64 `json:"unitPrice"`
		Currency     string  `json:"currency"`
	} `json:"items"`
}

func (n *Normalizer) normalizeCSV(raw domain.RawOrder) (*domain.Order, error) {
	var src csvOrder
	if err := json.Unmarshal(raw.Payload, &src); err != nil {
		return nil, decodeError(domain.PlatformCSV, raw, err)
	}

	address := domain.Address{
		Name:       src.CustomerName,
		Line1:      src.AddressLine,
		City:       src.City,
		District:   src.District,
		PostalCode: src.PostalCode,
		Country:    src.Country,
	}

	order := &domain.Order{
		PlatformOrderID: src.OrderID,
		OrderDate: parseTimeAny(src.OrderDate,
			time.RFC3339, "2006-01-02", "02/01/2006", "2006-01-02 15:04:05"),
		Status: mapStatus(domain.PlatformCSV, src.Status, n.logger),
		Customer: domain.Customer{
			Name:  src.CustomerName,
			Email: src.CustomerEmail,
			Phone: src.CustomerPhone,
		},
		ShippingAddress: address,
		BillingAddress:  address,
		ShippingAmount:  src.ShippingAmount,
		TaxAmount:       src.TaxAmount,
		TotalAmount:     src.TotalAmount,
		Currency:        src.Currency,
		TrackingNumber:  optional(src.TrackingNumber),
		Carrier:         optional(src.Carrier),
	}

	for _, item := range src.Items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		currency := item.Currency
		if currency == "" {
			currency = src.Currency
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductTitle: item.ProductTitle,
			SKU:          optional(item.SKU),
			Quantity:     quantity,
			UnitPrice:    item.UnitPrice,
			Currency:     currency,
		})
	}

	return order, nil
}
