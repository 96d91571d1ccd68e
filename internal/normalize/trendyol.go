package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/merchanthub/omsapi/internal/domain"
)

// trendyolPackage mirrors the shipment package shape of the Trendyol order
// listing. Only the fields the canonical model needs are decoded.
type trendyolPackage struct {
	ID                    int64      `json:"id"`
	OrderNumber           string     `json:"orderNumber"`
	OrderDate             int64      `json:"orderDate"` // epoch millis
	Status                string     `json:"status"`
	ShipmentPackageStatus string     `json:"shipmentPackageStatus"`
	CargoTrackingNumber   flexString `json:"cargoTrackingNumber"`
	CargoProviderName     string     `json:"cargoProviderName"`
	CustomerFirstName     string     `json:"customerFirstName"`
	CustomerLastName      string     `json:"customerLastName"`
	CustomerEmail         string     `json:"customerEmail"`
	GrossAmount           float64    `json:"grossAmount"`
	TotalPrice            float64    `json:"totalPrice"`
	CurrencyCode          string     `json:"currencyCode"`
	ShipmentAddress       *trendyolAddress `json:"shipmentAddress"`
	InvoiceAddress        *trendyolAddress `json:"invoiceAddress"`
	Lines                 []trendyolLine   `json:"lines"`
}

type trendyolAddress struct {
	FullName    string     `json:"fullName"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Address1    string     `json:"address1"`
	Address2    string     `json:"address2"`
	City        string     `json:"city"`
	District    string     `json:"district"`
	PostalCode  flexString `json:"postalCode"`
	CountryCode string     `json:"countryCode"`
	Phone       flexString `json:"phone"`
}

type trendyolLine struct {
	ProductName  string  `json:"productName"`
	MerchantSKU  string  `json:"merchantSku"`
	SKU          string  `json:"sku"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	CurrencyCode string  `json:"currencyCode"`
}

func (n *Normalizer) normalizeTrendyol(raw domain.RawOrder) (*domain.Order, error) {
	var pkg trendyolPackage
	if err := json.Unmarshal(raw.Payload, &pkg); err != nil {
		return nil, decodeError(domain.PlatformTrendyol, raw, err)
	}

	status := pkg.Status
	if status == "" {
		status = pkg.ShipmentPackageStatus
	}

	order := &domain.Order{
		PlatformOrderID: pkg.OrderNumber,
		OrderDate:       parseEpochMillis(pkg.OrderDate),
		Status:          mapStatus(domain.PlatformTrendyol, status, n.logger),
		Customer: domain.Customer{
			Name:  strings.TrimSpace(pkg.CustomerFirstName + " " + pkg.CustomerLastName),
			Email: pkg.CustomerEmail,
		},
		ShippingAddress: trendyolToAddress(pkg.ShipmentAddress),
		BillingAddress:  trendyolToAddress(pkg.InvoiceAddress),
		TotalAmount:     pkg.TotalPrice,
		Currency:        pkg.CurrencyCode,
		TrackingNumber:  optional(pkg.CargoTrackingNumber.String()),
		Carrier:         optional(pkg.CargoProviderName),
	}

	// Trendyol keys packages by their numeric package id; the order number
	// alone is not unique when an order splits into multiple packages.
	if pkg.ID > 0 {
		order.PlatformOrderID = strconv.FormatInt(pkg.ID, 10)
	}

	for _, line := range pkg.Lines {
		sku := line.MerchantSKU
		if sku == "" {
			sku = line.SKU
		}
		quantity := line.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		currency := line.CurrencyCode
		if currency == "" {
			currency = pkg.CurrencyCode
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductTitle: line.ProductName,
			SKU:          optional(sku),
			Quantity:     quantity,
			UnitPrice:    line.Price,
			Currency:     currency,
		})
	}

	return order, nil
}

func trendyolToAddress(a *trendyolAddress) domain.Address {
	if a == nil {
		return domain.Address{}
	}
	name := a.FullName
	if name == "" {
		name = strings.TrimSpace(a.FirstName + " " + a.LastName)
	}
	return domain.Address{
		Name:       name,
		Line1:      a.Address1,
		Line2:      a.Address2,
		City:       a.City,
		District:   a.District,
		PostalCode: a.PostalCode.String(),
		Country:    a.CountryCode,
		Phone:      a.Phone.String(),
	}
}
