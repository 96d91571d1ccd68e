package normalize

import (
	"encoding/json"
	"time"

	"github.com/merchanthub/omsapi/internal/domain"
)

// amazonOrder mirrors the SP-API order listing entry. The listing endpoint
// does not include line items; those would need a per-order items call, so
// Amazon orders normalize with an empty item list and the provider total is
// used as-is.
type amazonOrder struct {
	AmazonOrderID string `json:"AmazonOrderId"`
	PurchaseDate  string `json:"PurchaseDate"`
	OrderStatus   string `json:"OrderStatus"`
	OrderTotal    *struct {
		Amount       string `json:"Amount"`
		CurrencyCode string `json:"CurrencyCode"`
	} `json:"OrderTotal"`
	BuyerInfo *struct {
		BuyerName  string `json:"BuyerName"`
		BuyerEmail string `json:"BuyerEmail"`
	} `json:"BuyerInfo"`
	ShippingAddress *struct {
		Name          string `json:"Name"`
		AddressLine1  string `json:"AddressLine1"`
		AddressLine2  string `json:"AddressLine2"`
		City          string `json:"City"`
		StateOrRegion string `json:"StateOrRegion"`
		PostalCode    string `json:"PostalCode"`
		CountryCode   string `json:"CountryCode"`
		Phone         string `json:"Phone"`
	} `json:"ShippingAddress"`
}

func (n *Normalizer) normalizeAmazon(raw domain.RawOrder) (*domain.Order, error) {
	var src amazonOrder
	if err := json.Unmarshal(raw.Payload, &src); err != nil {
		return nil, decodeError(domain.PlatformAmazon, raw, err)
	}

	order := &domain.Order{
		PlatformOrderID: src.AmazonOrderID,
		OrderDate:       parseTimeAny(src.PurchaseDate, time.RFC3339),
		Status:          mapStatus(domain.PlatformAmazon, src.OrderStatus, n.logger),
	}

	if src.OrderTotal != nil {
		order.TotalAmount = parseAmountString(src.OrderTotal.Amount)
		order.Currency = src.OrderTotal.CurrencyCode
	}

	if src.BuyerInfo != nil {
		order.Customer = domain.Customer{
			Name:  src.BuyerInfo.BuyerName,
			Email: src.BuyerInfo.BuyerEmail,
		}
	}

	if a := src.ShippingAddress; a != nil {
		order.ShippingAddress = domain.Address{
			Name:       a.Name,
			Line1:      a.AddressLine1,
			Line2:      a.AddressLine2,
			City:       a.City,
			District:   a.StateOrRegion,
			PostalCode: a.PostalCode,
			Country:    a.CountryCode,
			Phone:      a.Phone,
		}
		if order.Customer.Name == "" {
			order.Customer.Name = a.Name
		}
	}

	return order, nil
}
