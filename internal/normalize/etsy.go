package normalize

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/merchanthub/omsapi/internal/domain"
)

// etsyReceipt mirrors the Etsy v3 shop receipt shape. Etsy encodes money as
// {amount, divisor, currency_code} integer pairs.
type etsyReceipt struct {
	ReceiptID        int64      `json:"receipt_id"`
	CreatedTimestamp int64      `json:"created_timestamp"` // unix seconds
	Status           string     `json:"status"`
	Name             string     `json:"name"`
	BuyerEmail       string     `json:"buyer_email"`
	FirstLine        string     `json:"first_line"`
	SecondLine       string     `json:"second_line"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	Zip              flexString `json:"zip"`
	CountryISO       string     `json:"country_iso"`
	Subtotal         etsyMoney  `json:"subtotal"`
	TotalShippingCost etsyMoney `json:"total_shipping_cost"`
	TotalTaxCost     etsyMoney  `json:"total_tax_cost"`
	GrandTotal       etsyMoney  `json:"grandtotal"`
	Transactions     []struct {
		Title    string    `json:"title"`
		SKU      string    `json:"sku"`
		Quantity int       `json:"quantity"`
		Price    etsyMoney `json:"price"`
	} `json:"transactions"`
	Shipments []struct {
		TrackingCode flexString `json:"tracking_code"`
		CarrierName  string     `json:"carrier_name"`
	} `json:"shipments"`
}

type etsyMoney struct {
	Amount       int64  `json:"amount"`
	Divisor      int64  `json:"divisor"`
	CurrencyCode string `json:"currency_code"`
}

// Float converts the amount/divisor pair to a float via decimal division
func (m etsyMoney) Float() float64 {
	if m.Divisor == 0 {
		return 0
	}
	return decimal.NewFromInt(m.Amount).
		Div(decimal.NewFromInt(m.Divisor)).
		InexactFloat64()
}

func (n *Normalizer) normalizeEtsy(raw domain.RawOrder) (*domain.Order, error) {
	var src etsyReceipt
	if err := json.Unmarshal(raw.Payload, &src); err != nil {
		return nil, decodeError(domain.PlatformEtsy, raw, err)
	}

	var orderID string
	if src.ReceiptID > 0 {
		orderID = strconv.FormatInt(src.ReceiptID, 10)
	}

	address := domain.Address{
		Name:       src.Name,
		Line1:      src.FirstLine,
		Line2:      src.SecondLine,
		City:       src.City,
		District:   src.State,
		PostalCode: src.Zip.String(),
		Country:    src.CountryISO,
	}

	order := &domain.Order{
		PlatformOrderID: orderID,
		OrderDate:       parseEpochMillis(src.CreatedTimestamp * 1000),
		Status:          mapStatus(domain.PlatformEtsy, src.Status, n.logger),
		Customer: domain.Customer{
			Name:  src.Name,
			Email: src.BuyerEmail,
		},
		ShippingAddress: address,
		ShippingAmount:  src.TotalShippingCost.Float(),
		TaxAmount:       src.TotalTaxCost.Float(),
		TotalAmount:     src.GrandTotal.Float(),
		Currency:        src.GrandTotal.CurrencyCode,
	}

	for _, tx := range src.Transactions {
		quantity := tx.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		currency := tx.Price.CurrencyCode
		if currency == "" {
			currency = order.Currency
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductTitle: tx.Title,
			SKU:          optional(tx.SKU),
			Quantity:     quantity,
			UnitPrice:    tx.Price.Float(),
			Currency:     currency,
		})
	}

	if len(src.Shipments) > 0 {
		order.TrackingNumber = optional(src.Shipments[0].TrackingCode.String())
		order.Carrier = optional(src.Shipments[0].CarrierName)
	}

	return order, nil
}
