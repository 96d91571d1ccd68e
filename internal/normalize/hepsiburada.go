package normalize

import (
	"encoding/json"
	"time"

	"github.com/merchanthub/omsapi/internal/domain"
)

// hepsiburadaOrder tolerates both listing shapes the Hepsiburada OMS API
// produces: a package-with-items object (packageNumber + items) and an
// order-with-items object (orderNumber + lineItems). Both normalize to the
// same canonical order. Addresses may arrive inline or as nested
// JSON-encoded strings.
type hepsiburadaOrder struct {
	PackageNumber       flexString `json:"packageNumber"`
	OrderNumber         flexString `json:"orderNumber"`
	OrderDate           string     `json:"orderDate"`
	CreatedDate         string     `json:"createdDate"`
	Status              string     `json:"status"`
	CargoTrackingNumber flexString `json:"cargoTrackingNumber"`
	CargoCompany        string     `json:"cargoCompany"`
	CustomerName        string     `json:"customerName"`
	Customer            *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
	ShippingAddress     *hepsiburadaAddress `json:"shippingAddress"`
	ShippingAddressJSON string              `json:"shippingAddressJson"`
	BillingAddress      *hepsiburadaAddress `json:"billingAddress"`
	BillingAddressJSON  string              `json:"billingAddressJson"`
	TotalPrice          hepsiburadaMoney    `json:"totalPrice"`
	Items               []hepsiburadaItem   `json:"items"`
	LineItems           []hepsiburadaItem   `json:"lineItems"`
}

type hepsiburadaAddress struct {
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	AddressTwo string     `json:"addressDetail"`
	City       string     `json:"city"`
	Town       string     `json:"town"`
	District   string     `json:"district"`
	PostalCode flexString `json:"postalCode"`
	Country    string     `json:"countryCode"`
	Phone      flexString `json:"phoneNumber"`
}

type hepsiburadaItem struct {
	ProductName string           `json:"productName"`
	Name        string           `json:"name"`
	MerchantSKU string           `json:"merchantSku"`
	SKU         string           `json:"sku"`
	Quantity    int              `json:"quantity"`
	Price       hepsiburadaMoney `json:"price"`
	UnitPrice   hepsiburadaMoney `json:"unitPrice"`
}

// hepsiburadaMoney decodes amounts sent either as a bare number or as an
// {amount, currency} object.
type hepsiburadaMoney struct {
	Amount   float64
	Currency string
}

func (m *hepsiburadaMoney) UnmarshalJSON(data []byte) error {
	var amount float64
	if err := json.Unmarshal(data, &amount); err == nil {
		m.Amount = amount
		return nil
	}
	var obj struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	m.Amount = obj.Amount
	m.Currency = obj.Currency
	return nil
}

func (n *Normalizer) normalizeHepsiburada(raw domain.RawOrder) (*domain.Order, error) {
	var hb hepsiburadaOrder
	if err := json.Unmarshal(raw.Payload, &hb); err != nil {
		return nil, decodeError(domain.PlatformHepsiburada, raw, err)
	}

	orderID := hb.PackageNumber.String()
	if orderID == "" {
		orderID = hb.OrderNumber.String()
	}

	orderDate := parseTimeAny(hb.OrderDate, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05")
	if orderDate.IsZero() {
		orderDate = parseTimeAny(hb.CreatedDate, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05")
	}

	customer := domain.Customer{Name: hb.CustomerName}
	if hb.Customer != nil {
		if hb.Customer.Name != "" {
			customer.Name = hb.Customer.Name
		}
		customer.Email = hb.Customer.Email
		customer.Phone = hb.Customer.Phone
	}

	currency := hb.TotalPrice.Currency
	if currency == "" {
		currency = "TRY"
	}

	order := &domain.Order{
		PlatformOrderID: orderID,
		OrderDate:       orderDate,
		Status:          mapStatus(domain.PlatformHepsiburada, hb.Status, n.logger),
		Customer:        customer,
		ShippingAddress: n.hepsiburadaAddress(hb.ShippingAddress, hb.ShippingAddressJSON),
		BillingAddress:  n.hepsiburadaAddress(hb.BillingAddress, hb.BillingAddressJSON),
		TotalAmount:     hb.TotalPrice.Amount,
		Currency:        currency,
		TrackingNumber:  optional(hb.CargoTrackingNumber.String()),
		Carrier:         optional(hb.CargoCompany),
	}

	items := hb.Items
	if len(items) == 0 {
		items = hb.LineItems
	}
	for _, item := range items {
		title := item.ProductName
		if title == "" {
			title = item.Name
		}
		sku := item.MerchantSKU
		if sku == "" {
			sku = item.SKU
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		price := item.Price
		if price.Amount == 0 {
			price = item.UnitPrice
		}
		itemCurrency := price.Currency
		if itemCurrency == "" {
			itemCurrency = currency
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductTitle: title,
			SKU:          optional(sku),
			Quantity:     quantity,
			UnitPrice:    price.Amount,
			Currency:     itemCurrency,
		})
	}

	return order, nil
}

// hepsiburadaAddress resolves the inline object when present, otherwise
// parses the JSON-encoded string variant. A malformed embedded string yields
// an empty address, not a failure.
func (n *Normalizer) hepsiburadaAddress(inline *hepsiburadaAddress, encoded string) domain.Address {
	addr := inline
	if addr == nil && encoded != "" {
		var parsed hepsiburadaAddress
		if err := json.Unmarshal([]byte(encoded), &parsed); err != nil {
			n.logger.Warn("hepsiburada embedded address is not valid JSON")
			return domain.Address{}
		}
		addr = &parsed
	}
	if addr == nil {
		return domain.Address{}
	}

	district := addr.Town
	if district == "" {
		district = addr.District
	}
	return domain.Address{
		Name:       addr.Name,
		Line1:      addr.Address,
		Line2:      addr.AddressTwo,
		City:       addr.City,
		District:   district,
		PostalCode: addr.PostalCode.String(),
		Country:    addr.Country,
		Phone:      addr.Phone.String(),
	}
}
