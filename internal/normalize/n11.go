package normalize

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/merchanthub/omsapi/internal/domain"
)

// n11Order mirrors the N11 order-list entry shape
type n11Order struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"orderNumber"`
	CreateDate  string `json:"createDate"`
	Status      string `json:"status"`
	TotalAmount float64 `json:"totalAmount"`
	Currency    string  `json:"currency"`
	Buyer       *struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	} `json:"buyer"`
	ShippingAddress     *n11Address `json:"shippingAddress"`
	BillingAddress      *n11Address `json:"billingAddress"`
	CargoTrackingNumber flexString  `json:"cargoTrackingNumber"`
	CargoCompany        string      `json:"cargoCompany"`
	Lines               []n11Line   `json:"lines"`
	OrderItemList       []n11Line   `json:"orderItemList"`
}

type n11Address struct {
	FullName   string     `json:"fullName"`
	Address    string     `json:"address"`
	City       string     `json:"city"`
	District   string     `json:"district"`
	PostalCode flexString `json:"postalCode"`
	Country    string     `json:"country"`
	Phone      flexString `json:"gsm"`
}

type n11Line struct {
	ProductName       string  `json:"productName"`
	ProductSellerCode string  `json:"productSellerCode"`
	Quantity          int     `json:"quantity"`
	Price             float64 `json:"price"`
	DueAmount         float64 `json:"dueAmount"`
}

func (n *Normalizer) normalizeN11(raw domain.RawOrder) (*domain.Order, error) {
	var src n11Order
	if err := json.Unmarshal(raw.Payload, &src); err != nil {
		return nil, decodeError(domain.PlatformN11, raw, err)
	}

	orderID := src.OrderNumber
	if orderID == "" && src.ID > 0 {
		orderID = strconv.FormatInt(src.ID, 10)
	}

	currency := src.Currency
	if currency == "" || currency == "TL" {
		currency = "TRY"
	}

	order := &domain.Order{
		PlatformOrderID: orderID,
		OrderDate: parseTimeAny(src.CreateDate,
			"02/01/2006 15:04:05", "02/01/2006", time.RFC3339),
		Status:          mapStatus(domain.PlatformN11, src.Status, n.logger),
		ShippingAddress: n11ToAddress(src.ShippingAddress),
		BillingAddress:  n11ToAddress(src.BillingAddress),
		TotalAmount:     src.TotalAmount,
		Currency:        currency,
		TrackingNumber:  optional(src.CargoTrackingNumber.String()),
		Carrier:         optional(src.CargoCompany),
	}

	if src.Buyer != nil {
		order.Customer = domain.Customer{
			Name:  src.Buyer.FullName,
			Email: src.Buyer.Email,
			Phone: src.Buyer.Phone,
		}
	}

	lines := src.Lines
	if len(lines) == 0 {
		lines = src.OrderItemList
	}
	for _, line := range lines {
		quantity := line.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		price := line.Price
		if price == 0 {
			price = line.DueAmount
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductTitle: line.ProductName,
			SKU:          optional(line.ProductSellerCode),
			Quantity:     quantity,
			UnitPrice:    price,
			Currency:     currency,
		})
	}

	return order, nil
}

func n11ToAddress(a *n11Address) domain.Address {
	if a == nil {
		return domain.Address{}
	}
	return domain.Address{
		Name:       a.FullName,
		Line1:      a.Address,
		City:       a.City,
		District:   a.District,
		PostalCode: a.PostalCode.String(),
		Country:    a.Country,
		Phone:      a.Phone.String(),
	}
}
