package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/merchanthub/omsapi/internal/domain"
)

// shopifyOrderNode mirrors the GraphQL order node the Shopify adapter fetches
type shopifyOrderNode struct {
	ID                     string           `json:"id"`
	Name                   string           `json:"name"`
	CreatedAt              string           `json:"createdAt"`
	DisplayFulfillmentStatus string         `json:"displayFulfillmentStatus"`
	DisplayFinancialStatus string           `json:"displayFinancialStatus"`
	CurrencyCode           string           `json:"currencyCode"`
	SubtotalPriceSet       *shopifyMoneySet `json:"subtotalPriceSet"`
	TotalShippingPriceSet  *shopifyMoneySet `json:"totalShippingPriceSet"`
	TotalTaxSet            *shopifyMoneySet `json:"totalTaxSet"`
	TotalPriceSet          *shopifyMoneySet `json:"totalPriceSet"`
	Customer               *struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"customer"`
	ShippingAddress *shopifyAddress `json:"shippingAddress"`
	BillingAddress  *shopifyAddress `json:"billingAddress"`
	LineItems       struct {
		Edges []struct {
			Node struct {
				Title                string           `json:"title"`
				Quantity             int              `json:"quantity"`
				SKU                  string           `json:"sku"`
				OriginalUnitPriceSet *shopifyMoneySet `json:"originalUnitPriceSet"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
	Fulfillments []struct {
		Status       string `json:"status"`
		TrackingInfo []struct {
			Number  flexString `json:"number"`
			Company string     `json:"company"`
		} `json:"trackingInfo"`
	} `json:"fulfillments"`
}

type shopifyMoneySet struct {
	ShopMoney struct {
		Amount       string `json:"amount"`
		CurrencyCode string `json:"currencyCode"`
	} `json:"shopMoney"`
}

func (m *shopifyMoneySet) amount() float64 {
	if m == nil {
		return 0
	}
	return parseAmountString(m.ShopMoney.Amount)
}

type shopifyAddress struct {
	Name     string     `json:"name"`
	Address1 string     `json:"address1"`
	Address2 string     `json:"address2"`
	City     string     `json:"city"`
	Province string     `json:"province"`
	Zip      flexString `json:"zip"`
	Country  string     `json:"country"`
	Phone    flexString `json:"phone"`
}

func (n *Normalizer) normalizeShopify(raw domain.RawOrder) (*domain.Order, error) {
	var src shopifyOrderNode
	if err := json.Unmarshal(raw.Payload, &src); err != nil {
		return nil, decodeError(domain.PlatformShopify, raw, err)
	}

	orderID := strings.TrimPrefix(src.Name, "#")
	if orderID == "" {
		orderID = src.ID
	}

	currency := src.CurrencyCode
	if currency == "" && src.TotalPriceSet != nil {
		currency = src.TotalPriceSet.ShopMoney.CurrencyCode
	}

	order := &domain.Order{
		PlatformOrderID: orderID,
		OrderDate:       parseTimeAny(src.CreatedAt, time.RFC3339),
		Status:          n.shopifyStatus(src),
		ShippingAddress: shopifyToAddress(src.ShippingAddress),
		BillingAddress:  shopifyToAddress(src.BillingAddress),
		Subtotal:        src.SubtotalPriceSet.amount(),
		ShippingAmount:  src.TotalShippingPriceSet.amount(),
		TaxAmount:       src.TotalTaxSet.amount(),
		TotalAmount:     src.TotalPriceSet.amount(),
		Currency:        currency,
	}

	if src.Customer != nil {
		order.Customer = domain.Customer{
			Name:  strings.TrimSpace(src.Customer.FirstName + " " + src.Customer.LastName),
			Email: src.Customer.Email,
			Phone: src.Customer.Phone,
		}
	}

	for _, edge := range src.LineItems.Edges {
		item := edge.Node
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		itemCurrency := currency
		if item.OriginalUnitPriceSet != nil && item.OriginalUnitPriceSet.ShopMoney.CurrencyCode != "" {
			itemCurrency = item.OriginalUnitPriceSet.ShopMoney.CurrencyCode
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductTitle: item.Title,
			SKU:          optional(item.SKU),
			Quantity:     quantity,
			UnitPrice:    item.OriginalUnitPriceSet.amount(),
			Currency:     itemCurrency,
		})
	}

	for _, fulfillment := range src.Fulfillments {
		for _, tracking := range fulfillment.TrackingInfo {
			if tracking.Number != "" {
				order.TrackingNumber = optional(tracking.Number.String())
				order.Carrier = optional(tracking.Company)
				break
			}
		}
		if order.TrackingNumber != nil {
			break
		}
	}

	return order, nil
}

// shopifyStatus derives the canonical status: refunds and voids come from the
// financial status, everything else from the fulfillment status table.
func (n *Normalizer) shopifyStatus(src shopifyOrderNode) domain.OrderStatus {
	switch strings.ToUpper(src.DisplayFinancialStatus) {
	case "REFUNDED", "PARTIALLY_REFUNDED":
		return domain.OrderStatusReturned
	case "VOIDED":
		return domain.OrderStatusCancelled
	}
	return mapStatus(domain.PlatformShopify, src.DisplayFulfillmentStatus, n.logger)
}

func shopifyToAddress(a *shopifyAddress) domain.Address {
	if a == nil {
		return domain.Address{}
	}
	return domain.Address{
		Name:       a.Name,
		Line1:      a.Address1,
		Line2:      a.Address2,
		City:       a.City,
		District:   a.Province,
		PostalCode: a.Zip.String(),
		Country:    a.Country,
		Phone:      a.Phone.String(),
	}
}
