package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/api/middleware"
	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/internal/service"
)

// OrderResponse represents the canonical order response
type OrderResponse struct {
	ID              string                      `json:"id"`
	ConnectionID    string                      `json:"connection_id"`
	PlatformType    domain.PlatformType         `json:"platform_type"`
	PlatformOrderID string                      `json:"platform_order_id"`
	OrderDate       string                      `json:"order_date"`
	Status          domain.OrderStatus          `json:"status"`
	Customer        domain.Customer             `json:"customer"`
	BillingAddress  domain.Address              `json:"billing_address"`
	ShippingAddress domain.Address              `json:"shipping_address"`
	Items           []OrderItemResponse         `json:"items"`
	Subtotal        float64                     `json:"subtotal"`
	ShippingAmount  float64                     `json:"shipping_amount"`
	TaxAmount       float64                     `json:"tax_amount"`
	TotalAmount     float64                     `json:"total_amount"`
	Currency        string                      `json:"currency"`
	TrackingNumber  *string                     `json:"tracking_number,omitempty"`
	Carrier         *string                     `json:"carrier,omitempty"`
	StatusHistory   []domain.StatusHistoryEntry `json:"status_history"`
	CreatedAt       string                      `json:"created_at"`
	UpdatedAt       string                      `json:"updated_at"`
}

type OrderItemResponse struct {
	ProductTitle string  `json:"product_title"`
	SKU          *string `json:"sku,omitempty"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Currency     string  `json:"currency"`
}

func newOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ProductTitle: item.ProductTitle,
			SKU:          item.SKU,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Currency:     item.Currency,
		}
	}

	return OrderResponse{
		ID:              order.ID.String(),
		ConnectionID:    order.ConnectionID.String(),
		PlatformType:    order.PlatformType,
		PlatformOrderID: order.PlatformOrderID,
		OrderDate:       order.OrderDate.Format(time.RFC3339),
		Status:          order.Status,
		Customer:        order.Customer,
		BillingAddress:  order.BillingAddress,
		ShippingAddress: order.ShippingAddress,
		Items:           items,
		Subtotal:        order.Subtotal,
		ShippingAmount:  order.ShippingAmount,
		TaxAmount:       order.TaxAmount,
		TotalAmount:     order.TotalAmount,
		Currency:        order.Currency,
		TrackingNumber:  order.TrackingNumber,
		Carrier:         order.Carrier,
		StatusHistory:   order.StatusHistory,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       order.UpdatedAt.Format(time.RFC3339),
	}
}

// HandleListOrders handles GET /v1/orders
func HandleListOrders(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		list, err := orders.List(c.Request.Context(), user.ID, limit, offset)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		responses := make([]OrderResponse, len(list))
		for i, order := range list {
			responses[i] = newOrderResponse(order)
		}
		c.JSON(http.StatusOK, gin.H{"orders": responses})
	}
}

// HandleGetOrder handles GET /v1/orders/:id
func HandleGetOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
			return
		}

		order, err := orders.Get(c.Request.Context(), user.ID, id)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, newOrderResponse(order))
	}
}

// HandleUpdateOrderStatus handles POST /v1/orders/:id/status
func HandleUpdateOrderStatus(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
			return
		}

		var req service.UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		order, err := orders.UpdateStatus(c.Request.Context(), user.ID, id, &req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, newOrderResponse(order))
	}
}

// HandleShipOrder handles POST /v1/orders/:id/ship
func HandleShipOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
			return
		}

		var req service.ShipOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		order, err := orders.Ship(c.Request.Context(), user.ID, id, &req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, newOrderResponse(order))
	}
}

// HandleCancelOrder handles POST /v1/orders/:id/cancel
func HandleCancelOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
			return
		}

		var req service.CancelOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		order, err := orders.Cancel(c.Request.Context(), user.ID, id, &req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, newOrderResponse(order))
	}
}
