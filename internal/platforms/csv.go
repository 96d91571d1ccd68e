package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

// ColumnMapping maps canonical field names to source CSV column headers.
// Defined by the user in the import UI; rows sharing an orderId collapse into
// one order with multiple items.
type ColumnMapping map[string]string

// Canonical field names a column mapping may bind
const (
	CSVFieldOrderID        = "orderId"
	CSVFieldOrderDate      = "orderDate"
	CSVFieldStatus         = "status"
	CSVFieldCustomerName   = "customerName"
	CSVFieldCustomerEmail  = "customerEmail"
	CSVFieldCustomerPhone  = "customerPhone"
	CSVFieldProductTitle   = "productTitle"
	CSVFieldSKU            = "sku"
	CSVFieldQuantity       = "quantity"
	CSVFieldUnitPrice      = "unitPrice"
	CSVFieldCurrency       = "currency"
	CSVFieldShippingAmount = "shippingAmount"
	CSVFieldTaxAmount      = "taxAmount"
	CSVFieldTotalAmount    = "totalAmount"
	CSVFieldAddressLine    = "addressLine"
	CSVFieldCity           = "city"
	CSVFieldDistrict       = "district"
	CSVFieldPostalCode     = "postalCode"
	CSVFieldCountry        = "country"
	CSVFieldTrackingNumber = "trackingNumber"
	CSVFieldCarrier        = "carrier"
)

// csvRequiredFields must be bound for an import to proceed
var csvRequiredFields = []string{CSVFieldOrderID, CSVFieldProductTitle}

// CSVAdapter is the in-process source for spreadsheet imports. Unlike the
// remote adapters it is built per import from the uploaded rows; it needs no
// credentials and ignores the date range, since the rows already are the
// selection the user wants imported.
type CSVAdapter struct {
	header  []string
	rows    [][]string
	mapping ColumnMapping
	logger  *zap.Logger
}

// NewCSVAdapter creates a CSV adapter over uploaded rows and a column mapping
func NewCSVAdapter(header []string, rows [][]string, mapping ColumnMapping, logger *zap.Logger) *CSVAdapter {
	return &CSVAdapter{header: header, rows: rows, mapping: mapping, logger: logger}
}

func (a *CSVAdapter) PlatformType() domain.PlatformType {
	return domain.PlatformCSV
}

func (a *CSVAdapter) RequiredCredentialFields() []string {
	return domain.RequiredCredentialFields(domain.PlatformCSV)
}

// TestConnection validates the column mapping instead of reaching a network:
// every required canonical field must be bound to a column present in the
// header row.
func (a *CSVAdapter) TestConnection(ctx context.Context, creds domain.Credentials) TestResult {
	columns := make(map[string]bool, len(a.header))
	for _, col := range a.header {
		columns[strings.TrimSpace(col)] = true
	}

	for _, field := range csvRequiredFields {
		col, ok := a.mapping[field]
		if !ok || col == "" {
			return TestResult{OK: false, Message: fmt.Sprintf("column mapping missing required field %q", field)}
		}
		if !columns[col] {
			return TestResult{OK: false, Message: fmt.Sprintf("mapped column %q not present in file header", col)}
		}
	}

	return TestResult{OK: true, Message: "column mapping valid"}
}

// csvOrderPayload is the raw-order shape the CSV source emits; the
// normalizer's csv branch consumes exactly this.
type csvOrderPayload struct {
	OrderID        string        `json:"orderId"`
	OrderDate      string        `json:"orderDate,omitempty"`
	Status         string        `json:"status,omitempty"`
	CustomerName   string        `json:"customerName,omitempty"`
	CustomerEmail  string        `json:"customerEmail,omitempty"`
	CustomerPhone  string        `json:"customerPhone,omitempty"`
	Currency       string        `json:"currency,omitempty"`
	ShippingAmount float64       `json:"shippingAmount,omitempty"`
	TaxAmount      float64       `json:"taxAmount,omitempty"`
	TotalAmount    float64       `json:"totalAmount,omitempty"`
	AddressLine    string        `json:"addressLine,omitempty"`
	City           string        `json:"city,omitempty"`
	District       string        `json:"district,omitempty"`
	PostalCode     string        `json:"postalCode,omitempty"`
	Country        string        `json:"country,omitempty"`
	TrackingNumber string        `json:"trackingNumber,omitempty"`
	Carrier        string        `json:"carrier,omitempty"`
	Items          []csvItemData `json:"items"`
}

type csvItemData struct {
	ProductTitle string  `json:"productTitle"`
	SKU          string  `json:"sku,omitempty"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	Currency     string  `json:"currency,omitempty"`
}

func (a *CSVAdapter) FetchOrders(ctx context.Context, creds domain.Credentials, from, to time.Time) ([]domain.RawOrder, error) {
	if test := a.TestConnection(ctx, creds); !test.OK {
		return nil, &errors.ErrCredential{Platform: domain.PlatformCSV, Reason: test.Message}
	}

	columnIndex := make(map[string]int, len(a.header))
	for i, col := range a.header {
		columnIndex[strings.TrimSpace(col)] = i
	}

	cell := func(row []string, field string) string {
		col, ok := a.mapping[field]
		if !ok {
			return ""
		}
		idx, ok := columnIndex[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	// Rows sharing an orderId merge into one order; the first row wins for
	// header-level fields, every row contributes an item.
	grouped := make(map[string]*csvOrderPayload)
	var orderIDs []string

	for i, row := range a.rows {
		orderID := cell(row, CSVFieldOrderID)
		if orderID == "" {
			a.logger.Warn("csv row missing order id, skipping", zap.Int("row", i+1))
			continue
		}

		payload, ok := grouped[orderID]
		if !ok {
			payload = &csvOrderPayload{
				OrderID:        orderID,
				OrderDate:      cell(row, CSVFieldOrderDate),
				Status:         cell(row, CSVFieldStatus),
				CustomerName:   cell(row, CSVFieldCustomerName),
				CustomerEmail:  cell(row, CSVFieldCustomerEmail),
				CustomerPhone:  cell(row, CSVFieldCustomerPhone),
				Currency:       cell(row, CSVFieldCurrency),
				ShippingAmount: parseFloat(cell(row, CSVFieldShippingAmount)),
				TaxAmount:      parseFloat(cell(row, CSVFieldTaxAmount)),
				TotalAmount:    parseFloat(cell(row, CSVFieldTotalAmount)),
				AddressLine:    cell(row, CSVFieldAddressLine),
				City:           cell(row, CSVFieldCity),
				District:       cell(row, CSVFieldDistrict),
				PostalCode:     cell(row, CSVFieldPostalCode),
				Country:        cell(row, CSVFieldCountry),
				TrackingNumber: cell(row, CSVFieldTrackingNumber),
				Carrier:        cell(row, CSVFieldCarrier),
			}
			grouped[orderID] = payload
			orderIDs = append(orderIDs, orderID)
		}

		quantity := 1
		if q, err := strconv.Atoi(cell(row, CSVFieldQuantity)); err == nil && q > 0 {
			quantity = q
		}
		payload.Items = append(payload.Items, csvItemData{
			ProductTitle: cell(row, CSVFieldProductTitle),
			SKU:          cell(row, CSVFieldSKU),
			Quantity:     quantity,
			UnitPrice:    parseFloat(cell(row, CSVFieldUnitPrice)),
			Currency:     cell(row, CSVFieldCurrency),
		})
	}

	orders := make([]domain.RawOrder, 0, len(orderIDs))
	for _, id := range orderIDs {
		raw, err := json.Marshal(grouped[id])
		if err != nil {
			a.logger.Warn("failed to encode csv order", zap.String("order_id", id), zap.Error(err))
			continue
		}
		orders = append(orders, domain.RawOrder{PlatformOrderID: id, Payload: raw})
	}

	return orders, nil
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	// Tolerate comma decimal separators common in Turkish exports
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
