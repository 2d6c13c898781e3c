package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"orderflow/pkg/order"
	"orderflow/pkg/route"
)

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	CustomerName *string `json:"customerName" example:"Alice"`
}

func (r CreateOrderRequest) validate() error {
	if r.CustomerName == nil {
		return missing("customerName")
	}
	return nil
}

// UpdateStatusRequest is the body of PUT /orders/{id}.
type UpdateStatusRequest struct {
	Status *string `json:"status" example:"CONFIRMED"`
}

func (r UpdateStatusRequest) validate() error {
	if r.Status == nil {
		return missing("status")
	}
	return nil
}

// AddItemRequest is the body of POST /orders/{id}/items.
type AddItemRequest struct {
	Product   *string          `json:"product" example:"Book"`
	Quantity  *int             `json:"quantity" example:"2"`
	UnitPrice *decimal.Decimal `json:"unitPrice" swaggertype:"number" example:"15.50"`
}

func (r AddItemRequest) validate() error {
	var absent []string
	if r.Product == nil {
		absent = append(absent, "product")
	}
	if r.Quantity == nil {
		absent = append(absent, "quantity")
	}
	if r.UnitPrice == nil {
		absent = append(absent, "unitPrice")
	}
	if len(absent) > 0 {
		return missing(absent...)
	}
	return nil
}

func missing(fields ...string) error {
	return fmt.Errorf("%w: required fields missing: %s", route.ErrMalformedRequest, strings.Join(fields, ", "))
}

// OrderResponse is the JSON view of an order.
type OrderResponse struct {
	ID           int64          `json:"id" example:"1"`
	CustomerName string         `json:"customerName" example:"Alice"`
	TotalValue   json.Number    `json:"totalValue" swaggertype:"number" example:"31.00"`
	Status       string         `json:"status" example:"PENDING"`
	CreatedAt    time.Time      `json:"createdAt"`
	Items        []ItemResponse `json:"items"`
}

// ItemResponse is the JSON view of an order item.
type ItemResponse struct {
	ID        int64       `json:"id" example:"1"`
	OrderID   int64       `json:"orderId" example:"1"`
	Product   string      `json:"product" example:"Book"`
	Quantity  int         `json:"quantity" example:"2"`
	UnitPrice json.Number `json:"unitPrice" swaggertype:"number" example:"15.50"`
	Subtotal  json.Number `json:"subtotal" swaggertype:"number" example:"31.00"`
	CreatedAt time.Time   `json:"createdAt"`
}

// MessageResponse acknowledges a deletion.
type MessageResponse struct {
	Message string `json:"message" example:"order deleted"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status" example:"OK"`
	Message string `json:"message" example:"API is running"`
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func toOrderResponse(o order.Order) OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, toItemResponse(it))
	}
	return OrderResponse{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		TotalValue:   money(o.Total),
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		Items:        items,
	}
}

func toItemResponse(it order.Item) ItemResponse {
	return ItemResponse{
		ID:        it.ID,
		OrderID:   it.OrderID,
		Product:   it.Product,
		Quantity:  it.Quantity,
		UnitPrice: money(it.UnitPrice),
		Subtotal:  money(it.Subtotal()),
		CreatedAt: it.CreatedAt,
	}
}
