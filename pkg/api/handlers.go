package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"orderflow/pkg/order"
	"orderflow/pkg/otel"
	"orderflow/pkg/route"
)

const maxBodyBytes = 1 << 20

type validator interface {
	validate() error
}

// decode reads a JSON body into dst and checks its required fields.
func decode(w http.ResponseWriter, r *http.Request, dst validator) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", route.ErrMalformedRequest)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", route.ErrMalformedRequest, err)
	}
	return dst.validate()
}

// createOrderHandler creates a new order.
// @Summary Create order
// @Accept json
// @Produce json
// @Param order body CreateOrderRequest true "Order"
// @Success 201 {object} OrderResponse
// @Failure 400 {object} ProblemDetail
// @Router /orders [post]
func (a *API) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "createOrderHandler")
	defer span.End()

	var req CreateOrderRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	o, err := a.svc.CreateOrder(ctx, *req.CustomerName)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// listOrdersHandler lists orders.
// @Summary List orders
// @Produce json
// @Success 200 {array} OrderResponse
// @Router /orders [get]
func (a *API) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listOrdersHandler")
	defer span.End()

	orders, err := a.svc.ListOrders(ctx)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

// getOrderHandler retrieves an order by ID.
// @Summary Get order
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} OrderResponse
// @Failure 404 {object} ProblemDetail
// @Router /orders/{id} [get]
func (a *API) getOrderHandler(w http.ResponseWriter, r *http.Request, id int64) {
	ctx, span := otel.AddSpan(r.Context(), "getOrderHandler", attribute.Int64("order.id", id))
	defer span.End()

	o, found, err := a.svc.FindOrderByID(ctx, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !found {
		a.writeError(w, r, fmt.Errorf("order %d: %w", id, order.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// updateOrderHandler overwrites the status of an order.
// @Summary Update order status
// @Description Sets any non-empty status without transition checks.
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param status body UpdateStatusRequest true "Status"
// @Success 200 {object} OrderResponse
// @Failure 400 {object} ProblemDetail
// @Failure 404 {object} ProblemDetail
// @Router /orders/{id} [put]
func (a *API) updateOrderHandler(w http.ResponseWriter, r *http.Request, id int64) {
	ctx, span := otel.AddSpan(r.Context(), "updateOrderHandler", attribute.Int64("order.id", id))
	defer span.End()

	var req UpdateStatusRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	o, err := a.svc.UpdateOrderStatus(ctx, id, order.Status(*req.Status))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// deleteOrderHandler removes an order and its items.
// @Summary Delete order
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ProblemDetail
// @Router /orders/{id} [delete]
func (a *API) deleteOrderHandler(w http.ResponseWriter, r *http.Request, id int64) {
	ctx, span := otel.AddSpan(r.Context(), "deleteOrderHandler", attribute.Int64("order.id", id))
	defer span.End()

	if err := a.svc.DeleteOrder(ctx, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "order deleted"})
}

// listItemsHandler lists the items of an order.
// @Summary List order items
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {array} ItemResponse
// @Router /orders/{id}/items [get]
func (a *API) listItemsHandler(w http.ResponseWriter, r *http.Request, orderID int64) {
	ctx, span := otel.AddSpan(r.Context(), "listItemsHandler", attribute.Int64("order.id", orderID))
	defer span.End()

	items, err := a.svc.ListItems(ctx, orderID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	writeJSON(w, http.StatusOK, out)
}

// addItemHandler appends an item to an order.
// @Summary Add order item
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param item body AddItemRequest true "Item"
// @Success 201 {object} ItemResponse
// @Failure 400 {object} ProblemDetail
// @Failure 404 {object} ProblemDetail
// @Router /orders/{id}/items [post]
func (a *API) addItemHandler(w http.ResponseWriter, r *http.Request, orderID int64) {
	ctx, span := otel.AddSpan(r.Context(), "addItemHandler", attribute.Int64("order.id", orderID))
	defer span.End()

	var req AddItemRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	it, err := a.svc.AddItem(ctx, orderID, *req.Product, *req.Quantity, *req.UnitPrice)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(it))
}

// confirmOrderHandler confirms a pending order.
// @Summary Confirm order
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} OrderResponse
// @Failure 404 {object} ProblemDetail
// @Failure 409 {object} ProblemDetail
// @Router /orders/{id}/confirm [post]
func (a *API) confirmOrderHandler(w http.ResponseWriter, r *http.Request, id int64) {
	ctx, span := otel.AddSpan(r.Context(), "confirmOrderHandler", attribute.Int64("order.id", id))
	defer span.End()

	o, err := a.svc.ConfirmOrder(ctx, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// cancelOrderHandler cancels an order.
// @Summary Cancel order
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} OrderResponse
// @Failure 404 {object} ProblemDetail
// @Failure 409 {object} ProblemDetail
// @Router /orders/{id}/cancel [post]
func (a *API) cancelOrderHandler(w http.ResponseWriter, r *http.Request, id int64) {
	ctx, span := otel.AddSpan(r.Context(), "cancelOrderHandler", attribute.Int64("order.id", id))
	defer span.End()

	o, err := a.svc.CancelOrder(ctx, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// deleteItemHandler removes an item and refreshes its order's total.
// @Summary Delete item
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ProblemDetail
// @Router /items/{id} [delete]
func (a *API) deleteItemHandler(w http.ResponseWriter, r *http.Request, id int64) {
	ctx, span := otel.AddSpan(r.Context(), "deleteItemHandler", attribute.Int64("item.id", id))
	defer span.End()

	if err := a.svc.DeleteItem(ctx, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "item deleted"})
}
