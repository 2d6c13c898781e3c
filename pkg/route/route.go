// Package route maps an HTTP method and path onto an order operation.
package route

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Operation names a use case reachable over HTTP.
type Operation string

const (
	ListOrders        Operation = "ListOrders"
	CreateOrder       Operation = "CreateOrder"
	FindOrder         Operation = "FindOrder"
	UpdateOrderStatus Operation = "UpdateOrderStatus"
	DeleteOrder       Operation = "DeleteOrder"
	ListItems         Operation = "ListItems"
	AddItem           Operation = "AddItem"
	ConfirmOrder      Operation = "ConfirmOrder"
	CancelOrder       Operation = "CancelOrder"
	DeleteItem        Operation = "DeleteItem"
)

// Route is the result of a successful match. ID is the order id, or the item
// id for DeleteItem, and zero for collection routes.
type Route struct {
	Op Operation
	ID int64
	// Pattern is the templated path, suitable as a metric label.
	Pattern string
}

var (
	// ErrMalformedRequest indicates a path that matches no known shape or
	// carries an invalid id.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrMethodNotAllowed indicates a known path used with the wrong method.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// MethodError is returned for a known path with an unsupported method.
type MethodError struct {
	Method  string
	Pattern string
	Allowed []string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s %s: %s (allowed: %s)", e.Method, e.Pattern, ErrMethodNotAllowed, strings.Join(e.Allowed, ", "))
}

func (e *MethodError) Unwrap() error { return ErrMethodNotAllowed }

type shape struct {
	pattern string
	methods map[string]Operation
}

func (s shape) allowed() []string {
	out := make([]string, 0, len(s.methods))
	for m := range s.methods {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

var (
	ordersShape = shape{"/orders", map[string]Operation{
		http.MethodGet:  ListOrders,
		http.MethodPost: CreateOrder,
	}}
	orderShape = shape{"/orders/{id}", map[string]Operation{
		http.MethodGet:    FindOrder,
		http.MethodPut:    UpdateOrderStatus,
		http.MethodDelete: DeleteOrder,
	}}
	itemsShape = shape{"/orders/{id}/items", map[string]Operation{
		http.MethodGet:  ListItems,
		http.MethodPost: AddItem,
	}}
	confirmShape = shape{"/orders/{id}/confirm", map[string]Operation{http.MethodPost: ConfirmOrder}}
	cancelShape  = shape{"/orders/{id}/cancel", map[string]Operation{http.MethodPost: CancelOrder}}
	itemShape    = shape{"/items/{id}", map[string]Operation{http.MethodDelete: DeleteItem}}
)

// Match resolves method and path. It has no side effects.
func Match(method, path string) (Route, error) {
	sh, id, err := resolve(path)
	if err != nil {
		return Route{}, err
	}
	op, ok := sh.methods[method]
	if !ok {
		return Route{}, &MethodError{Method: method, Pattern: sh.pattern, Allowed: sh.allowed()}
	}
	return Route{Op: op, ID: id, Pattern: sh.pattern}, nil
}

func resolve(path string) (shape, int64, error) {
	trimmed := strings.TrimSuffix(path, "/")
	segs := strings.Split(strings.TrimPrefix(trimmed, "/"), "/")
	if !strings.HasPrefix(trimmed, "/") {
		return shape{}, 0, fmt.Errorf("%w: path %q", ErrMalformedRequest, path)
	}

	switch {
	case len(segs) == 1 && segs[0] == "orders":
		return ordersShape, 0, nil

	case len(segs) >= 2 && len(segs) <= 3 && segs[0] == "orders":
		id, err := parseID(segs[1])
		if err != nil {
			return shape{}, 0, err
		}
		if len(segs) == 2 {
			return orderShape, id, nil
		}
		switch segs[2] {
		case "items":
			return itemsShape, id, nil
		case "confirm":
			return confirmShape, id, nil
		case "cancel":
			return cancelShape, id, nil
		}

	case len(segs) == 2 && segs[0] == "items":
		id, err := parseID(segs[1])
		if err != nil {
			return shape{}, 0, err
		}
		return itemShape, id, nil
	}
	return shape{}, 0, fmt.Errorf("%w: no route for %q", ErrMalformedRequest, path)
}

// parseID accepts one or more ASCII digits that fit an int64.
func parseID(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: missing id", ErrMalformedRequest)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: invalid id %q", ErrMalformedRequest, s)
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q out of range", ErrMalformedRequest, s)
	}
	return id, nil
}
