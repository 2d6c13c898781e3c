package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Entity holds the identity fields shared by orders and items.
type Entity struct {
	ID        int64
	CreatedAt time.Time
}

// Order represents a customer purchase order.
type Order struct {
	Entity
	CustomerName string
	Total        decimal.Decimal
	Status       Status
	Items        []Item
}

// Item is a single product line of an order.
type Item struct {
	Entity
	OrderID   int64
	Product   string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns quantity × unit price.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Gateway defines behavior for persisting orders and their items.
// Identifiers are assigned here and nowhere else.
type Gateway interface {
	// WithinTx runs fn in a single atomic unit. Gateway calls made with the
	// context passed to fn take part in it.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	InsertOrder(ctx context.Context, o Order) (int64, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	// GetOrderForUpdate reads the order and locks it until the surrounding
	// transaction ends.
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateOrder(ctx context.Context, o Order) error
	DeleteOrder(ctx context.Context, id int64) error

	InsertItem(ctx context.Context, it Item) (int64, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context, orderID int64) ([]Item, error)
	UpdateItem(ctx context.Context, it Item) error
	DeleteItem(ctx context.Context, id int64) error
	DeleteItemsByOrder(ctx context.Context, orderID int64) error

	Close() error
}

var (
	// ErrNotFound indicates the requested order or item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed business input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates an illegal status transition.
	ErrInvalidState = errors.New("invalid order state")
	// ErrStorage indicates the backing store failed.
	ErrStorage = errors.New("storage failure")
)
