package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/pkg/clock"
	"orderflow/pkg/events"
	"orderflow/pkg/keylock"
	"orderflow/pkg/logger"
	"orderflow/pkg/metrics"
	"orderflow/pkg/otel"
)

// Service implements the order use cases on top of a Gateway.
//
// Every mutation of an existing order holds that order's lock and runs in a
// single gateway transaction, so the stored total always equals the sum of
// the stored items.
type Service struct {
	gw        Gateway
	clock     clock.Clock
	locker    keylock.Locker
	publisher events.Publisher
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock that stamps orders and items.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocker sets the per-order lock.
func WithLocker(l keylock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithPublisher sets the event sink.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics records mutation outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService returns a Service using an in-process lock, the system clock and
// no event publishing unless overridden.
func NewService(gw Gateway, opts ...Option) *Service {
	s := &Service{
		gw:        gw,
		clock:     clock.NewSystem(),
		locker:    keylock.NewKeyed(),
		publisher: events.Nop{},
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder opens a new PENDING order with no items.
func (s *Service) CreateOrder(ctx context.Context, customerName string) (o Order, err error) {
	ctx, span := otel.AddSpan(ctx, "order.CreateOrder")
	defer func() { s.finish(span, "create_order", err) }()

	if err := ValidateCustomerName(customerName); err != nil {
		return Order{}, err
	}

	o = Order{
		Entity:       Entity{CreatedAt: s.clock.Now()},
		CustomerName: customerName,
		Total:        decimal.Zero,
		Status:       StatusPending,
		Items:        []Item{},
	}
	id, err := s.gw.InsertOrder(ctx, o)
	if err != nil {
		return Order{}, storageErr("insert order", err)
	}
	o.ID = id
	span.SetAttributes(attribute.Int64("order.id", id))

	s.log.Info(ctx, "order created", "order_id", id)
	s.publish(ctx, events.TypeOrderCreated, o, 0)
	return o, nil
}

// AddItem appends a line item to an order and refreshes its total.
func (s *Service) AddItem(ctx context.Context, orderID int64, product string, quantity int, unitPrice decimal.Decimal) (it Item, err error) {
	ctx, span := otel.AddSpan(ctx, "order.AddItem", attribute.Int64("order.id", orderID))
	defer func() { s.finish(span, "add_item", err) }()

	if err := ValidateItemFields(product, quantity, unitPrice); err != nil {
		return Item{}, err
	}

	it = Item{
		Entity:    Entity{CreatedAt: s.clock.Now()},
		OrderID:   orderID,
		Product:   product,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	var o Order
	err = s.mutate(ctx, orderID, func(ctx context.Context) error {
		var err error
		if o, err = s.lockOrder(ctx, orderID); err != nil {
			return err
		}
		id, err := s.gw.InsertItem(ctx, it)
		if err != nil {
			return storageErr("insert item", err)
		}
		it.ID = id
		return s.refreshTotal(ctx, &o)
	})
	if err != nil {
		return Item{}, err
	}

	s.publish(ctx, events.TypeItemAdded, o, it.ID)
	return it, nil
}

// ListOrders returns every order with its items, newest first.
func (s *Service) ListOrders(ctx context.Context) (orders []Order, err error) {
	ctx, span := otel.AddSpan(ctx, "order.ListOrders")
	defer func() { s.finish(span, "", err) }()

	err = s.gw.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if orders, err = s.gw.ListOrders(ctx); err != nil {
			return storageErr("list orders", err)
		}
		for i := range orders {
			if orders[i].Items, err = s.gw.ListItems(ctx, orders[i].ID); err != nil {
				return storageErr("list items", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// FindOrderByID returns the order with its items. A missing order is
// reported through found, not through err.
func (s *Service) FindOrderByID(ctx context.Context, id int64) (o Order, found bool, err error) {
	ctx, span := otel.AddSpan(ctx, "order.FindOrderByID", attribute.Int64("order.id", id))
	defer func() { s.finish(span, "", err) }()

	err = s.gw.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.gw.GetOrder(ctx, id); err != nil {
			return err
		}
		if o.Items, err = s.gw.ListItems(ctx, id); err != nil {
			return storageErr("list items", err)
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return Order{}, false, nil
	case err != nil:
		return Order{}, false, storageErr("get order", err)
	}
	return o, true, nil
}

// ListItems returns the items of an order, oldest first. An unknown order
// has no items.
func (s *Service) ListItems(ctx context.Context, orderID int64) (items []Item, err error) {
	ctx, span := otel.AddSpan(ctx, "order.ListItems", attribute.Int64("order.id", orderID))
	defer func() { s.finish(span, "", err) }()

	items, err = s.gw.ListItems(ctx, orderID)
	if err != nil {
		return nil, storageErr("list items", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// UpdateOrderStatus overwrites the status of an order without applying the
// transition rules of ConfirmOrder and CancelOrder.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, status Status) (o Order, err error) {
	ctx, span := otel.AddSpan(ctx, "order.UpdateOrderStatus",
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", string(status)),
	)
	defer func() { s.finish(span, "update_status", err) }()

	if err := ValidateStatus(status); err != nil {
		return Order{}, err
	}

	err = s.mutate(ctx, orderID, func(ctx context.Context) error {
		var err error
		if o, err = s.lockOrder(ctx, orderID); err != nil {
			return err
		}
		o.Status = status
		if err := s.gw.UpdateOrder(ctx, o); err != nil {
			return storageErr("update order", err)
		}
		if o.Items, err = s.gw.ListItems(ctx, orderID); err != nil {
			return storageErr("list items", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publish(ctx, events.TypeStatusChanged, o, 0)
	return o, nil
}

// DeleteOrder removes an order together with all of its items.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) (err error) {
	ctx, span := otel.AddSpan(ctx, "order.DeleteOrder", attribute.Int64("order.id", orderID))
	defer func() { s.finish(span, "delete_order", err) }()

	var o Order
	err = s.mutate(ctx, orderID, func(ctx context.Context) error {
		var err error
		if o, err = s.lockOrder(ctx, orderID); err != nil {
			return err
		}
		if err := s.gw.DeleteItemsByOrder(ctx, orderID); err != nil {
			return storageErr("delete items", err)
		}
		if err := s.gw.DeleteOrder(ctx, orderID); err != nil {
			return storageErr("delete order", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "order deleted", "order_id", orderID)
	s.publish(ctx, events.TypeOrderDeleted, o, 0)
	return nil
}

// DeleteItem removes a single item and refreshes the owning order's total.
func (s *Service) DeleteItem(ctx context.Context, itemID int64) (err error) {
	ctx, span := otel.AddSpan(ctx, "order.DeleteItem", attribute.Int64("item.id", itemID))
	defer func() { s.finish(span, "delete_item", err) }()

	it, err := s.gw.GetItem(ctx, itemID)
	if err != nil {
		return storageErr("get item", err)
	}
	span.SetAttributes(attribute.Int64("order.id", it.OrderID))

	var o Order
	err = s.mutate(ctx, it.OrderID, func(ctx context.Context) error {
		var err error
		if o, err = s.lockOrder(ctx, it.OrderID); err != nil {
			return err
		}
		if err := s.gw.DeleteItem(ctx, itemID); err != nil {
			return storageErr("delete item", err)
		}
		return s.refreshTotal(ctx, &o)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TypeItemRemoved, o, itemID)
	return nil
}

// ConfirmOrder moves a PENDING order that has items to CONFIRMED.
func (s *Service) ConfirmOrder(ctx context.Context, orderID int64) (Order, error) {
	return s.transition(ctx, orderID, ActionConfirm)
}

// CancelOrder moves any order that is not already CANCELLED to CANCELLED.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) (Order, error) {
	return s.transition(ctx, orderID, ActionCancel)
}

func (s *Service) transition(ctx context.Context, orderID int64, action Action) (o Order, err error) {
	ctx, span := otel.AddSpan(ctx, "order.Transition",
		attribute.Int64("order.id", orderID),
		attribute.String("order.action", string(action)),
	)
	defer func() { s.finish(span, string(action)+"_order", err) }()

	err = s.mutate(ctx, orderID, func(ctx context.Context) error {
		var err error
		if o, err = s.lockOrder(ctx, orderID); err != nil {
			return err
		}
		if o.Items, err = s.gw.ListItems(ctx, orderID); err != nil {
			return storageErr("list items", err)
		}
		next, err := NextStatus(o.Status, action, len(o.Items))
		if err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}
		o.Status = next
		if err := s.gw.UpdateOrder(ctx, o); err != nil {
			return storageErr("update order", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	typ := events.TypeOrderConfirmed
	if action == ActionCancel {
		typ = events.TypeOrderCancelled
	}
	s.publish(ctx, typ, o, 0)
	return o, nil
}

// mutate runs fn under the order's lock inside one gateway transaction.
func (s *Service) mutate(ctx context.Context, orderID int64, fn func(ctx context.Context) error) error {
	unlock, err := s.locker.Lock(ctx, orderKey(orderID))
	if err != nil {
		return fmt.Errorf("%w: lock order %d: %w", ErrStorage, orderID, err)
	}
	defer func() {
		if err := unlock(); err != nil {
			s.log.Warn(ctx, "release order lock", "order_id", orderID, "error", err)
		}
	}()

	if err := s.gw.WithinTx(ctx, fn); err != nil {
		return storageErr("transaction", err)
	}
	return nil
}

func (s *Service) lockOrder(ctx context.Context, orderID int64) (Order, error) {
	o, err := s.gw.GetOrderForUpdate(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return Order{}, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return Order{}, storageErr("get order", err)
	}
	return o, nil
}

// refreshTotal reloads o's items and persists the recomputed total.
func (s *Service) refreshTotal(ctx context.Context, o *Order) error {
	items, err := s.gw.ListItems(ctx, o.ID)
	if err != nil {
		return storageErr("list items", err)
	}
	o.Items = items
	o.Recalculate()
	if err := s.gw.UpdateOrder(ctx, *o); err != nil {
		return storageErr("update order", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ string, o Order, itemID int64) {
	e := events.New(typ, o.ID, s.clock.Now())
	e.ItemID = itemID
	e.Status = string(o.Status)
	e.Total = o.Total.StringFixed(2)
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Error(ctx, "publish order event", "type", typ, "order_id", o.ID, "error", err)
		if s.metrics != nil {
			s.metrics.EventFailed()
		}
	}
}

// finish records the outcome of a use case on its span and, for mutations
// (op != ""), in the mutation counter.
func (s *Service) finish(span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	if op != "" && s.metrics != nil {
		s.metrics.RecordMutation(op, resultOf(err))
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "storage"
	}
}

func orderKey(id int64) string {
	return "order:" + strconv.FormatInt(id, 10)
}

// storageErr wraps err as ErrStorage unless it already carries a known
// outcome.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrValidation, ErrInvalidState, ErrStorage} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
