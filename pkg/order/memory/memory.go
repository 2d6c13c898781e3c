// Package memory implements an in-memory order gateway.
package memory

import (
	"context"
	"sort"
	"sync"

	"orderflow/pkg/order"
)

// Repository provides an in-memory implementation of order.Gateway.
//
// Transactions are serialized store-wide by txMu and keep an undo journal so
// a failed transaction leaves no trace. Writes outside a transaction take
// txMu as well and behave like single statement transactions.
type Repository struct {
	txMu sync.Mutex

	mu          sync.RWMutex
	orders      map[int64]order.Order
	items       map[int64]order.Item
	lastOrderID int64
	lastItemID  int64
}

type txKey struct{}

type journal struct {
	undo []func()
}

func (j *journal) record(fn func()) {
	j.undo = append(j.undo, fn)
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		orders: make(map[int64]order.Order),
		items:  make(map[int64]order.Item),
	}
}

// WithinTx runs fn as one transaction. Nested calls join the outer one.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn(ctx)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		r.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *Repository) write(ctx context.Context, fn func(j *journal) error) error {
	j, ok := ctx.Value(txKey{}).(*journal)
	if !ok {
		r.txMu.Lock()
		defer r.txMu.Unlock()
		j = &journal{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(j)
}

// InsertOrder stores o under a fresh id.
func (r *Repository) InsertOrder(ctx context.Context, o order.Order) (int64, error) {
	var id int64
	err := r.write(ctx, func(j *journal) error {
		r.lastOrderID++
		id = r.lastOrderID
		o.ID = id
		o.Items = nil
		r.orders[id] = o
		j.record(func() { delete(r.orders, id) })
		return nil
	})
	return id, err
}

// GetOrder retrieves an order by ID, without items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

// GetOrderForUpdate is GetOrder; transactions are already exclusive.
func (r *Repository) GetOrderForUpdate(ctx context.Context, id int64) (order.Order, error) {
	return r.GetOrder(ctx, id)
}

// ListOrders returns all orders, newest first.
func (r *Repository) ListOrders(ctx context.Context) ([]order.Order, error) {
	r.mu.RLock()
	out := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// UpdateOrder replaces the stored fields of an existing order.
func (r *Repository) UpdateOrder(ctx context.Context, o order.Order) error {
	return r.write(ctx, func(j *journal) error {
		prev, ok := r.orders[o.ID]
		if !ok {
			return order.ErrNotFound
		}
		o.Items = nil
		o.CreatedAt = prev.CreatedAt
		r.orders[o.ID] = o
		j.record(func() { r.orders[prev.ID] = prev })
		return nil
	})
}

// DeleteOrder removes an order and, like a cascading foreign key, its items.
func (r *Repository) DeleteOrder(ctx context.Context, id int64) error {
	return r.write(ctx, func(j *journal) error {
		prev, ok := r.orders[id]
		if !ok {
			return order.ErrNotFound
		}
		r.deleteItemsLocked(j, id)
		delete(r.orders, id)
		j.record(func() { r.orders[id] = prev })
		return nil
	})
}

// InsertItem stores it under a fresh id. The parent order must exist.
func (r *Repository) InsertItem(ctx context.Context, it order.Item) (int64, error) {
	var id int64
	err := r.write(ctx, func(j *journal) error {
		if _, ok := r.orders[it.OrderID]; !ok {
			return order.ErrNotFound
		}
		r.lastItemID++
		id = r.lastItemID
		it.ID = id
		r.items[id] = it
		j.record(func() { delete(r.items, id) })
		return nil
	})
	return id, err
}

// GetItem returns a copy of the item with the given id.
func (r *Repository) GetItem(ctx context.Context, id int64) (order.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[id]
	if !ok {
		return order.Item{}, order.ErrNotFound
	}
	return it, nil
}

// ListItems returns the items of an order, oldest first.
func (r *Repository) ListItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	r.mu.RLock()
	out := make([]order.Item, 0)
	for _, it := range r.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateItem replaces a stored item.
func (r *Repository) UpdateItem(ctx context.Context, it order.Item) error {
	return r.write(ctx, func(j *journal) error {
		prev, ok := r.items[it.ID]
		if !ok {
			return order.ErrNotFound
		}
		it.OrderID = prev.OrderID
		it.CreatedAt = prev.CreatedAt
		r.items[it.ID] = it
		j.record(func() { r.items[prev.ID] = prev })
		return nil
	})
}

// DeleteItem removes an item.
func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	return r.write(ctx, func(j *journal) error {
		prev, ok := r.items[id]
		if !ok {
			return order.ErrNotFound
		}
		delete(r.items, id)
		j.record(func() { r.items[id] = prev })
		return nil
	})
}

// DeleteItemsByOrder removes every item of an order.
func (r *Repository) DeleteItemsByOrder(ctx context.Context, orderID int64) error {
	return r.write(ctx, func(j *journal) error {
		r.deleteItemsLocked(j, orderID)
		return nil
	})
}

func (r *Repository) deleteItemsLocked(j *journal, orderID int64) {
	for id, it := range r.items {
		if it.OrderID != orderID {
			continue
		}
		id, it := id, it
		delete(r.items, id)
		j.record(func() { r.items[id] = it })
	}
}

// Close is a no-op.
func (r *Repository) Close() error {
	return nil
}
