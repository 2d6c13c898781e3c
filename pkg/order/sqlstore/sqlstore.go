// Package sqlstore implements order.Gateway on database/sql. Dialect
// differences (placeholders, row locks, time encoding, error codes) are
// supplied by the postgres and sqlite packages.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"orderflow/pkg/order"
)

// Dialect describes how a database differs from the common SQL used here.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool
	// ForUpdate is appended to row-locking reads. Empty when the database
	// serializes writers itself.
	ForUpdate string
	// Schema holds the idempotent bootstrap statements, separated by ';'.
	Schema string
	// EncodeTime converts a timestamp into a driver argument.
	EncodeTime func(time.Time) any
	// IsForeignKeyViolation reports a reference to a missing order.
	IsForeignKeyViolation func(error) bool
}

// Store persists orders and items through database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db. Call Bootstrap before first use on an empty database.
func New(db *sql.DB, d Dialect) *Store {
	if d.EncodeTime == nil {
		d.EncodeTime = func(t time.Time) any { return t.UTC() }
	}
	if d.IsForeignKeyViolation == nil {
		d.IsForeignKeyViolation = func(error) bool { return false }
	}
	return &Store{db: db, dialect: d}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Bootstrap creates the tables if they do not exist yet.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range strings.Split(s.dialect.Schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s bootstrap: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx runs fn in a database transaction carried by ctx.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.db, fn)
}

const orderColumns = `id, customer_name, total_value, status, created_at`
const itemColumns = `id, order_id, product, quantity, unit_price, created_at`

// InsertOrder stores o and returns its generated id.
func (s *Store) InsertOrder(ctx context.Context, o order.Order) (int64, error) {
	query := s.rebind(`
INSERT INTO orders (customer_name, total_value, status, created_at)
VALUES (?, ?, ?, ?)
RETURNING id`)

	var id int64
	err := s.queryRow(ctx, query, o.CustomerName, o.Total, string(o.Status), s.dialect.EncodeTime(o.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

// GetOrder returns the order without items.
func (s *Store) GetOrder(ctx context.Context, id int64) (order.Order, error) {
	query := s.rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?`)
	return s.getOrder(ctx, query, id)
}

// GetOrderForUpdate locks the order row until the surrounding transaction ends.
func (s *Store) GetOrderForUpdate(ctx context.Context, id int64) (order.Order, error) {
	query := s.rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?` + s.dialect.ForUpdate)
	return s.getOrder(ctx, query, id)
}

func (s *Store) getOrder(ctx context.Context, query string, id int64) (order.Order, error) {
	o, err := scanOrder(s.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders returns all orders, newest first. Rows are fully read and closed
// before returning so callers may issue further queries on a single
// connection.
func (s *Store) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := s.query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrder writes the mutable fields of o.
func (s *Store) UpdateOrder(ctx context.Context, o order.Order) error {
	query := s.rebind(`UPDATE orders SET customer_name = ?, total_value = ?, status = ? WHERE id = ?`)
	res, err := s.exec(ctx, query, o.CustomerName, o.Total, string(o.Status), o.ID)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return affected(res)
}

// DeleteOrder removes an order row.
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.rebind(`DELETE FROM orders WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return affected(res)
}

// InsertItem stores it and returns its generated id. A missing parent
// order is reported as order.ErrNotFound.
func (s *Store) InsertItem(ctx context.Context, it order.Item) (int64, error) {
	query := s.rebind(`
INSERT INTO order_items (order_id, product, quantity, unit_price, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`)

	var id int64
	err := s.queryRow(ctx, query, it.OrderID, it.Product, it.Quantity, it.UnitPrice, s.dialect.EncodeTime(it.CreatedAt)).Scan(&id)
	if err != nil {
		if s.dialect.IsForeignKeyViolation(err) {
			return 0, order.ErrNotFound
		}
		return 0, fmt.Errorf("insert item: %w", err)
	}
	return id, nil
}

// GetItem returns the item with the given id.
func (s *Store) GetItem(ctx context.Context, id int64) (order.Item, error) {
	query := s.rebind(`SELECT ` + itemColumns + ` FROM order_items WHERE id = ?`)
	it, err := scanItem(s.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return order.Item{}, order.ErrNotFound
	}
	if err != nil {
		return order.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// ListItems returns the items of an order, oldest first.
func (s *Store) ListItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	query := s.rebind(`SELECT ` + itemColumns + ` FROM order_items WHERE order_id = ? ORDER BY created_at, id`)
	rows, err := s.query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []order.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateItem writes the mutable fields of it.
func (s *Store) UpdateItem(ctx context.Context, it order.Item) error {
	query := s.rebind(`UPDATE order_items SET product = ?, quantity = ?, unit_price = ? WHERE id = ?`)
	res, err := s.exec(ctx, query, it.Product, it.Quantity, it.UnitPrice, it.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return affected(res)
}

// DeleteItem removes an item row.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.rebind(`DELETE FROM order_items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return affected(res)
}

// DeleteItemsByOrder removes every item of an order.
func (s *Store) DeleteItemsByOrder(ctx context.Context, orderID int64) error {
	if _, err := s.exec(ctx, s.rebind(`DELETE FROM order_items WHERE order_id = ?`), orderID); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.CustomerName, &o.Total, &status, timeScanner{&o.CreatedAt}); err != nil {
		return order.Order{}, err
	}
	o.Status = order.Status(status)
	return o, nil
}

func scanItem(row scanner) (order.Item, error) {
	var it order.Item
	if err := row.Scan(&it.ID, &it.OrderID, &it.Product, &it.Quantity, &it.UnitPrice, timeScanner{&it.CreatedAt}); err != nil {
		return order.Item{}, err
	}
	return it, nil
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return order.ErrNotFound
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2... for numbered dialects.
func (s *Store) rebind(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
