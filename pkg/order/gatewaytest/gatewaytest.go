// Package gatewaytest holds behaviour checks shared by every order.Gateway
// implementation.
package gatewaytest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/pkg/order"
)

// Factory returns an empty gateway. Cleanup is the factory's job.
type Factory func(t *testing.T) order.Gateway

var base = time.Date(2024, 2, 29, 23, 59, 58, 123456000, time.UTC)

// Run exercises gw against the order.Gateway contract.
func Run(t *testing.T, newGateway Factory) {
	t.Run("OrderRoundTrip", func(t *testing.T) { orderRoundTrip(t, newGateway(t)) })
	t.Run("Ordering", func(t *testing.T) { ordering(t, newGateway(t)) })
	t.Run("Items", func(t *testing.T) { items(t, newGateway(t)) })
	t.Run("MissingParent", func(t *testing.T) { missingParent(t, newGateway(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { deleteCascades(t, newGateway(t)) })
	t.Run("Rollback", func(t *testing.T) { rollback(t, newGateway(t)) })
	t.Run("ServiceScenario", func(t *testing.T) { serviceScenario(t, newGateway(t)) })
}

func pending(name string, at time.Time) order.Order {
	return order.Order{
		Entity:       order.Entity{CreatedAt: at},
		CustomerName: name,
		Total:        decimal.Zero,
		Status:       order.StatusPending,
	}
}

func item(orderID int64, product string, qty int, price string, at time.Time) order.Item {
	return order.Item{
		Entity:    order.Entity{CreatedAt: at},
		OrderID:   orderID,
		Product:   product,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func orderRoundTrip(t *testing.T, gw order.Gateway) {
	ctx := context.Background()

	id, err := gw.InsertOrder(ctx, pending("Alice", base))
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := gw.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Alice", got.CustomerName)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.True(t, got.Total.IsZero())
	assert.True(t, base.Equal(got.CreatedAt), "created_at %s != %s", got.CreatedAt, base)

	got.Total = decimal.RequireFromString("1234567.891")
	got.Status = "SHIPPED"
	require.NoError(t, gw.UpdateOrder(ctx, got))

	got, err = gw.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "1234567.891", got.Total.String())
	assert.Equal(t, order.Status("SHIPPED"), got.Status)

	_, err = gw.GetOrder(ctx, id+1000)
	require.ErrorIs(t, err, order.ErrNotFound)
	require.ErrorIs(t, gw.UpdateOrder(ctx, order.Order{Entity: order.Entity{ID: id + 1000}, Status: order.StatusPending}), order.ErrNotFound)
	require.ErrorIs(t, gw.DeleteOrder(ctx, id+1000), order.ErrNotFound)
}

func ordering(t *testing.T, gw order.Gateway) {
	ctx := context.Background()

	older, err := gw.InsertOrder(ctx, pending("older", base))
	require.NoError(t, err)
	newer, err := gw.InsertOrder(ctx, pending("newer", base.Add(time.Hour)))
	require.NoError(t, err)
	tie, err := gw.InsertOrder(ctx, pending("tie", base.Add(time.Hour)))
	require.NoError(t, err)

	list, err := gw.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{tie, newer, older}, []int64{list[0].ID, list[1].ID, list[2].ID})

	second, err := gw.InsertItem(ctx, item(older, "second", 1, "1", base.Add(2*time.Millisecond)))
	require.NoError(t, err)
	first, err := gw.InsertItem(ctx, item(older, "first", 1, "1", base.Add(time.Millisecond)))
	require.NoError(t, err)

	its, err := gw.ListItems(ctx, older)
	require.NoError(t, err)
	require.Len(t, its, 2)
	assert.Equal(t, first, its[0].ID)
	assert.Equal(t, second, its[1].ID)
}

func items(t *testing.T, gw order.Gateway) {
	ctx := context.Background()

	oid, err := gw.InsertOrder(ctx, pending("Bob", base))
	require.NoError(t, err)

	iid, err := gw.InsertItem(ctx, item(oid, "Book", 2, "15.50", base))
	require.NoError(t, err)

	it, err := gw.GetItem(ctx, iid)
	require.NoError(t, err)
	assert.Equal(t, oid, it.OrderID)
	assert.Equal(t, "Book", it.Product)
	assert.Equal(t, 2, it.Quantity)
	assert.Equal(t, "31.00", it.Subtotal().StringFixed(2))
	assert.True(t, base.Equal(it.CreatedAt))

	it.Quantity = 3
	require.NoError(t, gw.UpdateItem(ctx, it))
	it, err = gw.GetItem(ctx, iid)
	require.NoError(t, err)
	assert.Equal(t, 3, it.Quantity)

	require.NoError(t, gw.DeleteItem(ctx, iid))
	_, err = gw.GetItem(ctx, iid)
	require.ErrorIs(t, err, order.ErrNotFound)
	require.ErrorIs(t, gw.DeleteItem(ctx, iid), order.ErrNotFound)

	empty, err := gw.ListItems(ctx, oid+1000)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func missingParent(t *testing.T, gw order.Gateway) {
	_, err := gw.InsertItem(context.Background(), item(424242, "Ghost", 1, "1", base))
	require.ErrorIs(t, err, order.ErrNotFound)
}

func deleteCascades(t *testing.T, gw order.Gateway) {
	ctx := context.Background()

	oid, err := gw.InsertOrder(ctx, pending("Carol", base))
	require.NoError(t, err)
	iid, err := gw.InsertItem(ctx, item(oid, "Mug", 1, "7.25", base))
	require.NoError(t, err)

	require.NoError(t, gw.DeleteOrder(ctx, oid))
	_, err = gw.GetItem(ctx, iid)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func rollback(t *testing.T, gw order.Gateway) {
	ctx := context.Background()

	oid, err := gw.InsertOrder(ctx, pending("Dave", base))
	require.NoError(t, err)
	_, err = gw.InsertItem(ctx, item(oid, "Pen", 1, "1", base))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = gw.WithinTx(ctx, func(ctx context.Context) error {
		o, err := gw.GetOrderForUpdate(ctx, oid)
		if err != nil {
			return err
		}
		if _, err := gw.InsertItem(ctx, item(oid, "Ink", 2, "3", base)); err != nil {
			return err
		}
		o.Status = order.StatusCancelled
		if err := gw.UpdateOrder(ctx, o); err != nil {
			return err
		}
		if err := gw.DeleteItemsByOrder(ctx, oid); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	o, err := gw.GetOrder(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	its, err := gw.ListItems(ctx, oid)
	require.NoError(t, err)
	require.Len(t, its, 1)
	assert.Equal(t, "Pen", its[0].Product)
}

func serviceScenario(t *testing.T, gw order.Gateway) {
	ctx := context.Background()
	svc := order.NewService(gw)

	o, err := svc.CreateOrder(ctx, "Alice")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, o.ID, "Book", 2, decimal.RequireFromString("15.50"))
	require.NoError(t, err)
	pen, err := svc.AddItem(ctx, o.ID, "Pen", 3, decimal.RequireFromString("1.00"))
	require.NoError(t, err)

	got, found, err := svc.FindOrderByID(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "34.00", got.Total.StringFixed(2))

	_, err = svc.ConfirmOrder(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, pen.ID))

	got, _, err = svc.FindOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "31.00", got.Total.StringFixed(2))
	assert.Equal(t, order.StatusConfirmed, got.Status)

	require.NoError(t, svc.DeleteOrder(ctx, o.ID))
	_, found, err = svc.FindOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, found)
	its, err := svc.ListItems(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, its)
}
