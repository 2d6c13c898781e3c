package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateItemFields(t *testing.T) {
	tests := []struct {
		name     string
		product  string
		quantity int
		price    string
		wantErr  bool
	}{
		{name: "valid", product: "Book", quantity: 2, price: "15.50"},
		{name: "free item", product: "Sticker", quantity: 1, price: "0"},
		{name: "empty product", product: "", quantity: 1, price: "5", wantErr: true},
		{name: "whitespace product", product: "   ", quantity: 1, price: "5", wantErr: true},
		{name: "zero quantity", product: "Pen", quantity: 0, price: "1", wantErr: true},
		{name: "negative quantity", product: "Pen", quantity: -3, price: "1", wantErr: true},
		{name: "negative price", product: "Pen", quantity: 1, price: "-0.01", wantErr: true},
		{name: "max quantity", product: "Pen", quantity: MaxQuantity, price: "1"},
		{name: "quantity above int32", product: "Pen", quantity: 1 << 31, price: "1", wantErr: true},
		{name: "trailing zeros", product: "Pen", quantity: 1, price: "1.500000"},
		{name: "fraction of a cent", product: "Pen", quantity: 1, price: "0.005", wantErr: true},
		{name: "tiny exponent", product: "Pen", quantity: 1, price: "1e-40", wantErr: true},
		{name: "max price", product: "Pen", quantity: 1, price: "999999999.99"},
		{name: "price too large", product: "Pen", quantity: 1, price: "1000000000", wantErr: true},
		{name: "huge exponent", product: "Pen", quantity: 1, price: "1e200000000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItemFields(tt.product, tt.quantity, decimal.RequireFromString(tt.price))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAcceptedPricesRenderConsistently(t *testing.T) {
	items := []Item{
		{Quantity: 3, UnitPrice: decimal.RequireFromString("0.10")},
		{Quantity: 7, UnitPrice: decimal.RequireFromString("19.99")},
		{Quantity: MaxQuantity, UnitPrice: MaxUnitPrice},
	}
	sum := decimal.Zero
	for _, it := range items {
		require.NoError(t, ValidateItemFields("Pen", it.Quantity, it.UnitPrice))
		sum = sum.Add(decimal.RequireFromString(it.Subtotal().StringFixed(MoneyPlaces)))
	}
	assert.Equal(t, sum.StringFixed(MoneyPlaces), ComputeTotal(items).StringFixed(MoneyPlaces))
}

func TestValidateCustomerName(t *testing.T) {
	require.NoError(t, ValidateCustomerName("Alice"))
	require.ErrorIs(t, ValidateCustomerName(""), ErrValidation)
	require.ErrorIs(t, ValidateCustomerName(" \t"), ErrValidation)
}

func TestValidateStatus(t *testing.T) {
	require.NoError(t, ValidateStatus("SHIPPED"))
	require.ErrorIs(t, ValidateStatus(" "), ErrValidation)
}

func TestComputeTotal(t *testing.T) {
	assert.True(t, ComputeTotal(nil).IsZero())

	items := []Item{
		{Product: "Book", Quantity: 2, UnitPrice: decimal.RequireFromString("15.50")},
		{Product: "Pen", Quantity: 3, UnitPrice: decimal.RequireFromString("1.00")},
	}
	assert.True(t, ComputeTotal(items).Equal(decimal.RequireFromString("34.00")))

	// 0.1 + 0.2 is exact in decimal arithmetic.
	cents := []Item{
		{Product: "A", Quantity: 1, UnitPrice: decimal.RequireFromString("0.1")},
		{Product: "B", Quantity: 1, UnitPrice: decimal.RequireFromString("0.2")},
	}
	assert.Equal(t, "0.3", ComputeTotal(cents).String())
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		action  Action
		items   int
		want    Status
		wantErr error
	}{
		{name: "confirm pending with items", current: StatusPending, action: ActionConfirm, items: 1, want: StatusConfirmed},
		{name: "confirm pending without items", current: StatusPending, action: ActionConfirm, items: 0, wantErr: ErrInvalidState},
		{name: "confirm confirmed", current: StatusConfirmed, action: ActionConfirm, items: 2, wantErr: ErrInvalidState},
		{name: "confirm cancelled", current: StatusCancelled, action: ActionConfirm, items: 2, wantErr: ErrInvalidState},
		{name: "confirm custom status", current: "SHIPPED", action: ActionConfirm, items: 2, wantErr: ErrInvalidState},
		{name: "cancel pending", current: StatusPending, action: ActionCancel, want: StatusCancelled},
		{name: "cancel confirmed", current: StatusConfirmed, action: ActionCancel, items: 1, want: StatusCancelled},
		{name: "cancel custom status", current: "SHIPPED", action: ActionCancel, want: StatusCancelled},
		{name: "cancel cancelled", current: StatusCancelled, action: ActionCancel, wantErr: ErrInvalidState},
		{name: "unknown action", current: StatusPending, action: "ship", wantErr: ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.current, tt.action, tt.items)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.current, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
