package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Action is a governed status transition request.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
)

// ValidateCustomerName rejects blank customer names.
func ValidateCustomerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: customer name must not be empty", ErrValidation)
	}
	return nil
}

// Bounds of a line item. Prices carry at most MoneyPlaces decimal places.
const (
	MaxQuantity = 1_000_000
	MoneyPlaces = 2
)

// MaxUnitPrice is the largest accepted unit price.
var MaxUnitPrice = decimal.RequireFromString("999999999.99")

// ValidateItemFields checks the user supplied fields of a line item.
func ValidateItemFields(product string, quantity int, unitPrice decimal.Decimal) error {
	if strings.TrimSpace(product) == "" {
		return fmt.Errorf("%w: product must not be empty", ErrValidation)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
	}
	if quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity must not exceed %d", ErrValidation, MaxQuantity)
	}
	return validatePrice(unitPrice)
}

// validatePrice checks the exponent before any comparison: rescaling a
// decimal such as 1e200000000 to cents never finishes.
func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrValidation)
	}
	if p.IsZero() {
		return nil
	}
	switch exp := p.Exponent(); {
	case exp > 9:
		return fmt.Errorf("%w: unit price must not exceed %s", ErrValidation, MaxUnitPrice)
	case exp < -20:
		return fmt.Errorf("%w: unit price must have at most %d decimal places", ErrValidation, MoneyPlaces)
	}
	if !p.Equal(p.Truncate(MoneyPlaces)) {
		return fmt.Errorf("%w: unit price must have at most %d decimal places", ErrValidation, MoneyPlaces)
	}
	if p.GreaterThan(MaxUnitPrice) {
		return fmt.Errorf("%w: unit price must not exceed %s", ErrValidation, MaxUnitPrice)
	}
	return nil
}

// ValidateStatus guards the direct status overwrite path. Any non-blank value
// is accepted; transition rules only apply to NextStatus.
func ValidateStatus(status Status) error {
	if strings.TrimSpace(string(status)) == "" {
		return fmt.Errorf("%w: status must not be empty", ErrValidation)
	}
	return nil
}

// ComputeTotal returns the sum of quantity × unit price over items.
func ComputeTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// NextStatus applies action to an order in status current holding itemCount
// items and returns the resulting status.
func NextStatus(current Status, action Action, itemCount int) (Status, error) {
	switch action {
	case ActionConfirm:
		if itemCount == 0 {
			return current, fmt.Errorf("%w: cannot confirm an order without items", ErrInvalidState)
		}
		if current != StatusPending {
			return current, fmt.Errorf("%w: only PENDING orders can be confirmed", ErrInvalidState)
		}
		return StatusConfirmed, nil
	case ActionCancel:
		if current == StatusCancelled {
			return current, fmt.Errorf("%w: order is already cancelled", ErrInvalidState)
		}
		return StatusCancelled, nil
	default:
		return current, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
}

// Recalculate reloads the derived total from the order's items.
func (o *Order) Recalculate() {
	o.Total = ComputeTotal(o.Items)
}
