package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents one inventory line item
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Category  string          `json:"category,omitempty"`
	Supplier  string          `json:"supplier,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ValidationError reports a field value that violates a product invariant
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewProduct builds a validated product. CreatedAt is set once here and never
// changes afterwards.
func NewProduct(id, name string, quantity int, unitPrice decimal.Decimal) (*Product, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := ValidateUnitPrice(unitPrice); err != nil {
		return nil, err
	}

	return &Product{
		ID:        strings.TrimSpace(id),
		Name:      strings.TrimSpace(name),
		Quantity:  quantity,
		UnitPrice: unitPrice,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Validate re-checks every invariant on an already-built product
func (p *Product) Validate() error {
	if err := ValidateID(p.ID); err != nil {
		return err
	}
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if err := ValidateQuantity(p.Quantity); err != nil {
		return err
	}
	return ValidateUnitPrice(p.UnitPrice)
}

// TotalValue returns quantity times unit price
func (p *Product) TotalValue() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// InStock reports whether any units are available
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// ValidateID checks that the product id is non-empty
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Message: "id must not be empty"}
	}
	return nil
}

// ValidateName checks that the product name is non-empty after trimming
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "name must not be empty"}
	}
	return nil
}

// ValidateQuantity checks that the quantity is not negative
func ValidateQuantity(quantity int) error {
	if quantity < 0 {
		return &ValidationError{Field: "quantity", Message: "quantity must not be negative"}
	}
	return nil
}

// ValidateUnitPrice checks that the unit price is strictly positive
func ValidateUnitPrice(price decimal.Decimal) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: "unit_price", Message: "unit price must be greater than zero"}
	}
	return nil
}
