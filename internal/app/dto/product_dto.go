package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/product-store-api/internal/domain"
	"github.com/shopspring/decimal"
)

// ProductIn represents the fields a caller supplies to create a product
type ProductIn struct {
	Name     string           `json:"name" validate:"required"`
	Quantity *int             `json:"quantity" validate:"required"`
	Price    *decimal.Decimal `json:"price" validate:"required"`
	Status   *bool            `json:"status" validate:"required"`
}

// ProductOut represents a persisted product as returned to callers
type ProductOut struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Status    bool            `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductUpdate represents a partial update. Nil fields are left untouched.
type ProductUpdate struct {
	Name     *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	Quantity *int             `json:"quantity,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Status   *bool            `json:"status,omitempty"`
}

// ProductFilter restricts a query to a price range. Both bounds are inclusive.
type ProductFilter struct {
	MinPrice *decimal.Decimal `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice *decimal.Decimal `json:"max_price,omitempty" validate:"omitempty,gte=0"`
}

// ToProductOut converts a stored document to ProductOut
func ToProductOut(doc *domain.ProductDocument) (*ProductOut, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("stored product id %q: %w", doc.ID, err)
	}

	price, err := FromExactDecimal(doc.Price)
	if err != nil {
		return nil, err
	}

	return &ProductOut{
		ID:        id,
		Name:      doc.Name,
		Quantity:  doc.Quantity,
		Price:     price,
		Status:    doc.Status,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// ToProductDocument builds the document for a validated ProductIn
func ToProductDocument(id uuid.UUID, in *ProductIn, now time.Time) (*domain.ProductDocument, error) {
	price, err := ToExactDecimal(*in.Price)
	if err != nil {
		return nil, err
	}
	return domain.NewProductDocument(id.String(), in.Name, *in.Quantity, price, *in.Status, domain.Timestamp(now)), nil
}
