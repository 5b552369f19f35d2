package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stored field names of a product document
const (
	FieldID        = "id"
	FieldName      = "name"
	FieldQuantity  = "quantity"
	FieldPrice     = "price"
	FieldStatus    = "status"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// ProductDocument is the persisted form of a product.
// Price is kept as Decimal128 so range comparisons in the database are exact.
type ProductDocument struct {
	ID        string               `bson:"id"`
	Name      string               `bson:"name"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
	Status    bool                 `bson:"status"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

// NewProductDocument builds a document for a freshly created product.
// Both timestamps are set to now.
func NewProductDocument(id, name string, quantity int, price primitive.Decimal128, status bool, now time.Time) *ProductDocument {
	return &ProductDocument{
		ID:        id,
		Name:      name,
		Quantity:  quantity,
		Price:     price,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Timestamp normalizes t to the precision a BSON datetime can hold.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
