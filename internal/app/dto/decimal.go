package dto

import (
	"fmt"

	"github.com/mrops-br/product-store-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToExactDecimal converts d into the storage-native Decimal128.
// Every price that reaches storage, including filter bounds, must go through
// this function; a bound of any other type never compares equal to a stored price.
// The scale of d is kept, so 1.10 is stored as 1.10 and not 1.1.
func ToExactDecimal(d decimal.Decimal) (primitive.Decimal128, error) {
	return ExactDecimalField(domain.FieldPrice, d)
}

// ExactDecimalField is ToExactDecimal with failures reported against field.
func ExactDecimalField(field string, d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(exactString(d))
	if err != nil {
		return primitive.Decimal128{}, &domain.ValidationError{
			Fields: map[string]string{field: "does not fit a 128-bit decimal"},
			Err:    err,
		}
	}
	return v, nil
}

// FromExactDecimal converts a stored Decimal128 back into a decimal.Decimal.
func FromExactDecimal(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("stored price %s is not a finite decimal: %w", v.String(), err)
	}
	return d, nil
}

func exactString(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
