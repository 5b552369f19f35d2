package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mrops-br/product-store-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Let numeric tags such as gte=0 apply to decimal fields
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// DecodeProductIn parses and validates a create request body
func DecodeProductIn(raw []byte) (*ProductIn, error) {
	var in ProductIn
	if err := decodeJSON(raw, &in); err != nil {
		return nil, err
	}
	if err := ValidateCreate(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// ValidateCreate checks that every required field is present
func ValidateCreate(in *ProductIn) error {
	if in == nil {
		return domain.NewValidationError("body", "is required")
	}
	return validateStruct(in)
}

// DecodeProductUpdate parses and validates a partial update body
// An empty body is an empty update.
func DecodeProductUpdate(raw []byte) (*ProductUpdate, error) {
	var u ProductUpdate
	if len(bytes.TrimSpace(raw)) == 0 {
		return &u, nil
	}
	if err := decodeJSON(raw, &u); err != nil {
		return nil, err
	}
	if err := validateStruct(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ValidateUpdate validates u and returns the fields to set in storage.
// Only supplied fields appear in the result. updated_at is always set to now.
func ValidateUpdate(u *ProductUpdate, now time.Time) (bson.M, error) {
	if u == nil {
		u = &ProductUpdate{}
	}
	if err := validateStruct(u); err != nil {
		return nil, err
	}

	set := bson.M{domain.FieldUpdatedAt: domain.Timestamp(now)}
	if u.Name != nil {
		set[domain.FieldName] = *u.Name
	}
	if u.Quantity != nil {
		set[domain.FieldQuantity] = *u.Quantity
	}
	if u.Price != nil {
		price, err := ToExactDecimal(*u.Price)
		if err != nil {
			return nil, err
		}
		set[domain.FieldPrice] = price
	}
	if u.Status != nil {
		set[domain.FieldStatus] = *u.Status
	}
	return set, nil
}

// DecodeProductFilter reads min_price and max_price from query parameters
func DecodeProductFilter(query url.Values) (*ProductFilter, error) {
	var f ProductFilter
	verr := &domain.ValidationError{}

	parse := func(key string) *decimal.Decimal {
		s := strings.TrimSpace(query.Get(key))
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			verr.WithField(key, "must be a decimal number")
			return nil
		}
		return &d
	}

	f.MinPrice = parse("min_price")
	f.MaxPrice = parse("max_price")
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if err := ValidateFilter(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ValidateFilter rejects negative price bounds.
// The sign is read from the decimal itself; the gte tags only see a float64 approximation.
func ValidateFilter(f *ProductFilter) error {
	if f == nil {
		return nil
	}
	if err := validateStruct(f); err != nil {
		return err
	}

	verr := &domain.ValidationError{}
	if f.MinPrice != nil && f.MinPrice.Sign() < 0 {
		verr.WithField("min_price", "must be greater than or equal to 0")
	}
	if f.MaxPrice != nil && f.MaxPrice.Sign() < 0 {
		verr.WithField("max_price", "must be greater than or equal to 0")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &domain.ValidationError{Err: err}
	}

	verr := &domain.ValidationError{Err: err}
	for _, fe := range fieldErrs {
		verr.WithField(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s character(s)", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}

func decodeJSON(raw []byte, dst any) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return domain.NewValidationError("body", "is required")
	}

	err := json.Unmarshal(raw, dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &domain.ValidationError{
			Fields: map[string]string{typeErr.Field: fmt.Sprintf("must be of type %s", typeErr.Type)},
			Err:    err,
		}
	}

	return &domain.ValidationError{
		Fields: map[string]string{"body": err.Error()},
		Err:    err,
	}
}
