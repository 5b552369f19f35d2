package service

import (
	"github.com/mrops-br/product-store-api/internal/app/dto"
	"github.com/mrops-br/product-store-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

// PriceFilter builds the storage predicate for f.
// Both bounds land in one sub-document on the price field, so setting
// max_price never replaces min_price. A nil or empty filter matches everything.
func PriceFilter(f *dto.ProductFilter) (bson.M, error) {
	filter := bson.M{}
	if f == nil {
		return filter, nil
	}

	price := bson.M{}
	if f.MinPrice != nil {
		bound, err := dto.ExactDecimalField("min_price", *f.MinPrice)
		if err != nil {
			return nil, err
		}
		price["$gte"] = bound
	}
	if f.MaxPrice != nil {
		bound, err := dto.ExactDecimalField("max_price", *f.MaxPrice)
		if err != nil {
			return nil, err
		}
		price["$lte"] = bound
	}

	if len(price) > 0 {
		filter[domain.FieldPrice] = price
	}
	return filter, nil
}

func byID(id string) bson.M {
	return bson.M{domain.FieldID: id}
}
