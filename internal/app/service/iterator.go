package service

import (
	"context"
	"fmt"

	"github.com/mrops-br/product-store-api/internal/app/dto"
	"github.com/mrops-br/product-store-api/internal/domain"
)

// ProductIterator streams the result of a query, one product per stored
// document, in storage order. It cannot be restarted once exhausted.
type ProductIterator struct {
	cursor  domain.DocumentCursor
	current *dto.ProductOut
	err     error
	done    bool
}

func newProductIterator(cursor domain.DocumentCursor) *ProductIterator {
	return &ProductIterator{cursor: cursor}
}

// Next advances to the next product. It returns false when the stream is
// exhausted or an error occurred; check Err afterwards.
func (it *ProductIterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}

	if !it.cursor.Next(ctx) {
		it.done = true
		it.current = nil
		it.err = it.cursor.Err()
		return false
	}

	var doc domain.ProductDocument
	if err := it.cursor.Decode(&doc); err != nil {
		it.fail(fmt.Errorf("decode product: %w", err))
		return false
	}

	out, err := dto.ToProductOut(&doc)
	if err != nil {
		it.fail(err)
		return false
	}

	it.current = out
	return true
}

// Product returns the product Next advanced to
func (it *ProductIterator) Product() *dto.ProductOut {
	return it.current
}

// Err returns the first error met while iterating
func (it *ProductIterator) Err() error {
	return it.err
}

// Close releases the underlying cursor
func (it *ProductIterator) Close(ctx context.Context) error {
	it.done = true
	return it.cursor.Close(ctx)
}

// All drains the iterator and closes it
func (it *ProductIterator) All(ctx context.Context) ([]*dto.ProductOut, error) {
	products := make([]*dto.ProductOut, 0)
	for it.Next(ctx) {
		products = append(products, it.Product())
	}

	closeErr := it.Close(ctx)
	if it.err != nil {
		return nil, it.err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return products, nil
}

func (it *ProductIterator) fail(err error) {
	it.err = err
	it.done = true
	it.current = nil
}
