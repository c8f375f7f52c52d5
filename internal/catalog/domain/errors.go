package domain

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrWarehouseNotFound = errors.New("warehouse not found")
)

var (
	ErrEmptyProductName = errors.New("product name cannot be empty")
	ErrInvalidPrice     = errors.New("base price must be non-negative")
	ErrInvalidQuantity  = errors.New("initial quantity must be non-negative")
	ErrMissingWarehouse = errors.New("initial quantity requires a warehouse id")
	ErrAttributeKind    = errors.New("attributes do not match the category kind")
	ErrSKUConflict      = errors.New("sku already exists")
)
