package domain

import "errors"

// Referential failures.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrWarehouseNotFound = errors.New("warehouse not found")
	ErrStockNotFound     = errors.New("no recorded stock for product at this warehouse")
)

// Invariant violations. Rejected before commit, no partial write.
var (
	ErrInsufficientStock     = errors.New("insufficient stock at warehouse")
	ErrNegativeReservation   = errors.New("reserved quantity cannot go below zero")
	ErrInsufficientAvailable = errors.New("not enough unreserved stock to satisfy the reservation")
	ErrReservationInvariant  = errors.New("stock removal would leave less than the reserved quantity")
)

// Transient and internal failures.
var (
	// ErrContention is returned when the per-product row locks could not be
	// acquired within the configured timeout. Safe to retry.
	ErrContention = errors.New("inventory rows are locked, retry")

	// ErrConsistency means the post-commit assertion found reserved > total.
	// This is a bug in the concurrency control, never a caller error.
	ErrConsistency = errors.New("inventory consistency assertion failed")
)
