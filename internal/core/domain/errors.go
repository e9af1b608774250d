package domain

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderConflict     = errors.New("order was modified concurrently")
	ErrReturnNotAllowed  = errors.New("return request not allowed")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrForbidden         = errors.New("access forbidden")
	ErrInvalidStatus     = errors.New("unknown order status")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")

	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrCorruptSnapshot  = errors.New("snapshot is unreadable")
)
