package cart

import "errors"

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be positive")
	ErrLineNotFound    = errors.New("cart: line not found")
	ErrNoMatch         = errors.New("cart: no target match selected")
	ErrUnknownCategory = errors.New("cart: unknown ticket category")
)
