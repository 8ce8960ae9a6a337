package checkout

import "errors"

var (
	ErrEmptyCart      = errors.New("checkout: cart is empty")
	ErrNoMatch        = errors.New("checkout: no target match selected")
	ErrTicketNotFound = errors.New("checkout: ticket not found")
	ErrInvalidStatus  = errors.New("checkout: invalid ticket status")
)
