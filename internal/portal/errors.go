package portal

import "errors"

var (
	ErrUnknownRole     = errors.New("portal: unknown role")
	ErrTabNotPermitted = errors.New("portal: tab not in the current role's set")
	ErrUnknownOverlay  = errors.New("portal: unknown overlay")
	ErrAuthRequired    = errors.New("portal: authentication required")
	ErrUnknownVariant  = errors.New("portal: size or color not offered for this product")
)
