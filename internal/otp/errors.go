package otp

import "errors"

var (
	ErrInvalidPhone   = errors.New("otp: invalid phone number")
	ErrInvalidDigit   = errors.New("otp: code digits must be 0-9")
	ErrInvalidState   = errors.New("otp: operation not valid in current state")
	ErrResendCooldown = errors.New("otp: resend cooldown has not expired")
)
