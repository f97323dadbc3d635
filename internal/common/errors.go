// Package common defines shared constants and sentinel errors used across
// the todo data layer. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrPersistence = errors.New("persistence error")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Authentication errors (wrong secret, or no local secret on the record).
	ErrInvalidCredentials = errors.New("invalid email or secret")

	// Validation errors (malformed input).
	ErrValidation = errors.New("validation error")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
)
