package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
	ErrDuplicateAction = errors.New("action already registered")
	ErrUnknownAction   = errors.New("unknown action")
	ErrTransport       = errors.New("downstream unavailable")
)
