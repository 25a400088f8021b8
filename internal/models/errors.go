package models

import "errors"

var (
	ErrNotFound      = errors.New("opportunity not found")
	ErrAlreadyExists = errors.New("opportunity already exists")
	ErrUnknownStage  = errors.New("unknown stage")
	ErrStaleStage    = errors.New("opportunity changed since it was read")
	ErrInvalidInput  = errors.New("invalid input")
	ErrClosed        = errors.New("opportunity is closed")
	ErrForbidden     = errors.New("forbidden")
)
