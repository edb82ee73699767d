package models

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInventoryNotFound = errors.New("inventory record not found")
	ErrVersionConflict   = errors.New("inventory version conflict")
	ErrMalformedMessage  = errors.New("malformed message")
	ErrInvalidOrder      = errors.New("invalid order request")
)
