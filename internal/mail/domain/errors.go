package domain

import "errors"

// Sentinel errors the transport layer translates into response codes.
// Not-found conditions are kept distinct from validation failures.
var (
	ErrColumnNotFound  = errors.New("kanban column not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrAccountNotFound = errors.New("linked account not found")
	ErrUnauthorized    = errors.New("provider token expired or revoked")
	ErrLabelExists     = errors.New("label already exists")
)
