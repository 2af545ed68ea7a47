package services

import "errors"

// Sentinel errors of the dispatch engine. Handlers map them onto HTTP
// statuses: not found -> 404, state conflicts -> 403.
var (
	ErrDropNotFound    = errors.New("drop not found")
	ErrDropAlreadySent = errors.New("drop already sent")
	ErrDropLocked      = errors.New("drop is being dispatched")
	ErrDropNotSending  = errors.New("drop is not being dispatched")
	ErrDropImmutable   = errors.New("sent drops cannot be modified")
	ErrInvalidStatus   = errors.New("invalid drop status")
)
