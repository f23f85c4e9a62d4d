package errs

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrResourceExceeded    = errors.New("resource limit exceeded")
)

// queue
var (
	ErrJobTimeout        = errors.New("job was not settled before the admission timeout")
	ErrJobExpired        = errors.New("job expired before dispatch")
	ErrBrokerClosed      = errors.New("broker closed")
	ErrDuplicateDelivery = errors.New("job already claimed by another slot")
	ErrRedelivered       = errors.New("job redelivered after an unknown outcome")
)
