package storage

import "errors"

var (
	ErrJobNotFound = errors.New("summary job not found")
	ErrInvalidJob  = errors.New("invalid summary job")
	ErrClosed      = errors.New("storage closed")
)
