// Package pool provides worker pools for background tasks.
package pool

import "errors"

var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrPoolOverload is returned when a nonblocking pool is full.
	ErrPoolOverload = errors.New("pool is overloaded")

	// ErrInvalidPoolConfig indicates an invalid pool configuration.
	ErrInvalidPoolConfig = errors.New("invalid pool configuration")
)
