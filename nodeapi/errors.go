package nodeapi

import "errors"

var (
	// ErrConnection is wrapped by errors caused by the endpoint being
	// unreachable, as opposed to errors reported by the endpoint itself.
	ErrConnection = errors.New("connection failed")

	// ErrStopped is returned by an executor that has been stopped.
	ErrStopped = errors.New("executor stopped")
)
