package nodeapi

import "github.com/google/uuid"

type CacheOp uint8

const (
	CacheGet CacheOp = iota + 1
	CachePut
	CacheRemove
)

// String returns the string representation of the operation.
func (op CacheOp) String() string {
	switch op {
	case CacheGet:
		return "get"
	case CachePut:
		return "put"
	case CacheRemove:
		return "remove"
	default:
		return ""
	}
}

type CacheRequest struct {
	RequestID uuid.UUID
	ClientID  uuid.UUID
	CacheName string
	Op        CacheOp
	Key       string
	Value     []byte
	Flags     []string
}

type CacheResult struct {
	Value []byte
	Found bool
}
