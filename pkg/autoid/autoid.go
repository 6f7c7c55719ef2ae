package autoid

import (
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// IDAllocator allocates strictly increasing ids, starting from 1.
type IDAllocator struct {
	last atomic.Int64
}

// NewIDAllocator creates an IDAllocator whose first id is start+1.
func NewIDAllocator(start int64) *IDAllocator {
	a := &IDAllocator{}
	a.last.Store(start)
	return a
}

// AllocID is safe for concurrent use.
func (a *IDAllocator) AllocID() int64 {
	return a.last.Inc()
}

// UUIDAllocator allocates random string ids.
type UUIDAllocator struct{}

func NewUUIDAllocator() *UUIDAllocator {
	return new(UUIDAllocator)
}

func (a *UUIDAllocator) AllocID() string {
	return uuid.New().String()
}
