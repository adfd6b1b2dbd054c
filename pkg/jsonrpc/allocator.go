package jsonrpc

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out request ids. Implementations must return a distinct
// id on every call, including when called from several goroutines.
type IDGenerator interface {
	Next() ID
}

// Counter issues numeric ids 0, 1, 2, ... and wraps around on overflow.
// The zero value is ready to use.
type Counter struct {
	next atomic.Int64
}

func NewCounter() *Counter {
	return &Counter{}
}

// NewCounterFrom returns a counter whose first id is start.
func NewCounterFrom(start int64) *Counter {
	c := &Counter{}
	c.next.Store(start)
	return c
}

func (c *Counter) Next() ID {
	// Add wraps in two's complement, so MaxInt64 is followed by MinInt64.
	return NumberID(c.next.Add(1) - 1)
}

// UUIDGenerator issues random version 4 UUIDs as string ids.
type UUIDGenerator struct{}

func (UUIDGenerator) Next() ID {
	return StringID(uuid.New().String())
}
