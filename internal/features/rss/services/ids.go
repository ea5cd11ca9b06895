package services

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out ids that are unique for the life of the process
type IDGenerator interface {
	NextID() string
}

// SequenceGenerator returns "1", "2", "3"... and is shared by feeds and posts
type SequenceGenerator struct {
	next atomic.Uint64
}

// NewSequenceGenerator creates a generator starting at 1
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

func (g *SequenceGenerator) NextID() string {
	return strconv.FormatUint(g.next.Add(1), 10)
}

// Observe moves the sequence past id so that ids restored from storage are
// never handed out again. Non-numeric ids are ignored.
func (g *SequenceGenerator) Observe(id string) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return
	}
	for {
		current := g.next.Load()
		if current >= n || g.next.CompareAndSwap(current, n) {
			return
		}
	}
}

// UUIDGenerator returns random version 4 UUIDs
type UUIDGenerator struct{}

func (UUIDGenerator) NextID() string {
	return uuid.NewString()
}
