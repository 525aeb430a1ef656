package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// TickingClock advances by step after every Now call, so successive records
// get distinct, ordered timestamps.
type TickingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewTickingClock(start time.Time, step time.Duration) *TickingClock {
	return &TickingClock{now: start, step: step}
}

func (c *TickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// StubIDGenerator returns sequential IDs: "id-1", "id-2", etc.
// A generator built with NewPrefixedIDGenerator uses its own prefix.
type StubIDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{prefix: "id"}
}

// NewPrefixedIDGenerator returns IDs like "<prefix>-0001". The zero padding
// keeps lexical and numeric order the same.
func NewPrefixedIDGenerator(prefix string) *StubIDGenerator {
	return &StubIDGenerator{prefix: prefix}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	if g.prefix == "id" {
		return fmt.Sprintf("id-%d", g.counter)
	}
	return fmt.Sprintf("%s-%04d", g.prefix, g.counter)
}
