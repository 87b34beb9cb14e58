package demo

import (
	"sync"

	"mop.org/internal/cases"
)

// Counter tallies the outcome of a demo run. Safe for concurrent use.
type Counter struct {
	mu       sync.Mutex
	created  int
	moves    int
	byStatus map[string]int
}

func (c *Counter) Created(st cases.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byStatus == nil {
		c.byStatus = make(map[string]int)
	}
	c.created++
	c.byStatus[string(st)]++
}

// Moved records a case leaving from for to.
func (c *Counter) Moved(from, to cases.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byStatus == nil {
		c.byStatus = make(map[string]int)
	}
	if c.byStatus[string(from)] > 0 {
		c.byStatus[string(from)]--
		if c.byStatus[string(from)] == 0 {
			delete(c.byStatus, string(from))
		}
	}
	c.byStatus[string(to)]++
	c.moves++
}

// Summary is a point-in-time copy of a Counter.
type Summary struct {
	Created     int            `json:"created"`
	Transitions int            `json:"transitions"`
	ByStatus    map[string]int `json:"case_statistics"`
}

func (c *Counter) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := Summary{Created: c.created, Transitions: c.moves, ByStatus: make(map[string]int, len(c.byStatus))}
	for st, n := range c.byStatus {
		out.ByStatus[st] = n
	}
	return out
}
