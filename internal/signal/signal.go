// Package signal provides the change counter clients poll to learn that the
// document tree of their enterprise changed.
//
// Increments are fire-and-forget: a failing backend is logged and never
// surfaces to the mutation that triggered it.
package signal

import (
	"context"
	"strconv"
	"sync"
)

// Signal is a monotonically increasing counter per key.
type Signal interface {
	// Increment bumps key by one. Errors are swallowed by implementations.
	Increment(ctx context.Context, key string)

	// Value returns the current counter for key (0 if never incremented).
	Value(ctx context.Context, key string) (uint64, error)

	// Close releases backend resources.
	Close() error
}

// EnterpriseKey is the counter key for all document changes of an enterprise.
func EnterpriseKey(enterpriseID int64) string {
	return "documents:" + strconv.FormatInt(enterpriseID, 10)
}

// Noop discards increments.
type Noop struct{}

func (Noop) Increment(context.Context, string)             {}
func (Noop) Value(context.Context, string) (uint64, error) { return 0, nil }
func (Noop) Close() error                                  { return nil }

// Memory keeps counters in process memory.
type Memory struct {
	mu     sync.Mutex
	counts map[string]uint64
}

// NewMemory creates an in-process signal.
func NewMemory() *Memory {
	return &Memory{counts: make(map[string]uint64)}
}

func (m *Memory) Increment(_ context.Context, key string) {
	m.mu.Lock()
	m.counts[key]++
	m.mu.Unlock()
}

func (m *Memory) Value(_ context.Context, key string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key], nil
}

func (m *Memory) Close() error { return nil }
