package notify

import (
	"context"
	"sync"
	"time"
)

// Scheduled is a request held by a Memory gateway.
type Scheduled struct {
	RequestID string
	FireAt    time.Time
	Payload   Payload
}

// Memory is a Gateway that only records requests. It is used in tests and
// for dry runs.
type Memory struct {
	mu       sync.Mutex
	requests map[string]Scheduled
	cancels  []string

	// Injected failures.
	ScheduleErr error
	CancelErr   error
}

// NewMemory creates an empty Memory gateway.
func NewMemory() *Memory {
	return &Memory{requests: make(map[string]Scheduled)}
}

// Schedule stores the request, replacing any with the same id.
func (m *Memory) Schedule(ctx context.Context, requestID string, fireAt time.Time, payload Payload) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ScheduleErr != nil {
		return "", m.ScheduleErr
	}
	m.requests[requestID] = Scheduled{RequestID: requestID, FireAt: fireAt, Payload: payload}
	return Handle("mem-" + requestID), nil
}

// Cancel drops the request if present.
func (m *Memory) Cancel(ctx context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CancelErr != nil {
		return m.CancelErr
	}
	m.cancels = append(m.cancels, requestID)
	delete(m.requests, requestID)
	return nil
}

// Get returns the pending request with the given id.
func (m *Memory) Get(requestID string) (Scheduled, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.requests[requestID]
	return s, ok
}

// Len returns the number of pending requests.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Cancels returns every request id Cancel was called with.
func (m *Memory) Cancels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.cancels))
	copy(out, m.cancels)
	return out
}
