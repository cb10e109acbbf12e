package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

// Local fires reminders from in-process timers. Requests do not survive a
// restart; the engine re-arms them during reconciliation.
type Local struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	fire   func(requestID string, p Payload)
	now    func() time.Time
}

// NewLocal creates a Local gateway. A nil fire func logs the reminder.
func NewLocal(fire func(requestID string, p Payload)) *Local {
	if fire == nil {
		fire = logReminder
	}
	return &Local{
		timers: make(map[string]*time.Timer),
		fire:   fire,
		now:    time.Now,
	}
}

func logReminder(requestID string, p Payload) {
	log.Printf("reminder due: %s (every %d days)", p.ActivityName, p.IntervalDays)
}

// Schedule arms a timer for fireAt, replacing any timer with the same id.
func (l *Local) Schedule(ctx context.Context, requestID string, fireAt time.Time, payload Payload) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.timers[requestID]; ok {
		t.Stop()
	}

	delay := fireAt.Sub(l.now())
	if delay < 0 {
		delay = 0
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		l.mu.Lock()
		// Only the timer that is still current may fire and clear itself.
		if l.timers[requestID] != t {
			l.mu.Unlock()
			return
		}
		delete(l.timers, requestID)
		l.mu.Unlock()
		l.fire(requestID, payload)
	})
	l.timers[requestID] = t
	return Handle(requestID), nil
}

// Cancel stops the timer if one is armed.
func (l *Local) Cancel(ctx context.Context, requestID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[requestID]; ok {
		t.Stop()
		delete(l.timers, requestID)
	}
	return nil
}

// Pending returns the number of armed timers.
func (l *Local) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Close stops all timers.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
	return nil
}
