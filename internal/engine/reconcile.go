package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/lazypower/tend/internal/observability"
)

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Armed     int `json:"armed"`
	Idle      int `json:"idle"`
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`
}

func (r ReconcileReport) String() string {
	return fmt.Sprintf("%d armed, %d idle, %d orphans cancelled, %d failed", r.Armed, r.Idle, r.Cancelled, r.Failed)
}

// Reconcile re-derives every reminder from the persisted ledgers. It is
// idempotent and safe to run at any time; startup runs it to repair anything
// a crash between cancel and arm left behind.
func (e *Engine) Reconcile(ctx context.Context) (ReconcileReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := e.now()
	var report ReconcileReport

	recorded, err := e.Scheduler.Load(ctx)
	if err != nil {
		// The mirror is only a cache; carry on without it.
		log.Printf("reconcile: load reminders: %v", err)
	}

	acts, err := e.Store.ListActivities(ctx)
	if err != nil {
		return report, &PersistenceError{Op: "list activities", Err: err}
	}

	known := make(map[string]bool, len(acts))
	for i := range acts {
		a := &acts[i]
		known[a.ID] = true

		req, err := e.Scheduler.Reschedule(ctx, a)
		switch {
		case err != nil:
			report.Failed++
		case req != nil:
			report.Armed++
		default:
			report.Idle++
		}
	}

	for _, r := range recorded {
		if known[r.ActivityID] {
			continue
		}
		if err := e.Scheduler.Cancel(ctx, r.ActivityID); err != nil {
			report.Failed++
			continue
		}
		report.Cancelled++
	}

	observability.RecordReconcile(started, e.now())
	return report, nil
}
