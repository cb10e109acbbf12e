package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/tend/internal/engine"
	"github.com/spf13/cobra"
)

var (
	doneNote string
	doneAt   string
)

var doneCmd = &cobra.Command{
	Use:   "done <activity>",
	Short: "Record that you did an activity",
	Long:  "Record a completion. Use --at to backdate it (YYYY-MM-DD, or RFC 3339).",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

func runDone(cmd *cobra.Command, args []string) error {
	at, err := parseAt(doneAt, time.Local)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	snap, err := resolveActivity(ctx, s.engine, args[0])
	if err != nil {
		return err
	}
	res, err := s.engine.MarkCompleted(ctx, snap.Activity.ID, doneNote, at)
	if err != nil {
		return err
	}
	warn(res.Warning)
	s.changed()

	fmt.Printf("Marked %s done (%d completions)\n", res.Activity.Name, res.Activity.Ledger.Len())
	if res.Reminder != nil {
		fmt.Printf("Next reminder %s\n", res.Reminder.FireAt.Local().Format(time.RFC1123))
	}
	return nil
}

var sinceCmd = &cobra.Command{
	Use:   "since <activity>",
	Short: "Show how many days since an activity was last done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, e *engine.Engine) error {
			snap, err := resolveActivity(ctx, e, args[0])
			if err != nil {
				return err
			}
			days, ok, err := e.DaysSinceLastCompleted(ctx, snap.Activity.ID)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("%s: never\n", snap.Activity.Name)
				return nil
			}
			fmt.Printf("%s: %d\n", snap.Activity.Name, days)
			return nil
		})
	},
}

// parseAt reads a backdate. Bare dates are midnight in loc.
func parseAt(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --at %q: want YYYY-MM-DD or RFC 3339", s)
}

func init() {
	doneCmd.Flags().StringVarP(&doneNote, "note", "n", "", "Optional note")
	doneCmd.Flags().StringVar(&doneAt, "at", "", "When it was done (default now)")
}
