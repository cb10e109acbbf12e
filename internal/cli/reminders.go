package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lazypower/tend/internal/engine"
	"github.com/lazypower/tend/internal/intents"
	"github.com/spf13/cobra"
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "List armed reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, e *engine.Engine) error {
			pending := e.Scheduler.Pending()
			if len(pending) == 0 {
				fmt.Println("No reminders armed.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FIRES\tACTIVITY\tREQUEST")
			for _, r := range pending {
				name := r.ActivityID
				if snap, err := e.Get(ctx, r.ActivityID); err == nil {
					name = snap.Activity.Name
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.FireAt.Local().Format("2006-01-02 15:04"), name, r.RequestID)
			}
			return tw.Flush()
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-derive every reminder from the completion ledgers",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		report, err := s.engine.Reconcile(ctx)
		if err != nil {
			return err
		}
		s.changed()
		fmt.Printf("reconciled: %s\n", report)
		return nil
	},
}

var intentCmd = &cobra.Command{
	Use:   "intent <complete|days-since|overdue|find>",
	Short: "Answer a voice assistant shortcut (reads JSON on stdin)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		intents.Handle(args[0], os.Stdin, os.Stdout)
	},
}
