package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lazypower/tend/internal/engine"
	"github.com/spf13/cobra"
)

const cmdTimeout = 30 * time.Second

// --- add ---

var addEvery int

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an activity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	res, err := s.engine.CreateActivity(ctx, strings.Join(args, " "), addEvery)
	if err != nil {
		return err
	}
	warn(res.Warning)
	s.changed()

	fmt.Printf("Added %s (every %d days) %s\n", res.Activity.Name, res.Activity.IntervalDays, res.Activity.ID)
	return nil
}

// --- list / overdue / search ---

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities with their staleness",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, e *engine.Engine) error {
			if listAll {
				snaps, err := e.GetAll(ctx)
				if err != nil {
					return err
				}
				printSnapshots(snaps, "No activities yet. Add one with `tend add`.")
				return nil
			}
			printSnapshots(e.GetActive(ctx), "No activities yet. Add one with `tend add`.")
			return nil
		})
	},
}

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List stale activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, e *engine.Engine) error {
			printSnapshots(e.GetOverdue(ctx), "Nothing is overdue.")
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find active activities by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, e *engine.Engine) error {
			printSnapshots(e.GetMatching(ctx, strings.Join(args, " ")), "No results found.")
			return nil
		})
	},
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <activity>",
	Short: "Show an activity and its completion history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, e *engine.Engine) error {
			snap, err := resolveActivity(ctx, e, args[0])
			if err != nil {
				return err
			}
			a := snap.Activity
			fmt.Printf("%s  [%s]\n", a.Name, snap.State)
			fmt.Printf("  id:       %s\n", a.ID)
			fmt.Printf("  every:    %d days\n", a.IntervalDays)
			if a.Archived {
				fmt.Println("  archived: yes")
			}
			if r, ok := e.Scheduler.Outstanding(a.ID); ok {
				fmt.Printf("  reminder: %s\n", r.FireAt.Local().Format(time.RFC1123))
			}

			recs := a.Ledger.Records()
			if len(recs) == 0 {
				fmt.Println("\nNever completed.")
				return nil
			}
			fmt.Printf("\n## Completions (%d)\n", len(recs))
			for i := len(recs) - 1; i >= 0; i-- {
				line := "  " + recs[i].CompletedAt.Local().Format("2006-01-02 15:04")
				if recs[i].Note != "" {
					line += "  " + recs[i].Note
				}
				fmt.Println(line)
			}
			return nil
		})
	},
}

// --- archive / unarchive / interval / rename / delete ---

var archiveCmd = &cobra.Command{
	Use:   "archive <activity>",
	Short: "Stop tracking an activity without losing its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(args[0], "Archived", func(ctx context.Context, e *engine.Engine, id string) (*engine.Result, error) {
			return e.SetArchived(ctx, id, true)
		})
	},
}

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive <activity>",
	Short: "Resume tracking an archived activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(args[0], "Restored", func(ctx context.Context, e *engine.Engine, id string) (*engine.Result, error) {
			return e.SetArchived(ctx, id, false)
		})
	},
}

var intervalCmd = &cobra.Command{
	Use:   "interval <activity> <days>",
	Short: "Change how often an activity should be done",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("days must be a number: %w", err)
		}
		return mutate(args[0], "Updated", func(ctx context.Context, e *engine.Engine, id string) (*engine.Result, error) {
			return e.SetInterval(ctx, id, days)
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <activity> <new name>",
	Short: "Rename an activity",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args[1:], " ")
		return mutate(args[0], "Renamed", func(ctx context.Context, e *engine.Engine, id string) (*engine.Result, error) {
			return e.Rename(ctx, id, name)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <activity>",
	Short: "Delete an activity and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(args[0], "Deleted", func(ctx context.Context, e *engine.Engine, id string) (*engine.Result, error) {
			return e.DeleteActivity(ctx, id)
		})
	},
}

func init() {
	addCmd.Flags().IntVarP(&addEvery, "every", "e", 7, "Target interval in days")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include archived activities")
}

// withSession runs fn against a freshly opened engine.
func withSession(fn func(ctx context.Context, e *engine.Engine) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()
	return fn(ctx, s.engine)
}

// mutate resolves arg to an activity, applies fn and reports the outcome.
func mutate(arg, verb string, fn func(ctx context.Context, e *engine.Engine, id string) (*engine.Result, error)) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	snap, err := resolveActivity(ctx, s.engine, arg)
	if err != nil {
		return err
	}
	res, err := fn(ctx, s.engine, snap.Activity.ID)
	if err != nil {
		return err
	}
	warn(res.Warning)
	s.changed()

	fmt.Printf("%s %s\n", verb, res.Activity.Name)
	return nil
}

func printSnapshots(snaps []engine.Snapshot, empty string) {
	if len(snaps) == 0 {
		fmt.Println(empty)
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tLAST DONE\tEVERY\tID")
	for _, s := range snaps {
		name := s.Activity.Name
		if s.Activity.Archived {
			name += " (archived)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dd\t%s\n", name, s.State, lastDone(s), s.Activity.IntervalDays, s.Activity.ID)
	}
	tw.Flush()
}

func lastDone(s engine.Snapshot) string {
	switch {
	case !s.Completed:
		return "never"
	case s.DaysSince == 0:
		return "today"
	case s.DaysSince == 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", s.DaysSince)
	}
}
