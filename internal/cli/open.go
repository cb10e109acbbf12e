package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lazypower/tend/internal/activity"
	"github.com/lazypower/tend/internal/config"
	"github.com/lazypower/tend/internal/engine"
	"github.com/lazypower/tend/internal/intents"
	"github.com/lazypower/tend/internal/notify"
	"github.com/lazypower/tend/internal/store"
)

// loadConfig reads --config, or ~/.tend/config.json when unset.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(path)
}

// openDB opens the configured database. TEND_DB overrides the config file.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

// session is an engine opened for one CLI command.
type session struct {
	cfg    config.Config
	db     *store.DB
	gw     notify.Gateway
	engine *engine.Engine
}

// openSession wires an engine for a one-shot command. In-process timers die
// with the command, so with the local gateway the running server is asked to
// reconcile after a change instead.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	var gw notify.Gateway
	if inProcess(cfg) {
		gw = notify.NewMemory()
	} else if gw, err = notify.NewGateway(cfg.GatewayOptions()); err != nil {
		db.Close()
		return nil, fmt.Errorf("notification gateway: %w", err)
	}

	eng := sessionEngine(cfg, db, gw)

	// Seed the scheduler so cancels and listings see what is already armed.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := eng.Scheduler.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: load reminders: %v\n", err)
	}

	return &session{cfg: cfg, db: db, gw: gw, engine: eng}, nil
}

// sessionEngine builds the engine for a one-shot command. With the local
// gateway nothing this process arms outlives it, so the reminder table is
// read but never written; the server's reconcile records what it arms.
func sessionEngine(cfg config.Config, db *store.DB, gw notify.Gateway) *engine.Engine {
	var table engine.ReminderTable = db
	if inProcess(cfg) {
		table = serverTable{db}
	}
	eng := engine.New(db, table, gw)
	eng.SetThresholds(cfg.Thresholds())
	return eng
}

// serverTable exposes the server's reminder rows without letting a
// short-lived process change them.
type serverTable struct {
	db *store.DB
}

func (t serverTable) PutReminder(context.Context, activity.ReminderRequest) error { return nil }

func (t serverTable) DeleteReminder(context.Context, string) error { return nil }

func (t serverTable) ListReminders(ctx context.Context) ([]activity.ReminderRequest, error) {
	return t.db.ListReminders(ctx)
}

func (s *session) Close() {
	if c, ok := s.gw.(io.Closer); ok {
		c.Close()
	}
	s.db.Close()
}

// changed tells a running server to pick up a mutation made by this process.
func (s *session) changed() {
	if !inProcess(s.cfg) {
		return
	}
	url := os.Getenv("TEND_URL")
	if url == "" {
		url = "http://" + s.cfg.ListenAddr()
	}
	client := intents.NewClientFor(url)
	if !client.Healthy() {
		fmt.Fprintln(os.Stderr, "note: tend server not running; reminders will be armed when it starts")
		return
	}
	if _, err := client.Post("/api/reconcile", nil); err != nil {
		fmt.Fprintf(os.Stderr, "warning: server reconcile: %v\n", err)
	}
}

func inProcess(cfg config.Config) bool {
	return cfg.Notify.Gateway == "" || cfg.Notify.Gateway == "local"
}

// resolveActivity accepts an id or an unambiguous name fragment.
func resolveActivity(ctx context.Context, e *engine.Engine, arg string) (*engine.Snapshot, error) {
	snap, err := e.Get(ctx, arg)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, engine.ErrNotFound) {
		return nil, err
	}

	matches := e.GetMatching(ctx, arg)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no activity matches %q", arg)
	case 1:
		return &matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Activity.Name
		}
		return nil, fmt.Errorf("%q is ambiguous: %s", arg, strings.Join(names, ", "))
	}
}

// warn prints a non-fatal scheduling warning.
func warn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}
