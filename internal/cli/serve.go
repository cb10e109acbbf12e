package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypower/tend/internal/engine"
	"github.com/lazypower/tend/internal/notify"
	"github.com/lazypower/tend/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and reminder scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	gw, err := notify.NewGateway(cfg.GatewayOptions())
	if err != nil {
		return fmt.Errorf("notification gateway: %w", err)
	}
	if c, ok := gw.(io.Closer); ok {
		defer c.Close()
	}

	eng := engine.New(db, db, gw)
	eng.SetThresholds(cfg.Thresholds())

	// Startup reconciliation repairs anything a crash left half done.
	interval, _ := cfg.ReconcileInterval()
	eng.StartReconcileTimer(interval)
	defer eng.Stop()

	srv := server.New(db, eng, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "tend serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		fmt.Fprintf(os.Stderr, "  gateway: %s\n", gatewayName(cfg.Notify.Gateway))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

func gatewayName(kind string) string {
	if kind == "" {
		return "local"
	}
	return kind
}
