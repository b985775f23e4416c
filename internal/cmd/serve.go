package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/groundstation/servo/internal/adminsql"
	"github.com/groundstation/servo/internal/command"
	"github.com/groundstation/servo/internal/export"
	"github.com/groundstation/servo/internal/flightlink"
	"github.com/groundstation/servo/internal/forwarding"
	"github.com/groundstation/servo/internal/httpapi"
	"github.com/groundstation/servo/internal/mapping"
	"github.com/groundstation/servo/internal/runtime"
	"github.com/groundstation/servo/internal/sequence"
	"github.com/groundstation/servo/internal/servoconfig"
	"github.com/groundstation/servo/internal/snapshot"
	"github.com/groundstation/servo/internal/store"
	"github.com/groundstation/servo/internal/vehicle"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ground-control core",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dir := servoDir
	if dir == "" {
		var err error
		dir, err = servoconfig.ResolveDir()
		if err != nil {
			return fmt.Errorf("servo: %w", err)
		}
	}

	cfg, err := servoconfig.Load(dir)
	if err != nil {
		return fmt.Errorf("servo: %w", err)
	}

	lock := servoconfig.NewInstanceLock(dir)
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, servoconfig.ErrLocked) {
			return fmt.Errorf("servo: %s already holds the instance lock, refusing to start a second core", dir)
		}
		return fmt.Errorf("servo: %w", err)
	}
	defer lock.Release()

	st, err := store.Open(ctx, servoconfig.DatabasePath(dir))
	if err != nil {
		return fmt.Errorf("servo: opening database: %w", err)
	}
	defer st.Close()

	hub := vehicle.NewHub()

	fwdRegistry, err := forwarding.New(logger, st)
	if err != nil {
		return fmt.Errorf("servo: %w", err)
	}
	defer fwdRegistry.Close()

	flight := flightlink.New(logger, hub, fwdRegistry)
	snapshotLogger := snapshot.New(logger, hub, st)
	sweeper := forwarding.NewSweeper(logger, st)

	mappingSvc := mapping.New(logger, st, flight, hub)
	sequenceSvc := sequence.New(st, flight)
	commandSvc := command.New(flight, mappingSvc)
	exportSvc := export.New(st)
	adminsqlSvc := adminsql.New(st)

	api := httpapi.New(logger, st, hub, flight, mappingSvc, sequenceSvc, commandSvc, exportSvc, fwdRegistry, adminsqlSvc)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Handler()}

	sup := runtime.New(logger, flight, snapshotLogger, sweeper)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sup.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("servo: http surface listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("servo: http surface: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return httpSrv.Shutdown(context.Background())
	})

	fmt.Println(styleBold.Render("servo") + " core started in " + dir)
	return g.Wait()
}
