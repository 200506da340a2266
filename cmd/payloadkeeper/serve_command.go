package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"payloadkeeper/internal/capture"
	"payloadkeeper/internal/hostapi"
	"payloadkeeper/internal/inbox"
	"payloadkeeper/internal/logging"
	"payloadkeeper/internal/metrics"
	"payloadkeeper/internal/preflight"
	"payloadkeeper/internal/reconcile"
	"payloadkeeper/internal/services"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Reconcile the tree, then accept generation events over HTTP and the inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServe(signalCtx, ctx, bind, cmd.OutOrStdout(), nil)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind")
	return cmd
}

// runServe blocks until runCtx is done. ready, when set, receives the bound
// HTTP address once both bridges accept events.
func runServe(runCtx context.Context, ctx *commandContext, bind string, out io.Writer, ready func(addr string)) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}
	store, cfg, logger, err := ctx.openStore()
	if err != nil {
		return fmt.Errorf("open payload tree: %w", err)
	}
	if bind == "" {
		bind = cfg.Server.Bind
	}

	if failed := preflight.Failed(preflight.RunAll(runCtx, cfg)); len(failed) > 0 {
		for _, r := range failed {
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail))
		}
		return services.Wrap(services.ErrConfiguration, "serve", "preflight", fmt.Sprintf("%s: %s", failed[0].Name, failed[0].Detail), nil)
	}

	locked, err := store.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		return services.Wrap(services.ErrConflict, "serve", "lock", "payload tree is locked by another process", nil)
	}
	defer func() { _ = store.Unlock() }()

	m := metrics.New()
	result, err := reconcile.Run(runCtx, store, reconcile.Options{
		Deduplicate: cfg.Display.StartupDeduplicate,
		Logger:      logger,
		Metrics:     m,
	})
	if err != nil {
		return fmt.Errorf("startup reconcile: %w", err)
	}
	printReconcileResult(out, store.Root(), result)

	opts := capture.OptionsFromConfig(cfg)
	opts.Logger = logger
	opts.Metrics = m
	recorder := capture.Synchronize(capture.NewRecorder(store, opts))

	server := hostapi.New(bind, recorder, store, m, logger)
	if err := server.Start(runCtx); err != nil {
		return err
	}
	defer server.Stop()

	if dir := cfg.Paths.InboxDir; dir != "" {
		watcher, err := inbox.New(dir, recorder, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(runCtx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	fmt.Fprintf(out, "Listening on http://%s (payloads in %s)\n", server.Addr(), store.Root())
	if ready != nil {
		ready(server.Addr())
	}

	<-runCtx.Done()
	logger.Info("payloadkeeper shutting down", logging.String(logging.FieldEventType, "serve_stopped"))
	return nil
}
