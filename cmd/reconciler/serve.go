package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"fleetrecon/internal/app"
	"fleetrecon/internal/handler"
	"fleetrecon/internal/scheduler"
)

func serveCmd() *cobra.Command {
	var noSchedule bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run reconciliation cycles on a schedule and serve the ops API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := wire(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer c.Close()

			sched := scheduler.New(c.reconciler, cfg.Reconcile.Interval, c.nrApp, log)

			gin.SetMode(gin.ReleaseMode)
			router := app.NewRouter(app.RouterDeps{
				CycleHandler:        handler.NewCycleHandler(sched),
				LedgerHandler:       handler.NewLedgerHandler(c.ledgerRepo),
				PendingOrderHandler: handler.NewPendingOrderHandler(c.pendingRepo, cfg.Reconcile.StaleAfter),
				RedisClient:         c.idempotencyClient(),
				NewRelicApp:         c.nrApp,
				Registry:            c.registry,
				Logger:              log,
			})
			server := &http.Server{
				Addr:         ":" + cfg.Server.Port,
				Handler:      router,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			serverErr := make(chan error, 1)
			go func() {
				log.Info().Str("port", cfg.Server.Port).Msg("starting ops server")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			schedDone := make(chan struct{})
			go func() {
				defer close(schedDone)
				if noSchedule {
					<-ctx.Done()
					return
				}
				sched.Run(ctx)
			}()

			select {
			case <-ctx.Done():
				log.Info().Msg("shutting down")
			case err := <-serverErr:
				stop()
				<-schedDone
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server forced to shutdown")
			}
			<-schedDone
			log.Info().Msg("reconciler exited")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "serve the ops API without running scheduled cycles")
	return cmd
}
