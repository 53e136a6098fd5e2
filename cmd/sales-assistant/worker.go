package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-assistant/internal/common/camunda"
	"sales-assistant/internal/common/config"
	"sales-assistant/internal/common/retry"
	"sales-assistant/internal/server"

	promptdispatch "sales-assistant/internal/workers/prompt-dispatch"

	"github.com/spf13/cobra"
)

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Zeebe job worker for " + promptdispatch.TaskType,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if !cfg.Camunda.Enabled {
				return fmt.Errorf("camunda.enabled is false; set it and camunda.broker_address to run the worker")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, opts.log)
			if err != nil {
				return err
			}

			zb, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      config.GetDuration(cfg.Camunda.Timeout),
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
				Retry:                  retry.Policy{MaxAttempts: 10, MinWait: 2 * time.Second},
			})
			if err != nil {
				a.Close(context.Background())
				return fmt.Errorf("connect to zeebe: %w", err)
			}
			opts.log.Info("Zeebe client connected successfully", map[string]interface{}{"broker": cfg.Camunda.BrokerAddress})

			wc := promptdispatch.LoadConfig(cfg)
			var w *camunda.CamundaWorker
			if config.IsWorkerEnabled(cfg, promptdispatch.WorkerName) {
				handler := promptdispatch.NewHandler(wc, a.assistant, opts.log)
				w = camunda.NewWorker(zb.GetClient(), camunda.WorkerOptions{
					TaskType:      promptdispatch.TaskType,
					MaxJobsActive: wc.MaxJobsActive,
					Timeout:       wc.Timeout,
				}, handler, opts.log)
			} else {
				opts.log.Info("worker disabled", map[string]interface{}{"taskType": promptdispatch.TaskType})
			}

			checks := map[string]server.ReadinessCheck{"zeebe": zb.HealthCheck}
			for name, check := range a.checks {
				checks[name] = check
			}
			srv := server.New(a.assistant, serverOptions(cfg, checks), opts.log)

			return runUntilSignal(ctx, opts, srv, func(ctx context.Context) {
				if w != nil {
					w.Stop()
				}
				if err := zb.Close(); err != nil {
					opts.log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
				}
				a.Close(ctx)
			})
		},
	}
}
