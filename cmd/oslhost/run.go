package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/host"
	"github.com/reglet-dev/acpica-osl/infrastructure/hosted"
	oslwazero "github.com/reglet-dev/acpica-osl/infrastructure/wazero"
	osllog "github.com/reglet-dev/acpica-osl/log"
)

// Destinations interpreters pass to AcpiOsRedirectOutput.
const (
	outputStdout uint32 = 1
	outputStderr uint32 = 2
)

func newRunCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <interpreter.wasm>",
		Short:   "Run an interpreter module on a hosted machine.",
		Example: "oslhost run acpica.wasm --config machine.yaml --entry acpi_main --metrics-addr :9100",
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, v, args[0])
		},
	}
	machineFlags(cmd)
	cmd.Flags().String("entry", "acpi_main", "interpreter export to call; it must return ACPI_STATUS")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	cmd.Flags().String("log-level", "", "override the machine's log level")
	return cmd
}

func run(ctx context.Context, v *viper.Viper, wasmPath string) error {
	m, err := loadMachine(v)
	if err != nil {
		return err
	}
	if lvl := v.GetString("log-level"); lvl != "" {
		m.Log.Level = lvl
	}
	logger, err := osllog.New(os.Stderr, m.Log.Level, m.Log.Format)
	if err != nil {
		return err
	}

	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return fmt.Errorf("failed to read interpreter: %w", err)
	}

	metrics := hosted.NewMetrics()
	services, err := hosted.New(*m, hosted.WithLogger(logger), hosted.WithMetrics(metrics))
	if err != nil {
		return err
	}
	registry := osl.Default
	if err := registry.Bind(services, osl.WithMiddleware(services.Middleware()...)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	if addr := v.GetString("metrics-addr"); addr != "" {
		srv := metricsServer(addr, metrics)
		g.Go(func() error {
			logger.InfoContext(ctx, "serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-runCtx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return execute(runCtx, registry, logger, wasmPath, wasmBytes, v.GetString("entry"))
	})
	return g.Wait()
}

// execute brackets one interpreter run with Initialize and Terminate.
func execute(ctx context.Context, registry *osl.Registry, logger *slog.Logger, wasmPath string, wasmBytes []byte, entry string) error {
	if status := registry.Initialize(ctx); !status.IsOK() {
		return fmt.Errorf("initialize: %s", status)
	}
	defer func() {
		if status := registry.Terminate(context.WithoutCancel(ctx)); !status.IsOK() {
			logger.WarnContext(ctx, "terminate failed", "status", status.String())
		}
	}()

	executor, err := host.NewExecutor(ctx,
		host.WithRegistry(registry),
		host.WithLogger(logger),
		host.WithGuestOutput(os.Stdout),
		host.WithAdapterOptions(
			oslwazero.WithOutput(outputStdout, os.Stdout),
			oslwazero.WithOutput(outputStderr, os.Stderr),
		),
	)
	if err != nil {
		return err
	}
	defer executor.Close(context.WithoutCancel(ctx))

	interp, err := executor.LoadInterpreter(ctx, filepath.Base(wasmPath), wasmBytes)
	if err != nil {
		return err
	}
	defer interp.Close(context.WithoutCancel(ctx))

	status, err := interp.CallStatus(ctx, entry)
	if err != nil {
		return fmt.Errorf("%s: %w", entry, err)
	}
	logger.InfoContext(ctx, "interpreter returned", "entry", entry, "status", status.String())
	if !status.IsOK() {
		return fmt.Errorf("%s returned %s", entry, status)
	}
	return nil
}

func metricsServer(addr string, metrics *hosted.Metrics) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.Collectors()...)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
