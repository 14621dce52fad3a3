package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/relab/qbft/internal/config"
	"github.com/relab/qbft/internal/profiling"
	"github.com/relab/qbft/internal/sim"
	"github.com/relab/qbft/logging"
)

func runSim(ctx context.Context, out io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.NewViper()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := logging.New("cli")
	logger.Infof("Running %v", cfg)

	stopProfilers, err := profiling.Start(profiling.InDir(cfg.Output, cfg.CpuProfile, cfg.MemProfile, cfg.Trace, cfg.FgProfProfile))
	if err != nil {
		return fmt.Errorf("failed to start profilers: %w", err)
	}
	defer func() { err = multierr.Append(err, stopProfilers()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() { err = multierr.Append(err, stop()) }()
	}

	group, err := sim.New(cfg.SimConfig(), sim.WithRegisterer(reg))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()
	res, runErr := group.Run(ctx)

	for _, d := range res.Decisions {
		fmt.Fprintln(out, d)
	}
	fmt.Fprintf(out, "network: %d delivered, %d dropped; validations: %d completed, %d dropped\n",
		res.Network.Delivered, res.Network.Dropped, res.Processor.Completed, res.Processor.Dropped)
	return runErr
}

// serveMetrics serves the metrics in reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger logging.Logger) (stop func() error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server failed: %v", err)
		}
	}()
	logger.Infof("Serving metrics on http://%s/metrics", addr)
	return func() error {
		return srv.Shutdown(context.Background())
	}
}
