package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ahrav/go-aipi/infrastructure/api"
	"github.com/ahrav/go-aipi/infrastructure/archive"
	"github.com/ahrav/go-aipi/infrastructure/metrics"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			mode := cfg.Mode()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := klog.FromContext(ctx)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			collector := metrics.NewPrometheusMetrics(reg)

			svc, err := root.service(ctx, cfg, collector)
			if err != nil {
				return err
			}
			opts := []api.Option{
				api.WithMetrics(collector),
				api.WithGatherer(reg),
				api.WithDefaultMode(mode),
			}
			if cfg.Archive.Path != "" {
				store, err := archive.Open(ctx, cfg.Archive.Path)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				opts = append(opts, api.WithReleases(store))
			}

			// Requests retry the load and answer 503 until the source recovers.
			if snap, err := svc.Snapshot(ctx); err != nil {
				log.Error(err, "initial dataset load failed")
			} else {
				log.Info("dataset loaded", "providers", snap.Index.Len(), "version", snap.Version)
			}

			log.Info("serving API", "addr", cfg.Server.Addr, "mode", mode)
			return api.NewServer(svc, opts...).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overriding the configuration")
	return cmd
}
