package main

import (
	"context"
	"flag"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ahrav/go-aipi/infrastructure/source"
	"github.com/ahrav/go-aipi/internal/application"
	"github.com/ahrav/go-aipi/internal/ports"
)

var version = "0.1.0"

type rootOptions struct {
	configPath string
	source     string
	meta       string
	mode       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "aipi",
		Short:         "AI Pluralism Index",
		Long:          "Aggregate the AI Pluralism Index dataset into provider scores, rankings and exports.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(klog.NewContext(cmd.Context(), klog.Background()))
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&opts.source, "source", "", "dataset CSV path or http(s) URL, overriding the configuration")
	pf.StringVar(&opts.meta, "meta", "", "meta.json path or http(s) URL, overriding the configuration")
	pf.StringVar(&opts.mode, "mode", "", "scoring mode: evidence or known_only")

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	pf.AddGoFlagSet(klogFlags)

	cmd.AddCommand(
		newBuildCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
		newSensitivityCmd(opts),
		newReleasesCmd(opts),
	)
	return cmd
}

// config loads the configuration file, if any, and applies flag
// overrides.
func (o *rootOptions) config() (application.Config, error) {
	cfg := application.DefaultConfig()
	if o.configPath != "" {
		loaded, err := application.LoadConfig(o.configPath)
		if err != nil {
			return application.Config{}, err
		}
		cfg = loaded
	}

	if o.source != "" {
		if isURL(o.source) {
			cfg.Source.URL, cfg.Source.Path = o.source, ""
		} else {
			cfg.Source.Path, cfg.Source.URL = o.source, ""
		}
	}
	if o.meta != "" {
		if isURL(o.meta) {
			cfg.Source.MetaURL, cfg.Source.MetaPath = o.meta, ""
		} else {
			cfg.Source.MetaPath, cfg.Source.MetaURL = o.meta, ""
		}
	}
	if o.mode != "" {
		cfg.DefaultMode = o.mode
	}

	if err := cfg.Validate(); err != nil {
		return application.Config{}, err
	}
	return cfg, nil
}

// service wires the configured sources into an index service.
func (o *rootOptions) service(ctx context.Context, cfg application.Config, collector ports.MetricsCollector) (*application.Service, error) {
	data, meta := source.FromConfig(cfg.Source, collector)

	svcOpts := []application.ServiceOption{
		application.WithClassifier(cfg.Classifier()),
		application.WithRevalidateAfter(cfg.Source.RevalidateAfter),
	}
	if collector != nil {
		svcOpts = append(svcOpts, application.WithMetrics(collector))
	}
	if meta != nil {
		svcOpts = append(svcOpts, application.WithMetaSource(meta))
	}

	klog.FromContext(ctx).V(1).Info("dataset source configured",
		"location", cfg.Source.Location(), "meta", cfg.Source.MetaLocation(), "remote", cfg.Source.Remote())
	return application.NewService(data, svcOpts...)
}

func isURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
