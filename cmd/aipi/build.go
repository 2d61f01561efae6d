package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ahrav/go-aipi/infrastructure/archive"
	"github.com/ahrav/go-aipi/infrastructure/export"
	"github.com/ahrav/go-aipi/internal/application"
	"github.com/ahrav/go-aipi/internal/domain"
	"github.com/ahrav/go-aipi/internal/ports"
)

// Build artifact names.
const (
	artifactDetail    = "scores_by_indicator.csv"
	artifactProviders = "providers.json"
	artifactMeta      = "meta.json"
	artifactWorkbook  = "aipi.xlsx"
)

func rankingArtifact(m domain.Mode) string { return "providers_ranking_" + string(m) + ".csv" }

type buildOptions struct {
	outDir      string
	archive     bool
	archivePath string
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Aggregate the dataset and write the build artifacts",
		Long: "Aggregate the dataset and write ranking tables per mode, the indicator detail table, " +
			"provider documents, the meta document and a spreadsheet to the output directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			if opts.archivePath == "" {
				opts.archivePath = cfg.Archive.Path
			}
			svc, err := root.service(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			return runBuild(cmd.Context(), svc, opts, time.Now().UTC(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "build", "output directory")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "record the build in the release archive")
	cmd.Flags().StringVar(&opts.archivePath, "archive-path", "", "release archive database, overriding the configuration")
	return cmd
}

func runBuild(ctx context.Context, svc *application.Service, opts *buildOptions, now time.Time, out io.Writer) error {
	log := klog.FromContext(ctx)

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		return err
	}
	idx := snap.Index

	artifacts, meta, err := renderArtifacts(snap, now)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, a := range artifacts {
		path := filepath.Join(opts.outDir, a.name)
		if err := os.WriteFile(path, a.body, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.name, err)
		}
		log.V(1).Info("artifact written", "path", path, "bytes", len(a.body))
	}

	stats := idx.Stats()
	log.Info("build complete", "providers", idx.Len(), "rows", stats.Rows,
		"skipped", stats.SkippedTotal(), "release", meta.ReleaseTag, "out", opts.outDir)

	if opts.archive {
		if opts.archivePath == "" {
			return fmt.Errorf("%w: --archive needs an archive path", domain.ErrInvalidConfiguration)
		}
		if err := archiveBuild(ctx, opts.archivePath, snap, meta, artifacts, now); err != nil {
			return err
		}
		log.Info("release archived", "tag", meta.ReleaseTag, "archive", opts.archivePath)
	}

	_, err = fmt.Fprintf(out, "Build complete -> %s (%d providers, release %s)\n", opts.outDir, idx.Len(), meta.ReleaseTag)
	return err
}

type artifact struct {
	name string
	body []byte
	// archived artifacts are stored with the release.
	archived bool
}

func renderArtifacts(snap *application.Snapshot, now time.Time) ([]artifact, export.Meta, error) {
	idx := snap.Index
	var artifacts []artifact

	for _, m := range domain.Modes {
		var buf bytes.Buffer
		if err := export.WriteTable(&buf, idx.Rankings(m)); err != nil {
			return nil, export.Meta{}, err
		}
		artifacts = append(artifacts, artifact{name: rankingArtifact(m), body: buf.Bytes(), archived: true})
	}

	var detail bytes.Buffer
	if err := export.WriteIndicators(&detail, idx.Rows()); err != nil {
		return nil, export.Meta{}, err
	}
	artifacts = append(artifacts, artifact{name: artifactDetail, body: detail.Bytes()})

	var providers bytes.Buffer
	if err := export.WriteDocument(&providers, idx.Rankings(domain.ModeEvidence), idx.Details(), idx.Classifier()); err != nil {
		return nil, export.Meta{}, err
	}
	artifacts = append(artifacts, artifact{name: artifactProviders, body: providers.Bytes(), archived: true})

	meta := export.BuildMeta(nil, idx.Rows(), now)
	meta.DatasetHash = snap.DatasetHash
	var metaBuf bytes.Buffer
	if err := export.WriteMeta(&metaBuf, meta); err != nil {
		return nil, export.Meta{}, err
	}
	artifacts = append(artifacts, artifact{name: artifactMeta, body: metaBuf.Bytes(), archived: true})

	in := export.WorkbookInput{
		Rankings:   make(map[domain.Mode][]domain.ProviderScore, len(domain.Modes)),
		Rows:       idx.Rows(),
		Classifier: idx.Classifier(),
	}
	for _, m := range domain.Modes {
		in.Rankings[m] = idx.Rankings(m)
	}
	var book bytes.Buffer
	if err := export.WriteWorkbook(&book, in); err != nil {
		return nil, export.Meta{}, err
	}
	artifacts = append(artifacts, artifact{name: artifactWorkbook, body: book.Bytes()})

	return artifacts, meta, nil
}

func archiveBuild(ctx context.Context, path string, snap *application.Snapshot, meta export.Meta, artifacts []artifact, now time.Time) error {
	store, err := archive.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rel := ports.Release{
		Tag:           meta.ReleaseTag,
		DatasetHash:   snap.DatasetHash,
		SourceVersion: snap.Version,
		GeneratedUTC:  now,
		Providers:     snap.Index.Len(),
		Documents:     make(map[string][]byte),
	}
	for _, a := range artifacts {
		if a.archived {
			rel.Documents[a.name] = a.body
		}
	}
	return store.Save(ctx, rel)
}
