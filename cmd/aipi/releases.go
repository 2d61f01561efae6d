package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-aipi/infrastructure/archive"
	"github.com/ahrav/go-aipi/internal/domain"
	"github.com/ahrav/go-aipi/internal/ports"
)

func newReleasesCmd(root *rootOptions) *cobra.Command {
	var (
		limit       int
		archivePath string
	)
	cmd := &cobra.Command{
		Use:   "releases [tag]",
		Short: "List archived releases, or show one release",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			if archivePath == "" {
				archivePath = cfg.Archive.Path
			}
			if archivePath == "" {
				return fmt.Errorf("%w: no release archive configured", domain.ErrInvalidConfiguration)
			}

			store, err := archive.Open(cmd.Context(), archivePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				rel, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeRelease(cmd.OutOrStdout(), rel)
			}
			rels, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeReleases(cmd.OutOrStdout(), rels)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of releases to list, 0 for all")
	cmd.Flags().StringVar(&archivePath, "archive-path", "", "release archive database, overriding the configuration")
	return cmd
}

func writeReleases(w io.Writer, rels []ports.Release) error {
	if len(rels) == 0 {
		_, err := fmt.Fprintln(w, "No releases archived.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tGENERATED\tPROVIDERS\tDATASET")
	for _, r := range rels {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Tag, r.GeneratedUTC.UTC().Format(time.RFC3339), r.Providers, r.DatasetHash)
	}
	return tw.Flush()
}

func writeRelease(w io.Writer, r ports.Release) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Tag:\t%s\n", r.Tag)
	fmt.Fprintf(tw, "Generated:\t%s\n", r.GeneratedUTC.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Providers:\t%d\n", r.Providers)
	fmt.Fprintf(tw, "Dataset:\t%s\n", r.DatasetHash)
	fmt.Fprintf(tw, "Source version:\t%s\n", r.SourceVersion)

	for _, name := range slices.Sorted(maps.Keys(r.Documents)) {
		fmt.Fprintf(tw, "Document:\t%s (%d bytes)\n", name, len(r.Documents[name]))
	}
	return tw.Flush()
}
