package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-aipi/internal/application"
)

func newSensitivityCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Compare the scoring modes and ablate each pillar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			svc, err := root.service(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			snap, err := svc.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			report := snap.Index.Sensitivity(cfg.Mode())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeSensitivity(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func writeSensitivity(w io.Writer, report application.SensitivityReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Providers compared:\t%d\n", report.Providers)
	fmt.Fprintf(tw, "Spearman rho (evidence vs known_only):\t%s\n", rhoString(report.Rho))
	for _, a := range report.Ablations {
		fmt.Fprintf(tw, "\nWithout %s (%s):\trho %s\n", a.Dropped, a.Mode, rhoString(a.Rho))
		fmt.Fprintln(tw, "PROVIDER\tRANK\tABLATED\tSHIFT\tAIPI")
		for _, s := range a.Shifts {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%+d\t%.3f\n", s.ProviderName, s.Rank, s.AblatedRank, s.Shift, s.AblatedAIPI)
		}
	}
	return tw.Flush()
}

func rhoString(rho *float64) string {
	if rho == nil {
		return "undefined"
	}
	return fmt.Sprintf("%.3f", *rho)
}
