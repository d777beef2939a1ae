package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ayusman/shelfscan/internal/app"
)

func newScansCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "Show recently accepted scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				scans, err := rt.DB.Scans().Recent(c, limit)
				if err != nil {
					return fmt.Errorf("read scan history: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(scans) == 0 {
					fmt.Fprintln(out, "No scans recorded")
					return nil
				}
				rows := make([][]string, 0, len(scans))
				for _, s := range scans {
					rows = append(rows, []string{
						s.Barcode,
						s.Format,
						yesNo(s.Existing),
						humanize.Time(s.ScannedAt),
					})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Barcode", "Format", "Stocked", "When"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of scans to show")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
