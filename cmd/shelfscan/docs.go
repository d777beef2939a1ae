package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/docstore"
)

func newDocsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Inspect the JSON documents behind the load/save API",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				docs, err := rt.Documents.List(c)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(docs) == 0 {
					fmt.Fprintf(out, "No documents (%s store)\n", rt.Documents.Driver())
					return nil
				}
				rows := make([][]string, 0, len(docs))
				for _, d := range docs {
					rows = append(rows, []string{d.Name, humanize.Bytes(uint64(d.Size)), humanize.Time(d.UpdatedAt)})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Name", "Size", "Updated"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Print a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				data, err := rt.Documents.Load(c, args[0])
				if errors.Is(err, docstore.ErrNotFound) {
					return fmt.Errorf("document %q not found", args[0])
				}
				if err != nil {
					return err
				}
				body, err := docstore.Normalize(data)
				if err != nil {
					return fmt.Errorf("document %q: %w", args[0], err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "put <name> [file]",
		Short: "Store a JSON document from a file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 2 {
				file, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer file.Close()
				in = file
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			body, err := docstore.Normalize(raw)
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				if err := rt.Documents.Save(c, args[0], body); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", args[0], humanize.Bytes(uint64(len(body))))
				return nil
			})
		},
	})
	return cmd
}
