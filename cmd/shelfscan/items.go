package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/inventory"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List and edit inventory items",
	}
	cmd.AddCommand(newItemsListCommand(ctx))
	cmd.AddCommand(newItemsAddCommand(ctx))
	cmd.AddCommand(newItemsRemoveCommand(ctx))
	return cmd
}

func newItemsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show every stocked item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(_ context.Context, rt *app.Runtime) error {
				items := rt.Inventory.List()
				out := cmd.OutOrStdout()
				if asJSON {
					if items == nil {
						items = []inventory.Item{}
					}
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(items)
				}
				if len(items) == 0 {
					fmt.Fprintln(out, "Inventory is empty")
					return nil
				}
				fmt.Fprintln(out, renderTable(out, itemHeaders(), itemRows(items), itemAligns()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print items as JSON")
	return cmd
}

func newItemsAddCommand(ctx *commandContext) *cobra.Command {
	var barcode, name string
	var quantity int
	var price float64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item by barcode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				item, err := rt.Inventory.Add(c, inventory.Item{
					Barcode:  barcode,
					Name:     name,
					Quantity: quantity,
					Price:    price,
				})
				if err != nil {
					return fmt.Errorf("%s", app.Describe(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) as %s\n", item.Name, item.Barcode, item.Reference)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&barcode, "barcode", "", "Barcode of the item")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "Quantity in stock")
	cmd.Flags().Float64Var(&price, "price", 0, "Unit price")
	_ = cmd.MarkFlagRequired("barcode")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newItemsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <reference|barcode>",
		Aliases: []string{"remove"},
		Short:   "Remove an item by reference or barcode",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				ref := args[0]
				if item, ok := rt.Inventory.FindByBarcode(ref); ok {
					ref = item.Reference
				}
				removed, err := rt.Inventory.Remove(c, ref)
				if errors.Is(err, inventory.ErrNotFound) {
					return fmt.Errorf("no item with reference or barcode %q", args[0])
				}
				if err != nil {
					return fmt.Errorf("%s", app.Describe(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", removed.Name, removed.Barcode)
				return nil
			})
		},
	}
}

func itemHeaders() []string {
	return []string{"Reference", "Barcode", "Name", "Qty", "Price", "Updated"}
}

func itemAligns() []columnAlignment {
	return []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
}

func itemRows(items []inventory.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		ref := item.Reference
		if len(ref) > 8 {
			ref = ref[:8]
		}
		rows = append(rows, []string{
			ref,
			item.Barcode,
			item.Name,
			humanize.Comma(int64(item.Quantity)),
			strconv.FormatFloat(item.Price, 'f', 2, 64),
			humanize.Time(item.UpdatedAt),
		})
	}
	return rows
}
