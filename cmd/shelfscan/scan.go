package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/inventory"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var imagePath string
	var addName string
	var quantity int
	var price float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan one barcode from the camera or an image file",
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(sigCtx)

			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				var (
					result app.ScanResult
					err    error
				)
				if imagePath != "" {
					img, derr := readImage(imagePath)
					if derr != nil {
						return derr
					}
					result, err = rt.App.ScanImage(c, img)
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "Point the camera at a barcode (Ctrl+C to cancel)...")
					result, err = rt.App.Scan(c)
				}
				if err != nil {
					return fmt.Errorf("%s", app.Describe(err))
				}

				if strings.TrimSpace(addName) != "" {
					if result.Existing {
						return fmt.Errorf("%s: %s", result.Barcode, app.Describe(inventory.ErrDuplicateBarcode))
					}
					item, err := rt.Inventory.Add(c, inventory.Item{
						Barcode:  result.Barcode,
						Name:     addName,
						Quantity: quantity,
						Price:    price,
					})
					if err != nil {
						return fmt.Errorf("%s", app.Describe(err))
					}
					rt.App.ClearPending()
					result.Existing = false
					result.Item = &item
				}

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(result)
				}
				fmt.Fprintf(out, "Barcode: %s (%s)\n", result.Barcode, result.Format)
				switch {
				case result.Item != nil && strings.TrimSpace(addName) != "":
					fmt.Fprintf(out, "Added:   %s x%d [%s]\n", result.Item.Name, result.Item.Quantity, result.Item.Reference)
				case result.Item != nil:
					fmt.Fprintf(out, "Stocked: %s x%d [%s]\n", result.Item.Name, result.Item.Quantity, result.Item.Reference)
				default:
					fmt.Fprintln(out, "Not in inventory yet; add it with --add <name>")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Decode a PNG or JPEG file instead of opening the camera")
	cmd.Flags().StringVar(&addName, "add", "", "Add the scanned barcode to the inventory under this name")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "Quantity used with --add")
	cmd.Flags().Float64Var(&price, "price", 0, "Price used with --add")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func readImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}
