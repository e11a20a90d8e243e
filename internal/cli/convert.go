package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tingold/orb-geopackage/fgb"
)

type convertOpts struct {
	output      string
	name        string
	description string
	srs         int
	noIndex     bool
	idColumn    string
}

func newConvertCmd() *cobra.Command {
	opts := convertOpts{srs: 4326, idColumn: fgb.DefaultIDColumn}

	cmd := &cobra.Command{
		Use:   "convert <input.geojson>",
		Short: "Convert a GeoJSON FeatureCollection to an indexed FlatGeobuf table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input with .fgb)")
	cmd.Flags().StringVar(&opts.name, "name", "", "layer name (default: input base name)")
	cmd.Flags().StringVar(&opts.description, "description", "", "layer description")
	cmd.Flags().IntVar(&opts.srs, "srs", opts.srs, "EPSG code of the coordinates: 4326 or 3857")
	cmd.Flags().BoolVar(&opts.noIndex, "no-index", false, "leave out the spatial index")
	cmd.Flags().StringVar(&opts.idColumn, "id-column", opts.idColumn, "property column holding feature ids, empty for none")
	return cmd
}

func runConvert(ctx context.Context, input string, opts *convertOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".fgb"
	}

	wopts := fgb.DefaultOptions()
	wopts.Name = opts.name
	if wopts.Name == "" {
		wopts.Name = base
	}
	wopts.Description = opts.description
	wopts.IncludeIndex = !opts.noIndex
	wopts.IDColumn = opts.idColumn
	switch opts.srs {
	case 4326:
		wopts.CRS = fgb.WGS84()
	case 3857:
		wopts.CRS = fgb.WebMercator()
	default:
		return fmt.Errorf("unsupported srs %d", opts.srs)
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := fgb.WriteGeoJSON(f, data, wopts); err != nil {
		_ = f.Close()
		_ = os.Remove(output)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	prog.done("converted", "input", input, "output", output)
	return nil
}
