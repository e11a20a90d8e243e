package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/tingold/orb-geopackage/fgb"
	"github.com/tingold/orb-geopackage/tiles"
)

type renderOpts struct {
	tile          string
	output        string
	config        string
	styles        string
	srs           int
	countFallback bool
}

func newRenderCmd() *cobra.Command {
	opts := renderOpts{srs: 4326}

	cmd := &cobra.Command{
		Use:   "render <features.fgb|features.geojson>",
		Short: "Render one z/x/y tile of a feature table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.tile, "tile", "t", "0/0/0", "tile as z/x/y")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output image (default: z-x-y.<format>)")
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "renderer config (TOML)")
	cmd.Flags().StringVarP(&opts.styles, "styles", "s", "", "style sheet (TOML)")
	cmd.Flags().IntVar(&opts.srs, "srs", opts.srs, "EPSG code of GeoJSON input coordinates")
	cmd.Flags().BoolVar(&opts.countFallback, "count-fallback", false, "draw the feature count for tiles over the feature maximum")
	return cmd
}

// parseTile parses "z/x/y".
func parseTile(s string) (*tiles.TileRequest, error) {
	var x, y uint32
	var z int
	if n, err := fmt.Sscanf(s, "%d/%d/%d", &z, &x, &y); err != nil || n != 3 {
		return nil, fmt.Errorf("invalid tile %q, want z/x/y", s)
	}
	if z < 0 || z > 30 || uint64(x) >= 1<<uint(z) || uint64(y) >= 1<<uint(z) {
		return nil, fmt.Errorf("tile %q out of range", s)
	}
	return tiles.NewTileRequest(x, y, z), nil
}

// openSource opens a feature table by file extension.
func openSource(path string, srs int) (tiles.FeatureSource, io.Closer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fgb":
		t, err := fgb.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return t, t, nil
	case ".geojson", ".json":
		proj, err := tiles.ProjectionForSRS(int32(srs))
		if err != nil {
			return nil, nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		src, err := tiles.LoadGeoJSON(data, proj)
		if err != nil {
			return nil, nil, err
		}
		return src, nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unsupported feature file %q", path)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newTileRenderer(path string, opts *renderOpts, logger *log.Logger) (*tiles.Renderer, io.Closer, error) {
	cfg := tiles.DefaultConfig()
	if opts.config != "" {
		c, err := tiles.LoadConfig(opts.config)
		if err != nil {
			return nil, nil, err
		}
		cfg = c
	}

	var styles tiles.StyleMappings
	if opts.styles != "" {
		table, err := tiles.LoadStyleSheet(opts.styles)
		if err != nil {
			return nil, nil, err
		}
		styles = table
	}

	src, closer, err := openSource(path, opts.srs)
	if err != nil {
		return nil, nil, err
	}

	ropts := []tiles.Option{tiles.WithLogger(logger)}
	if opts.countFallback {
		ropts = append(ropts, tiles.WithFallback(tiles.NewCountTile()))
	}
	r, err := tiles.NewRenderer(src, styles, cfg, ropts...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return r, closer, nil
}

func runRender(ctx context.Context, input string, opts *renderOpts) (err error) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	req, err := parseTile(opts.tile)
	if err != nil {
		return err
	}

	r, closer, err := newTileRenderer(input, opts, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closer.Close()) }()

	data, err := r.RenderTile(req)
	if err != nil {
		return err
	}
	if data == nil {
		logger.Warn("empty tile, nothing written", "tile", opts.tile)
		return nil
	}

	output := opts.output
	if output == "" {
		output = fmt.Sprintf("%d-%d-%d.%s", req.Zoom, req.X, req.Y, r.Config().Format)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}

	prog.done("rendered", "tile", opts.tile, "output", output, "bytes", len(data))
	return nil
}
