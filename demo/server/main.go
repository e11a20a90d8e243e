package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	geopackage "github.com/tingold/orb-geopackage"
	"github.com/tingold/orb-geopackage/fgb"
	"github.com/tingold/orb-geopackage/tiles"
	"golang.org/x/sync/singleflight"
)

type City struct {
	Name       string
	Country    string
	Longitude  float64
	Latitude   float64
	Population int
	Capital    bool
}

var cities = []City{
	{"Tokyo", "Japan", 139.6917, 35.6895, 13960000, true},
	{"New York", "United States", -73.9857, 40.7484, 8336817, false},
	{"London", "United Kingdom", -0.1276, 51.5074, 8982000, true},
	{"Paris", "France", 2.3522, 48.8566, 2161000, true},
	{"Beijing", "China", 116.4074, 39.9042, 21540000, true},
	{"Moscow", "Russia", 37.6173, 55.7558, 12615000, true},
	{"São Paulo", "Brazil", -46.6333, -23.5505, 12300000, false},
	{"Mumbai", "India", 72.8777, 19.0760, 12400000, false},
	{"Los Angeles", "United States", -118.2437, 34.0522, 3971883, false},
	{"Shanghai", "China", 121.4737, 31.2304, 24870000, false},
	{"Istanbul", "Turkey", 28.9784, 41.0082, 15520000, false},
	{"Buenos Aires", "Argentina", -58.3816, -34.6037, 3075646, true},
	{"Cairo", "Egypt", 31.2357, 30.0444, 10230000, true},
	{"Sydney", "Australia", 151.2093, -33.8688, 5312000, false},
	{"Berlin", "Germany", 13.4050, 52.5200, 3669491, true},
}

// tileServer renders tiles on demand. The renderer caches are not safe for
// concurrent use, so renders are serialized and identical requests share
// one render.
type tileServer struct {
	logger   *log.Logger
	mu       sync.Mutex
	renderer *tiles.Renderer
	group    singleflight.Group
}

func (s *tileServer) render(z int, x, y uint32) ([]byte, error) {
	key := fmt.Sprintf("%d/%d/%d", z, x, y)
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.renderer.RenderTile(tiles.NewTileRequest(x, y, z))
	})
	if shared {
		s.logger.Debug("shared render", "tile", key)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *tileServer) handleTile(w http.ResponseWriter, r *http.Request) {
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	x, errX := strconv.ParseUint(chi.URLParam(r, "x"), 10, 32)
	y, errY := strconv.ParseUint(chi.URLParam(r, "y"), 10, 32)
	if errZ != nil || errX != nil || errY != nil || z < 0 || z > 22 || x >= 1<<uint(z) || y >= 1<<uint(z) {
		http.Error(w, "invalid tile", http.StatusBadRequest)
		return
	}

	data, err := s.render(z, uint32(x), uint32(y))
	if err != nil {
		s.logger.Error("render failed", "tile", r.URL.Path, "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, TimeFormat: "15:04:05.00"})

	fc := geojson.NewFeatureCollection()
	for _, city := range cities {
		f := geojson.NewFeature(orb.Point{city.Longitude, city.Latitude})
		f.Properties = geojson.Properties{
			"name":       city.Name,
			"country":    city.Country,
			"population": city.Population,
			"capital":    city.Capital,
		}
		fc.Append(f)
	}

	var buf bytes.Buffer
	opts := fgb.DefaultOptions()
	opts.Name = "world_cities"
	opts.Description = "Major world cities"
	if err := fgb.WriteFeatures(&buf, fc, opts); err != nil {
		logger.Fatal("failed to create FlatGeobuf", "err", err)
	}
	data := buf.Bytes()

	table, err := fgb.OpenData(data)
	if err != nil {
		logger.Fatal("failed to open FlatGeobuf", "err", err)
	}

	// Capitals are drawn red and larger.
	styles := tiles.NewStyleTable()
	red, width := tiles.MustColor("#C0392BFF"), 12.0
	capital := &tiles.StyleRow{ID: 1, Name: "capital", Color: &red, Width: &width}
	if err := styles.AddStyle(capital); err != nil {
		logger.Fatal("bad style", "err", err)
	}
	for f := range table.Features() {
		if f != nil && f.Properties["capital"] == true {
			if err := styles.SetFeatureStyle(f.ID, geopackage.GeometryTypePoint, capital.ID); err != nil {
				logger.Warn("style not applied", "id", f.ID, "err", err)
			}
		}
	}

	renderer, err := tiles.NewRenderer(table, styles, nil,
		tiles.WithLogger(logger),
		tiles.WithFallback(tiles.NewCountTile()))
	if err != nil {
		logger.Fatal("failed to create renderer", "err", err)
	}

	srv := &tileServer{logger: logger, renderer: renderer}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/data.fgb", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write(data)
	})
	r.Get("/tiles/{z}/{x}/{y}.png", srv.handleTile)

	logger.Info("server starting", "addr", "http://localhost:8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}
