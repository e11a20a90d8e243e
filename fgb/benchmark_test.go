package fgb

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func randomPoints(r *rand.Rand, n int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := 0; i < n; i++ {
		f := geojson.NewFeature(orb.Point{r.Float64()*360 - 180, r.Float64()*170 - 85})
		f.Properties = geojson.Properties{"rank": r.Intn(100)}
		fc.Append(f)
	}
	return fc
}

func benchmarkQuery(b *testing.B, n int, opts *Options) {
	var buf bytes.Buffer
	if err := WriteFeatures(&buf, randomPoints(rand.New(rand.NewSource(42)), n), opts); err != nil {
		b.Fatal(err)
	}
	table, err := OpenData(buf.Bytes())
	if err != nil {
		b.Fatal(err)
	}

	bounds := orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		for _, err := range table.Query(bounds) {
			if err != nil {
				b.Fatal(err)
			}
		}
		// Defeat the memo so every round searches.
		table.last = nil
	}
}

func BenchmarkQuery_PackedIndex_10000(b *testing.B) {
	benchmarkQuery(b, 10000, DefaultOptions())
}

func BenchmarkQuery_MemoryIndex_10000(b *testing.B) {
	opts := DefaultOptions()
	opts.IDColumn = ""
	benchmarkQuery(b, 10000, opts)
}

func BenchmarkWriteFeatures_10000(b *testing.B) {
	fc := randomPoints(rand.New(rand.NewSource(42)), 10000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := WriteFeatures(&buf, fc, nil); err != nil {
			b.Fatal(err)
		}
	}
}
