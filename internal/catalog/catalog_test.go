package catalog

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sort"
	"testing"
	"testing/fstest"

	"github.com/robalobadob/flagguessr/assets"
	"github.com/robalobadob/flagguessr/internal/database"
)

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func openCatalog(t *testing.T, flags fstest.MapFS) *Catalog {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "flags.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c := New(db, flags)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c
}

func indexed(t *testing.T, c *Catalog) []string {
	t.Helper()
	rows, err := c.db.Query(`SELECT country || '/' || region FROM flags ORDER BY country`)
	if err != nil {
		t.Fatalf("query flags: %v", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, s)
	}
	return out
}

func TestSyncFollowsFlagDirectory(t *testing.T) {
	red := pngBytes(t, color.RGBA{R: 255, A: 255})
	flags := fstest.MapFS{
		"europe/italy.png": {Data: red},
		"asia/japan.png":   {Data: red},
		"readme.txt":       {Data: []byte("ignored")},
		"loose.png":        {Data: red},
	}
	c := openCatalog(t, flags)

	if got := indexed(t, c); len(got) != 2 || got[0] != "italy/europe" || got[1] != "japan/asia" {
		t.Fatalf("unexpected index after first sync: %v", got)
	}

	delete(flags, "asia/japan.png")
	flags["europe/france.png"] = &fstest.MapFile{Data: red}

	st, err := c.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if st.Added != 1 || st.Removed != 1 || st.Total != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
	if got := indexed(t, c); len(got) != 2 || got[0] != "france/europe" || got[1] != "italy/europe" {
		t.Errorf("unexpected index after second sync: %v", got)
	}
}

func TestDuplicateCountryKeepsFirstRegion(t *testing.T) {
	red := pngBytes(t, color.RGBA{R: 255, A: 255})
	c := openCatalog(t, fstest.MapFS{
		"asia/georgia.png":   {Data: red},
		"europe/Georgia.png": {Data: red},
		"europe/italy.png":   {Data: red},
	})

	if got := indexed(t, c); len(got) != 2 || got[0] != "georgia/asia" || got[1] != "italy/europe" {
		t.Fatalf("unexpected index: %v", got)
	}

	st, err := c.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if st.Added != 0 || st.Removed != 0 || st.Total != 2 {
		t.Errorf("expected a stable index, got %+v", st)
	}
}

func TestLoadCountriesByMap(t *testing.T) {
	red := pngBytes(t, color.RGBA{R: 255, A: 255})
	c := openCatalog(t, fstest.MapFS{
		"europe/italy.png":        {Data: red},
		"Europe/France.png":       {Data: red},
		"africa/sierra_leone.png": {Data: red},
		"oceania/palau.png":       {Data: red},
	})
	ctx := context.Background()

	global, err := c.LoadCountries(ctx, "global")
	if err != nil {
		t.Fatalf("load global: %v", err)
	}
	if len(global) != 4 {
		t.Errorf("expected 4 countries, got %v", global)
	}
	if global["sierra leone"] != "africa" {
		t.Errorf("expected underscores to become spaces, got %v", global)
	}

	europe, err := c.LoadCountries(ctx, "EUROPE")
	if err != nil {
		t.Fatalf("load europe: %v", err)
	}
	keys := make([]string, 0, len(europe))
	for k := range europe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "france" || keys[1] != "italy" {
		t.Errorf("unexpected europe countries %v", keys)
	}

	none, err := c.LoadCountries(ctx, "antarctica")
	if err != nil || len(none) != 0 {
		t.Errorf("expected no countries, got %v (%v)", none, err)
	}
}

func TestLoadFlagImagesScalesAndSkipsBroken(t *testing.T) {
	flags := fstest.MapFS{
		"europe/italy.png":  {Data: pngBytes(t, color.RGBA{G: 140, A: 255})},
		"europe/france.png": {Data: []byte("not a png")},
	}
	c := openCatalog(t, flags)
	ctx := context.Background()

	countries, _ := c.LoadCountries(ctx, "europe")
	imgs, err := c.LoadFlagImages(ctx, countries, image.Pt(30, 20))
	if err != nil {
		t.Fatalf("load images: %v", err)
	}
	if len(imgs) != 1 {
		t.Fatalf("expected only italy to load, got %d images", len(imgs))
	}
	if got := imgs["italy"].Bounds().Size(); got != image.Pt(30, 20) {
		t.Errorf("expected 30x20, got %v", got)
	}
}

func TestScaleKeepsImageForZeroSize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	if got := Scale(src, image.Point{}); got != src {
		t.Error("expected the source image back")
	}
}

func TestEmbeddedFlagSet(t *testing.T) {
	db, err := database.Open(database.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	c := New(db, assets.Flags())
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	regions, err := c.Regions(ctx)
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	for _, r := range []string{"africa", "america", "asia", "europe", "oceania"} {
		if regions[r] == 0 {
			t.Errorf("expected bundled flags for %s, got %v", r, regions)
		}
	}

	countries, _ := c.LoadCountries(ctx, "europe")
	imgs, err := c.LoadFlagImages(ctx, countries, image.Pt(40, 24))
	if err != nil {
		t.Fatalf("load images: %v", err)
	}
	if len(imgs) != len(countries) {
		t.Errorf("expected every bundled flag to decode, got %d of %d", len(imgs), len(countries))
	}
}
