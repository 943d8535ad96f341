// internal/catalog/catalog.go
//
// Flag catalog: resolves a map name to its countries and loads their flags.
//
// Responsibilities:
//   - Index a flag directory into the SQLite `flags` table (Sync).
//   - Answer map queries: "global" is every country, any other map is a region.
//   - Decode and scale flag images on demand.
//
// Flag directory layout:
//   <region>/<country>.png      e.g. europe/italy.png, africa/sierra_leone.png
//
// Naming rules:
//   • Region and country are lowercased.
//   • Underscores in file names become spaces in the country name, so the
//     player types "sierra leone".
//
// The directory is FLAGS_DIR when configured, otherwise the embedded set in
// the assets package. Sync adds new files and drops rows whose file vanished.

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"github.com/robalobadob/flagguessr/internal/database"
)

// GlobalMap selects every indexed country.
const GlobalMap = "global"

// Catalog is a game.FlagCatalog backed by SQLite and a flag directory.
type Catalog struct {
	db    *sql.DB
	flags fs.FS
}

// New returns a Catalog indexing flags into db.
func New(db *sql.DB, flags fs.FS) *Catalog {
	return &Catalog{db: db, flags: flags}
}

// SyncStats summarises one Sync.
type SyncStats struct {
	Added   int
	Removed int
	Total   int
}

type entry struct {
	region string
	file   string
}

// Initialize applies migrations and syncs the index with the flag directory.
func (c *Catalog) Initialize(ctx context.Context) error {
	if err := database.Migrate(ctx, c.db); err != nil {
		return err
	}
	st, err := c.Sync(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("added", st.Added).Int("removed", st.Removed).Int("total", st.Total).Msg("flag index synced")
	return nil
}

// Sync brings the flags table in line with the flag directory.
func (c *Catalog) Sync(ctx context.Context) (SyncStats, error) {
	var st SyncStats
	onDisk, err := c.scan()
	if err != nil {
		return st, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return st, err
	}
	defer func() { _ = tx.Rollback() }()

	indexed := map[string]entry{}
	rows, err := tx.QueryContext(ctx, `SELECT country, region, file FROM flags`)
	if err != nil {
		return st, fmt.Errorf("read flags: %w", err)
	}
	for rows.Next() {
		var country string
		var e entry
		if err := rows.Scan(&country, &e.region, &e.file); err != nil {
			rows.Close()
			return st, err
		}
		indexed[country] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	for country, e := range indexed {
		if cur, ok := onDisk[country]; ok && cur == e {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM flags WHERE country=?`, country); err != nil {
			return st, fmt.Errorf("remove %s: %w", country, err)
		}
		st.Removed++
	}
	for country, e := range onDisk {
		if cur, ok := indexed[country]; ok && cur == e {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO flags (country, region, file) VALUES (?, ?, ?)`,
			country, e.region, e.file,
		); err != nil {
			return st, fmt.Errorf("add %s: %w", country, err)
		}
		st.Added++
	}
	if err := tx.Commit(); err != nil {
		return st, err
	}
	st.Total = len(onDisk)
	return st, nil
}

// scan walks the flag directory and keys every <region>/<country>.png by country.
// When a country appears under several regions the first one in walk order wins.
func (c *Catalog) scan() (map[string]entry, error) {
	out := map[string]entry{}
	err := fs.WalkDir(c.flags, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".png") {
			return nil
		}
		region, file := path.Split(p)
		region = strings.Trim(region, "/")
		if region == "" || strings.Contains(region, "/") {
			return nil
		}
		country := countryName(file)
		if prev, ok := out[country]; ok {
			log.Warn().Str("country", country).Str("kept", prev.file).Str("skipped", p).Msg("duplicate flag")
			return nil
		}
		out[country] = entry{region: strings.ToLower(region), file: p}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk flags: %w", err)
	}
	return out, nil
}

func countryName(file string) string {
	name := strings.TrimSuffix(file, path.Ext(file))
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}

// LoadCountries maps every country of mapName to its region.
func (c *Catalog) LoadCountries(ctx context.Context, mapName string) (map[string]string, error) {
	mapName = strings.ToLower(strings.TrimSpace(mapName))
	var (
		rows *sql.Rows
		err  error
	)
	if mapName == GlobalMap {
		rows, err = c.db.QueryContext(ctx, `SELECT country, region FROM flags`)
	} else {
		rows, err = c.db.QueryContext(ctx, `SELECT country, region FROM flags WHERE region=?`, mapName)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var country, region string
		if err := rows.Scan(&country, &region); err != nil {
			return nil, err
		}
		out[country] = region
	}
	return out, rows.Err()
}

// LoadFlagImages decodes the flag of each country and scales it to size.
// Flags that cannot be read are logged and left out.
func (c *Catalog) LoadFlagImages(ctx context.Context, countries map[string]string, size image.Point) (map[string]image.Image, error) {
	out := make(map[string]image.Image, len(countries))
	for country := range countries {
		var file string
		err := c.db.QueryRowContext(ctx, `SELECT file FROM flags WHERE country=?`, country).Scan(&file)
		if err == sql.ErrNoRows {
			log.Warn().Str("country", country).Msg("flag not indexed")
			continue
		}
		if err != nil {
			return nil, err
		}

		img, err := c.loadImage(file, size)
		if err != nil {
			log.Warn().Err(err).Str("country", country).Str("file", file).Msg("load flag")
			continue
		}
		out[country] = img
	}
	return out, nil
}

func (c *Catalog) loadImage(file string, size image.Point) (image.Image, error) {
	f, err := c.flags.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return Scale(src, size), nil
}

// Scale resizes img to size. A non-positive size returns img unchanged.
func Scale(img image.Image, size image.Point) image.Image {
	if size.X <= 0 || size.Y <= 0 {
		return img
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Regions counts indexed countries per region.
func (c *Catalog) Regions(ctx context.Context) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT region, COUNT(*) FROM flags GROUP BY region`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var region string
		var n int
		if err := rows.Scan(&region, &n); err != nil {
			return nil, err
		}
		out[region] = n
	}
	return out, rows.Err()
}
