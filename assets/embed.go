package assets

import (
	"embed"
	"io/fs"
)

//go:embed flags
var files embed.FS

// Flags returns the bundled flag set laid out as <region>/<country>.png.
// It is used whenever no FLAGS_DIR is configured.
func Flags() fs.FS {
	sub, err := fs.Sub(files, "flags")
	if err != nil {
		// "flags" is embedded above, so Sub cannot fail.
		panic(err)
	}
	return sub
}
