// Package frontend embeds the built webview bundle.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var dist embed.FS

// Assets returns the bundle rooted at dist/.
func Assets() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
