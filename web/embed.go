// Package web embeds the static viewer for serving from the Go binary.
//
// The web/static/ directory holds a self-contained single-page viewer
// and is embedded at compile-time using go:embed.
//
// Usage in the API server:
//
//	import "github.com/curvewatch/curvewatch/web"
//	fs := web.StaticFS()  // returns io/fs.FS rooted at static/
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed all:static
var dist embed.FS

// StaticFS returns a filesystem rooted at the embedded static/ directory.
// This is ready to use with http.FileServerFS or http.FS.
func StaticFS() fs.FS {
	sub, err := fs.Sub(dist, "static")
	if err != nil {
		log.Fatalf("web.StaticFS: %v", err)
	}
	return sub
}
