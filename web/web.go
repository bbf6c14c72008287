// Package web embeds the browser front end.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var files embed.FS

// Static returns the front-end files rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		// Only fails if the embed directive and the path disagree.
		panic(err)
	}
	return sub
}
