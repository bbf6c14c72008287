package handlers

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// HomeHandler serves index.html for "/" and /name as name.html when such a
// page exists in pages; everything else is a 404.
func HomeHandler(pages fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index"
		}

		page, err := fs.ReadFile(pages, name+".html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(page)
		}
	}
}

// StaticHandler serves front-end assets under /static/.
func StaticHandler(files fs.FS) http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(files)))
}
