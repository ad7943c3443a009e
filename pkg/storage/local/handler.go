package local

import (
	"net/http"
	"net/url"
	"strings"
)

// Handler serves stored artifacts at <mount>/<userID>/<fileName>. Mount it
// with the prefix stripped. Directory listings are never served.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		userID, fileName, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		userID, err1 := url.PathUnescape(userID)
		fileName, err2 := url.PathUnescape(fileName)
		if err1 != nil || err2 != nil {
			http.NotFound(w, r)
			return
		}
		target, err := s.path(userID, fileName)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
		http.ServeFile(w, r, target)
	})
}
