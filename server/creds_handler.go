package server

import (
	"net/http"

	"github.com/jrsteele09/go-link-server/internal/errors"
)

// CredsHandler returns the raw parsed credential bundle stored under a
// previously issued short code.
func (s *Server) CredsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")

		if s.codes == nil {
			respondError(w, http.StatusNotFound, "code_not_found", nil)
			return
		}

		bundle, err := s.codes.Get(code)
		if errors.Is(err, errors.ErrCodeNotFound) {
			respondError(w, http.StatusNotFound, "code_not_found", nil)
			return
		}
		if err != nil {
			respondErrorDetails(w, http.StatusInternalServerError, "failed to read credentials", err.Error(), nil)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(bundle)
	}
}
