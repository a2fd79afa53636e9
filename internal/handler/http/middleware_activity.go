package http

import "net/http"

// withActivity marks the daemon busy so background migration ticks wait for
// a quiet period.
func (h *Handler) withActivity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.activity != nil {
			h.activity.Touch()
		}
		next.ServeHTTP(w, r)
	})
}
