package metrics

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// responseEnvelope mirrors the small JSON wrapper the teacher uses for
// internal aggregate endpoints (data/error, never both).
type responseEnvelope struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Handler exposes GET /metrics/summary?window_days=N for operator
// visibility, grounded on the teacher's admin_handlers.go pattern of
// exposing an internal aggregate as a small net/http handler.
func (r *Recorder) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		windowDays := 7
		if v := req.URL.Query().Get("window_days"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				windowDays = n
			}
		}

		summary, err := r.Summarize(req.Context(), windowDays)
		if err != nil {
			log.Printf("[Metrics] summarize failed: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(responseEnvelope{Error: err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responseEnvelope{Data: summary})
	}
}
