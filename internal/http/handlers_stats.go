package http

import (
	"fmt"
	"net/http"
	"strings"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	stats, err := s.stats.ComputeStats(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	export, err := s.export.ExportCSV(r.Context(),
		strings.TrimSpace(q.Get("startDate")),
		strings.TrimSpace(q.Get("endDate")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.Content))
}
