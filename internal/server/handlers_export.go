package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exporter == nil {
		jsonError(w, "export is not enabled", http.StatusNotImplemented)
		return
	}
	// only from -> from..today, only to -> beginning..to, none -> all
	var fromPtr, toPtr *time.Time
	if fd := strings.TrimSpace(r.URL.Query().Get("from")); fd != "" {
		t, err := time.Parse("2006-01-02", fd)
		if err != nil {
			jsonError(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		fromPtr = &t
	}
	if td := strings.TrimSpace(r.URL.Query().Get("to")); td != "" {
		t, err := time.Parse("2006-01-02", td)
		if err != nil {
			jsonError(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		toPtr = &t
	}

	xlsx, err := s.deps.Exporter.ExportCauseListXLSX(r.Context(), fromPtr, toPtr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="cause-list-%s.xlsx"`, time.Now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}
