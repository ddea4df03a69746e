package http

import (
	"net/http"

	"equilo/internal/core"
	"equilo/internal/period"
)

// handleSummary serves the settlement summary of a place for the
// requesting member. Query parameters: period=weekly|fortnightly
// (default weekly), week_start=monday|sunday (default monday) and
// end=YYYY-MM-DD to anchor a historical window.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	kind, err := period.ParseKind(q.Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	weekStart, err := period.ParseWeekStart(q.Get("week_start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var anchorEnd *core.Date
	if end := q.Get("end"); end != "" {
		parsed, err := core.ParseDate(end)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			return
		}
		anchorEnd = &parsed
	}

	summary, err := s.svc.Summaries.Summarize(r.Context(), placeID, userID(r), kind, weekStart, anchorEnd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
