package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"tribuna.app/internal/checkout"
)

func checkoutStatus(s string) checkout.TicketStatus {
	return checkout.TicketStatus(s)
}

// handleArchiveTickets lists durable purchase records, staff-only.
func (a *API) handleArchiveTickets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requireRole(w, r, "staff", "admin") {
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 1000 {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = v
	}
	tickets, err := a.archive.ListTickets(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tickets})
}

// handleArchiveRefresh derives past status for kicked-off matches.
func (a *API) handleArchiveRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.requireRole(w, r, "staff", "admin") {
		return
	}
	n, err := a.archive.RefreshStatuses(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": n})
}
