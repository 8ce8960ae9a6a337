package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tribuna.app/internal/catalog"
)

func (a *API) handleClubs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	clubs, err := a.catalog.Clubs(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": clubs})
}

// handleClubResource serves a club and its scoped catalog collections:
// /v1/clubs/{id}, /v1/clubs/{id}/products, /v1/clubs/{id}/matches.
func (a *API) handleClubResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/clubs/")
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "club not found")
		return
	}
	clubID := parts[0]

	club, err := a.catalog.ClubByID(r.Context(), clubID)
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}

	if len(parts) == 1 {
		writeJSON(w, http.StatusOK, club)
		return
	}
	switch parts[1] {
	case "products":
		products, err := a.catalog.Products(r.Context(), clubID)
		if err != nil {
			handleCatalogError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": products})
	case "matches":
		matches, err := a.catalog.Matches(r.Context(), clubID)
		if err != nil {
			handleCatalogError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": matches})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	clubID := strings.TrimSpace(r.URL.Query().Get("club_id"))
	items, err := a.catalog.News(r.Context(), clubID)
	if err != nil {
		handleCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleMembershipTiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tiers, err := a.catalog.MembershipTiers(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tiers})
}

func handleCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
