package httpapi

import (
	"net/http"
	"time"

	"tribuna.app/internal/audit"
	"tribuna.app/internal/cart"
	"tribuna.app/internal/obs"
	"tribuna.app/internal/portal"
	"tribuna.app/internal/session"
)

// activePortal resolves the session's portal or reports the conflict.
func activePortal(w http.ResponseWriter, r *http.Request, sess *session.Controller) (*portal.Controller, bool) {
	p := sess.Portal()
	if p == nil {
		writeError(w, r, http.StatusConflict, "no active portal")
		return nil, false
	}
	return p, true
}

func (a *API) handlePortal(w http.ResponseWriter, r *http.Request, rest []string, id string, sess *session.Controller) {
	if len(rest) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := activePortal(w, r, sess)
	if !ok {
		return
	}

	switch rest[0] {
	case "tab":
		var req struct {
			Tab string `json:"tab"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := p.SelectTab(portal.Tab(req.Tab)); err != nil {
			handleDomainError(w, r, err)
			return
		}
	case "overlay":
		var req struct {
			Overlay string `json:"overlay"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if req.Overlay == "" {
			p.CloseOverlay()
		} else if err := p.OpenOverlay(portal.Overlay(req.Overlay)); err != nil {
			handleDomainError(w, r, err)
			return
		}
	case "role":
		// Role elevation comes from an external authorization party,
		// expressed here as a staff/admin bearer token.
		if !a.requireRole(w, r, "staff", "admin") {
			return
		}
		var req struct {
			Role string `json:"role"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := sess.AssignRole(portal.Role(req.Role)); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "portal.role.changed", map[string]any{
			"session_id": id,
			"role":       req.Role,
		})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, sess))
}

type cartView struct {
	Lines []cart.Line `json:"lines"`
	Total int64       `json:"total"`
}

func (a *API) handleCart(w http.ResponseWriter, r *http.Request, rest []string, id string, sess *session.Controller) {
	p, ok := activePortal(w, r, sess)
	if !ok {
		return
	}

	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, cartView{Lines: p.CartLines(), Total: p.CartTotal()})
		return
	}
	if rest[0] != "items" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if len(rest) == 2 {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		p.RemoveFromCart(rest[1])
		writeJSON(w, http.StatusOK, cartView{Lines: p.CartLines(), Total: p.CartTotal()})
		return
	}

	var req struct {
		ProductID string `json:"product_id"`
		Size      string `json:"size"`
		Color     string `json:"color"`
		Quantity  int    `json:"quantity"`
	}
	switch r.Method {
	case http.MethodPost:
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := p.AddToCart(r.Context(), req.ProductID, req.Size, req.Color, req.Quantity); err != nil {
			handleDomainError(w, r, err)
			return
		}
	case http.MethodPut:
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		key := cart.LineKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
		if err := p.SetCartQuantity(key, req.Quantity); err != nil {
			handleDomainError(w, r, err)
			return
		}
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodPut)
		return
	}
	writeJSON(w, http.StatusOK, cartView{Lines: p.CartLines(), Total: p.CartTotal()})
}

func (a *API) handleTickets(w http.ResponseWriter, r *http.Request, rest []string, id string, sess *session.Controller) {
	p, ok := activePortal(w, r, sess)
	if !ok {
		return
	}

	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"selections": p.TicketSelections(),
			"total":      p.TicketTotal(),
			"history":    p.History().List(),
		})
		return
	}

	switch rest[0] {
	case "match":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var req struct {
			MatchID string `json:"match_id"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := p.SelectMatch(r.Context(), req.MatchID); err != nil {
			handleDomainError(w, r, err)
			return
		}
	case "selections":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		var req struct {
			Selections map[string]int `json:"selections"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := p.SetTicketSelections(req.Selections); err != nil {
			handleDomainError(w, r, err)
			return
		}
	case "refresh":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		p.History().Refresh(time.Now().UTC())
	default:
		a.handleTicketResource(w, r, rest, id, sess, p)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, sess))
}

// handleTicketResource covers .../tickets/{ticketID}/scan and
// .../tickets/{ticketID}/status, both staff-only.
func (a *API) handleTicketResource(w http.ResponseWriter, r *http.Request, rest []string, id string, sess *session.Controller, p *portal.Controller) {
	if len(rest) != 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	ticketID := rest[0]

	switch rest[1] {
	case "scan":
		if !a.requireRole(w, r, "staff", "admin") {
			return
		}
		if err := p.History().MarkScanned(ticketID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		if a.archive != nil {
			_ = a.archive.MarkScanned(r.Context(), ticketID)
		}
		_ = audit.LogEvent(r.Context(), "ticket.scanned", map[string]any{
			"session_id": id,
			"ticket_id":  ticketID,
		})
	case "status":
		if !a.requireRole(w, r, "staff", "admin") {
			return
		}
		var req struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := p.History().SetStatus(ticketID, checkoutStatus(req.Status)); err != nil {
			handleDomainError(w, r, err)
			return
		}
		if a.archive != nil {
			_ = a.archive.SetStatus(r.Context(), ticketID, checkoutStatus(req.Status))
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	ticket, err := p.History().Find(ticketID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request, rest []string, id string, sess *session.Controller) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := activePortal(w, r, sess)
	if !ok {
		return
	}

	if len(rest) == 0 {
		if err := p.BeginCheckout(); err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(id, sess))
		return
	}
	if len(rest) != 2 || rest[1] != "confirm" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	// The confirm routes are the payment collaborator's opaque
	// payment-confirmed signal; no payment detail crosses this boundary.
	switch rest[0] {
	case "merch":
		order, err := p.ConfirmMerchandise(r.Context())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		obs.CountCheckout("merchandise")
		_ = audit.LogEvent(r.Context(), "checkout.merch.completed", map[string]any{
			"session_id": id,
			"reference":  order.Reference,
			"total":      order.Total,
		})
		writeJSON(w, http.StatusOK, order)
	case "tickets":
		purchased, err := p.ConfirmTickets(r.Context())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		sold := 0
		for _, t := range purchased {
			sold += t.Quantity
		}
		obs.CountCheckout("tickets")
		obs.AddTicketsSold(sold)
		_ = audit.LogEvent(r.Context(), "checkout.tickets.completed", map[string]any{
			"session_id": id,
			"records":    len(purchased),
			"quantity":   sold,
		})
		writeJSON(w, http.StatusOK, map[string]any{"tickets": purchased})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}
