package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tribuna.app/internal/audit"
	"tribuna.app/internal/auth"
	"tribuna.app/internal/cart"
	"tribuna.app/internal/catalog"
	"tribuna.app/internal/checkout"
	"tribuna.app/internal/otp"
	"tribuna.app/internal/portal"
	"tribuna.app/internal/session"
)

type sessionView struct {
	ID       string      `json:"id"`
	Phase    string      `json:"phase"`
	Identity string      `json:"identity,omitempty"`
	IsGuest  bool        `json:"is_guest"`
	Role     string      `json:"role"`
	Auth     *authView   `json:"auth,omitempty"`
	Portal   *portalView `json:"portal,omitempty"`
}

type authView struct {
	State           string `json:"state"`
	Phone           string `json:"phone,omitempty"`
	DigitsEntered   int    `json:"digits_entered"`
	ResendInSeconds int    `json:"resend_in_seconds"`
}

type portalView struct {
	ClubID      string   `json:"club_id"`
	ClubName    string   `json:"club_name"`
	Tabs        []string `json:"tabs"`
	ActiveTab   string   `json:"active_tab"`
	Overlay     string   `json:"overlay,omitempty"`
	CartTotal   int64    `json:"cart_total"`
	TicketTotal int64    `json:"ticket_total"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleSessionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		id, sess := a.registry.Create()
		w.Header().Set("Location", "/v1/sessions/"+id)
		writeJSON(w, http.StatusCreated, viewOf(id, sess))
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleSessionResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	id := parts[0]
	sess, err := a.registry.Get(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, viewOf(id, sess))
		case http.MethodDelete:
			_ = a.registry.Delete(id)
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
		return
	}

	switch parts[1] {
	case "splash":
		a.postTransition(w, r, parts[2:], "complete", id, sess, sess.CompleteSplash)
	case "onboarding":
		a.postTransition(w, r, parts[2:], "complete", id, sess, sess.CompleteOnboarding)
	case "auth":
		a.handleAuth(w, r, parts[2:], id, sess)
	case "club":
		a.selectClub(w, r, parts[2:], id, sess)
	case "logout":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		sess.Logout()
		writeJSON(w, http.StatusOK, viewOf(id, sess))
	case "token":
		a.issueToken(w, r, parts[2:], id, sess)
	case "portal":
		a.handlePortal(w, r, parts[2:], id, sess)
	case "cart":
		a.handleCart(w, r, parts[2:], id, sess)
	case "tickets":
		a.handleTickets(w, r, parts[2:], id, sess)
	case "checkout":
		a.handleCheckout(w, r, parts[2:], id, sess)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// postTransition handles a bare POST .../{action} phase transition.
func (a *API) postTransition(w http.ResponseWriter, r *http.Request, rest []string, action, id string, sess *session.Controller, fn func() error) {
	if len(rest) != 1 || rest[0] != action {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := fn(); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, sess))
}

func (a *API) handleAuth(w http.ResponseWriter, r *http.Request, rest []string, id string, sess *session.Controller) {
	if len(rest) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	if rest[0] == "skip" {
		if err := sess.SkipAuth(); err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(id, sess))
		return
	}

	neg := sess.Negotiator()
	if neg == nil {
		writeError(w, r, http.StatusConflict, "not authenticating")
		return
	}

	switch rest[0] {
	case "phone":
		var req struct {
			Phone string `json:"phone"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := neg.SubmitPhone(req.Phone); err != nil {
			handleDomainError(w, r, err)
			return
		}
	case "code":
		var req struct {
			Code  string `json:"code,omitempty"`
			Digit string `json:"digit,omitempty"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		switch {
		case req.Code != "":
			if err := neg.PasteCode(req.Code); err != nil {
				handleDomainError(w, r, err)
				return
			}
		case len(req.Digit) == 1:
			if err := neg.EnterDigit(req.Digit[0]); err != nil {
				handleDomainError(w, r, err)
				return
			}
		default:
			writeError(w, r, http.StatusBadRequest, "code or digit is required")
			return
		}
	case "resend":
		if err := neg.Resend(); err != nil {
			handleDomainError(w, r, err)
			return
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, sess))
}

func (a *API) selectClub(w http.ResponseWriter, r *http.Request, rest []string, id string, sess *session.Controller) {
	if len(rest) != 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req struct {
		ClubID string `json:"club_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ClubID) == "" {
		writeError(w, r, http.StatusBadRequest, "club_id is required")
		return
	}
	if err := sess.SelectClub(r.Context(), req.ClubID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "session.club.selected", map[string]any{
		"session_id": id,
		"club_id":    req.ClubID,
	})
	writeJSON(w, http.StatusOK, viewOf(id, sess))
}

func (a *API) issueToken(w http.ResponseWriter, r *http.Request, rest []string, id string, sess *session.Controller) {
	if len(rest) != 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if sess.IsGuest() {
		writeError(w, r, http.StatusUnauthorized, "session is not authenticated")
		return
	}
	token, err := auth.GenerateToken(sess.Identity(), []string{string(sess.Role())}, a.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "session.token.issued", map[string]any{
		"session_id": id,
	})
	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(a.tokenTTL),
	})
}

func viewOf(id string, sess *session.Controller) sessionView {
	v := sessionView{
		ID:       id,
		Phase:    string(sess.Phase()),
		Identity: sess.Identity(),
		IsGuest:  sess.IsGuest(),
		Role:     string(sess.Role()),
	}
	if neg := sess.Negotiator(); neg != nil {
		v.Auth = &authView{
			State:           string(neg.State()),
			Phone:           neg.Phone(),
			DigitsEntered:   len(neg.Digits()),
			ResendInSeconds: int(neg.ResendRemaining().Seconds()),
		}
	}
	if p := sess.Portal(); p != nil {
		club := p.Club()
		tabs := p.Tabs()
		names := make([]string, len(tabs))
		for i, t := range tabs {
			names[i] = string(t)
		}
		v.Portal = &portalView{
			ClubID:      club.ID,
			ClubName:    club.Name,
			Tabs:        names,
			ActiveTab:   string(p.ActiveTab()),
			Overlay:     string(p.ActiveOverlay()),
			CartTotal:   p.CartTotal(),
			TicketTotal: p.TicketTotal(),
		}
	}
	return v
}

func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, checkout.ErrTicketNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidPhase),
		errors.Is(err, otp.ErrInvalidState),
		errors.Is(err, portal.ErrTabNotPermitted),
		errors.Is(err, cart.ErrNoMatch),
		errors.Is(err, checkout.ErrNoMatch),
		errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, otp.ErrResendCooldown):
		w.Header().Set("Retry-After", "60")
		writeError(w, r, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, session.ErrNotAuthenticated),
		errors.Is(err, portal.ErrAuthRequired):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, otp.ErrInvalidPhone),
		errors.Is(err, otp.ErrInvalidDigit),
		errors.Is(err, portal.ErrUnknownRole),
		errors.Is(err, portal.ErrUnknownOverlay),
		errors.Is(err, portal.ErrUnknownVariant),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrUnknownCategory),
		errors.Is(err, checkout.ErrInvalidStatus):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
