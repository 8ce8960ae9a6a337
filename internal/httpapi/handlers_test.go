package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"tribuna.app/internal/auth"
	"tribuna.app/internal/catalog"
	"tribuna.app/internal/otp"
	"tribuna.app/internal/session"
)

// manualScheduler queues the negotiator's deferred transitions so a
// test can resolve verification deterministically between requests.
type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (s *manualScheduler) schedule(_ time.Duration, fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

func (s *manualScheduler) fire() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		fn := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		fn()
	}
}

type apiClient struct {
	baseURL string
	client  *http.Client
	sched   *manualScheduler
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("TRIBUNA_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	sched := &manualScheduler{}
	provider := catalog.NewDemo(time.Now().UTC())
	registry := session.NewRegistry(provider,
		session.WithOTPOptions(otp.WithScheduler(sched.schedule)))

	api := New(ReadyProbe{}, "test", registry, provider,
		WithRateLimit(1000, 1000))

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		sched:   sched,
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("unexpected status: got %d, want %d", resp.StatusCode, want)
	}
}

// createSession walks a fresh session to the authenticating phase.
func (c *apiClient) createSession() string {
	c.t.Helper()
	resp := c.post("/v1/sessions", nil, nil)
	expectStatus(c.t, resp, http.StatusCreated)
	view := decode[sessionView](c.t, resp)
	if view.ID == "" || view.Phase != "splash" {
		c.t.Fatalf("unexpected new session: %+v", view)
	}
	base := "/v1/sessions/" + view.ID
	expectStatus(c.t, c.post(base+"/splash/complete", nil, nil), http.StatusOK)
	expectStatus(c.t, c.post(base+"/onboarding/complete", nil, nil), http.StatusOK)
	return view.ID
}

// authenticate submits the accepted code and resolves verification.
func (c *apiClient) authenticate(id, phone string) {
	c.t.Helper()
	base := "/v1/sessions/" + id
	expectStatus(c.t, c.post(base+"/auth/phone", map[string]any{"phone": phone}, nil), http.StatusOK)
	expectStatus(c.t, c.post(base+"/auth/code", map[string]any{"code": "123456"}, nil), http.StatusOK)
	c.sched.fire()
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	health := decode[map[string]any](t, resp)
	if health["service"] != "tribuna-api" {
		t.Fatalf("unexpected service name: %v", health["service"])
	}

	resp = api.get("/readyz", nil, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = api.get("/v1/info", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	info := decode[map[string]any](t, resp)
	if info["version"] != "test" {
		t.Fatalf("unexpected version: %v", info["version"])
	}
}

func TestCatalogEndpoints(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/v1/clubs", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	clubs := decode[map[string][]catalog.Club](t, resp)
	if len(clubs["items"]) < 2 {
		t.Fatalf("expected demo clubs, got %v", clubs)
	}

	resp = api.get("/v1/clubs/rsc-vermillon/products", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	products := decode[map[string][]catalog.Product](t, resp)
	if len(products["items"]) == 0 {
		t.Fatal("expected products for the demo club")
	}

	resp = api.get("/v1/clubs/fc-nowhere", nil, nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = api.get("/v1/membership-tiers", nil, nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestFullAuthenticatedPurchaseFlow(t *testing.T) {
	api := newTestAPI(t)
	id := api.createSession()
	base := "/v1/sessions/" + id

	api.authenticate(id, "0612345678")

	resp := api.get(base, nil, nil)
	view := decode[sessionView](t, resp)
	if view.Phase != "selecting-club" || view.IsGuest || view.Identity != "0612345678" {
		t.Fatalf("unexpected session after auth: %+v", view)
	}
	if view.Role != "supporter" {
		t.Fatalf("expected supporter role, got %s", view.Role)
	}

	resp = api.post(base+"/club", map[string]any{"club_id": "rsc-vermillon"}, nil)
	expectStatus(t, resp, http.StatusOK)
	view = decode[sessionView](t, resp)
	if view.Phase != "in-portal" || view.Portal == nil || view.Portal.ClubID != "rsc-vermillon" {
		t.Fatalf("unexpected portal state: %+v", view)
	}
	if view.Portal.ActiveTab != "home" || len(view.Portal.Tabs) != 5 {
		t.Fatalf("unexpected tabs: %+v", view.Portal)
	}

	// Merchandise: two variants of the same jersey stay distinct lines.
	resp = api.post(base+"/cart/items", map[string]any{
		"product_id": "jersey-home", "size": "M", "color": "red", "quantity": 1,
	}, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = api.post(base+"/cart/items", map[string]any{
		"product_id": "jersey-home", "size": "L", "color": "red", "quantity": 2,
	}, nil)
	expectStatus(t, resp, http.StatusOK)
	cartState := decode[cartView](t, resp)
	if len(cartState.Lines) != 2 || cartState.Total != 3*8990 {
		t.Fatalf("unexpected cart: %+v", cartState)
	}

	resp = api.post(base+"/checkout", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	view = decode[sessionView](t, resp)
	if view.Portal.Overlay != "checkout" {
		t.Fatalf("expected checkout overlay, got %q", view.Portal.Overlay)
	}

	resp = api.post(base+"/checkout/merch/confirm", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	order := decode[map[string]any](t, resp)
	if order["total"].(float64) != 3*8990 {
		t.Fatalf("unexpected order total: %v", order["total"])
	}

	// Retried confirmation is rejected by the empty-cart precondition.
	resp = api.post(base+"/checkout/merch/confirm", nil, nil)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	// Tickets.
	resp = api.post(base+"/tickets/match", map[string]any{"match_id": "match-derby"}, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = api.put(base+"/tickets/selections", map[string]any{
		"selections": map[string]int{"vip": 2},
	}, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = api.post(base+"/checkout/tickets/confirm", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	tickets := decode[map[string][]map[string]any](t, resp)
	if len(tickets["tickets"]) != 1 {
		t.Fatalf("expected one purchase record, got %v", tickets)
	}
	if tickets["tickets"][0]["quantity"].(float64) != 2 {
		t.Fatalf("unexpected quantity: %v", tickets["tickets"][0])
	}

	resp = api.get(base, nil, nil)
	view = decode[sessionView](t, resp)
	if view.Portal.ActiveTab != "agenda" {
		t.Fatalf("ticket confirmation must land on agenda, got %s", view.Portal.ActiveTab)
	}
}

func TestGuestCheckoutResumeOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	id := api.createSession()
	base := "/v1/sessions/" + id

	expectStatus(t, api.post(base+"/auth/skip", nil, nil), http.StatusOK)
	expectStatus(t, api.post(base+"/club", map[string]any{"club_id": "rsc-vermillon"}, nil), http.StatusOK)
	expectStatus(t, api.post(base+"/cart/items", map[string]any{
		"product_id": "jersey-home", "size": "M", "color": "red", "quantity": 1,
	}, nil), http.StatusOK)

	// Guest checkout defers into the login flow.
	resp := api.post(base+"/checkout", nil, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = api.get(base, nil, nil)
	view := decode[sessionView](t, resp)
	if view.Phase != "authenticating" || view.Auth == nil {
		t.Fatalf("expected authenticating phase, got %+v", view)
	}

	api.authenticate(id, "0712345678")

	resp = api.get(base, nil, nil)
	view = decode[sessionView](t, resp)
	if view.Phase != "in-portal" || view.Portal == nil {
		t.Fatalf("expected resumed portal, got %+v", view)
	}
	if view.Portal.ClubID != "rsc-vermillon" ||
		view.Portal.ActiveTab != "boutique" ||
		view.Portal.Overlay != "checkout" {
		t.Fatalf("resume must restore club and checkout position: %+v", view.Portal)
	}
	if view.Portal.CartTotal != 8990 {
		t.Fatalf("cart must survive the login detour, got %d", view.Portal.CartTotal)
	}

	expectStatus(t, api.post(base+"/checkout/merch/confirm", nil, nil), http.StatusOK)
}

func TestAuthValidation(t *testing.T) {
	api := newTestAPI(t)
	id := api.createSession()
	base := "/v1/sessions/" + id

	resp := api.post(base+"/auth/phone", map[string]any{"phone": "0512345678"}, nil)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	expectStatus(t, api.post(base+"/auth/phone", map[string]any{"phone": "0612345678"}, nil), http.StatusOK)

	// Resend is on cooldown right after the code was sent.
	resp = api.post(base+"/auth/resend", nil, nil)
	expectStatus(t, resp, http.StatusTooManyRequests)
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	resp.Body.Close()

	// A wrong code rejects, then auto-resets to code-sent.
	expectStatus(t, api.post(base+"/auth/code", map[string]any{"code": "000000"}, nil), http.StatusOK)
	api.sched.fire()

	resp = api.get(base, nil, nil)
	view := decode[sessionView](t, resp)
	if view.Phase != "authenticating" || view.Auth.State != "code-sent" || view.Auth.DigitsEntered != 0 {
		t.Fatalf("expected reset to code-sent with cleared digits, got %+v", view.Auth)
	}
}

func TestSessionNotFound(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get("/v1/sessions/does-not-exist", nil, nil)
	expectStatus(t, resp, http.StatusNotFound)
	body := decode[map[string]any](t, resp)
	if body["error"] == "" || body["request_id"] == "" {
		t.Fatalf("expected error and request_id, got %v", body)
	}
}

func TestTokenIssuedOnlyForAuthenticatedSessions(t *testing.T) {
	api := newTestAPI(t)
	id := api.createSession()
	base := "/v1/sessions/" + id

	expectStatus(t, api.post(base+"/auth/skip", nil, nil), http.StatusOK)
	resp := api.post(base+"/token", nil, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestStaffRoutesRequireRole(t *testing.T) {
	api := newTestAPI(t)
	id := api.createSession()
	base := "/v1/sessions/" + id

	api.authenticate(id, "0612345678")
	expectStatus(t, api.post(base+"/club", map[string]any{"club_id": "rsc-vermillon"}, nil), http.StatusOK)

	// No token at all.
	resp := api.post(base+"/portal/role", map[string]any{"role": "member"}, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// Supporter token is not enough.
	resp = api.post(base+"/token", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	supporter := decode[tokenResponse](t, resp)
	resp = api.post(base+"/portal/role", map[string]any{"role": "member"},
		map[string]string{"Authorization": "Bearer " + supporter.Token})
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// A staff token elevates the session.
	staffToken, err := auth.GenerateToken("staff-1", []string{"staff"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	staffHeader := map[string]string{"Authorization": "Bearer " + staffToken}
	resp = api.post(base+"/portal/role", map[string]any{"role": "member"}, staffHeader)
	expectStatus(t, resp, http.StatusOK)
	view := decode[sessionView](t, resp)
	if view.Role != "member" {
		t.Fatalf("expected member role, got %s", view.Role)
	}

	// Scan a purchased ticket as staff.
	expectStatus(t, api.post(base+"/tickets/match", map[string]any{"match_id": "match-derby"}, nil), http.StatusOK)
	expectStatus(t, api.put(base+"/tickets/selections", map[string]any{
		"selections": map[string]int{"tribune": 1},
	}, nil), http.StatusOK)
	resp = api.post(base+"/checkout/tickets/confirm", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	purchase := decode[map[string][]map[string]any](t, resp)
	ticketID := purchase["tickets"][0]["id"].(string)

	resp = api.post(base+"/tickets/"+ticketID+"/scan", nil, staffHeader)
	expectStatus(t, resp, http.StatusOK)
	scanned := decode[map[string]any](t, resp)
	if scanned["scanned"] != true {
		t.Fatalf("expected scanned ticket, got %v", scanned)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	resp := api.put("/v1/clubs", nil, nil)
	expectStatus(t, resp, http.StatusMethodNotAllowed)
	if resp.Header.Get("Allow") == "" {
		t.Fatal("expected Allow header")
	}
	resp.Body.Close()
}
