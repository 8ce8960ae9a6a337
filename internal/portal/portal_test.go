package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"tribuna.app/internal/cart"
	"tribuna.app/internal/catalog"
)

// stubSession records login requests instead of driving a real
// session flow.
type stubSession struct {
	guest         bool
	loginRequests []bool
	loggedOut     bool
	changedClub   bool
}

func (s *stubSession) IsGuest() bool                  { return s.guest }
func (s *stubSession) RequestLogin(fromCheckout bool) { s.loginRequests = append(s.loginRequests, fromCheckout) }
func (s *stubSession) Logout()                        { s.loggedOut = true }
func (s *stubSession) ChangeClub()                    { s.changedClub = true }

func newPortal(t *testing.T, role Role, guest bool) (*Controller, *stubSession, catalog.Provider) {
	t.Helper()
	provider := catalog.NewDemo(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	club, err := provider.ClubByID(context.Background(), "rsc-vermillon")
	if err != nil {
		t.Fatal(err)
	}
	session := &stubSession{guest: guest}
	c, err := New(session, provider, club, role)
	if err != nil {
		t.Fatal(err)
	}
	return c, session, provider
}

func TestTabSetsPerRoleFamily(t *testing.T) {
	cases := []struct {
		role  Role
		first Tab
		tabs  []Tab
	}{
		{RoleGuest, TabHome, []Tab{TabHome, TabNews, TabAgenda, TabBoutique, TabClub}},
		{RoleSupporter, TabHome, []Tab{TabHome, TabNews, TabAgenda, TabBoutique, TabClub}},
		{RoleMember, TabHome, []Tab{TabHome, TabNews, TabAgenda, TabBoutique, TabClub}},
		{RolePlayer, TabHome, []Tab{TabHome, TabTraining, TabAgenda, TabPerformance}},
		{RoleStaff, TabHome, []Tab{TabHome, TabSquad, TabAgenda, TabOperations}},
		{RoleAdmin, TabHome, []Tab{TabHome, TabMembers, TabFinances, TabSettings}},
	}
	for _, tc := range cases {
		c, _, _ := newPortal(t, tc.role, false)
		if c.ActiveTab() != tc.first {
			t.Errorf("%s: initial tab = %s, want %s", tc.role, c.ActiveTab(), tc.first)
		}
		got := c.Tabs()
		if len(got) != len(tc.tabs) {
			t.Fatalf("%s: tab set %v, want %v", tc.role, got, tc.tabs)
		}
		for i := range got {
			if got[i] != tc.tabs[i] {
				t.Errorf("%s: tab[%d] = %s, want %s", tc.role, i, got[i], tc.tabs[i])
			}
		}
	}
}

func TestSelectTabOnlyWithinRoleSet(t *testing.T) {
	c, _, _ := newPortal(t, RoleSupporter, false)

	if err := c.SelectTab(TabBoutique); err != nil {
		t.Fatal(err)
	}
	if c.ActiveTab() != TabBoutique {
		t.Fatalf("expected boutique, got %s", c.ActiveTab())
	}
	if err := c.SelectTab(TabFinances); !errors.Is(err, ErrTabNotPermitted) {
		t.Fatalf("expected ErrTabNotPermitted, got %v", err)
	}
	if c.ActiveTab() != TabBoutique {
		t.Fatal("rejected selection must not move the active tab")
	}
}

func TestSetRoleResetsInvalidTab(t *testing.T) {
	c, _, _ := newPortal(t, RoleSupporter, false)
	_ = c.SelectTab(TabBoutique)

	if err := c.SetRole(RolePlayer); err != nil {
		t.Fatal(err)
	}
	if c.ActiveTab() != TabHome {
		t.Fatalf("invalidated tab must reset to the new set's first entry, got %s", c.ActiveTab())
	}

	// Agenda survives the switch back since both families carry it.
	_ = c.SelectTab(TabAgenda)
	if err := c.SetRole(RoleStaff); err != nil {
		t.Fatal(err)
	}
	if c.ActiveTab() != TabAgenda {
		t.Fatalf("shared tab must survive the role change, got %s", c.ActiveTab())
	}

	if err := c.SetRole("mascot"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestSingleOverlayExclusivity(t *testing.T) {
	c, _, _ := newPortal(t, RoleMember, false)

	overlays := []Overlay{OverlayNotifications, OverlayMembership, OverlayMyTickets, OverlayDonation, OverlayAnnouncements}
	for _, o := range overlays {
		if err := c.OpenOverlay(o); err != nil {
			t.Fatal(err)
		}
		if c.ActiveOverlay() != o {
			t.Fatalf("expected %s active, got %s", o, c.ActiveOverlay())
		}
	}
	c.CloseOverlay()
	if c.ActiveOverlay() != OverlayNone {
		t.Fatalf("expected no overlay, got %s", c.ActiveOverlay())
	}
	if err := c.OpenOverlay("jumbotron"); !errors.Is(err, ErrUnknownOverlay) {
		t.Fatalf("expected ErrUnknownOverlay, got %v", err)
	}
}

func TestSelectTabDismissesOverlay(t *testing.T) {
	c, _, _ := newPortal(t, RoleSupporter, false)
	_ = c.OpenOverlay(OverlayNotifications)

	if err := c.SelectTab(TabNews); err != nil {
		t.Fatal(err)
	}
	if c.ActiveOverlay() != OverlayNone {
		t.Fatalf("tab navigation must dismiss the overlay, got %s", c.ActiveOverlay())
	}
}

func TestRequireAuthOrRedirectsGuests(t *testing.T) {
	c, session, _ := newPortal(t, RoleGuest, true)

	ran := false
	if c.RequireAuthOr(func() { ran = true }) {
		t.Fatal("guest action must not run")
	}
	if ran {
		t.Fatal("guarded action executed for a guest")
	}
	if len(session.loginRequests) != 1 || session.loginRequests[0] {
		t.Fatalf("expected one login request without checkout intent, got %v", session.loginRequests)
	}

	session.guest = false
	if !c.RequireAuthOr(func() { ran = true }) || !ran {
		t.Fatal("authenticated action must run")
	}
}

func TestGuestCheckoutDefersWithResumeIntent(t *testing.T) {
	c, session, _ := newPortal(t, RoleGuest, true)
	if err := c.AddToCart(context.Background(), "jersey-home", "M", "red", 1); err != nil {
		t.Fatal(err)
	}

	if err := c.BeginCheckout(); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if len(session.loginRequests) != 1 || !session.loginRequests[0] {
		t.Fatalf("expected a login request with checkout intent, got %v", session.loginRequests)
	}
	if len(c.CartLines()) != 1 {
		t.Fatal("deferred checkout must leave the cart untouched")
	}
}

func TestResumeCheckoutPositionsPortal(t *testing.T) {
	c, _, _ := newPortal(t, RoleSupporter, false)

	c.ResumeCheckout()
	if c.ActiveTab() != TabBoutique {
		t.Fatalf("expected boutique tab, got %s", c.ActiveTab())
	}
	if c.ActiveOverlay() != OverlayCheckout {
		t.Fatalf("expected checkout overlay, got %s", c.ActiveOverlay())
	}
}

func TestAddToCartDistinctVariants(t *testing.T) {
	c, _, _ := newPortal(t, RoleGuest, true)
	ctx := context.Background()

	if err := c.AddToCart(ctx, "jersey-home", "M", "red", 1); err != nil {
		t.Fatal(err)
	}
	if err := c.AddToCart(ctx, "jersey-home", "L", "red", 2); err != nil {
		t.Fatal(err)
	}
	lines := c.CartLines()
	if len(lines) != 2 {
		t.Fatalf("expected two distinct variant lines, got %d", len(lines))
	}

	if err := c.AddToCart(ctx, "jersey-home", "XS", "red", 1); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
	if err := c.AddToCart(ctx, "missing", "M", "red", 1); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}

func TestCloseOverlayNeverTouchesCarts(t *testing.T) {
	c, _, _ := newPortal(t, RoleSupporter, false)
	ctx := context.Background()
	_ = c.AddToCart(ctx, "jersey-home", "M", "red", 1)
	if err := c.SelectMatch(ctx, "match-derby"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetTicketSelections(map[string]int{"tribune": 2}); err != nil {
		t.Fatal(err)
	}
	_ = c.BeginCheckout()

	c.CloseOverlay()
	if len(c.CartLines()) != 1 || len(c.TicketSelections()) != 1 {
		t.Fatal("closing the checkout view must not discard cart contents")
	}
}

func TestConfirmTicketsReturnsToAgenda(t *testing.T) {
	c, _, _ := newPortal(t, RoleMember, false)
	ctx := context.Background()
	if err := c.SelectMatch(ctx, "match-derby"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetTicketSelections(map[string]int{"vip": 2}); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginCheckout(); err != nil {
		t.Fatal(err)
	}

	purchased, err := c.ConfirmTickets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(purchased) != 1 || purchased[0].Quantity != 2 {
		t.Fatalf("expected one record with quantity 2, got %+v", purchased)
	}
	if c.ActiveTab() != TabAgenda || c.ActiveOverlay() != OverlayNone {
		t.Fatalf("expected agenda with no overlay, got %s/%s", c.ActiveTab(), c.ActiveOverlay())
	}
	if got := len(c.History().List()); got != 1 {
		t.Fatalf("expected one history record, got %d", got)
	}
}

func TestConfirmMerchandiseClearsOverlayAndCart(t *testing.T) {
	c, _, _ := newPortal(t, RoleSupporter, false)
	ctx := context.Background()
	_ = c.AddToCart(ctx, "jersey-home", "M", "red", 2)
	_ = c.BeginCheckout()

	order, err := c.ConfirmMerchandise(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if order.Total != 2*8990 {
		t.Fatalf("unexpected total: %d", order.Total)
	}
	if c.ActiveOverlay() != OverlayNone || len(c.CartLines()) != 0 {
		t.Fatal("confirmation must dismiss the overlay and clear the cart")
	}
}

func TestSetCartQuantityRequiresExactVariant(t *testing.T) {
	c, _, _ := newPortal(t, RoleSupporter, false)
	ctx := context.Background()
	_ = c.AddToCart(ctx, "jersey-home", "M", "red", 1)

	key := cart.LineKey{ProductID: "jersey-home", Size: "M", Color: "red"}
	if err := c.SetCartQuantity(key, 3); err != nil {
		t.Fatal(err)
	}
	if c.CartTotal() != 3*8990 {
		t.Fatalf("unexpected total: %d", c.CartTotal())
	}
	c.RemoveFromCart("jersey-home")
	if len(c.CartLines()) != 0 {
		t.Fatal("remove must drop all variant lines")
	}
}
