// Package portal is the per-club controller: it multiplexes the
// role-scoped navigation tabs, the single full-screen overlay and the
// two shopping carts, and delegates finalization to the checkout
// pipeline. Authentication is never performed here; guest-gated
// affordances call back into the session.
package portal

import (
	"context"
	"sync"
	"time"

	"tribuna.app/internal/cart"
	"tribuna.app/internal/catalog"
	"tribuna.app/internal/checkout"
)

// Role is the viewer's relationship to the club.
type Role string

const (
	RoleGuest     Role = "guest"
	RoleSupporter Role = "supporter"
	RoleMember    Role = "member"
	RolePlayer    Role = "player"
	RoleStaff     Role = "staff"
	RoleAdmin     Role = "admin"
)

// Tab is one entry of a role's bottom navigation.
type Tab string

const (
	TabHome        Tab = "home"
	TabNews        Tab = "news"
	TabAgenda      Tab = "agenda"
	TabBoutique    Tab = "boutique"
	TabClub        Tab = "club"
	TabTraining    Tab = "training"
	TabPerformance Tab = "performance"
	TabSquad       Tab = "squad"
	TabOperations  Tab = "operations"
	TabMembers     Tab = "members"
	TabFinances    Tab = "finances"
	TabSettings    Tab = "settings"
)

// tabsByRole is the dispatch table from role family to its fixed,
// ordered tab list. Guest, supporter and member share the fan family.
var tabsByRole = map[Role][]Tab{
	RoleGuest:     {TabHome, TabNews, TabAgenda, TabBoutique, TabClub},
	RoleSupporter: {TabHome, TabNews, TabAgenda, TabBoutique, TabClub},
	RoleMember:    {TabHome, TabNews, TabAgenda, TabBoutique, TabClub},
	RolePlayer:    {TabHome, TabTraining, TabAgenda, TabPerformance},
	RoleStaff:     {TabHome, TabSquad, TabAgenda, TabOperations},
	RoleAdmin:     {TabHome, TabMembers, TabFinances, TabSettings},
}

// TabsFor returns the ordered tab list for a role.
func TabsFor(role Role) ([]Tab, error) {
	tabs, ok := tabsByRole[role]
	if !ok {
		return nil, ErrUnknownRole
	}
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out, nil
}

// Overlay is the single full-screen modal currently covering the tab
// content. Holding it as one tagged value makes the at-most-one
// invariant structural.
type Overlay string

const (
	OverlayNone           Overlay = ""
	OverlayNotifications  Overlay = "notifications"
	OverlayMembership     Overlay = "membership"
	OverlayMyTickets      Overlay = "my-tickets"
	OverlayDonation       Overlay = "donation"
	OverlayAnnouncements  Overlay = "announcements"
	OverlayMembershipGate Overlay = "membership-gate"
	OverlayCheckout       Overlay = "checkout"
)

func validOverlay(o Overlay) bool {
	switch o {
	case OverlayNotifications, OverlayMembership, OverlayMyTickets,
		OverlayDonation, OverlayAnnouncements, OverlayMembershipGate,
		OverlayCheckout:
		return true
	}
	return false
}

// Session is the portal's callback surface into the owning session
// controller. The portal never authenticates; it only asks.
type Session interface {
	IsGuest() bool
	RequestLogin(fromCheckout bool)
	Logout()
	ChangeClub()
}

// Controller owns one club's portal state.
type Controller struct {
	mu      sync.Mutex
	session Session
	catalog catalog.Provider

	club    catalog.Club
	role    Role
	tab     Tab
	overlay Overlay

	merch    *cart.Cart
	tickets  *cart.TicketCart
	pipeline *checkout.Pipeline
}

// Option configures Controller construction.
type Option func(*options)

type options struct {
	history *checkout.History
	now     func() time.Time
}

// WithHistory injects the session's purchased-ticket history. Purchases
// belong to the user, so the same history is carried across every
// portal of one session.
func WithHistory(h *checkout.History) Option {
	return func(o *options) {
		if h != nil {
			o.history = h
		}
	}
}

// WithClock overrides the checkout pipeline's time source.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.now = fn
		}
	}
}

// New creates a portal for the club, positioned on the role's first
// tab with no overlay open.
func New(session Session, provider catalog.Provider, club catalog.Club, role Role, opts ...Option) (*Controller, error) {
	tabs, ok := tabsByRole[role]
	if !ok {
		return nil, ErrUnknownRole
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.history == nil {
		o.history = checkout.NewHistory()
	}

	merch := cart.NewCart()
	tickets := cart.NewTicketCart()
	return &Controller{
		session:  session,
		catalog:  provider,
		club:     club,
		role:     role,
		tab:      tabs[0],
		merch:    merch,
		tickets:  tickets,
		pipeline: checkout.New(merch, tickets, o.history, checkout.WithClock(o.now)),
	}, nil
}

// Club returns the club this portal is scoped to.
func (c *Controller) Club() catalog.Club {
	return c.club
}

// Role returns the current viewer role.
func (c *Controller) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Tabs returns the ordered tab set of the current role.
func (c *Controller) Tabs() []Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	tabs := tabsByRole[c.role]
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}

// ActiveTab returns the tab currently shown.
func (c *Controller) ActiveTab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

// SetRole switches the viewer role. If the active tab does not exist
// in the new role's set, it resets to that set's first entry.
func (c *Controller) SetRole(role Role) error {
	tabs, ok := tabsByRole[role]
	if !ok {
		return ErrUnknownRole
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
	if !tabInSet(c.tab, tabs) {
		c.tab = tabs[0]
	}
	return nil
}

// SelectTab navigates to a tab of the current role's set and dismisses
// any open overlay. Tabs outside the set leave the state untouched.
func (c *Controller) SelectTab(tab Tab) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !tabInSet(tab, tabsByRole[c.role]) {
		return ErrTabNotPermitted
	}
	c.tab = tab
	c.overlay = OverlayNone
	return nil
}

// OpenOverlay shows one full-screen overlay, implicitly closing any
// other.
func (c *Controller) OpenOverlay(o Overlay) error {
	if !validOverlay(o) {
		return ErrUnknownOverlay
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = o
	return nil
}

// CloseOverlay dismisses the current overlay. Cart contents are never
// touched: dismissing a view discards no data.
func (c *Controller) CloseOverlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = OverlayNone
}

// ActiveOverlay returns the overlay currently shown, or OverlayNone.
func (c *Controller) ActiveOverlay() Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay
}

// RequireAuthOr guards guest-gated affordances (follow, donate, buy):
// a guest is redirected into the login flow and the action is not
// performed; anyone else runs it. It reports whether the action ran.
func (c *Controller) RequireAuthOr(action func()) bool {
	if c.session.IsGuest() {
		c.session.RequestLogin(false)
		return false
	}
	if action != nil {
		action()
	}
	return true
}

// AddToCart resolves the product in the catalog, validates the chosen
// variant and merges the line into the merchandise cart.
func (c *Controller) AddToCart(ctx context.Context, productID, size, color string, quantity int) error {
	product, err := c.catalog.ProductByID(ctx, productID)
	if err != nil {
		return err
	}
	if !validChoice(product.Sizes, size) || !validChoice(product.Colors, color) {
		return ErrUnknownVariant
	}
	key := cart.LineKey{ProductID: productID, Size: size, Color: color}
	return c.merch.Add(key, product.Name, product.Price, quantity)
}

// SetCartQuantity updates one exact variant line's quantity.
func (c *Controller) SetCartQuantity(key cart.LineKey, quantity int) error {
	return c.merch.SetQuantity(key, quantity)
}

// RemoveFromCart drops every variant line of the product.
func (c *Controller) RemoveFromCart(productID string) {
	c.merch.Remove(productID)
}

// CartLines returns the merchandise cart contents.
func (c *Controller) CartLines() []cart.Line {
	return c.merch.Lines()
}

// CartTotal returns the merchandise cart total in minor units.
func (c *Controller) CartTotal() int64 {
	return c.merch.Total()
}

// SelectMatch targets the ticket cart at an upcoming fixture. Choosing
// a different match than before resets prior selections.
func (c *Controller) SelectMatch(ctx context.Context, matchID string) error {
	match, err := c.catalog.MatchByID(ctx, matchID)
	if err != nil {
		return err
	}
	c.tickets.SetMatch(match)
	return nil
}

// SetTicketSelections assigns fresh per-category quantities for the
// targeted match.
func (c *Controller) SetTicketSelections(quantities map[string]int) error {
	return c.tickets.SetSelections(quantities)
}

// TicketSelections returns the current ticket cart contents.
func (c *Controller) TicketSelections() []cart.TicketSelection {
	return c.tickets.Selections()
}

// TicketTotal returns the ticket cart total in minor units.
func (c *Controller) TicketTotal() int64 {
	return c.tickets.Total()
}

// BeginCheckout opens the checkout overlay. A guest is redirected into
// the login flow with a resume-to-checkout intent instead.
func (c *Controller) BeginCheckout() error {
	if c.session.IsGuest() {
		c.session.RequestLogin(true)
		return ErrAuthRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = OverlayCheckout
	return nil
}

// ConfirmMerchandise reacts to the payment-confirmed signal for the
// merchandise cart: the order is finalized, the cart cleared and the
// portal returns to the catalog view.
func (c *Controller) ConfirmMerchandise(ctx context.Context) (checkout.Order, error) {
	order, err := c.pipeline.CompleteMerchandise(ctx)
	if err != nil {
		return checkout.Order{}, err
	}
	c.mu.Lock()
	c.overlay = OverlayNone
	if tabInSet(TabBoutique, tabsByRole[c.role]) {
		c.tab = TabBoutique
	}
	c.mu.Unlock()
	return order, nil
}

// ConfirmTickets reacts to the payment-confirmed signal for the ticket
// cart: purchase records are appended, the cart cleared and the portal
// returns to the agenda view.
func (c *Controller) ConfirmTickets(ctx context.Context) ([]checkout.PurchasedTicket, error) {
	purchased, err := c.pipeline.CompleteTickets(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.overlay = OverlayNone
	if tabInSet(TabAgenda, tabsByRole[c.role]) {
		c.tab = TabAgenda
	}
	c.mu.Unlock()
	return purchased, nil
}

// ResumeCheckout repositions the portal where an interrupted checkout
// left off: boutique tab with the checkout overlay open.
func (c *Controller) ResumeCheckout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tabInSet(TabBoutique, tabsByRole[c.role]) {
		c.tab = TabBoutique
	}
	c.overlay = OverlayCheckout
}

// History exposes the purchased-ticket record.
func (c *Controller) History() *checkout.History {
	return c.pipeline.History()
}

func tabInSet(tab Tab, set []Tab) bool {
	for _, t := range set {
		if t == tab {
			return true
		}
	}
	return false
}

// validChoice accepts an empty choice for products that define no
// options on that axis; otherwise the choice must be one of them.
func validChoice(options []string, v string) bool {
	if len(options) == 0 {
		return v == ""
	}
	for _, x := range options {
		if x == v {
			return true
		}
	}
	return false
}
