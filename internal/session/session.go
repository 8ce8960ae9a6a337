// Package session owns the top-level application flow: splash,
// onboarding, authentication, club selection and the per-club portal.
// Its distinguishing mechanism is the pending-resume intent, which
// carries a guest's interrupted action across the authentication flow
// and returns them to the same club's same checkout context.
package session

import (
	"context"
	"sync"

	"tribuna.app/internal/catalog"
	"tribuna.app/internal/checkout"
	"tribuna.app/internal/otp"
	"tribuna.app/internal/portal"
)

// Phase is the top-level application stage.
type Phase string

const (
	PhaseSplash        Phase = "splash"
	PhaseOnboarding    Phase = "onboarding"
	PhaseAuth          Phase = "authenticating"
	PhaseSelectingClub Phase = "selecting-club"
	PhaseInPortal      Phase = "in-portal"
)

// resumeIntent is the deferred target captured when a guest action is
// interrupted by authentication. It holds the interrupted portal
// itself so cart contents survive the login detour. Consumed exactly
// once.
type resumeIntent struct {
	portal     *portal.Controller
	toCheckout bool
}

// Controller drives the phase machine for one app session.
type Controller struct {
	mu sync.Mutex

	phase    Phase
	identity string
	isGuest  bool
	role     portal.Role

	pendingResume *resumeIntent

	catalog    catalog.Provider
	negotiator *otp.Negotiator
	portal     *portal.Controller

	// history is session-scoped: purchased tickets belong to the user,
	// not to the portal, and survive club changes.
	history  *checkout.History
	archiver checkout.Archiver

	otpOpts    []otp.Option
	portalOpts []portal.Option
}

// Option configures Controller construction.
type Option func(*Controller)

// WithOTPOptions forwards options to each authentication negotiator
// the session creates.
func WithOTPOptions(opts ...otp.Option) Option {
	return func(c *Controller) { c.otpOpts = append(c.otpOpts, opts...) }
}

// WithPortalOptions forwards options to each portal the session
// creates.
func WithPortalOptions(opts ...portal.Option) Option {
	return func(c *Controller) { c.portalOpts = append(c.portalOpts, opts...) }
}

// WithArchiver fans completed ticket purchases out to a durable
// archive.
func WithArchiver(a checkout.Archiver) Option {
	return func(c *Controller) { c.archiver = a }
}

// New creates a session in the splash phase as an unauthenticated
// guest.
func New(provider catalog.Provider, opts ...Option) *Controller {
	c := &Controller{
		phase:   PhaseSplash,
		isGuest: true,
		role:    portal.RoleGuest,
		catalog: provider,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.history = checkout.NewHistory(checkout.WithArchiver(c.archiver))
	return c
}

// Phase returns the current top-level stage.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Identity returns the verified identifier, empty for guests.
func (c *Controller) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// IsGuest reports whether the session is unauthenticated.
func (c *Controller) IsGuest() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isGuest
}

// Role returns the session's current role.
func (c *Controller) Role() portal.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Negotiator returns the authentication negotiator for the current
// attempt, or nil outside the authenticating phase.
func (c *Controller) Negotiator() *otp.Negotiator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negotiator
}

// Portal returns the active club portal, or nil outside the portal
// phase.
func (c *Controller) Portal() *portal.Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.portal
}

// CompleteSplash moves splash to onboarding.
func (c *Controller) CompleteSplash() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseSplash {
		return ErrInvalidPhase
	}
	c.phase = PhaseOnboarding
	return nil
}

// CompleteOnboarding moves onboarding to authenticating and starts a
// fresh verification attempt.
func (c *Controller) CompleteOnboarding() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseOnboarding {
		return ErrInvalidPhase
	}
	c.enterAuthLocked()
	return nil
}

// SubmitAuth reacts to the negotiator's verified signal: the session
// becomes an authenticated supporter and either proceeds to club
// selection or, when a resume intent is pending, returns straight to
// the captured club and checkout position. The intent is consumed
// either way.
func (c *Controller) SubmitAuth(ctx context.Context, identifier string) error {
	c.mu.Lock()
	if c.phase != PhaseAuth {
		c.mu.Unlock()
		return ErrInvalidPhase
	}
	c.identity = identifier
	c.isGuest = false
	c.role = portal.RoleSupporter
	c.negotiator = nil
	intent := c.pendingResume
	c.pendingResume = nil
	if intent == nil {
		c.phase = PhaseSelectingClub
		c.mu.Unlock()
		return nil
	}
	c.portal = intent.portal
	c.phase = PhaseInPortal
	c.mu.Unlock()

	if err := intent.portal.SetRole(portal.RoleSupporter); err != nil {
		return err
	}
	if intent.toCheckout {
		intent.portal.ResumeCheckout()
	}
	return nil
}

// SkipAuth continues to club selection as a guest.
func (c *Controller) SkipAuth() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseAuth {
		return ErrInvalidPhase
	}
	c.isGuest = true
	c.role = portal.RoleGuest
	c.identity = ""
	c.negotiator = nil
	c.pendingResume = nil
	c.phase = PhaseSelectingClub
	return nil
}

// RequestLogin interrupts the portal for authentication. The portal
// and the checkout flag are captured so SubmitAuth can return the
// user exactly where they left off, carts included. This is the only
// deferral mechanism: guest affordances never branch on their own.
func (c *Controller) RequestLogin(fromCheckout bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseInPortal && c.portal != nil {
		c.pendingResume = &resumeIntent{portal: c.portal, toCheckout: fromCheckout}
		c.portal = nil
	}
	c.enterAuthLocked()
}

// SelectClub moves selecting-club to in-portal, creating the portal
// for the chosen club with the session's current role.
func (c *Controller) SelectClub(ctx context.Context, clubID string) error {
	c.mu.Lock()
	if c.phase != PhaseSelectingClub {
		c.mu.Unlock()
		return ErrInvalidPhase
	}
	role := c.role
	c.mu.Unlock()

	club, err := c.catalog.ClubByID(ctx, clubID)
	if err != nil {
		return err
	}
	opts := append(append([]portal.Option(nil), c.portalOpts...), portal.WithHistory(c.history))
	p, err := portal.New(c, c.catalog, club, role, opts...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseSelectingClub {
		return ErrInvalidPhase
	}
	c.portal = p
	c.phase = PhaseInPortal
	return nil
}

// ChangeClub leaves the portal and returns to club selection, keeping
// the identity.
func (c *Controller) ChangeClub() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseInPortal {
		return
	}
	c.portal = nil
	c.phase = PhaseSelectingClub
}

// Logout clears the identity from any phase and returns to club
// selection as a guest.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = ""
	c.isGuest = true
	c.role = portal.RoleGuest
	c.portal = nil
	c.negotiator = nil
	c.pendingResume = nil
	c.phase = PhaseSelectingClub
}

// AssignRole records an elevated role granted by an external
// authorization collaborator. Requires an authenticated session; the
// active portal, if any, follows the change.
func (c *Controller) AssignRole(role portal.Role) error {
	c.mu.Lock()
	if c.isGuest {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if _, err := portal.TabsFor(role); err != nil {
		c.mu.Unlock()
		return err
	}
	c.role = role
	p := c.portal
	c.mu.Unlock()

	if p != nil {
		return p.SetRole(role)
	}
	return nil
}

// enterAuthLocked starts a fresh verification attempt. The negotiator's
// completion signal feeds back into SubmitAuth.
func (c *Controller) enterAuthLocked() {
	c.phase = PhaseAuth
	c.negotiator = otp.New(func(identifier string) {
		_ = c.SubmitAuth(context.Background(), identifier)
	}, c.otpOpts...)
}

var _ portal.Session = (*Controller)(nil)
