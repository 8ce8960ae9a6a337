// Package otp drives the phone-entry and code-verification flow. The
// negotiator simulates the external verification service at its
// input/output contract: it validates phone shape locally, resolves a
// submitted code after a fixed latency and emits a single completion
// signal carrying the verified identifier.
package otp

import (
	"strings"
	"sync"
	"time"

	"tribuna.app/internal/obs"
)

// State is the lifecycle stage of one verification attempt.
type State string

const (
	// StateEnteringPhone awaits a syntactically valid mobile number.
	StateEnteringPhone State = "entering-phone"
	// StateCodeSent awaits the six code digits.
	StateCodeSent State = "code-sent"
	// StateVerifying holds while the simulated check is in flight.
	StateVerifying State = "verifying"
	// StateVerified precedes the completion signal.
	StateVerified State = "verified"
	// StateRejected auto-resets back to StateCodeSent.
	StateRejected State = "rejected"
)

const (
	codeLength = 6

	defaultAcceptedCode   = "123456"
	defaultVerifyLatency  = 1500 * time.Millisecond
	defaultRejectReset    = 1500 * time.Millisecond
	defaultConfirmDelay   = 800 * time.Millisecond
	defaultResendCooldown = 60 * time.Second
	defaultPhoneLength    = 10
)

var defaultPhonePrefixes = []string{"06", "07"}

// Scheduler defers fn by d. The default wraps time.AfterFunc; tests
// install a manual scheduler to fire transitions deterministically.
type Scheduler func(d time.Duration, fn func())

// Negotiator is the verification state machine. All waits are expressed
// as scheduled future transitions; no method blocks.
type Negotiator struct {
	mu sync.Mutex

	state  State
	phone  string
	digits string
	gen    uint64

	resendDeadline time.Time

	onVerified func(identifier string)

	now      func() time.Time
	schedule Scheduler

	prefixes       []string
	phoneLength    int
	acceptedCode   string
	verifyLatency  time.Duration
	rejectReset    time.Duration
	confirmDelay   time.Duration
	resendCooldown time.Duration
}

// Option configures Negotiator behavior.
type Option func(*Negotiator)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(n *Negotiator) {
		if fn != nil {
			n.now = fn
		}
	}
}

// WithScheduler overrides the transition scheduler.
func WithScheduler(s Scheduler) Option {
	return func(n *Negotiator) {
		if s != nil {
			n.schedule = s
		}
	}
}

// WithAcceptedCode overrides the code treated as verified.
func WithAcceptedCode(code string) Option {
	return func(n *Negotiator) {
		if len(code) == codeLength {
			n.acceptedCode = code
		}
	}
}

// WithResendCooldown overrides the resend cooldown window.
func WithResendCooldown(d time.Duration) Option {
	return func(n *Negotiator) {
		if d > 0 {
			n.resendCooldown = d
		}
	}
}

// WithDelays overrides the simulated verify latency, the rejected
// auto-reset delay and the verified confirmation delay.
func WithDelays(verify, reject, confirm time.Duration) Option {
	return func(n *Negotiator) {
		if verify > 0 {
			n.verifyLatency = verify
		}
		if reject > 0 {
			n.rejectReset = reject
		}
		if confirm > 0 {
			n.confirmDelay = confirm
		}
	}
}

// New creates a negotiator in StateEnteringPhone. onVerified is the
// completion signal emitted upward once, after the confirmation delay.
func New(onVerified func(identifier string), opts ...Option) *Negotiator {
	n := &Negotiator{
		state:          StateEnteringPhone,
		onVerified:     onVerified,
		now:            time.Now,
		prefixes:       defaultPhonePrefixes,
		phoneLength:    defaultPhoneLength,
		acceptedCode:   defaultAcceptedCode,
		verifyLatency:  defaultVerifyLatency,
		rejectReset:    defaultRejectReset,
		confirmDelay:   defaultConfirmDelay,
		resendCooldown: defaultResendCooldown,
	}
	n.schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ValidPhone reports whether the number matches the mobile-prefix rule:
// fixed-length digits beginning with a whitelisted prefix. The submit
// affordance stays disabled for anything else, so an invalid number can
// never reach SubmitPhone in the UI.
func (n *Negotiator) ValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if len(phone) != n.phoneLength {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, p := range n.prefixes {
		if strings.HasPrefix(phone, p) {
			return true
		}
	}
	return false
}

// SubmitPhone moves entering-phone to code-sent and starts the resend
// cooldown.
func (n *Negotiator) SubmitPhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if !n.ValidPhone(phone) {
		return ErrInvalidPhone
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != StateEnteringPhone {
		return ErrInvalidState
	}
	n.phone = phone
	n.digits = ""
	n.state = StateCodeSent
	n.resendDeadline = n.now().Add(n.resendCooldown)
	n.gen++
	return nil
}

// EnterDigit appends one code digit. Collecting the sixth digit starts
// verification.
func (n *Negotiator) EnterDigit(d byte) error {
	if d < '0' || d > '9' {
		return ErrInvalidDigit
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != StateCodeSent {
		return ErrInvalidState
	}
	n.digits += string(d)
	if len(n.digits) == codeLength {
		n.beginVerifyLocked()
	}
	return nil
}

// PasteCode bulk-enters a full six-digit code. Pasting during an
// in-flight verification supersedes it and restarts the latency.
func (n *Negotiator) PasteCode(code string) error {
	code = strings.TrimSpace(code)
	if len(code) != codeLength {
		return ErrInvalidDigit
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrInvalidDigit
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != StateCodeSent && n.state != StateVerifying {
		return ErrInvalidState
	}
	n.digits = code
	n.beginVerifyLocked()
	return nil
}

// Resend requests a fresh code. Permitted only once the cooldown has
// expired; it clears entered digits and restarts the cooldown without
// changing phase.
func (n *Negotiator) Resend() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != StateCodeSent {
		return ErrInvalidState
	}
	if n.now().Before(n.resendDeadline) {
		return ErrResendCooldown
	}
	n.digits = ""
	n.resendDeadline = n.now().Add(n.resendCooldown)
	return nil
}

// ResendRemaining returns the time left until resend is permitted.
func (n *Negotiator) ResendRemaining() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	remaining := n.resendDeadline.Sub(n.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// State returns the current lifecycle stage.
func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Phone returns the submitted number.
func (n *Negotiator) Phone() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.phone
}

// Digits returns the code digits entered so far.
func (n *Negotiator) Digits() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.digits
}

func (n *Negotiator) beginVerifyLocked() {
	n.state = StateVerifying
	n.gen++
	gen := n.gen
	n.schedule(n.verifyLatency, func() { n.resolve(gen) })
}

// resolve fires when the simulated latency elapses. Stale generations
// were superseded by a newer attempt and are dropped.
func (n *Negotiator) resolve(gen uint64) {
	n.mu.Lock()
	if n.gen != gen || n.state != StateVerifying {
		n.mu.Unlock()
		return
	}
	if n.digits == n.acceptedCode {
		n.state = StateVerified
		n.gen++
		next := n.gen
		n.schedule(n.confirmDelay, func() { n.emit(next) })
		n.mu.Unlock()
		obs.CountVerification("verified")
		return
	}
	n.state = StateRejected
	n.gen++
	next := n.gen
	n.schedule(n.rejectReset, func() { n.resetAfterReject(next) })
	n.mu.Unlock()
	obs.CountVerification("rejected")
}

// resetAfterReject returns a rejected attempt to code-sent with
// cleared digits.
func (n *Negotiator) resetAfterReject(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.gen != gen || n.state != StateRejected {
		return
	}
	n.state = StateCodeSent
	n.digits = ""
}

// emit delivers the completion signal outside the lock.
func (n *Negotiator) emit(gen uint64) {
	n.mu.Lock()
	if n.gen != gen || n.state != StateVerified {
		n.mu.Unlock()
		return
	}
	callback := n.onVerified
	identifier := n.phone
	n.mu.Unlock()
	if callback != nil {
		callback(identifier)
	}
}
