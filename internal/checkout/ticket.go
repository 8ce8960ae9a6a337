package checkout

import (
	"context"
	"sync"
	"time"

	"tribuna.app/internal/catalog"
	"tribuna.app/internal/obs"
)

// TicketStatus is the lifecycle state of a purchased ticket.
type TicketStatus string

const (
	TicketStatusUpcoming  TicketStatus = "upcoming"
	TicketStatusPast      TicketStatus = "past"
	TicketStatusCancelled TicketStatus = "cancelled"
)

func validStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusUpcoming, TicketStatusPast, TicketStatusCancelled:
		return true
	}
	return false
}

// PurchasedTicket is one confirmed admission purchase. Match and
// category are snapshots taken at purchase time; only Status and
// Scanned change afterwards, driven by external collaborators.
type PurchasedTicket struct {
	ID          string                 `json:"id"`
	Match       catalog.MatchInfo      `json:"match"`
	Category    catalog.TicketCategory `json:"category"`
	Quantity    int                    `json:"quantity"`
	PurchasedAt time.Time              `json:"purchased_at"`
	Status      TicketStatus           `json:"status"`
	Scanned     bool                   `json:"scanned"`
}

// Archiver receives completed ticket purchases for write-only fan-out
// (for example a relational archive). The in-process history stays
// authoritative; archive failures never fail a checkout.
type Archiver interface {
	ArchiveTickets(ctx context.Context, tickets []PurchasedTicket) error
}

// History is the per-user record of purchased tickets.
type History struct {
	mu       sync.Mutex
	tickets  []PurchasedTicket
	archiver Archiver
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithArchiver attaches a purchase archive collaborator.
func WithArchiver(a Archiver) HistoryOption {
	return func(h *History) { h.archiver = a }
}

// NewHistory creates an empty ticket history.
func NewHistory(opts ...HistoryOption) *History {
	h := &History{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Append records freshly purchased tickets and fans them out to the
// archiver when one is configured.
func (h *History) Append(ctx context.Context, tickets []PurchasedTicket) {
	if len(tickets) == 0 {
		return
	}
	h.mu.Lock()
	h.tickets = append(h.tickets, tickets...)
	archiver := h.archiver
	h.mu.Unlock()

	if archiver != nil {
		if err := archiver.ArchiveTickets(ctx, tickets); err != nil {
			obs.Log("warn", "ticket archive failed", map[string]any{"error": err.Error()})
		}
	}
}

// List returns a copy of all purchased tickets, oldest first.
func (h *History) List() []PurchasedTicket {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]PurchasedTicket, len(h.tickets))
	copy(out, h.tickets)
	return out
}

// Find returns the ticket with the given id.
func (h *History) Find(id string) (PurchasedTicket, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return PurchasedTicket{}, ErrTicketNotFound
}

// MarkScanned flags a ticket as consumed at the turnstile.
func (h *History) MarkScanned(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.tickets {
		if h.tickets[i].ID == id {
			h.tickets[i].Scanned = true
			return nil
		}
	}
	return ErrTicketNotFound
}

// SetStatus updates a ticket's lifecycle status.
func (h *History) SetStatus(id string, status TicketStatus) error {
	if !validStatus(status) {
		return ErrInvalidStatus
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.tickets {
		if h.tickets[i].ID == id {
			h.tickets[i].Status = status
			return nil
		}
	}
	return ErrTicketNotFound
}

// Refresh derives statuses from the clock: upcoming tickets whose match
// has kicked off become past. Cancelled tickets are left alone.
func (h *History) Refresh(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.tickets {
		if h.tickets[i].Status == TicketStatusUpcoming && h.tickets[i].Match.KickOff.Before(now) {
			h.tickets[i].Status = TicketStatusPast
		}
	}
}
