// Package checkout finalizes carts into confirmed transactions. The
// pipeline reacts to the opaque payment-confirmed signal of the payment
// collaborator; it never inspects payment methods or fees.
package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tribuna.app/internal/cart"
	"tribuna.app/internal/ids"
)

// Order is the confirmation record of a merchandise checkout.
type Order struct {
	Reference   string      `json:"reference"`
	Lines       []cart.Line `json:"lines"`
	Total       int64       `json:"total"`
	CompletedAt time.Time   `json:"completed_at"`
}

// Pipeline finalizes the portal's two carts.
type Pipeline struct {
	merch   *cart.Cart
	tickets *cart.TicketCart
	history *History
	now     func() time.Time
}

// Option configures Pipeline behavior.
type Option func(*Pipeline)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.now = fn
		}
	}
}

// New wires the pipeline to the carts it finalizes and the history it
// appends to.
func New(merch *cart.Cart, tickets *cart.TicketCart, history *History, opts ...Option) *Pipeline {
	p := &Pipeline{
		merch:   merch,
		tickets: tickets,
		history: history,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// History exposes the purchased-ticket record.
func (p *Pipeline) History() *History {
	return p.history
}

// CompleteMerchandise reacts to a payment-confirmed signal for the
// merchandise cart. The empty-cart precondition makes a retried
// confirmation a no-op, so duplicate orders cannot be produced.
func (p *Pipeline) CompleteMerchandise(ctx context.Context) (Order, error) {
	if p.merch.Empty() {
		return Order{}, ErrEmptyCart
	}
	order := Order{
		Reference:   uuid.NewString(),
		Lines:       p.merch.Lines(),
		Total:       p.merch.Total(),
		CompletedAt: p.now().UTC(),
	}
	p.merch.Clear()
	return order, nil
}

// CompleteTickets reacts to a payment-confirmed signal for the ticket
// cart. Every selected category line becomes exactly one PurchasedTicket
// carrying the full quantity. The empty-cart precondition guards
// against duplicated purchase records on retried confirmations.
func (p *Pipeline) CompleteTickets(ctx context.Context) ([]PurchasedTicket, error) {
	match, ok := p.tickets.Match()
	if !ok {
		return nil, ErrNoMatch
	}
	selections := p.tickets.Selections()
	if len(selections) == 0 {
		return nil, ErrEmptyCart
	}

	now := p.now().UTC()
	purchased := make([]PurchasedTicket, 0, len(selections))
	for _, sel := range selections {
		purchased = append(purchased, PurchasedTicket{
			ID:          ids.New(),
			Match:       match,
			Category:    sel.Category,
			Quantity:    sel.Quantity,
			PurchasedAt: now,
			Status:      TicketStatusUpcoming,
			Scanned:     false,
		})
	}
	p.history.Append(ctx, purchased)
	p.tickets.Clear()
	return purchased, nil
}
