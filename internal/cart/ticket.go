package cart

import (
	"sync"

	"tribuna.app/internal/catalog"
)

// TicketSelection is a quantity of one admission category for the
// ticket cart's target match.
type TicketSelection struct {
	Category catalog.TicketCategory `json:"category"`
	Quantity int                    `json:"quantity"`
}

// TicketCart holds category selections for exactly one match. Changing
// the target match always resets the selections so a half-finished
// selection for match A can never leak into a purchase for match B.
type TicketCart struct {
	mu         sync.Mutex
	match      catalog.MatchInfo
	hasMatch   bool
	selections []TicketSelection
}

// NewTicketCart creates a ticket cart with no target match.
func NewTicketCart() *TicketCart {
	return &TicketCart{}
}

// SetMatch targets a fixture. Selections survive only when the match is
// unchanged.
func (t *TicketCart) SetMatch(m catalog.MatchInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasMatch && t.match.ID == m.ID {
		t.match = m
		return
	}
	t.match = m
	t.hasMatch = true
	t.selections = nil
}

// Match returns the current target fixture, if one is set.
func (t *TicketCart) Match() (catalog.MatchInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.match, t.hasMatch
}

// SetSelections replaces the entire cart contents for the target match.
// Quantities are absolute per category; zero means "not selected".
// Selections keep the category order of the match.
func (t *TicketCart) SetSelections(quantities map[string]int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasMatch {
		return ErrNoMatch
	}
	for id, qty := range quantities {
		if qty < 0 {
			return ErrInvalidQuantity
		}
		if _, ok := t.match.Category(id); !ok {
			return ErrUnknownCategory
		}
	}
	var next []TicketSelection
	for _, c := range t.match.Categories {
		if qty := quantities[c.ID]; qty > 0 {
			next = append(next, TicketSelection{Category: c, Quantity: qty})
		}
	}
	t.selections = next
	return nil
}

// Selections returns a copy of the current selection lines.
func (t *TicketCart) Selections() []TicketSelection {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TicketSelection, len(t.selections))
	copy(out, t.selections)
	return out
}

// Total sums category price times quantity over all selections.
func (t *TicketCart) Total() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total int64
	for _, s := range t.selections {
		total += s.Category.Price * int64(s.Quantity)
	}
	return total
}

// Empty reports whether no category is selected.
func (t *TicketCart) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.selections) == 0
}

// Clear drops the selections but keeps the target match.
func (t *TicketCart) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selections = nil
}
