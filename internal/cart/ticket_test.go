package cart

import (
	"errors"
	"testing"
	"time"

	"tribuna.app/internal/catalog"
)

func demoMatch(id string) catalog.MatchInfo {
	return catalog.MatchInfo{
		ID:      id,
		ClubID:  "rsc-vermillon",
		Home:    "RSC Vermillon",
		Away:    "US L'Azure",
		KickOff: time.Now().Add(48 * time.Hour),
		Categories: []catalog.TicketCategory{
			{ID: "tribune", Name: "Tribune", Price: 2500},
			{ID: "vip", Name: "VIP Lounge", Price: 9000},
		},
	}
}

func TestSelectionsRequireMatch(t *testing.T) {
	tc := NewTicketCart()
	if err := tc.SetSelections(map[string]int{"tribune": 1}); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestSetSelectionsReplacesContents(t *testing.T) {
	tc := NewTicketCart()
	tc.SetMatch(demoMatch("match-derby"))

	if err := tc.SetSelections(map[string]int{"tribune": 2, "vip": 1}); err != nil {
		t.Fatal(err)
	}
	if got := tc.Total(); got != 2*2500+9000 {
		t.Fatalf("unexpected total: %d", got)
	}

	// A fresh assignment replaces, never merges.
	if err := tc.SetSelections(map[string]int{"vip": 2}); err != nil {
		t.Fatal(err)
	}
	sel := tc.Selections()
	if len(sel) != 1 || sel[0].Category.ID != "vip" || sel[0].Quantity != 2 {
		t.Fatalf("expected single vip line with qty 2, got %v", sel)
	}
}

func TestZeroQuantityMeansNotSelected(t *testing.T) {
	tc := NewTicketCart()
	tc.SetMatch(demoMatch("match-derby"))
	if err := tc.SetSelections(map[string]int{"tribune": 0, "vip": 1}); err != nil {
		t.Fatal(err)
	}
	sel := tc.Selections()
	if len(sel) != 1 || sel[0].Category.ID != "vip" {
		t.Fatalf("expected only vip selected, got %v", sel)
	}
}

func TestSetSelectionsValidation(t *testing.T) {
	tc := NewTicketCart()
	tc.SetMatch(demoMatch("match-derby"))
	if err := tc.SetSelections(map[string]int{"loge": 1}); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if err := tc.SetSelections(map[string]int{"tribune": -1}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestSwitchingMatchResetsSelections(t *testing.T) {
	tc := NewTicketCart()
	tc.SetMatch(demoMatch("match-derby"))
	if err := tc.SetSelections(map[string]int{"tribune": 3}); err != nil {
		t.Fatal(err)
	}

	tc.SetMatch(demoMatch("match-granit"))
	if !tc.Empty() {
		t.Fatalf("expected empty cart after switching match, got %v", tc.Selections())
	}

	// Re-targeting the same match keeps the selections.
	if err := tc.SetSelections(map[string]int{"vip": 1}); err != nil {
		t.Fatal(err)
	}
	tc.SetMatch(demoMatch("match-granit"))
	if tc.Empty() {
		t.Fatal("selections must survive re-selecting the same match")
	}
}
