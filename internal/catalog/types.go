package catalog

import "time"

// Club is an immutable catalog entity describing a followable club.
type Club struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Logo           string `json:"logo"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	Supporters     int    `json:"supporters"`
	Tier           string `json:"tier"`
	Region         string `json:"region,omitempty"`
}

// Product is a merchandise item. Prices are minor currency units.
type Product struct {
	ID     string   `json:"id"`
	ClubID string   `json:"club_id"`
	Name   string   `json:"name"`
	Price  int64    `json:"price"`
	Sizes  []string `json:"sizes,omitempty"`
	Colors []string `json:"colors,omitempty"`
}

// TicketCategory is a priced admission tier for a single match.
type TicketCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// MatchInfo describes one fixture with its admission categories.
type MatchInfo struct {
	ID         string           `json:"id"`
	ClubID     string           `json:"club_id"`
	Home       string           `json:"home"`
	Away       string           `json:"away"`
	KickOff    time.Time        `json:"kick_off"`
	Venue      string           `json:"venue"`
	Categories []TicketCategory `json:"categories"`
}

// Category returns the admission category with the given id, if any.
func (m MatchInfo) Category(id string) (TicketCategory, bool) {
	for _, c := range m.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return TicketCategory{}, false
}

// NewsItem is a published club news entry.
type NewsItem struct {
	ID          string    `json:"id"`
	ClubID      string    `json:"club_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
}

// MembershipTier is a yearly membership offer.
type MembershipTier struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PricePerYear int64    `json:"price_per_year"`
	Perks        []string `json:"perks,omitempty"`
}
