// Package catalog supplies the read-only data the portal renders: clubs,
// merchandise, fixtures, news and membership tiers. Implementations hold
// immutable data; nothing in the application mutates catalog entities.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a catalog entity does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Provider exposes ordered, read-only catalog accessors. It is injected
// into the controllers so the core stays testable with fixture data.
type Provider interface {
	Clubs(ctx context.Context) ([]Club, error)
	ClubByID(ctx context.Context, id string) (Club, error)
	Products(ctx context.Context, clubID string) ([]Product, error)
	ProductByID(ctx context.Context, id string) (Product, error)
	Matches(ctx context.Context, clubID string) ([]MatchInfo, error)
	MatchByID(ctx context.Context, id string) (MatchInfo, error)
	News(ctx context.Context, clubID string) ([]NewsItem, error)
	MembershipTiers(ctx context.Context) ([]MembershipTier, error)
}

// Static is an in-memory Provider seeded at construction.
type Static struct {
	clubs    []Club
	products []Product
	matches  []MatchInfo
	news     []NewsItem
	tiers    []MembershipTier
}

var _ Provider = (*Static)(nil)

// NewStatic builds a provider over the given fixtures.
func NewStatic(clubs []Club, products []Product, matches []MatchInfo, news []NewsItem, tiers []MembershipTier) *Static {
	return &Static{
		clubs:    clubs,
		products: products,
		matches:  matches,
		news:     news,
		tiers:    tiers,
	}
}

// NewDemo initialises a provider with the demo dataset used by the API
// server and the smoke binary.
func NewDemo(now time.Time) *Static {
	kickoffA := now.Add(72 * time.Hour)
	kickoffB := now.Add(9 * 24 * time.Hour)
	return NewStatic(
		[]Club{
			{ID: "rsc-vermillon", Name: "RSC Vermillon", Logo: "vermillon.png", PrimaryColor: "#B3122F", SecondaryColor: "#FFFFFF", Supporters: 48213, Tier: "pro", Region: "north"},
			{ID: "us-lazure", Name: "US L'Azure", Logo: "lazure.png", PrimaryColor: "#1348C2", SecondaryColor: "#F5D042", Supporters: 30517, Tier: "pro", Region: "coast"},
			{ID: "fc-granit", Name: "FC Granit", Logo: "granit.png", PrimaryColor: "#3C3F44", SecondaryColor: "#9BD1E5", Supporters: 12044, Tier: "amateur", Region: "east"},
		},
		[]Product{
			{ID: "jersey-home", ClubID: "rsc-vermillon", Name: "Home Jersey 25/26", Price: 8990, Sizes: []string{"S", "M", "L", "XL"}, Colors: []string{"red", "white"}},
			{ID: "scarf-derby", ClubID: "rsc-vermillon", Name: "Derby Scarf", Price: 2490, Colors: []string{"red"}},
			{ID: "cap-classic", ClubID: "rsc-vermillon", Name: "Classic Cap", Price: 1990, Sizes: []string{"uni"}, Colors: []string{"red", "black"}},
		},
		[]MatchInfo{
			{
				ID: "match-derby", ClubID: "rsc-vermillon", Home: "RSC Vermillon", Away: "US L'Azure",
				KickOff: kickoffA, Venue: "Stade Vermillon",
				Categories: []TicketCategory{
					{ID: "tribune", Name: "Tribune", Price: 2500},
					{ID: "pelouse", Name: "Pelouse", Price: 1500},
					{ID: "vip", Name: "VIP Lounge", Price: 9000},
				},
			},
			{
				ID: "match-granit", ClubID: "rsc-vermillon", Home: "FC Granit", Away: "RSC Vermillon",
				KickOff: kickoffB, Venue: "Roc Arena",
				Categories: []TicketCategory{
					{ID: "tribune", Name: "Tribune", Price: 2000},
					{ID: "pelouse", Name: "Pelouse", Price: 1200},
				},
			},
		},
		[]NewsItem{
			{ID: "news-1", ClubID: "rsc-vermillon", Title: "Derby week begins", Body: "Training opens to supporters on Thursday.", PublishedAt: now.Add(-26 * time.Hour)},
			{ID: "news-2", ClubID: "rsc-vermillon", Title: "New away kit revealed", Body: "The 25/26 away kit goes on sale this weekend.", PublishedAt: now.Add(-3 * 24 * time.Hour)},
		},
		[]MembershipTier{
			{ID: "tier-supporter", Name: "Supporter", PricePerYear: 3500, Perks: []string{"newsletter", "presale access"}},
			{ID: "tier-ultra", Name: "Ultra", PricePerYear: 9900, Perks: []string{"newsletter", "presale access", "away travel club"}},
		},
	)
}

func (s *Static) Clubs(ctx context.Context) ([]Club, error) {
	return append([]Club(nil), s.clubs...), nil
}

func (s *Static) ClubByID(ctx context.Context, id string) (Club, error) {
	for _, c := range s.clubs {
		if c.ID == id {
			return c, nil
		}
	}
	return Club{}, ErrNotFound
}

func (s *Static) Products(ctx context.Context, clubID string) ([]Product, error) {
	var out []Product
	for _, p := range s.products {
		if p.ClubID == clubID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Static) ProductByID(ctx context.Context, id string) (Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (s *Static) Matches(ctx context.Context, clubID string) ([]MatchInfo, error) {
	var out []MatchInfo
	for _, m := range s.matches {
		if m.ClubID == clubID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Static) MatchByID(ctx context.Context, id string) (MatchInfo, error) {
	for _, m := range s.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return MatchInfo{}, ErrNotFound
}

func (s *Static) News(ctx context.Context, clubID string) ([]NewsItem, error) {
	var out []NewsItem
	for _, n := range s.news {
		if n.ClubID == clubID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Static) MembershipTiers(ctx context.Context) ([]MembershipTier, error) {
	return append([]MembershipTier(nil), s.tiers...), nil
}
