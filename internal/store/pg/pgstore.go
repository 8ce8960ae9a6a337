// Package pg archives purchased tickets to PostgreSQL. The in-process
// history stays authoritative for the running session; the archive is
// the durable record consumed by back-office tooling.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tribuna.app/internal/checkout"
)

var ErrNotFound = errors.New("pg: ticket not found")

type Store struct {
	db *sql.DB
}

var _ checkout.Archiver = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle (used by tests and the migrator).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// ArchiveTickets writes one row per purchase record. Replayed records
// are skipped on conflict, so a retried fan-out cannot duplicate rows.
func (s *Store) ArchiveTickets(ctx context.Context, tickets []checkout.PurchasedTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range tickets {
		if _, err := tx.ExecContext(ctx, `
			insert into purchased_tickets(
				id, match_id, club_id, home_team, away_team, kickoff, venue,
				category_id, category_name, category_price,
				quantity, purchased_at, status, scanned)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			on conflict (id) do nothing
		`, t.ID, t.Match.ID, t.Match.ClubID, t.Match.Home, t.Match.Away,
			t.Match.KickOff, t.Match.Venue,
			t.Category.ID, t.Category.Name, t.Category.Price,
			t.Quantity, t.PurchasedAt, string(t.Status), t.Scanned); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListTickets returns archived purchases, oldest first.
func (s *Store) ListTickets(ctx context.Context, limit int) ([]checkout.PurchasedTicket, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, match_id, club_id, home_team, away_team, kickoff, venue,
		       category_id, category_name, category_price,
		       quantity, purchased_at, status, scanned
		from purchased_tickets
		order by purchased_at asc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []checkout.PurchasedTicket
	for rows.Next() {
		var t checkout.PurchasedTicket
		var status string
		if err := rows.Scan(&t.ID, &t.Match.ID, &t.Match.ClubID, &t.Match.Home,
			&t.Match.Away, &t.Match.KickOff, &t.Match.Venue,
			&t.Category.ID, &t.Category.Name, &t.Category.Price,
			&t.Quantity, &t.PurchasedAt, &status, &t.Scanned); err != nil {
			return nil, err
		}
		t.Status = checkout.TicketStatus(status)
		res = append(res, t)
	}
	return res, rows.Err()
}

// MarkScanned records a turnstile scan in the archive.
func (s *Store) MarkScanned(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		update purchased_tickets set scanned = true where id = $1
	`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus updates one archived ticket's lifecycle status.
func (s *Store) SetStatus(ctx context.Context, id string, status checkout.TicketStatus) error {
	res, err := s.db.ExecContext(ctx, `
		update purchased_tickets set status = $2 where id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshStatuses derives past status for upcoming tickets whose match
// has kicked off. Cancelled rows are untouched.
func (s *Store) RefreshStatuses(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		update purchased_tickets
		set status = 'past'
		where status = 'upcoming' and kickoff < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
