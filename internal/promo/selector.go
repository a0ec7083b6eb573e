// Package promo selects the currently active promotion and records
// view/conversion analytics against it. Promotions are authored by the
// admin surface; this package only reads and counts.
package promo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cymasphere/campaign-engine/internal/domain"
	"github.com/cymasphere/campaign-engine/internal/pkg/timewindow"
)

var (
	// ErrNotFound is returned when tracking references an unknown promotion.
	ErrNotFound = errors.New("promotion not found")
	// ErrInvalidKind is returned for a tracking kind other than view/conversion.
	ErrInvalidKind = errors.New("invalid tracking kind")
)

// TrackKind identifies what a tracking call counts.
type TrackKind string

const (
	TrackView       TrackKind = "view"
	TrackConversion TrackKind = "conversion"
)

// Selector picks the highest-priority active promotion for a plan.
type Selector struct {
	db *sql.DB
}

// NewSelector creates a promotion selector backed by PostgreSQL.
func NewSelector(db *sql.DB) *Selector {
	return &Selector{db: db}
}

// ActiveFor returns the single highest-priority promotion that is active,
// inside its time window at now, and applicable to plan (empty plan matches
// all). The second return is the count of promotions surviving the filters.
// Returns (nil, 0, nil) when nothing is active.
//
// Equal priorities tie-break on insertion order of the backing store;
// callers must not assume anything richer.
func (s *Selector) ActiveFor(ctx context.Context, plan string, now time.Time) (*domain.Promotion, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(title,''), active, priority,
		       start_date, end_date, COALESCE(applicable_plans, '{}'),
		       COALESCE(discount_type,''), COALESCE(discount_value,0),
		       views, conversions, revenue, created_at, updated_at
		FROM promotions
		WHERE active = true
		ORDER BY priority DESC, created_at ASC
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("load active promotions: %w", err)
	}
	defer rows.Close()

	var selected *domain.Promotion
	count := 0
	for rows.Next() {
		var p domain.Promotion
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Title, &p.Active, &p.Priority,
			&p.StartDate, &p.EndDate, pq.Array(&p.ApplicablePlans),
			&p.DiscountType, &p.DiscountValue,
			&p.Views, &p.Conversions, &p.Revenue, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan promotion: %w", err)
		}

		// Window check is done in-process, in the reference timezone,
		// matching the admin surface's notion of "currently running".
		if !timewindow.Contains(p.StartDate, p.EndDate, now) {
			continue
		}
		if !p.AppliesTo(plan) {
			continue
		}

		count++
		if selected == nil {
			selected = &p
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate promotions: %w", err)
	}
	return selected, count, nil
}

// Track records a view or conversion against a promotion. Increments are
// single atomic statements at the datastore; concurrent trackers never
// lose updates to a read-modify-write race.
func (s *Selector) Track(ctx context.Context, promotionID string, kind TrackKind, value float64) error {
	var res sql.Result
	var err error

	switch kind {
	case TrackView:
		res, err = s.db.ExecContext(ctx, `
			UPDATE promotions
			SET views = views + 1, updated_at = NOW()
			WHERE id = $1
		`, promotionID)
	case TrackConversion:
		res, err = s.db.ExecContext(ctx, `
			UPDATE promotions
			SET conversions = conversions + 1,
			    revenue = revenue + $2,
			    updated_at = NOW()
			WHERE id = $1
		`, promotionID, value)
	default:
		return ErrInvalidKind
	}

	if err != nil {
		return fmt.Errorf("track promotion %s: %w", kind, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
