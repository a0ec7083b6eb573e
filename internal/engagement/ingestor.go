// Package engagement turns raw tracking pings into engagement events and
// campaign metrics. Every accepted ping is recorded for auditability; only
// the first human-classified ping per tracking token moves the campaign's
// distinct-open (or distinct-click) counter.
package engagement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cymasphere/campaign-engine/internal/domain"
	"github.com/cymasphere/campaign-engine/internal/pkg/logger"
)

// ErrUnknownToken is returned for pings whose token matches no send record.
// Nothing is recorded and no counters move.
var ErrUnknownToken = errors.New("unknown tracking token")

// Ingestor records tracking pings against send records.
type Ingestor struct {
	db         *sql.DB
	classifier Classifier
}

// NewIngestor creates an ingestor with the given classifier. A nil
// classifier gets the default substring heuristic.
func NewIngestor(db *sql.DB, c Classifier) *Ingestor {
	if c == nil {
		c = NewSubstringClassifier()
	}
	return &Ingestor{db: db, classifier: c}
}

// sendRef is the resolved identity of a tracking token.
type sendRef struct {
	ID           string
	CampaignID   string
	SubscriberID sql.NullString
	Email        string
}

// IngestOpen processes an open ping for the given token. Safe for
// concurrent use across tokens and against duplicate concurrent pings for
// the same token: the once-per-token rule is enforced by an atomic
// check-and-set on the send row's opened_at column.
func (in *Ingestor) IngestOpen(ctx context.Context, token string, sig domain.Signature) error {
	return in.ingest(ctx, token, sig, domain.EngagementOpen, "")
}

// IngestClick processes a click ping for the given token. linkURL is the
// decoded redirect target, recorded on the event for auditability.
func (in *Ingestor) IngestClick(ctx context.Context, token string, sig domain.Signature, linkURL string) error {
	return in.ingest(ctx, token, sig, domain.EngagementClick, linkURL)
}

func (in *Ingestor) ingest(ctx context.Context, token string, sig domain.Signature, kind domain.EngagementType, linkURL string) error {
	ref, err := in.resolveToken(ctx, token)
	if err != nil {
		return err
	}

	class := in.classifier.Classify(sig)

	// Subscriber linkage is best-effort: send records may be created
	// without one, in which case we fall back to a read-only lookup by
	// the stored recipient address. The missing linkage is not repaired.
	subscriberID := ref.SubscriberID
	if !subscriberID.Valid {
		subscriberID = in.lookupSubscriberByEmail(ctx, ref.Email)
	}

	// The event is appended regardless of classification.
	_, err = in.db.ExecContext(ctx, `
		INSERT INTO email_opens
			(id, send_id, campaign_id, subscriber_id, event_type,
			 ip_address, user_agent, classification, link_url, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`, uuid.New().String(), ref.ID, ref.CampaignID, subscriberID, kind,
		sig.IPAddress, sig.UserAgent, class, linkURL)
	if err != nil {
		return fmt.Errorf("record engagement event: %w", err)
	}

	if class != domain.ClassHuman {
		logger.Debug("bot ping ignored for metrics",
			"token", logger.RedactToken(token), "user_agent", sig.UserAgent)
		return nil
	}

	return in.countDistinct(ctx, ref, kind)
}

// countDistinct applies the once-per-token increment. The send row's
// opened_at/clicked_at column transitions NULL to NOW() exactly once; the
// campaign aggregate moves only when this ping won that transition.
func (in *Ingestor) countDistinct(ctx context.Context, ref *sendRef, kind domain.EngagementType) error {
	flagColumn := "opened_at"
	counterColumn := "emails_opened"
	if kind == domain.EngagementClick {
		flagColumn = "clicked_at"
		counterColumn = "emails_clicked"
	}

	res, err := in.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE email_sends SET %s = NOW()
		WHERE id = $1 AND %s IS NULL
	`, flagColumn, flagColumn), ref.ID)
	if err != nil {
		return fmt.Errorf("mark send %s: %w", kind, err)
	}

	claimed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark send %s: %w", kind, err)
	}
	if claimed == 0 {
		// A prior human ping already counted this token.
		return nil
	}

	_, err = in.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE email_campaigns
		SET %s = %s + 1, updated_at = NOW()
		WHERE id = $1
	`, counterColumn, counterColumn), ref.CampaignID)
	if err != nil {
		return fmt.Errorf("increment campaign %s: %w", counterColumn, err)
	}
	return nil
}

func (in *Ingestor) resolveToken(ctx context.Context, token string) (*sendRef, error) {
	ref := &sendRef{}
	err := in.db.QueryRowContext(ctx, `
		SELECT id, campaign_id, subscriber_id, email
		FROM email_sends
		WHERE tracking_token = $1
	`, token).Scan(&ref.ID, &ref.CampaignID, &ref.SubscriberID, &ref.Email)
	if err == sql.ErrNoRows {
		return nil, ErrUnknownToken
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return ref, nil
}

func (in *Ingestor) lookupSubscriberByEmail(ctx context.Context, email string) sql.NullString {
	var id sql.NullString
	err := in.db.QueryRowContext(ctx, `
		SELECT id FROM subscribers WHERE LOWER(email) = LOWER($1) LIMIT 1
	`, email).Scan(&id)
	if err != nil {
		return sql.NullString{}
	}
	return id
}
