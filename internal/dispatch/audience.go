package dispatch

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cymasphere/campaign-engine/internal/domain"
)

// SubscriberResolver resolves a campaign's audience from the subscribers
// table via the campaign's attached audiences. Only active subscribers are
// returned; a subscriber in several attached audiences appears once.
type SubscriberResolver struct {
	db *sql.DB
}

// NewSubscriberResolver creates a resolver backed by PostgreSQL.
func NewSubscriberResolver(db *sql.DB) *SubscriberResolver {
	return &SubscriberResolver{db: db}
}

// Resolve returns the deduplicated active recipients for a campaign.
func (r *SubscriberResolver) Resolve(ctx context.Context, campaignID string) ([]domain.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT s.id, s.email,
		       COALESCE(s.first_name, ''), COALESCE(s.last_name, '')
		FROM subscribers s
		JOIN audience_subscribers asub ON asub.subscriber_id = s.id
		JOIN campaign_audiences ca ON ca.audience_id = asub.audience_id
		WHERE ca.campaign_id = $1 AND s.status = 'active'
		ORDER BY s.email
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query audience: %w", err)
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var id string
		var rcpt domain.Recipient
		if err := rows.Scan(&id, &rcpt.Email, &rcpt.FirstName, &rcpt.LastName); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		rcpt.SubscriberID = &id
		recipients = append(recipients, rcpt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}
	return recipients, nil
}
