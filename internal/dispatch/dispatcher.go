// Package dispatch fans a claimed campaign out to its audience. Sends are
// keyed by (campaign, email), so re-dispatching a partially sent campaign
// only reaches recipients with no existing send record.
package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cymasphere/campaign-engine/internal/domain"
	"github.com/cymasphere/campaign-engine/internal/pkg/logger"
	"github.com/cymasphere/campaign-engine/internal/promo"
)

// Transport delivers a fully-composed message to one recipient.
type Transport interface {
	Send(ctx context.Context, msg *domain.Message) (*domain.SendResult, error)
}

// AudienceResolver expands a campaign into its recipient list.
type AudienceResolver interface {
	Resolve(ctx context.Context, campaignID string) ([]domain.Recipient, error)
}

// Result summarizes one dispatch pass over a campaign's audience.
type Result struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Dispatcher sends a campaign to every recipient exactly once.
type Dispatcher struct {
	db          *sql.DB
	transport   Transport
	resolver    AudienceResolver
	composer    *Composer
	promotions  *promo.Selector
	sendTimeout time.Duration
}

// NewDispatcher creates a dispatcher. promotions may be nil, in which case
// campaigns render without promotion variables.
func NewDispatcher(db *sql.DB, transport Transport, resolver AudienceResolver, composer *Composer, promotions *promo.Selector, sendTimeout time.Duration) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		db:          db,
		transport:   transport,
		resolver:    resolver,
		composer:    composer,
		promotions:  promotions,
		sendTimeout: sendTimeout,
	}
}

// Dispatch sends the campaign to its full audience. Individual recipient
// failures are recorded and skipped; the batch keeps going. The returned
// error is reserved for failures that stop the whole dispatch (audience
// resolution, datastore trouble).
//
// Safe to re-run: recipients that already have a send record for this
// campaign are skipped via the (campaign_id, email) uniqueness claim, and
// the final counters are recomputed from send records rather than
// accumulated, so a second pass over a fully sent campaign reports the
// same emails_sent.
func (d *Dispatcher) Dispatch(ctx context.Context, campaign *domain.Campaign) (*Result, error) {
	recipients, err := d.resolver.Resolve(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve audience for campaign %s: %w", campaign.ID, err)
	}

	// Promotion lookup is best-effort; campaigns send without one.
	var activePromo *domain.Promotion
	if d.promotions != nil {
		activePromo, _, err = d.promotions.ActiveFor(ctx, "", time.Now())
		if err != nil {
			logger.Warn("promotion lookup failed, sending without promotion",
				"campaign_id", campaign.ID, "error", err.Error())
			activePromo = nil
		}
	}

	result := &Result{Total: len(recipients)}
	for _, rcpt := range recipients {
		sendID, token, claimed, err := d.claimSend(ctx, campaign.ID, rcpt)
		if err != nil {
			return result, err
		}
		if !claimed {
			// Already sent by a previous dispatch of this campaign.
			continue
		}

		if err := d.sendOne(ctx, campaign, rcpt, sendID, token, activePromo); err != nil {
			result.Failed++
			logger.Warn("send failed",
				"campaign_id", campaign.ID,
				"recipient", rcpt.Email,
				"error", err.Error())
			if err := d.markFailed(ctx, sendID); err != nil {
				return result, err
			}
			continue
		}
		result.Sent++
	}

	if err := d.finalizeCounters(ctx, campaign.ID, result.Total); err != nil {
		return result, err
	}
	return result, nil
}

// claimSend inserts the send record for (campaign, recipient). The unique
// key on (campaign_id, email) makes this the idempotency gate: a recipient
// with a successful send keeps their record and is skipped, while a failed
// record is reclaimed so an operator re-trigger can retry it. A reclaimed
// row keeps its original tracking token; tokens are immutable.
func (d *Dispatcher) claimSend(ctx context.Context, campaignID string, rcpt domain.Recipient) (sendID, token string, claimed bool, err error) {
	var gotID, gotToken string
	err = d.db.QueryRowContext(ctx, `
		INSERT INTO email_sends
			(id, campaign_id, subscriber_id, email, tracking_token, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, 'sent', NOW())
		ON CONFLICT (campaign_id, email) DO UPDATE
		SET status = 'sent', sent_at = NOW()
		WHERE email_sends.status = 'failed'
		RETURNING id, tracking_token
	`, uuid.New().String(), campaignID, rcpt.SubscriberID, rcpt.Email,
		uuid.New().String()).Scan(&gotID, &gotToken)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("claim send for %s: %w",
			logger.RedactEmail(rcpt.Email), err)
	}
	return gotID, gotToken, true, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, campaign *domain.Campaign, rcpt domain.Recipient, sendID, token string, activePromo *domain.Promotion) error {
	composed, err := d.composer.Compose(campaign, rcpt, token, activePromo)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	msg := &domain.Message{
		SendID:      sendID,
		CampaignID:  campaign.ID,
		Email:       rcpt.Email,
		FromName:    campaign.SenderName,
		FromEmail:   campaign.SenderEmail,
		ReplyTo:     campaign.ReplyTo,
		Subject:     composed.Subject,
		HTMLContent: composed.HTML,
		TextContent: composed.Text,
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	res, err := d.transport.Send(sendCtx, msg)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("transport rejected message: %s", res.Error)
	}

	_, err = d.db.ExecContext(ctx, `
		UPDATE email_sends SET message_id = $2, sent_at = NOW() WHERE id = $1
	`, sendID, res.MessageID)
	if err != nil {
		return fmt.Errorf("record message id: %w", err)
	}
	return nil
}

func (d *Dispatcher) markFailed(ctx context.Context, sendID string) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE email_sends SET status = 'failed' WHERE id = $1
	`, sendID)
	if err != nil {
		return fmt.Errorf("mark send failed: %w", err)
	}
	return nil
}

// finalizeCounters recomputes the campaign's sent counter from the send
// records instead of accumulating, so repeated dispatches converge on the
// true count.
func (d *Dispatcher) finalizeCounters(ctx context.Context, campaignID string, totalRecipients int) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE email_campaigns
		SET emails_sent = (
			SELECT COUNT(*) FROM email_sends
			WHERE campaign_id = $1 AND status = 'sent'
		),
		total_recipients = $2,
		updated_at = NOW()
		WHERE id = $1
	`, campaignID, totalRecipients)
	if err != nil {
		return fmt.Errorf("finalize campaign counters: %w", err)
	}
	return nil
}
