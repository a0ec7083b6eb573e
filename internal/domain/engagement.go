package domain

import "time"

// EngagementType enumerates the kinds of tracking pings.
type EngagementType string

const (
	EngagementOpen  EngagementType = "open"
	EngagementClick EngagementType = "click"
)

// Classification is the bot/human verdict for a tracking ping.
type Classification string

const (
	ClassHuman Classification = "human"
	ClassBot   Classification = "bot"
)

// Signature is the raw request identity carried by a tracking ping.
type Signature struct {
	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`
}

// EngagementEvent is the append-only record of one tracking ping and its
// classification. Every accepted ping produces a row, bot or not; only the
// first human-classified ping per token counts toward campaign metrics.
type EngagementEvent struct {
	ID             string         `json:"id" db:"id"`
	SendID         string         `json:"send_id" db:"send_id"`
	CampaignID     string         `json:"campaign_id" db:"campaign_id"`
	SubscriberID   *string        `json:"subscriber_id" db:"subscriber_id"`
	EventType      EngagementType `json:"event_type" db:"event_type"`
	IPAddress      string         `json:"ip_address" db:"ip_address"`
	UserAgent      string         `json:"user_agent" db:"user_agent"`
	Classification Classification `json:"classification" db:"classification"`
	LinkURL        string         `json:"link_url,omitempty" db:"link_url"`
	OccurredAt     time.Time      `json:"occurred_at" db:"occurred_at"`
}
