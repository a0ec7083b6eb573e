package domain

import "time"

// SendStatus enumerates the delivery states of a single send record.
type SendStatus string

const (
	SendSent   SendStatus = "sent"
	SendFailed SendStatus = "failed"
)

// EmailSend is the record of one email sent to one recipient, keyed by a
// globally unique tracking token. One row exists per (campaign, recipient)
// pair. Immutable after creation except for the terminal status update and
// the opened_at/clicked_at flags set by the engagement pipeline.
//
// SubscriberID may be absent at creation time; readers must treat it as
// best-effort and fall back to the stored email address.
type EmailSend struct {
	ID            string     `json:"id" db:"id"`
	CampaignID    string     `json:"campaign_id" db:"campaign_id"`
	SubscriberID  *string    `json:"subscriber_id" db:"subscriber_id"`
	Email         string     `json:"email" db:"email"`
	TrackingToken string     `json:"tracking_token" db:"tracking_token"`
	Status        SendStatus `json:"status" db:"status"`
	MessageID     string     `json:"message_id" db:"message_id"`
	SentAt        time.Time  `json:"sent_at" db:"sent_at"`
	OpenedAt      *time.Time `json:"opened_at" db:"opened_at"`
	ClickedAt     *time.Time `json:"clicked_at" db:"clicked_at"`
}

// Message is the fully-resolved email ready for a transport. By the time a
// message reaches this struct, all template substitution and tracking
// injection is complete.
type Message struct {
	SendID      string `json:"send_id"`
	CampaignID  string `json:"campaign_id"`
	Email       string `json:"email"`
	FromName    string `json:"from_name"`
	FromEmail   string `json:"from_email"`
	ReplyTo     string `json:"reply_to"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
}

// SendResult is returned by a transport after attempting delivery.
type SendResult struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
	Error     string    `json:"error,omitempty"`
}
