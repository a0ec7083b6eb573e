package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// Campaign represents a scheduled batch of marketing emails with its
// content and aggregate engagement counters.
type Campaign struct {
	ID          string         `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Subject     string         `json:"subject" db:"subject"`
	SenderName  string         `json:"sender_name" db:"sender_name"`
	SenderEmail string         `json:"sender_email" db:"sender_email"`
	ReplyTo     string         `json:"reply_to" db:"reply_to"`
	HTMLContent string         `json:"html_content" db:"html_content"`
	TextContent string         `json:"text_content" db:"text_content"`
	Status      CampaignStatus `json:"status" db:"status"`
	ScheduledAt *time.Time     `json:"scheduled_at" db:"scheduled_at"`

	// Aggregate counters. emails_sent never exceeds total_recipients;
	// emails_opened counts distinct opened sends, not raw pings.
	TotalRecipients int `json:"total_recipients" db:"total_recipients"`
	EmailsSent      int `json:"emails_sent" db:"emails_sent"`
	EmailsOpened    int `json:"emails_opened" db:"emails_opened"`
	EmailsClicked   int `json:"emails_clicked" db:"emails_clicked"`

	SentAt    *time.Time `json:"sent_at" db:"sent_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignFailed
}
