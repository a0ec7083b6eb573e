package domain

import "time"

// SubscriberStatus enumerates the states a subscriber can be in.
type SubscriberStatus string

const (
	SubscriberActive       SubscriberStatus = "active"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
	SubscriberBounced      SubscriberStatus = "bounced"
)

// Subscriber represents a single email recipient within an audience.
type Subscriber struct {
	ID        string           `json:"id" db:"id"`
	Email     string           `json:"email" db:"email"`
	FirstName string           `json:"first_name" db:"first_name"`
	LastName  string           `json:"last_name" db:"last_name"`
	Status    SubscriberStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// Recipient is the minimal identity the dispatcher needs per send. The
// SubscriberID is carried when the audience resolver knows it, but sends
// are keyed by (campaign, email) so a missing linkage never blocks a send.
type Recipient struct {
	SubscriberID *string `json:"subscriber_id"`
	Email        string  `json:"email"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
}
