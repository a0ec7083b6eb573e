package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cymasphere/campaign-engine/internal/domain"
	"github.com/cymasphere/campaign-engine/internal/pkg/logger"
)

// StubTransport accepts every message without delivering anything. Used in
// local development when no SES credentials are configured, and in tests.
type StubTransport struct {
	mu   sync.Mutex
	sent []domain.Message
}

// NewStubTransport creates a transport that records instead of sending.
func NewStubTransport() *StubTransport {
	return &StubTransport{}
}

// Send records the message and reports success with a synthetic message id.
func (t *StubTransport) Send(_ context.Context, msg *domain.Message) (*domain.SendResult, error) {
	t.mu.Lock()
	t.sent = append(t.sent, *msg)
	t.mu.Unlock()

	logger.Debug("stub transport accepted message",
		"recipient", msg.Email, "campaign_id", msg.CampaignID)

	return &domain.SendResult{
		Success:   true,
		MessageID: "stub-" + uuid.New().String(),
		SentAt:    time.Now(),
	}, nil
}

// Sent returns a copy of every message accepted so far.
func (t *StubTransport) Sent() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.sent))
	copy(out, t.sent)
	return out
}
