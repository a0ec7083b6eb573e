// Package scheduler polls for due campaigns and hands them to the
// dispatcher. Exactly-once dispatch is enforced by the atomic claim
// transition on the campaign row, so any number of scheduler instances
// can poll the same datastore.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cymasphere/campaign-engine/internal/dispatch"
	"github.com/cymasphere/campaign-engine/internal/domain"
	"github.com/cymasphere/campaign-engine/internal/pkg/distlock"
	"github.com/cymasphere/campaign-engine/internal/pkg/logger"
)

// Dispatcher sends one claimed campaign to its audience.
type Dispatcher interface {
	Dispatch(ctx context.Context, campaign *domain.Campaign) (*dispatch.Result, error)
}

const lockKey = "campaign-engine:scheduler:tick"

// Scheduler owns the polling loop for due campaigns.
type Scheduler struct {
	db              *sql.DB
	dispatcher      Dispatcher
	redisClient     *redis.Client
	cadence         time.Duration
	lockTTL         time.Duration
	dispatchTimeout time.Duration

	// tickMu serializes tick work so an overlapping TriggerNow and timer
	// tick never dispatch concurrently within this instance.
	tickMu sync.Mutex

	mu          sync.RWMutex
	running     bool
	dispatching bool
	lastRunAt   *time.Time
	nextRunAt   *time.Time
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// Status is a snapshot of the scheduler's control state.
type Status struct {
	State       string     `json:"state"` // "running" or "stopped"
	Dispatching bool       `json:"dispatching"`
	Cadence     string     `json:"cadence"`
	LastRunAt   *time.Time `json:"last_run_at"`
	NextRunAt   *time.Time `json:"next_run_at"`
}

// Running reports whether the polling loop is active.
func (s Status) Running() bool { return s.State == "running" }

// New creates a scheduler. redisClient may be nil; tick locking then falls
// back to PostgreSQL advisory locks.
func New(db *sql.DB, dispatcher Dispatcher, redisClient *redis.Client, cadence, lockTTL, dispatchTimeout time.Duration) *Scheduler {
	if cadence <= 0 {
		cadence = time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = 10 * time.Minute
	}
	return &Scheduler{
		db:              db,
		dispatcher:      dispatcher,
		redisClient:     redisClient,
		cadence:         cadence,
		lockTTL:         lockTTL,
		dispatchTimeout: dispatchTimeout,
	}
}

// Start begins the polling loop. Returns an error if already running.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	next := time.Now().Add(s.cadence)
	s.nextRunAt = &next
	s.mu.Unlock()

	logger.Info("scheduler starting", "cadence", s.cadence.String())

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop halts the polling loop and waits for an in-flight tick to finish.
// Safe to call when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.nextRunAt = nil
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.Info("scheduler stopped")
}

// TriggerNow runs a tick immediately, regardless of whether the polling
// loop is running. Serialized against timer ticks.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.tick(ctx)
}

// Status returns a snapshot of control state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := "stopped"
	if s.running {
		state = "running"
	}
	return Status{
		State:       state,
		Dispatching: s.dispatching,
		Cadence:     s.cadence.String(),
		LastRunAt:   s.lastRunAt,
		NextRunAt:   s.nextRunAt,
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			// Tick work runs on its own context so Stop() cancels future
			// ticks but never aborts a dispatch already in flight; Stop's
			// wg.Wait() blocks until that dispatch has finished. The
			// per-campaign dispatch timeout still bounds the work.
			s.tick(context.Background())
			s.mu.Lock()
			next := time.Now().Add(s.cadence)
			s.nextRunAt = &next
			s.mu.Unlock()
		}
	}
}

// tick finds due campaigns and dispatches them one at a time. The
// cross-instance lock narrows duplicate polling; the campaign claim is
// what actually prevents double dispatch.
func (s *Scheduler) tick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.dispatching = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.dispatching = false
		s.mu.Unlock()
	}()

	lock := distlock.New(s.redisClient, s.db, lockKey, s.lockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		logger.Warn("tick lock error, proceeding unlocked", "error", err.Error())
	} else if !acquired {
		logger.Debug("tick lock held elsewhere, skipping")
		return
	} else {
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logger.Warn("tick lock release failed", "error", err.Error())
			}
		}()
	}

	campaigns, err := s.dueCampaigns(ctx)
	if err != nil {
		logger.Error("load due campaigns", "error", err.Error())
		return
	}
	if len(campaigns) == 0 {
		return
	}

	logger.Info("due campaigns found", "count", len(campaigns))
	for i := range campaigns {
		s.processCampaign(ctx, &campaigns[i])
	}
}

// dueCampaigns returns scheduled campaigns whose send time has arrived,
// oldest first.
func (s *Scheduler) dueCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, subject,
		       COALESCE(sender_name,''), COALESCE(sender_email,''),
		       COALESCE(reply_to,''),
		       COALESCE(html_content,''), COALESCE(text_content,''),
		       status, scheduled_at
		FROM email_campaigns
		WHERE status = 'scheduled' AND scheduled_at <= NOW()
		ORDER BY scheduled_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Subject,
			&c.SenderName, &c.SenderEmail, &c.ReplyTo,
			&c.HTMLContent, &c.TextContent,
			&c.Status, &c.ScheduledAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// processCampaign claims one campaign and dispatches it. A lost claim
// means another instance got there first and is not an error.
func (s *Scheduler) processCampaign(ctx context.Context, campaign *domain.Campaign) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE email_campaigns
		SET status = 'sending', updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`, campaign.ID)
	if err != nil {
		logger.Error("claim campaign", "campaign_id", campaign.ID, "error", err.Error())
		return
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		logger.Debug("campaign claimed elsewhere, skipping", "campaign_id", campaign.ID)
		return
	}
	campaign.Status = domain.CampaignSending

	dispatchCtx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	result, err := s.dispatcher.Dispatch(dispatchCtx, campaign)
	if err != nil {
		logger.Error("campaign dispatch failed",
			"campaign_id", campaign.ID, "error", err.Error())
		s.markFailed(ctx, campaign.ID)
		return
	}

	if err := s.markCompleted(ctx, campaign.ID); err != nil {
		logger.Error("mark campaign completed",
			"campaign_id", campaign.ID, "error", err.Error())
		return
	}

	logger.Info("campaign dispatched",
		"campaign_id", campaign.ID,
		"total", result.Total, "sent", result.Sent, "failed", result.Failed)
}

func (s *Scheduler) markCompleted(ctx context.Context, campaignID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE email_campaigns
		SET status = 'completed', sent_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, campaignID)
	return err
}

func (s *Scheduler) markFailed(ctx context.Context, campaignID string) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE email_campaigns
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1
	`, campaignID)
	if err != nil {
		logger.Error("mark campaign failed", "campaign_id", campaignID, "error", err.Error())
	}
}
