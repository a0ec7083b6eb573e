package engagement

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/cymasphere/campaign-engine/internal/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

var humanSig = domain.Signature{
	UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Chrome/119.0.0.0 Safari/537.36",
	IPAddress: "198.51.100.7:52100",
}

func expectResolveToken(mock sqlmock.Sqlmock, sendID, campaignID string) {
	rows := sqlmock.NewRows([]string{"id", "campaign_id", "subscriber_id", "email"}).
		AddRow(sendID, campaignID, "sub-1", "jane@example.com")
	mock.ExpectQuery("SELECT id, campaign_id, subscriber_id, email").
		WithArgs("tok-1").
		WillReturnRows(rows)
}

func TestIngestOpen_UnknownToken(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, campaign_id, subscriber_id, email").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	ing := NewIngestor(db, nil)
	err := ing.IngestOpen(context.Background(), "missing", humanSig)
	if err != ErrUnknownToken {
		t.Errorf("IngestOpen() error = %v, want ErrUnknownToken", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngestOpen_FirstHumanOpenCounts(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	expectResolveToken(mock, "send-1", "camp-1")
	mock.ExpectExec("INSERT INTO email_opens").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE email_sends SET opened_at").
		WithArgs("send-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE email_campaigns").
		WithArgs("camp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ing := NewIngestor(db, nil)
	if err := ing.IngestOpen(context.Background(), "tok-1", humanSig); err != nil {
		t.Errorf("IngestOpen() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngestOpen_DuplicateDoesNotIncrement(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	expectResolveToken(mock, "send-1", "camp-1")
	mock.ExpectExec("INSERT INTO email_opens").
		WillReturnResult(sqlmock.NewResult(1, 1))
	// opened_at already set: the check-and-set claims nothing, so no
	// campaign increment is expected.
	mock.ExpectExec("UPDATE email_sends SET opened_at").
		WithArgs("send-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ing := NewIngestor(db, nil)
	if err := ing.IngestOpen(context.Background(), "tok-1", humanSig); err != nil {
		t.Errorf("IngestOpen() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngestOpen_BotRecordsEventOnly(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	expectResolveToken(mock, "send-1", "camp-1")
	// Event row is still appended; no send update, no campaign update.
	mock.ExpectExec("INSERT INTO email_opens").
		WillReturnResult(sqlmock.NewResult(1, 1))

	ing := NewIngestor(db, nil)
	sig := domain.Signature{UserAgent: "curl/8.7.1", IPAddress: "203.0.113.9:443"}
	if err := ing.IngestOpen(context.Background(), "tok-1", sig); err != nil {
		t.Errorf("IngestOpen() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngestClick_FirstHumanClickCounts(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	expectResolveToken(mock, "send-1", "camp-1")
	mock.ExpectExec("INSERT INTO email_opens").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE email_sends SET clicked_at").
		WithArgs("send-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE email_campaigns").
		WithArgs("camp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ing := NewIngestor(db, nil)
	err := ing.IngestClick(context.Background(), "tok-1", humanSig, "https://example.com/pricing")
	if err != nil {
		t.Errorf("IngestClick() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngestOpen_MissingSubscriberFallsBackToEmailLookup(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "campaign_id", "subscriber_id", "email"}).
		AddRow("send-1", "camp-1", nil, "jane@example.com")
	mock.ExpectQuery("SELECT id, campaign_id, subscriber_id, email").
		WithArgs("tok-1").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT id FROM subscribers").
		WithArgs("jane@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sub-9"))
	mock.ExpectExec("INSERT INTO email_opens").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE email_sends SET opened_at").
		WithArgs("send-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE email_campaigns").
		WithArgs("camp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ing := NewIngestor(db, nil)
	if err := ing.IngestOpen(context.Background(), "tok-1", humanSig); err != nil {
		t.Errorf("IngestOpen() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
