package timewindow

import (
	"testing"
	"time"
)

func TestContains_NilBoundsAlwaysActive(t *testing.T) {
	now := time.Now()
	if !Contains(nil, nil, now) {
		t.Error("window with no bounds should contain any instant")
	}
}

func TestContains_FutureStart(t *testing.T) {
	now := time.Now()
	start := now.Add(24 * time.Hour)
	if Contains(&start, nil, now) {
		t.Error("window starting tomorrow should not contain now")
	}
	if !StartsAfter(&start, now) {
		t.Error("StartsAfter should report a future start")
	}
}

func TestContains_PastEnd(t *testing.T) {
	now := time.Now()
	end := now.Add(-time.Hour)
	if Contains(nil, &end, now) {
		t.Error("window ended an hour ago should not contain now")
	}
	if !EndsBefore(&end, now) {
		t.Error("EndsBefore should report a past end")
	}
}

func TestContains_InsideBothBounds(t *testing.T) {
	now := time.Now()
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	if !Contains(&start, &end, now) {
		t.Error("now should be inside a window straddling it")
	}
}

func TestSetZone(t *testing.T) {
	original := refLoc
	defer func() { refLoc = original }()

	if err := SetZone("Europe/Berlin"); err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if refLoc.String() != "Europe/Berlin" {
		t.Errorf("reference zone = %s, want Europe/Berlin", refLoc)
	}

	if err := SetZone("Not/AZone"); err == nil {
		t.Error("SetZone should reject an unknown zone name")
	}
	if refLoc.String() != "Europe/Berlin" {
		t.Error("a failed SetZone must not change the reference zone")
	}
}

// Comparisons happen on instants, so the wall-clock zone the bounds were
// authored in must not matter.
func TestContains_ZoneIndependent(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	end := now.Add(30 * time.Minute).In(tokyo)
	if !Contains(nil, &end, now) {
		t.Error("end expressed in another zone should compare as the same instant")
	}
	expired := now.Add(-30 * time.Minute).In(tokyo)
	if Contains(nil, &expired, now) {
		t.Error("expired end in another zone should still be expired")
	}
}
