package domain

import "testing"

func TestPromotionAppliesTo(t *testing.T) {
	restricted := &Promotion{ApplicablePlans: []string{"annual", "lifetime"}}
	open := &Promotion{}

	if !restricted.AppliesTo("annual") {
		t.Error("listed plan should match")
	}
	if restricted.AppliesTo("monthly") {
		t.Error("unlisted plan should not match")
	}
	if !restricted.AppliesTo("") {
		t.Error("empty plan should match any promotion")
	}
	if !open.AppliesTo("monthly") {
		t.Error("promotion with no restriction should cover every plan")
	}
}

func TestCampaignIsTerminal(t *testing.T) {
	for status, want := range map[CampaignStatus]bool{
		CampaignDraft:     false,
		CampaignScheduled: false,
		CampaignSending:   false,
		CampaignCompleted: true,
		CampaignFailed:    true,
	} {
		c := &Campaign{Status: status}
		if c.IsTerminal() != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, !want, want)
		}
	}
}
