package dispatch

import (
	"net/url"
	"strings"
	"testing"

	"github.com/cymasphere/campaign-engine/internal/domain"
)

func TestCompose_PersonalizesSubjectAndBody(t *testing.T) {
	c := NewComposer("https://track.example.com")
	campaign := &domain.Campaign{
		ID:          "camp-1",
		Subject:     "Welcome, {{ first_name }}!",
		HTMLContent: "<p>Hi {{ first_name }} {{ last_name }}</p>",
	}
	rcpt := domain.Recipient{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"}

	out, err := c.Compose(campaign, rcpt, "tok-1", nil)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if out.Subject != "Welcome, Jane!" {
		t.Errorf("subject = %q", out.Subject)
	}
	if !strings.Contains(out.HTML, "Hi Jane Doe") {
		t.Errorf("body not personalized: %q", out.HTML)
	}
}

func TestCompose_InjectsOpenPixel(t *testing.T) {
	c := NewComposer("https://track.example.com")
	campaign := &domain.Campaign{ID: "camp-1", Subject: "Hi", HTMLContent: "<p>hello</p>"}

	out, err := c.Compose(campaign, domain.Recipient{Email: "jane@example.com"}, "tok-1", nil)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if !strings.Contains(out.HTML, "https://track.example.com/track/open?t=tok-1") {
		t.Errorf("pixel URL missing from HTML: %q", out.HTML)
	}
	if !strings.Contains(out.HTML, `width="1" height="1"`) {
		t.Error("pixel img tag missing")
	}
}

func TestCompose_RewritesLinksForClickTracking(t *testing.T) {
	c := NewComposer("https://track.example.com")
	campaign := &domain.Campaign{
		ID:          "camp-1",
		Subject:     "Hi",
		HTMLContent: `<a href="https://example.com/pricing?ref=email">Pricing</a>`,
	}

	out, err := c.Compose(campaign, domain.Recipient{Email: "jane@example.com"}, "tok-1", nil)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}

	want := "https://track.example.com/track/click?t=tok-1&url=" +
		url.QueryEscape("https://example.com/pricing?ref=email")
	if !strings.Contains(out.HTML, want) {
		t.Errorf("rewritten link missing\nhtml: %q\nwant substring: %q", out.HTML, want)
	}
	if strings.Contains(out.HTML, `href="https://example.com/pricing?ref=email"`) {
		t.Error("original href should be replaced")
	}
}

func TestCompose_LeavesSpecialLinksAlone(t *testing.T) {
	c := NewComposer("https://track.example.com")
	campaign := &domain.Campaign{
		ID:      "camp-1",
		Subject: "Hi",
		HTMLContent: `<a href="mailto:support@example.com">Email us</a>` +
			`<a href="#section">Jump</a>` +
			`<a href="https://example.com/unsubscribe?u=1">Unsubscribe</a>`,
	}

	out, err := c.Compose(campaign, domain.Recipient{Email: "jane@example.com"}, "tok-1", nil)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	for _, keep := range []string{
		`href="mailto:support@example.com"`,
		`href="#section"`,
		`href="https://example.com/unsubscribe?u=1"`,
	} {
		if !strings.Contains(out.HTML, keep) {
			t.Errorf("link should be untouched: %s", keep)
		}
	}
}

func TestCompose_PromotionVariables(t *testing.T) {
	c := NewComposer("https://track.example.com")
	campaign := &domain.Campaign{
		ID:          "camp-1",
		Subject:     "{{ promotion.title }} inside",
		HTMLContent: "<p>Save {{ promotion.discount_value }}%</p>",
	}
	promo := &domain.Promotion{Title: "Spring Sale", DiscountType: "percentage", DiscountValue: 25}

	out, err := c.Compose(campaign, domain.Recipient{Email: "jane@example.com"}, "tok-1", promo)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if out.Subject != "Spring Sale inside" {
		t.Errorf("subject = %q", out.Subject)
	}
	if !strings.Contains(out.HTML, "Save 25%") {
		t.Errorf("promotion value missing: %q", out.HTML)
	}
}

func TestCompose_BadTemplateFallsBackToRaw(t *testing.T) {
	c := NewComposer("https://track.example.com")
	campaign := &domain.Campaign{
		ID:          "camp-1",
		Subject:     "Hello {{ unclosed",
		HTMLContent: "<p>plain</p>",
	}

	out, err := c.Compose(campaign, domain.Recipient{Email: "jane@example.com"}, "tok-1", nil)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if out.Subject != "Hello {{ unclosed" {
		t.Errorf("subject = %q, want raw fallback", out.Subject)
	}
}
