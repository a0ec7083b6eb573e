package dispatch

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/osteele/liquid"

	"github.com/cymasphere/campaign-engine/internal/domain"
)

// Composer renders per-recipient email content: Liquid personalization,
// the standard HTML shell, click-link rewriting, and the open pixel.
type Composer struct {
	engine      *liquid.Engine
	trackingURL string
}

// NewComposer creates a composer. trackingURL is the public origin the
// pixel and click URLs point at.
func NewComposer(trackingURL string) *Composer {
	return &Composer{
		engine:      liquid.NewEngine(),
		trackingURL: strings.TrimRight(trackingURL, "/"),
	}
}

// Composed is the rendered content for one recipient.
type Composed struct {
	Subject string
	HTML    string
	Text    string
}

// Compose renders campaign content for one recipient. The promotion is
// optional; when present it is exposed to the template so campaigns can
// embed the currently running offer.
func (c *Composer) Compose(campaign *domain.Campaign, rcpt domain.Recipient, token string, promo *domain.Promotion) (*Composed, error) {
	bindings := liquid.Bindings{
		"email":      rcpt.Email,
		"first_name": rcpt.FirstName,
		"last_name":  rcpt.LastName,
	}
	if promo != nil {
		bindings["promotion"] = map[string]interface{}{
			"title":          promo.Title,
			"discount_type":  promo.DiscountType,
			"discount_value": promo.DiscountValue,
		}
	}

	subject, err := c.engine.ParseAndRenderString(campaign.Subject, bindings)
	if err != nil {
		// Lax mode for production sends: a bad tag falls back to the
		// raw subject rather than blocking the batch.
		subject = campaign.Subject
	}

	body := campaign.HTMLContent
	if body == "" {
		body = fmt.Sprintf("<h1>%s</h1>", subject)
	}
	rendered, err := c.engine.ParseAndRenderString(body, bindings)
	if err != nil {
		rendered = body
	}

	html := wrapInShell(rendered, subject)
	html = c.rewriteLinks(html, token)
	html = c.injectPixel(html, token)

	text := campaign.TextContent
	if text == "" {
		text = subject
	}

	return &Composed{Subject: subject, HTML: html, Text: text}, nil
}

// OpenURL returns the tracking pixel URL for a token.
func (c *Composer) OpenURL(token string) string {
	return fmt.Sprintf("%s/track/open?t=%s", c.trackingURL, url.QueryEscape(token))
}

// ClickURL returns the click-tracking redirect URL for a token and target.
func (c *Composer) ClickURL(token, target string) string {
	return fmt.Sprintf("%s/track/click?t=%s&url=%s",
		c.trackingURL, url.QueryEscape(token), url.QueryEscape(target))
}

var hrefRegex = regexp.MustCompile(`href=["']([^"']+)["']`)

// rewriteLinks replaces href targets with click-tracking redirects.
// Anchors, mailto/tel links, unsubscribe links, and already-tracked URLs
// are left alone.
func (c *Composer) rewriteLinks(html, token string) string {
	return hrefRegex.ReplaceAllStringFunc(html, func(match string) string {
		sub := hrefRegex.FindStringSubmatch(match)
		target := sub[1]
		if strings.HasPrefix(target, "#") ||
			strings.HasPrefix(target, "mailto:") ||
			strings.HasPrefix(target, "tel:") ||
			strings.Contains(target, "/track/") ||
			strings.Contains(target, "unsubscribe") {
			return match
		}
		return fmt.Sprintf(`href="%s"`, c.ClickURL(token, target))
	})
}

// injectPixel inserts the 1x1 open pixel before </body>, or appends it
// when the content has no body tag.
func (c *Composer) injectPixel(html, token string) string {
	pixel := fmt.Sprintf(
		`<img src="%s" width="1" height="1" style="display:block;border:0;margin:0;padding:0;" alt="" />`,
		c.OpenURL(token))
	if strings.Contains(html, "</body>") {
		return strings.Replace(html, "</body>", pixel+"</body>", 1)
	}
	return html + pixel
}

// wrapInShell puts rendered content inside the standard email frame.
func wrapInShell(content, subject string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f7f7f7;">
<table width="100%%" cellpadding="0" cellspacing="0" border="0" style="background-color:#f7f7f7;">
<tr><td align="center" style="padding:20px 0;">
<table width="100%%" cellpadding="0" cellspacing="0" border="0" style="max-width:600px;min-width:320px;margin:0 auto;">
<tr><td style="background-color:#ffffff;padding:24px;">
%s
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`, subject, content)
}
