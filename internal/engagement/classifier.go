package engagement

import (
	"strings"

	"github.com/cymasphere/campaign-engine/internal/domain"
)

// Classifier decides whether a tracking ping came from a human or an
// automated agent. Implementations are heuristics: false negatives and
// false positives are expected and accepted. Unmatched signatures must
// classify as human so real engagement is never under-counted.
type Classifier interface {
	Classify(sig domain.Signature) domain.Classification
}

// Known automated user agents. Only very specific patterns belong here;
// anything ambiguous stays off the list so it counts as human.
var botUserAgents = []string{
	// Explicit bot identifiers
	"googlebot",
	"bingbot",
	"slurp",
	"facebookexternalhit",
	"twitterbot",
	"linkedinbot",
	"whatsapp",
	"telegrambot",
	"crawler",
	"spider",

	// Email security scanners (corporate/enterprise)
	"proofpoint",
	"mimecast",
	"forcepoint",
	"symantec",
	"mcafee",
	"cisco ironport",
	"barracuda",
	"sophos",
	"trend micro",

	// Development/testing tools
	"curl/",
	"wget/",
	"postman",
	"insomnia",
	"httpie",
	"python-requests",
	"go-http-client",

	// Very old Chrome builds only ship in headless scanners now
	"chrome/38.",
	"chrome/39.",
	"chrome/40.",
	"chrome/41.",
	"chrome/42.",

	// Explicit test patterns
	"test-",
	"debug-",
	"bot-",
	"scanner-",
	"manual-test",
}

// Loopback/development source addresses. Private ranges (192.168.x.x,
// 10.x.x.x) are deliberately NOT listed: those are legitimate home and
// office networks.
var suspiciousIPs = []string{
	"127.0.0.1",
	"::1",
	"::ffff:127.0.0.1",
	"localhost",
}

// SubstringClassifier is the default heuristic: lower-case the user agent
// and test it against a fixed substring list, then check the source address
// for loopback patterns. Any match means bot; no match means human.
type SubstringClassifier struct {
	patterns []string
	ips      []string
}

// NewSubstringClassifier creates the default classifier.
func NewSubstringClassifier() *SubstringClassifier {
	return &SubstringClassifier{patterns: botUserAgents, ips: suspiciousIPs}
}

// Classify applies the substring heuristic to the request signature.
func (c *SubstringClassifier) Classify(sig domain.Signature) domain.Classification {
	ua := strings.ToLower(sig.UserAgent)
	for _, p := range c.patterns {
		if strings.Contains(ua, p) {
			return domain.ClassBot
		}
	}
	for _, ip := range c.ips {
		if sig.IPAddress != "" && strings.Contains(sig.IPAddress, ip) {
			return domain.ClassBot
		}
	}
	return domain.ClassHuman
}
