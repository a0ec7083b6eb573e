package logger

import "testing"

func TestRedactEmail(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"jane.doe@example.com", "ja***@example.com"},
		{"a@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
		{"", "***@***"},
	}
	for _, tc := range cases {
		if got := RedactEmail(tc.in); got != tc.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactToken(t *testing.T) {
	if got := RedactToken("0123456789abcdef"); got != "01234567…" {
		t.Errorf("RedactToken() = %q", got)
	}
	if got := RedactToken("short"); got != "short" {
		t.Errorf("RedactToken(short) = %q", got)
	}
}

func TestRedactValue_EmailKeys(t *testing.T) {
	got := redactValue("recipient", "jane.doe@example.com")
	if got != "ja***@example.com" {
		t.Errorf("redactValue(recipient) = %q", got)
	}

	// Emails embedded in arbitrary values are caught too.
	got = redactValue("error", "delivery to jane.doe@example.com refused")
	if got != "delivery to ja***@example.com refused" {
		t.Errorf("redactValue(error) = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != DEBUG {
		t.Error("debug should parse to DEBUG")
	}
	if ParseLevel("WARNING") != WARN {
		t.Error("WARNING should parse to WARN")
	}
	if ParseLevel("nonsense") != INFO {
		t.Error("unknown level should default to INFO")
	}
}
