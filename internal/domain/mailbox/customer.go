package mailbox

import (
	"regexp"
	"strings"
)

// customerScanLines bounds how much of a body is searched for forwarded headers.
const customerScanLines = 80

var (
	emailRe = regexp.MustCompile(`([a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+)`)

	forwardedHeaderPrefixes = []string{"from:", "reply-to:", "email:", "e-mail:", "от:", "кому:"}
)

// IsInternal reports whether email belongs to one of domains or a subdomain.
func IsInternal(email string, domains []string) bool {
	if email == "" {
		return false
	}
	e := strings.ToLower(email)
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if strings.HasSuffix(e, "@"+d) || strings.HasSuffix(e, "."+d) {
			return true
		}
	}
	return false
}

// CustomerEmail picks the address of the customer behind a message: an
// external sender, then a forwarded From/Reply-To style header near the top of
// the raw body, then any external address there, then the reply-to fields.
// It returns "" when everything found is internal.
func CustomerEmail(m Message, internalDomains []string) string {
	sender := strings.ToLower(strings.TrimSpace(m.Sender))
	if sender != "" && !IsInternal(sender, internalDomains) {
		return sender
	}

	lines := strings.Split(strings.ReplaceAll(m.Body, "\r\n", "\n"), "\n")
	if len(lines) > customerScanLines {
		lines = lines[:customerScanLines]
	}
	for _, ln := range lines {
		low := strings.ToLower(strings.TrimSpace(ln))
		if !hasAnyPrefix(low, forwardedHeaderPrefixes) {
			continue
		}
		if c := firstExternal(ln, internalDomains); c != "" {
			return c
		}
	}
	for _, ln := range lines {
		if c := firstExternal(ln, internalDomains); c != "" {
			return c
		}
	}

	if rt := strings.ToLower(strings.TrimSpace(m.ReplyTo)); rt != "" && !IsInternal(rt, internalDomains) {
		return rt
	}
	for _, r := range m.ReplyRecipients {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" && !IsInternal(r, internalDomains) {
			return r
		}
	}
	return ""
}

func firstExternal(line string, internalDomains []string) string {
	match := emailRe.FindStringSubmatch(line)
	if match == nil {
		return ""
	}
	c := strings.ToLower(match[1])
	if IsInternal(c, internalDomains) {
		return ""
	}
	return c
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
