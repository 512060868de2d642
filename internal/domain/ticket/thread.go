package ticket

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

var (
	subjectPrefixRe = regexp.MustCompile(`(?i)^((re:|fw:|fwd:)\s*)+`)
	ruleLineRe      = regexp.MustCompile(`^[-_]{5,}\s*$`)
)

var replyHeaderMarkers = []string{
	"from:",
	"to:",
	"subject:",
	"sent:",
	"от:",
	"кому:",
	"тема:",
	"отправлено:",
	"ответ от",
	"reply-to:",
	"----original message----",
}

var signatureMarkers = []string{
	"--",
	"__",
	"best regards",
	"kind regards",
	"regards",
	"cheers",
	"thanks",
	"thank you",
	"с уважением",
	"спасибо",
	"с наилучшими пожеланиями",
	"отправлено из",
}

// SubjectKind classifies a sent item by its subject prefix.
type SubjectKind int

const (
	SubjectOriginal SubjectKind = iota
	SubjectReply
	SubjectForward
)

// NormalizeSubject strips any run of leading re:/fw:/fwd: prefixes.
func NormalizeSubject(subject string) string {
	return strings.TrimSpace(subjectPrefixRe.ReplaceAllString(subject, ""))
}

// ClassifySubject reports whether a subject reads as a reply or a forward.
func ClassifySubject(subject string) SubjectKind {
	s := strings.ToLower(strings.TrimSpace(subject))
	switch {
	case strings.HasPrefix(s, "re:"):
		return SubjectReply
	case strings.HasPrefix(s, "fw:"), strings.HasPrefix(s, "fwd:"):
		return SubjectForward
	}
	return SubjectOriginal
}

// ThreadKey groups messages of one conversation: the conversation id when
// known, the normalized subject otherwise, lowercased.
func ThreadKey(convID, subject string) string {
	if convID != "" {
		return strings.ToLower(convID)
	}
	return strings.ToLower(NormalizeSubject(subject))
}

// ComputeStableID fingerprints the first message of a thread so the ticket
// survives a lost conversation id.
func ComputeStableID(convID string, received time.Time, sender, subject, body string) string {
	runes := []rune(body)
	if len(runes) > 200 {
		runes = runes[:200]
	}
	raw := strings.Join([]string{
		convID,
		received.UTC().Format(time.RFC3339),
		strings.ToLower(sender),
		strings.ToLower(strings.TrimSpace(NormalizeSubject(subject))),
		string(runes),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CleanBody drops quoted lines and reply headers, stops at a horizontal rule
// or signature, and trims blank lines at both edges.
func CleanBody(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		low := strings.ToLower(stripped)
		if strings.HasPrefix(stripped, ">") {
			continue
		}
		if hasAnyPrefix(low, replyHeaderMarkers) {
			continue
		}
		if ruleLineRe.MatchString(stripped) {
			break
		}
		if hasAnyPrefix(low, signatureMarkers) {
			break
		}
		cleaned = append(cleaned, stripped)
	}

	for len(cleaned) > 0 && cleaned[0] == "" {
		cleaned = cleaned[1:]
	}
	for len(cleaned) > 0 && cleaned[len(cleaned)-1] == "" {
		cleaned = cleaned[:len(cleaned)-1]
	}
	return strings.Join(cleaned, "\n")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
