// Package responses applies operator replies (voting buttons and slash
// commands) back onto tickets.
package responses

import (
	"regexp"
	"strings"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
)

// quoteHeaders end the command block: everything after them is quoted history.
var quoteHeaders = []string{"from:", "sent:", "от:", "дата:"}

// inlineStatus finds "status: x" anywhere in subject or body.
var inlineStatus = regexp.MustCompile(`(?i)(status|статус)\s*[:=]\s*([\p{L}\p{N}_\s-]+)`)

// ParseCommandBlock reads slash commands from the top of a reply body. The
// block ends at the first blank line, quoted line or mail header. Later
// duplicates overwrite earlier ones.
func ParseCommandBlock(body string) map[string]string {
	commands := make(map[string]string)
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") || hasQuoteHeader(line) {
			break
		}
		if !strings.HasPrefix(line, "/") {
			continue
		}
		fields := strings.Fields(line[1:])
		if len(fields) == 0 {
			continue
		}
		cmd := strings.ToLower(fields[0])
		arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line[1:]), fields[0]))
		commands[cmd] = arg
	}
	return commands
}

func hasQuoteHeader(line string) bool {
	low := strings.ToLower(line)
	for _, h := range quoteHeaders {
		if strings.HasPrefix(low, h) {
			return true
		}
	}
	return false
}

// editFromMessage extracts the ticket edit carried by m. A vote wins over a
// /status command, which wins over an inline "status: x".
func editFromMessage(m mailbox.Message) ticket.Edit {
	commands := ParseCommandBlock(m.Body)
	var edit ticket.Edit

	for _, text := range []string{m.VotingResponse, commands["status"]} {
		if text == "" {
			continue
		}
		if s, ok := vo.ParseStatusText(text); ok {
			edit.Status = &s
			break
		}
	}
	if edit.Status == nil {
		if match := inlineStatus.FindStringSubmatch(m.Subject + "\n" + m.Body); match != nil {
			text, _, _ := strings.Cut(match[2], "\n")
			if s, ok := vo.ParseStatusText(text); ok {
				edit.Status = &s
			}
		}
	}

	if p, ok := vo.ParsePriority(firstOf(commands, "prio", "priority")); ok {
		edit.Priority = &p
	}
	if owner := firstOf(commands, "owner", "responsible"); owner != "" {
		edit.Responsible = &owner
	}
	if comment := commands["comment"]; comment != "" {
		edit.Comment = &comment
	}
	return edit
}

func firstOf(commands map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := commands[k]; v != "" {
			return v
		}
	}
	return ""
}
