package mailbox

import "strings"

const (
	FilterOff      = "off"
	FilterContains = "contains"
	FilterEquals   = "equals"
	FilterDomain   = "domain"
)

func (f SenderFilter) normalized() (string, string) {
	mode := strings.ToLower(strings.TrimSpace(f.Mode))
	if mode == "" {
		mode = FilterOff
	}
	value := strings.ToLower(strings.TrimSpace(f.Value))
	if mode == FilterDomain {
		value = strings.TrimPrefix(value, "@")
	}
	return mode, value
}

// Active reports whether the filter excludes anything.
func (f SenderFilter) Active() bool {
	mode, value := f.normalized()
	return mode != FilterOff && value != ""
}

// Passes reports whether sender is kept. Matching is case-insensitive; domain
// mode accepts the exact domain and its subdomains.
func (f SenderFilter) Passes(sender string) bool {
	mode, value := f.normalized()
	if mode == FilterOff || value == "" {
		return true
	}
	s := strings.ToLower(sender)
	switch mode {
	case FilterContains:
		return strings.Contains(s, value)
	case FilterEquals:
		return s == value
	case FilterDomain:
		return strings.HasSuffix(s, "@"+value) || strings.HasSuffix(s, "."+value)
	}
	return true
}
