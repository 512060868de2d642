package valueobjects

import "strings"

type Priority string

const (
	PriorityP1 Priority = "p1"
	PriorityP2 Priority = "p2"
	PriorityP3 Priority = "p3"
	PriorityP4 Priority = "p4"

	// PriorityDefault is used when a ticket carries no priority.
	PriorityDefault = PriorityP3
)

var AllPriorities = []Priority{PriorityP1, PriorityP2, PriorityP3, PriorityP4}

// Thresholds are SLA budgets in business hours.
type Thresholds struct {
	FirstResponseHours float64
	ResolutionHours    float64
}

var DefaultThresholds = map[Priority]Thresholds{
	PriorityP1: {FirstResponseHours: 4, ResolutionHours: 24},
	PriorityP2: {FirstResponseHours: 8, ResolutionHours: 36},
	PriorityP3: {FirstResponseHours: 16, ResolutionHours: 48},
	PriorityP4: {FirstResponseHours: 24, ResolutionHours: 72},
}

func (p Priority) String() string {
	return string(p)
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3, PriorityP4:
		return true
	}
	return false
}

// Tag renders the subject tag, e.g. "P1". Empty for an unset priority.
func (p Priority) Tag() string {
	return strings.ToUpper(string(p))
}

// ParsePriority accepts "p1".."p4" in any case, optionally as bare digits.
func ParsePriority(s string) (Priority, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 {
		s = "p" + s
	}
	p := Priority(s)
	return p, p.IsValid()
}

// ThresholdTable resolves thresholds for a priority with p3 and overdue-days fallbacks.
type ThresholdTable struct {
	ByPriority  map[Priority]Thresholds
	OverdueDays int
}

// For returns the thresholds of p, falling back to p3, then to OverdueDays*24 for both.
func (t ThresholdTable) For(p Priority) Thresholds {
	if th, ok := t.ByPriority[p]; ok {
		return th
	}
	if th, ok := t.ByPriority[PriorityDefault]; ok {
		return th
	}
	hours := float64(t.OverdueDays * 24)
	return Thresholds{FirstResponseHours: hours, ResolutionHours: hours}
}
