package ingest

import (
	"sort"
	"time"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/domain/ticket"
)

// SentEvent is a reply or forward found in the sent folder. Payload is the
// cleaned reply body or the forward target.
type SentEvent struct {
	At      time.Time
	Payload string
}

type threadEvents struct {
	Replies  []SentEvent
	Forwards []SentEvent
}

// SentIndex maps thread keys to the replies and forwards sent on them, each
// list sorted by time.
type SentIndex struct {
	threads map[string]*threadEvents
}

func BuildSentIndex(items []mailbox.SentItem) *SentIndex {
	idx := &SentIndex{threads: make(map[string]*threadEvents)}
	for _, it := range items {
		if !it.IsMail() || it.Sent.IsZero() {
			continue
		}
		kind := ticket.ClassifySubject(it.Subject)
		if kind == ticket.SubjectOriginal {
			continue
		}
		key := ticket.ThreadKey(it.ConvID, it.Subject)
		rec, ok := idx.threads[key]
		if !ok {
			rec = &threadEvents{}
			idx.threads[key] = rec
		}
		switch kind {
		case ticket.SubjectReply:
			rec.Replies = append(rec.Replies, SentEvent{At: it.Sent.UTC(), Payload: ticket.CleanBody(it.Body)})
		case ticket.SubjectForward:
			rec.Forwards = append(rec.Forwards, SentEvent{At: it.Sent.UTC(), Payload: it.FirstRecipient()})
		}
	}
	for _, rec := range idx.threads {
		sortEvents(rec.Replies)
		sortEvents(rec.Forwards)
	}
	return idx
}

func sortEvents(events []SentEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
}

// Len is the number of indexed threads.
func (i *SentIndex) Len() int {
	return len(i.threads)
}

func (i *SentIndex) FirstReply(key string, after time.Time) (SentEvent, bool) {
	rec, ok := i.threads[key]
	if !ok {
		return SentEvent{}, false
	}
	return FirstAfter(rec.Replies, after)
}

func (i *SentIndex) FirstForward(key string, after time.Time) (SentEvent, bool) {
	rec, ok := i.threads[key]
	if !ok {
		return SentEvent{}, false
	}
	return FirstAfter(rec.Forwards, after)
}

// FirstAfter returns the earliest event at or after t from a sorted list.
func FirstAfter(events []SentEvent, t time.Time) (SentEvent, bool) {
	n := sort.Search(len(events), func(i int) bool { return !events[i].At.Before(t) })
	if n == len(events) {
		return SentEvent{}, false
	}
	return events[n], true
}
