// Package recommend marks repeated questions and attaches suggested answers
// to recent tickets.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

// Recommender refreshes recommendation fields. A nil Recommender is valid
// wherever one is accepted and means the feature is off.
type Recommender interface {
	Refresh(ctx context.Context) (int, error)
}

type Config struct {
	SimilarityDays int
	Threshold      float64
}

// TFIDF scores tickets of the last SimilarityDays against each other and
// against the answer corpus by cosine similarity of TF-IDF vectors.
type TFIDF struct {
	tickets ticket.TicketRepository
	answers ticket.AnswerRepository
	tx      db.Transactor
	cfg     Config
	logger  logger.Interface
	now     func() time.Time
}

func NewTFIDF(
	tickets ticket.TicketRepository,
	answers ticket.AnswerRepository,
	tx db.Transactor,
	cfg Config,
	logger logger.Interface,
) *TFIDF {
	if cfg.SimilarityDays <= 0 {
		cfg.SimilarityDays = 30
	}
	return &TFIDF{
		tickets: tickets,
		answers: answers,
		tx:      tx,
		cfg:     cfg,
		logger:  logger,
		now:     biztime.NowUTC,
	}
}

// WithClock replaces the clock, for tests.
func (r *TFIDF) WithClock(now func() time.Time) *TFIDF {
	r.now = now
	return r
}

type suggestion struct {
	isRepeat bool
	hint     string
	answer   string
	topic    string
	score    *float64
}

// Refresh recomputes repeat hints and answers and returns how many tickets changed.
func (r *TFIDF) Refresh(ctx context.Context) (int, error) {
	since := r.now().UTC().AddDate(0, 0, -r.cfg.SimilarityDays)
	recent, err := r.tickets.List(ctx, ticket.TicketFilter{ReceivedSince: &since})
	if err != nil {
		return 0, err
	}
	if len(recent) == 0 {
		return 0, nil
	}

	texts := make([]string, len(recent))
	for i, t := range recent {
		texts[i] = t.Subject + " " + t.Body
	}
	_, vecs := fit(texts)

	corpus, err := r.answers.List(ctx)
	if err != nil {
		return 0, err
	}
	var qaModel *model
	var qaVecs []vector
	if len(corpus) > 0 {
		questions := make([]string, len(corpus))
		for i, a := range corpus {
			questions[i] = a.Question
		}
		qaModel, qaVecs = fit(questions)
	}

	changed := 0
	err = r.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for i, t := range recent {
			s := r.repeats(i, recent, vecs)
			if qaModel != nil {
				r.bestAnswer(&s, qaModel.transform(texts[i]), qaVecs, corpus)
			}
			if !apply(t, s) {
				continue
			}
			if err := r.tickets.Update(ctx, t); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Infow("recommendations refreshed", "tickets", len(recent), "changed", changed)
	return changed, nil
}

func (r *TFIDF) repeats(i int, recent []*ticket.Ticket, vecs []vector) suggestion {
	type match struct {
		score float64
		idx   int
	}
	var matches []match
	for j := range recent {
		if j == i {
			continue
		}
		if score := cosine(vecs[i], vecs[j]); score >= r.cfg.Threshold {
			matches = append(matches, match{score, j})
		}
	}
	if len(matches) == 0 {
		return suggestion{}
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].score > matches[b].score })
	top := recent[matches[0].idx].Subject
	return suggestion{
		isRepeat: true,
		hint:     fmt.Sprintf("%d похожих за %dд (топ: %s)", len(matches), r.cfg.SimilarityDays, top),
	}
}

func (r *TFIDF) bestAnswer(s *suggestion, v vector, qaVecs []vector, corpus []*ticket.Answer) {
	best, bestScore := -1, 0.0
	for k, q := range qaVecs {
		if score := cosine(v, q); best < 0 || score > bestScore {
			best, bestScore = k, score
		}
	}
	if best < 0 || bestScore < r.cfg.Threshold {
		return
	}
	s.answer = corpus[best].Answer
	s.topic = corpus[best].Question
	s.score = &bestScore
}

// apply writes s into t and reports whether anything differs.
func apply(t *ticket.Ticket, s suggestion) bool {
	same := t.IsRepeat == s.isRepeat &&
		t.RepeatHint == s.hint &&
		t.RecommendedAnswer == s.answer &&
		t.Topic == s.topic &&
		sameScore(t.MatchScore, s.score)
	if same {
		return false
	}
	t.IsRepeat = s.isRepeat
	t.RepeatHint = s.hint
	t.RecommendedAnswer = s.answer
	t.Topic = s.topic
	t.MatchScore = s.score
	return true
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	const eps = 1e-9
	d := *a - *b
	return d < eps && d > -eps
}
