// Package maildir implements mailbox.Client over directories of .eml files,
// sending through SMTP.
package maildir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/infrastructure/email"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

const (
	// Name is reported as the ticket data source of ingested mail.
	Name = "outlook"

	topSendersLimit = 10
	emlExt          = ".eml"
)

var errClosed = errors.New("maildir client is closed")

// Transport delivers or renders an envelope. *email.SMTPEmailService satisfies it.
type Transport interface {
	Send(ctx context.Context, env email.Envelope) error
	Render(env email.Envelope, w io.Writer) error
}

type Config struct {
	InboxDir  string
	SentDir   string
	OutboxDir string
	Mailbox   string
	// Retries is the number of extra attempts for file reads and SMTP sends.
	Retries int
	// ForcePreview renders every outgoing message instead of sending it.
	ForcePreview bool
}

type Client struct {
	cfg        Config
	transport  Transport
	logger     logger.Interface
	newBackOff func() backoff.BackOff
	closed     bool
}

func NewClient(cfg Config, transport Transport, log logger.Interface) (*Client, error) {
	for _, dir := range []string{cfg.InboxDir, cfg.SentDir, cfg.OutboxDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.NewConfigError("create mail directory "+dir, err)
		}
	}
	return &Client{
		cfg:        cfg,
		transport:  transport,
		logger:     log.With("component", "mailbox.maildir"),
		newBackOff: defaultBackOff,
	}, nil
}

// NewFactory opens a fresh client per pipeline step.
func NewFactory(cfg Config, transport Transport, log logger.Interface) mailbox.Factory {
	return func(ctx context.Context) (mailbox.Client, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewClient(cfg, transport, log)
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.Reset()
	return b
}

func (c *Client) retryOptions() []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.cfg.Retries) + 1),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debugw("retrying mailbox operation", "error", err, "next", next)
		}),
	}
}

func (c *Client) Messages(ctx context.Context, since, until time.Time) ([]mailbox.Message, error) {
	items, err := c.scan(ctx, c.cfg.InboxDir)
	if err != nil {
		return nil, err
	}

	out := make([]mailbox.Message, 0, len(items))
	for _, it := range items {
		// Items without a date are returned so ingestion can count them.
		if !it.date.IsZero() && (it.date.Before(since) || (!until.IsZero() && !it.date.Before(until))) {
			continue
		}
		out = append(out, it.message())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Received.Before(out[j].Received) })
	return out, nil
}

func (c *Client) SentItems(ctx context.Context, since time.Time) ([]mailbox.SentItem, error) {
	items, err := c.scan(ctx, c.cfg.SentDir)
	if err != nil {
		return nil, err
	}

	out := make([]mailbox.SentItem, 0, len(items))
	for _, it := range items {
		if it.date.IsZero() || it.date.Before(since) {
			continue
		}
		out = append(out, it.sentItem())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sent.Before(out[j].Sent) })
	return out, nil
}

func (c *Client) SendMail(ctx context.Context, m mailbox.OutgoingMail) error {
	if c.closed {
		return errClosed
	}
	return c.deliver(ctx, envelope(m), m.Preview)
}

func (c *Client) ReplyOverdue(ctx context.Context, entryID string, m mailbox.OutgoingMail) error {
	if c.closed {
		return errClosed
	}
	orig, err := c.find(ctx, entryID)
	if err != nil {
		return err
	}

	env := envelope(m)
	env.PlainBody = m.Body + "\n\n" + quote(orig)
	if env.Subject == "" {
		env.Subject = replySubject(orig.subject)
	}
	if len(env.To) == 0 {
		env.To = []string{replyAddress(orig)}
	}
	threadHeaders(&env, orig)
	return c.deliver(ctx, env, m.Preview)
}

func (c *Client) Reply(ctx context.Context, entryID string, m mailbox.OutgoingMail) error {
	if c.closed {
		return errClosed
	}
	orig, err := c.find(ctx, entryID)
	if err != nil {
		return err
	}

	env := envelope(m)
	env.Subject = replySubject(orig.subject)
	if len(env.To) == 0 {
		env.To = []string{replyAddress(orig)}
	}
	threadHeaders(&env, orig)
	return c.deliver(ctx, env, m.Preview)
}

func (c *Client) Diagnose(ctx context.Context, since time.Time, filter mailbox.SenderFilter) (*mailbox.Diagnostics, error) {
	msgs, err := c.Messages(ctx, since, time.Time{})
	if err != nil {
		return nil, err
	}

	d := &mailbox.Diagnostics{Mailbox: c.cfg.Mailbox, Folder: c.cfg.InboxDir}
	counts := map[string]int{}
	for _, m := range msgs {
		if !m.IsMail() {
			continue
		}
		d.Total++
		counts[m.Sender]++
		if filter.Passes(m.Sender) {
			d.AfterFilter++
		}
	}
	d.TopSenders = topSenders(counts, topSendersLimit)
	d.FilterTooStrict = filter.Active() && d.Total > 0 && d.AfterFilter == 0
	return d, nil
}

func (c *Client) Close() error {
	c.closed = true
	return nil
}

func (c *Client) scan(ctx context.Context, dir string) ([]item, error) {
	if c.closed {
		return nil, errClosed
	}
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.NewTransientError("list "+dir, err)
	}

	var items []item
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), emlExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.Name())
		raw, err := c.readFile(ctx, path)
		if err != nil {
			return nil, apperrors.NewTransientError("read "+path, err)
		}
		it, err := parseItem(raw, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if err != nil {
			c.logger.Warnw("skipping unreadable message", "path", path, "error", err)
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func (c *Client) readFile(ctx context.Context, path string) ([]byte, error) {
	return backoff.Retry(ctx, func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}, c.retryOptions()...)
}

func (c *Client) find(ctx context.Context, entryID string) (item, error) {
	items, err := c.scan(ctx, c.cfg.InboxDir)
	if err != nil {
		return item{}, err
	}
	for _, it := range items {
		if it.entryID == entryID {
			return it, nil
		}
	}
	return item{}, apperrors.NewNotFoundError("message not found", entryID)
}

// deliver sends env, or renders it to the outbox when preview is requested or
// the transport keeps failing.
func (c *Client) deliver(ctx context.Context, env email.Envelope, preview bool) error {
	if preview || c.cfg.ForcePreview || c.transport == nil {
		return c.preview(env)
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.transport.Send(ctx, env)
	}, c.retryOptions()...)
	if err == nil {
		c.logger.Infow("mail sent", "to", env.To, "subject", env.Subject)
		return nil
	}

	c.logger.Warnw("send failed, falling back to preview", "to", env.To, "subject", env.Subject, "error", err)
	if perr := c.preview(env); perr != nil {
		c.logger.Errorw("preview failed", "error", perr)
	}
	return apperrors.NewTransientError("send mail", err)
}

func (c *Client) preview(env email.Envelope) error {
	c.logger.Infow("mail preview",
		"to", env.To,
		"subject", env.Subject,
		"body", env.PlainBody,
	)
	if c.cfg.OutboxDir == "" || c.transport == nil {
		return nil
	}

	name := fmt.Sprintf("%s_%s%s", time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8], emlExt)
	f, err := os.Create(filepath.Join(c.cfg.OutboxDir, name))
	if err != nil {
		return fmt.Errorf("create preview file: %w", err)
	}
	defer f.Close()
	return c.transport.Render(env, f)
}

func envelope(m mailbox.OutgoingMail) email.Envelope {
	env := email.Envelope{
		To:        m.To,
		Subject:   m.Subject,
		PlainBody: m.Body,
		HTMLBody:  m.HTMLBody,
		Headers:   map[string][]string{},
	}
	if len(m.VotingOptions) > 0 {
		env.Headers["X-Voting-Options"] = []string{strings.Join(m.VotingOptions, ";")}
	}
	return env
}

func threadHeaders(env *email.Envelope, orig item) {
	id := "<" + orig.entryID + ">"
	env.Headers["In-Reply-To"] = []string{id}
	refs := make([]string, 0, len(orig.references)+1)
	for _, r := range orig.references {
		refs = append(refs, "<"+r+">")
	}
	env.Headers["References"] = []string{strings.Join(append(refs, id), " ")}
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "RE: " + subject
}

func replyAddress(orig item) string {
	if len(orig.replyTo) > 0 {
		return orig.replyTo[0]
	}
	return orig.from
}

func quote(orig item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\nSent: %s\nSubject: %s\n\n", orig.from, orig.date.Format(time.RFC1123Z), orig.subject)
	b.WriteString(orig.body)
	return b.String()
}

func topSenders(counts map[string]int, limit int) []mailbox.SenderCount {
	out := make([]mailbox.SenderCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, mailbox.SenderCount{Sender: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Sender < out[j].Sender
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
