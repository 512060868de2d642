package email

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

var nowFunc = time.Now

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Envelope is a rendered outgoing message.
type Envelope struct {
	To        []string
	Subject   string
	PlainBody string
	HTMLBody  string
	// Headers are set verbatim, e.g. In-Reply-To or X-Voting-Options.
	Headers map[string][]string
}

// Dialer sends gomail messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPEmailService struct {
	config SMTPConfig
	dialer Dialer
}

func NewSMTPEmailService(config SMTPConfig) *SMTPEmailService {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)

	return &SMTPEmailService{
		config: config,
		dialer: dialer,
	}
}

// NewSMTPEmailServiceWithDialer is used by tests to capture messages instead of dialing.
func NewSMTPEmailServiceWithDialer(config SMTPConfig, dialer Dialer) *SMTPEmailService {
	return &SMTPEmailService{
		config: config,
		dialer: dialer,
	}
}

// FromAddress is the envelope sender.
func (s *SMTPEmailService) FromAddress() string {
	return s.config.FromAddress
}

// Send dials the SMTP server and delivers env.
func (s *SMTPEmailService) Send(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(env.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	if err := s.dialer.DialAndSend(s.BuildMessage(env)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// Render writes env as an RFC 5322 message without sending it.
func (s *SMTPEmailService) Render(env Envelope, w io.Writer) error {
	_, err := s.BuildMessage(env).WriteTo(w)
	return err
}

func (s *SMTPEmailService) BuildMessage(env Envelope) *gomail.Message {
	m := gomail.NewMessage()
	if s.config.FromName != "" {
		m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	} else {
		m.SetHeader("From", s.config.FromAddress)
	}
	m.SetHeader("To", env.To...)
	m.SetHeader("Subject", env.Subject)
	m.SetHeader("Message-ID", s.messageID())
	m.SetDateHeader("Date", nowFunc())
	for name, values := range env.Headers {
		m.SetHeader(name, values...)
	}

	m.SetBody("text/plain", env.PlainBody)
	if env.HTMLBody != "" {
		m.AddAlternative("text/html", env.HTMLBody)
	}
	return m
}

func (s *SMTPEmailService) messageID() string {
	host := "localhost"
	if _, domain, ok := strings.Cut(s.config.FromAddress, "@"); ok && domain != "" {
		host = domain
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), host)
}
