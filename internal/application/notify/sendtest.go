package notify

import (
	"context"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

const (
	defaultTestSubject = "[SLA][TEST] Проверка рассылки"
	defaultTestBody    = "Тестовое письмо SLA-трекера. Проверьте кнопки голосования."
)

type SendTestCommand struct {
	Subject string
	Body    string
}

type SendTestResult struct {
	Recipients []string
	Blocked    []string
	Preview    bool
}

type SendTestConfig struct {
	TestAllowlist []string
	SafeMode      bool
}

// SendTestUseCase queues a test message to the test allowlist through the
// regular recipient policy.
type SendTestUseCase struct {
	mail     mailbox.Factory
	composer *Composer
	policy   RecipientPolicy
	cfg      SendTestConfig
	logger   logger.Interface
}

func NewSendTestUseCase(
	mail mailbox.Factory,
	composer *Composer,
	policy RecipientPolicy,
	cfg SendTestConfig,
	logger logger.Interface,
) *SendTestUseCase {
	return &SendTestUseCase{mail: mail, composer: composer, policy: policy, cfg: cfg, logger: logger}
}

func (uc *SendTestUseCase) Execute(ctx context.Context, cmd SendTestCommand) (*SendTestResult, error) {
	if len(uc.cfg.TestAllowlist) == 0 {
		return nil, apperrors.NewValidationError("test allowlist is empty", "configure notify.test_allowlist")
	}
	allowed, blocked := uc.policy.Filter(uc.cfg.TestAllowlist)
	if len(blocked) > 0 {
		uc.logger.Infow("blocked test recipients by policy", "blocked", blocked)
	}
	if len(allowed) == 0 {
		return nil, apperrors.NewValidationError("no allowed test recipients after policy filtering")
	}

	if cmd.Subject == "" {
		cmd.Subject = defaultTestSubject
	}
	if cmd.Body == "" {
		cmd.Body = defaultTestBody
	}
	msg, err := uc.composer.Test(cmd.Subject, cmd.Body)
	if err != nil {
		return nil, err
	}
	msg.To = allowed
	msg.Preview = uc.cfg.SafeMode

	client, err := uc.mail(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SendMail(ctx, msg); err != nil {
		uc.logger.Errorw("failed to send test mail", "error", err)
		return nil, err
	}
	uc.logger.Infow("test mail queued", "recipients", allowed, "preview", msg.Preview)
	return &SendTestResult{Recipients: allowed, Blocked: blocked, Preview: msg.Preview}, nil
}
