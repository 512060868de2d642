package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/slatrack/slatrack/internal/application/notify"
	"github.com/slatrack/slatrack/internal/application/sla"
	"github.com/slatrack/slatrack/internal/interfaces/cli/app"
	"github.com/slatrack/slatrack/internal/shared/biztime"
)

func NewPlanCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which reminders would be sent now",
	}
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		if err := c.EnsureSchema(ctx); err != nil {
			return err
		}
		plan, err := c.Plan().Execute(ctx, biztime.NowUTC())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "plan", summarizePlan(plan))
	})
	return cmd
}

type sendOverdueSummary struct {
	Preview   bool              `yaml:"preview"`
	Sent      int               `yaml:"sent"`
	InThread  int               `yaml:"in_thread"`
	Previewed int               `yaml:"previewed"`
	NoAllowed int               `yaml:"no_allowed_recipients"`
	Failed    int               `yaml:"failed"`
	Recalc    *sla.RecalcResult `yaml:"recalc,omitempty"`
	Plan      *planSummary      `yaml:"plan,omitempty"`
}

func NewSendOverdueCommand(opts *app.Options) *cobra.Command {
	var preview bool
	cmd := &cobra.Command{
		Use:   "send-overdue",
		Short: "Recalculate, plan and mail overdue reminders",
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "Log the reminders instead of sending them")
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		uc, err := c.SendOverdue()
		if err != nil {
			return err
		}
		res, err := uc.Execute(ctx, sla.SendOverdueCommand{Preview: preview})
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "send_overdue", sendOverdueSummary{
			Preview:   res.PreviewMode,
			Sent:      res.Sent,
			InThread:  res.InThread,
			Previewed: res.Previewed,
			NoAllowed: res.NoAllowed,
			Failed:    res.Failed,
			Recalc:    res.Recalc,
			Plan:      summarizePlan(res.Plan),
		})
	})
	return cmd
}

func NewSendTestCommand(opts *app.Options) *cobra.Command {
	var subject, body string
	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a test message to notify.test_allowlist",
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Subject of the test message")
	cmd.Flags().StringVar(&body, "body", "", "Body of the test message")
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		uc, err := c.SendTest()
		if err != nil {
			return err
		}
		res, err := uc.Execute(ctx, notify.SendTestCommand{Subject: subject, Body: body})
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "send_test", res)
	})
	return cmd
}
