package diagnose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/infrastructure/mailbox/memory"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

var fixedNow = time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

func newUseCase(factory mailbox.Factory, cfg Config) *UseCase {
	return NewUseCase(factory, cfg, logger.NewNopLogger()).WithClock(func() time.Time { return fixedNow })
}

func TestUseCase_Execute(t *testing.T) {
	dir := t.TempDir()
	excel := filepath.Join(dir, "tickets.xlsx")
	require.NoError(t, os.WriteFile(excel, []byte("x"), 0o644))

	mail := memory.New()
	for i := 0; i < 12; i++ {
		mail.AddMessage(mailbox.Message{
			EntryID:  fmt.Sprintf("m%d", i),
			Sender:   fmt.Sprintf("client%02d@shop.ru", i),
			Received: fixedNow.Add(-time.Hour),
		})
	}
	mail.AddMessage(mailbox.Message{EntryID: "x", Sender: "client00@shop.ru", Received: fixedNow.Add(-time.Hour)})

	report, err := newUseCase(mail.Factory(), Config{
		Filter:       mailbox.SenderFilter{Mode: mailbox.FilterDomain, Value: "naos.com"},
		ExcelPath:    excel,
		DatabasePath: filepath.Join(dir, "data", "slatrack.sqlite3"),
		SafeMode:     true,
	}).Execute(context.Background(), Command{Days: 7})
	require.NoError(t, err)

	assert.Equal(t, fixedNow.AddDate(0, 0, -7), report.Since)
	require.NotNil(t, report.Mailbox)
	assert.Equal(t, 13, report.Mailbox.Total)
	assert.Equal(t, 0, report.Mailbox.AfterFilter)
	assert.True(t, report.Mailbox.FilterTooStrict)
	require.Len(t, report.Mailbox.TopSenders, 10)
	assert.Equal(t, mailbox.SenderCount{Sender: "client00@shop.ru", Count: 2}, report.Mailbox.TopSenders[0])
	assert.True(t, mail.Closed)

	assert.Equal(t, []PathStatus{
		{Name: "excel", Path: excel, Exists: true},
		{Name: "database", Path: filepath.Join(dir, "data", "slatrack.sqlite3")},
		{Name: "log_dir"},
	}, report.Paths)
	assert.True(t, report.DataWritable)
	assert.DirExists(t, filepath.Join(dir, "data"))

	assert.Contains(t, report.Warnings, "sender filter matches none of the inbox messages")
	assert.Contains(t, report.Warnings, "sending is disabled, reminders are previewed only")
}

func TestUseCase_MailboxUnavailable(t *testing.T) {
	dir := t.TempDir()
	factory := func(context.Context) (mailbox.Client, error) {
		return nil, errors.New("no profile")
	}

	report, err := newUseCase(factory, Config{DatabasePath: filepath.Join(dir, "db.sqlite3"), AllowSend: true}).
		Execute(context.Background(), Command{Days: 1})
	require.NoError(t, err)

	assert.Nil(t, report.Mailbox)
	assert.Equal(t, "no profile", report.MailboxError)
	assert.Equal(t, []string{"mailbox is unavailable"}, report.Warnings)
}

func TestUseCase_DiagnoseError(t *testing.T) {
	mail := memory.New()
	mail.MessagesErr = errors.New("offline")

	report, err := newUseCase(mail.Factory(), Config{DatabasePath: filepath.Join(t.TempDir(), "db.sqlite3"), AllowSend: true}).
		Execute(context.Background(), Command{Days: 1})
	require.NoError(t, err)
	assert.Equal(t, "offline", report.MailboxError)
	assert.True(t, mail.Closed)
}
