package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatrack/slatrack/internal/shared/logger"
)

func TestMailTemplateLoader_Load(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.reminder.markdown"), []byte("**{{.ID}}**"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.unknown.md"), []byte("ignored"), 0o644))

	l := NewMailTemplateLoader(dir, logger.NewNopLogger())
	require.NoError(t, l.Load())

	got, ok := l.Get(" Reminder ")
	require.True(t, ok)
	assert.Equal(t, "**{{.ID}}**", got)
	assert.Equal(t, []string{KindReminder}, l.Loaded())
}

func TestMailTemplateLoader_PrefersFirstExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.reminder.md"), []byte("md"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.reminder.tmpl"), []byte("tmpl"), 0o644))

	l := NewMailTemplateLoader(dir, logger.NewNopLogger())
	require.NoError(t, l.Load())

	got, _ := l.Get(KindReminder)
	assert.Equal(t, "md", got)
}

func TestMailTemplateLoader_MissingDirectory(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent")} {
		l := NewMailTemplateLoader(path, logger.NewNopLogger())
		require.NoError(t, l.Load())
		_, ok := l.Get(KindReminder)
		assert.False(t, ok)
		assert.Empty(t, l.Loaded())
	}
}
