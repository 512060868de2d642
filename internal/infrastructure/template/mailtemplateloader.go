// Package template loads operator-supplied mail templates from disk.
package template

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/slatrack/slatrack/internal/shared/logger"
)

// KindReminder is the markdown template of the overdue reminder.
const KindReminder = "reminder"

var (
	kinds      = []string{KindReminder}
	extensions = []string{".md", ".markdown", ".tmpl"}
)

// MailTemplateLoader reads custom.<kind>.<ext> files from a directory.
// Kinds without a file fall back to the built-in template.
type MailTemplateLoader struct {
	templates map[string]string
	path      string
	logger    logger.Interface
}

func NewMailTemplateLoader(path string, logger logger.Interface) *MailTemplateLoader {
	return &MailTemplateLoader{
		templates: make(map[string]string),
		path:      path,
		logger:    logger,
	}
}

// Load reads every known kind. A missing directory is not an error.
func (l *MailTemplateLoader) Load() error {
	if l.path == "" {
		return nil
	}
	if _, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) {
		l.logger.Warnw("templates directory not found, using built-in templates", "path", l.path)
		return nil
	}

	for _, kind := range kinds {
		for _, ext := range extensions {
			file := filepath.Join(l.path, "custom."+kind+ext)
			content, err := os.ReadFile(file)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					l.logger.Warnw("failed to read template file", "file", file, "error", err)
				}
				continue
			}
			l.templates[kind] = string(content)
			l.logger.Infow("loaded mail template", "kind", kind, "file", file, "size", len(content))
			break
		}
	}

	if len(l.templates) > 0 {
		l.logger.Infow("mail templates loaded", "count", len(l.templates))
	}
	return nil
}

// Get returns the template for kind, if one was loaded.
func (l *MailTemplateLoader) Get(kind string) (string, bool) {
	content, ok := l.templates[strings.ToLower(strings.TrimSpace(kind))]
	return content, ok
}

// Loaded lists the kinds with a custom template, sorted.
func (l *MailTemplateLoader) Loaded() []string {
	out := make([]string, 0, len(l.templates))
	for k := range l.templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
