// Package commands holds the cobra commands of the pipeline steps.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/slatrack/slatrack/internal/interfaces/cli/app"
)

// withContainer opens a container for the command, runs fn and closes it.
func withContainer(opts *app.Options, fn func(ctx context.Context, cmd *cobra.Command, c *app.Container) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		c, err := app.New(ctx, opts)
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(ctx, cmd, c)
	}
}

// printResult writes v as YAML keyed by title.
func printResult(w io.Writer, title string, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{title: v}); err != nil {
		return fmt.Errorf("failed to encode %s: %w", title, err)
	}
	return enc.Close()
}
