package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/w31r4/longoverdue/internal/tools"
)

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <pattern>",
		Short: "Show the outdated files used by matching processes",
		Long: "Match processes by name with pgrep and list the outdated files they use.\n" +
			"Regular users only match their own processes.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			return runInfo(cmd.Context(), e, args[0])
		},
	}
}

func runInfo(ctx context.Context, e *env, pattern string) error {
	uid := e.cfg.EUID
	if e.cfg.Privileged() {
		uid = -1
	}
	r := e.renderer(false)

	files, err := e.scanner.Lookup(ctx, e.matcher, pattern, uid)
	if errors.Is(err, tools.ErrNoMatch) {
		if err := r.RenderNoMatch(pattern); err != nil {
			return err
		}
		return &ExitError{code: 1}
	}
	if err != nil {
		e.log.Debug("lookup failed", "pattern", pattern, "error", err)
		return &ExitError{code: 1, message: "Couldn't retrieve process info."}
	}
	return r.RenderFiles(pattern, files)
}
