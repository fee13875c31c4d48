package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/w31r4/longoverdue/internal/action"
	"github.com/w31r4/longoverdue/internal/report"
)

type listOptions struct {
	verbose bool
	json    bool
}

func bindListFlags(cmd *cobra.Command, o *listOptions) {
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "Show the outdated files of every process")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the report as JSON")
}

func newListCmd(opts *rootOptions) *cobra.Command {
	o := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processes running outdated code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			return runList(cmd.Context(), e, *o)
		},
	}
	bindListFlags(cmd, o)
	return cmd
}

func runList(ctx context.Context, e *env, o listOptions) error {
	procs, err := e.scanner.Scan(ctx, nil)
	if err != nil {
		return err
	}
	rep := report.Build(procs, e.cfg.NoAutorestart)

	status, err := action.CheckKernel(ctx, e.kernel, e.cfg.ModuleDirs)
	if err != nil {
		// The process report is still worth printing.
		e.log.Warn("kernel check failed", "error", err)
	} else if status.Outdated {
		rep.Kernel = status.Release
	}

	if o.json {
		return report.WriteJSON(e.stdout, rep)
	}
	return e.renderer(o.verbose).Render(rep)
}
