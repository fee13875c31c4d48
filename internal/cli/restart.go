package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/w31r4/longoverdue/internal/action"
	"github.com/w31r4/longoverdue/internal/tui"
)

type restartOptions struct {
	dryRun      bool
	interactive bool
}

// pickFunc lets tests replace the interactive picker.
type pickFunc func(ctx context.Context, e *env, scope action.Scope, candidates []action.Candidate) ([]string, error)

func newRestartCmd(opts *rootOptions) *cobra.Command {
	o := &restartOptions{}
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart services running outdated code",
		Long: "Restart the system services (as root) or the user services (as a regular user)\n" +
			"that are running outdated code. Units listed under no_autorestart are skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			return runRestart(cmd.Context(), e, *o, pickWithTUI)
		},
	}
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Print the commands without running them")
	cmd.Flags().BoolVarP(&o.interactive, "interactive", "i", false, "Choose the units to restart")
	return cmd
}

func runRestart(ctx context.Context, e *env, o restartOptions, pick pickFunc) error {
	procs, err := e.scanner.Scan(ctx, nil)
	if err != nil {
		return err
	}

	plan := action.SelectPlan(action.ComputeRestartSets(procs, e.cfg.NoAutorestart), e.cfg.Privileged())
	if o.interactive && !plan.Empty() {
		units, err := pick(ctx, e, plan.Scope, action.Candidates(procs, e.cfg.NoAutorestart, plan.Scope))
		if errors.Is(err, tui.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		plan.Units = units
	}
	e.log.Debug("restart plan", "scope", plan.Scope.String(), "units", len(plan.Units))

	r := &action.Restarter{
		Manager: e.manager,
		DryRun:  o.dryRun,
		Echo:    e.renderer(false).RenderCommand,
	}
	return r.Run(ctx, plan)
}

func pickWithTUI(ctx context.Context, e *env, scope action.Scope, candidates []action.Candidate) ([]string, error) {
	return tui.Pick(ctx, scope, candidates, e.stdin, e.stdout)
}
