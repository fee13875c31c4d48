package action

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/w31r4/longoverdue/internal/config"
	"github.com/w31r4/longoverdue/internal/process"
	"github.com/w31r4/longoverdue/internal/report"
)

// Scope is where units get restarted.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeSystem
	ScopeUser
)

func (s Scope) String() string {
	switch s {
	case ScopeSystem:
		return "system"
	case ScopeUser:
		return "user"
	default:
		return "none"
	}
}

// ServiceManager reloads unit definitions and restarts units, either on the
// system manager or on the caller's user manager.
type ServiceManager interface {
	Reload(ctx context.Context, user bool) error
	Restart(ctx context.Context, user bool, units []string) error
	ReloadCommand(user bool) string
	RestartCommand(user bool, units []string) string
}

// RestartSets are the units that may be restarted, per scope. Both are sorted.
type RestartSets struct {
	System []string
	User   []string
}

// ComputeRestartSets collects system services (never those in noRestart) and
// user services from the correlated processes.
func ComputeRestartSets(procs []*process.Process, noRestart config.NoAutorestart) RestartSets {
	system := make(map[string]struct{})
	user := make(map[string]struct{})
	for _, p := range procs {
		switch report.Classify(p) {
		case report.BucketUserUnit:
			if strings.HasSuffix(p.UUnit, ".service") {
				user[p.UUnit] = struct{}{}
			}
		case report.BucketService:
			if _, held := noRestart.Reason(p.Unit); !held {
				system[p.Unit] = struct{}{}
			}
		}
	}
	return RestartSets{System: sortedKeys(system), User: sortedKeys(user)}
}

// Plan is one restart invocation: a single scope and its units.
type Plan struct {
	Scope Scope
	Units []string
}

// Empty reports whether there is nothing to restart.
func (p Plan) Empty() bool {
	return p.Scope == ScopeNone || len(p.Units) == 0
}

// SelectPlan picks the system set when privileged and the user set otherwise.
// The scopes are never mixed.
func SelectPlan(sets RestartSets, privileged bool) Plan {
	switch {
	case privileged && len(sets.System) > 0:
		return Plan{Scope: ScopeSystem, Units: sets.System}
	case !privileged && len(sets.User) > 0:
		return Plan{Scope: ScopeUser, Units: sets.User}
	default:
		return Plan{Scope: ScopeNone}
	}
}

// Candidate is a unit shown in the interactive picker.
type Candidate struct {
	Unit     string
	Commands []string
	Reason   string // set for units that must not be restarted
}

// Restartable reports whether the candidate may be selected.
func (c Candidate) Restartable() bool {
	return c.Reason == ""
}

// Candidates lists the units of the given scope with the commands running in
// them, sorted by unit. For the system scope, held units are included with
// their reason so they can be shown.
func Candidates(procs []*process.Process, noRestart config.NoAutorestart, scope Scope) []Candidate {
	byUnit := make(map[string]map[string]struct{})
	add := func(unit, cmd string) {
		if byUnit[unit] == nil {
			byUnit[unit] = make(map[string]struct{})
		}
		byUnit[unit][cmd] = struct{}{}
	}

	for _, p := range procs {
		switch report.Classify(p) {
		case report.BucketService:
			if scope == ScopeSystem {
				add(p.Unit, p.Command)
			}
		case report.BucketUserUnit:
			if scope == ScopeUser && strings.HasSuffix(p.UUnit, ".service") {
				add(p.UUnit, p.Command)
			}
		}
	}

	out := make([]Candidate, 0, len(byUnit))
	for _, unit := range sortedKeys(byUnit) {
		c := Candidate{Unit: unit, Commands: sortedKeys(byUnit[unit])}
		if scope == ScopeSystem {
			c.Reason, _ = noRestart.Reason(unit)
		}
		out = append(out, c)
	}
	return out
}

// Restarter runs a Plan through a ServiceManager, echoing each step.
type Restarter struct {
	Manager ServiceManager
	Echo    func(cmd string) error
	DryRun  bool
}

// Run reloads unit definitions and restarts the plan's units. Failures are
// returned as they happen; nothing is retried.
func (r *Restarter) Run(ctx context.Context, plan Plan) error {
	if plan.Empty() {
		return nil
	}
	user := plan.Scope == ScopeUser

	if err := r.echo(r.Manager.ReloadCommand(user)); err != nil {
		return err
	}
	if !r.DryRun {
		if err := r.Manager.Reload(ctx, user); err != nil {
			return fmt.Errorf("reload %s units: %w", plan.Scope, err)
		}
	}

	if err := r.echo(r.Manager.RestartCommand(user, plan.Units)); err != nil {
		return err
	}
	if !r.DryRun {
		if err := r.Manager.Restart(ctx, user, plan.Units); err != nil {
			return fmt.Errorf("restart %s units: %w", plan.Scope, err)
		}
	}
	return nil
}

func (r *Restarter) echo(cmd string) error {
	if r.Echo == nil {
		return nil
	}
	return r.Echo(cmd)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
