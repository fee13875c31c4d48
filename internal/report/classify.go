// Package report groups correlated processes into services, user units and
// plain processes, and renders the grouped result.
package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/w31r4/longoverdue/internal/config"
	"github.com/w31r4/longoverdue/internal/process"
)

// Bucket is the presentation group of a process.
type Bucket int

const (
	BucketService Bucket = iota
	BucketUserUnit
	BucketOther
)

func (b Bucket) String() string {
	switch b {
	case BucketService:
		return "services"
	case BucketUserUnit:
		return "user units"
	default:
		return "other"
	}
}

// Classify returns the bucket of a correlated process. A user unit wins over
// the system unit; only system units ending in ".service" count as services.
func Classify(p *process.Process) Bucket {
	switch {
	case p.HasUserUnit():
		return BucketUserUnit
	case strings.HasSuffix(p.Unit, ".service"):
		return BucketService
	default:
		return BucketOther
	}
}

// Partition splits procs by bucket, keeping listing order within each.
func Partition(procs []*process.Process) (services, userUnits, others []*process.Process) {
	for _, p := range procs {
		switch Classify(p) {
		case BucketService:
			services = append(services, p)
		case BucketUserUnit:
			userUnits = append(userUnits, p)
		default:
			others = append(others, p)
		}
	}
	return services, userUnits, others
}

// Entry is one deduplicated line of the report.
type Entry struct {
	Unit    string   `json:"unit,omitempty"` // system unit for services, user unit for user units
	Command string   `json:"command"`
	PIDs    []string `json:"pids"`
	Files   []string `json:"files"`
	Reason  string   `json:"no_autorestart,omitempty"`
}

// UserGroup holds the entries of one user.
type UserGroup struct {
	User    string  `json:"user"`
	Entries []Entry `json:"entries"`
}

// Report is the grouped, sorted view of a scan.
type Report struct {
	Services  []Entry     `json:"services"`
	UserUnits []UserGroup `json:"user_units"`
	Others    []UserGroup `json:"others"`
	// Kernel is the running kernel release when its modules are gone.
	Kernel string `json:"outdated_kernel,omitempty"`
}

// Empty reports whether nothing is running outdated code.
func (r Report) Empty() bool {
	return len(r.Services) == 0 && len(r.UserUnits) == 0 && len(r.Others) == 0 && r.Kernel == ""
}

// Build groups procs. Entries are keyed by (unit, command) for services,
// (user unit, command) for user units and command for other processes; pids
// and files of processes sharing a key are merged.
func Build(procs []*process.Process, noRestart config.NoAutorestart) Report {
	services, userUnits, others := Partition(procs)

	var rep Report

	svc := newGrouper()
	for _, p := range services {
		e := svc.add(p.Unit+"\x00"+p.Command, p)
		e.Unit = p.Unit
		if reason, ok := noRestart.Reason(p.Unit); ok {
			e.Reason = reason
		}
	}
	rep.Services = svc.sorted()

	rep.UserUnits = byUser(userUnits, func(g *grouper, p *process.Process) {
		e := g.add(p.UUnit+"\x00"+p.Command, p)
		e.Unit = p.UUnit
	})
	rep.Others = byUser(others, func(g *grouper, p *process.Process) {
		g.add(p.Command, p)
	})
	return rep
}

func byUser(procs []*process.Process, add func(*grouper, *process.Process)) []UserGroup {
	var order []string
	groups := make(map[string]*grouper)
	for _, p := range procs {
		g, ok := groups[p.User]
		if !ok {
			g = newGrouper()
			groups[p.User] = g
			order = append(order, p.User)
		}
		add(g, p)
	}

	out := make([]UserGroup, 0, len(order))
	for _, user := range order {
		out = append(out, UserGroup{User: user, Entries: groups[user].sorted()})
	}
	return out
}

type grouper struct {
	entries map[string]*Entry
	pids    map[string]map[string]struct{}
	files   map[string]map[string]struct{}
}

func newGrouper() *grouper {
	return &grouper{
		entries: make(map[string]*Entry),
		pids:    make(map[string]map[string]struct{}),
		files:   make(map[string]map[string]struct{}),
	}
}

func (g *grouper) add(key string, p *process.Process) *Entry {
	e, ok := g.entries[key]
	if !ok {
		e = &Entry{Command: p.Command}
		g.entries[key] = e
		g.pids[key] = make(map[string]struct{})
		g.files[key] = make(map[string]struct{})
	}
	g.pids[key][p.PID] = struct{}{}
	for _, f := range p.Files {
		g.files[key][f.Path] = struct{}{}
	}
	return e
}

// sorted returns the entries ordered by unit, then command. Keys are unique,
// so the order is total.
func (g *grouper) sorted() []Entry {
	out := make([]Entry, 0, len(g.entries))
	for key, e := range g.entries {
		e.PIDs = sortedPIDs(g.pids[key])
		e.Files = sortedSet(g.files[key])
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Unit != out[j].Unit {
			return out[i].Unit < out[j].Unit
		}
		return out[i].Command < out[j].Command
	})
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func sortedPIDs(set map[string]struct{}) []string {
	out := sortedSet(set)
	sort.SliceStable(out, func(i, j int) bool {
		a, errA := strconv.Atoi(out[i])
		b, errB := strconv.Atoi(out[j])
		if errA != nil || errB != nil {
			return out[i] < out[j]
		}
		return a < b
	})
	return out
}
