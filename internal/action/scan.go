// Package action runs the user-facing operations: scanning for processes on
// outdated files, planning and running restarts, and looking up a pattern.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/w31r4/longoverdue/internal/logutil"
	"github.com/w31r4/longoverdue/internal/process"
)

// FileLister returns the lsof -F0 listing of deleted open files.
type FileLister interface {
	ListDeleted(ctx context.Context) (string, error)
}

// UnitLister returns the units of the given processes.
type UnitLister interface {
	ListUnits(ctx context.Context, pids []string) ([]process.UnitRow, error)
}

// Matcher resolves a pattern to process ids. uid < 0 means any user.
type Matcher interface {
	MatchPIDs(ctx context.Context, pattern string, uid int) ([]string, error)
}

// Scanner produces the correlated list of processes using outdated files.
type Scanner struct {
	Files  FileLister
	Units  UnitLister
	Filter process.Filter
	Log    *slog.Logger
}

// NewScanner returns a Scanner.
func NewScanner(files FileLister, units UnitLister, filter process.Filter, log *slog.Logger) *Scanner {
	return &Scanner{Files: files, Units: units, Filter: filter, Log: logutil.Component(log, "scan")}
}

// Scan lists deleted files, keeps the processes of interest and joins them
// with their units. A non-nil pids restricts the result to those processes.
func (s *Scanner) Scan(ctx context.Context, pids []string) ([]*process.Process, error) {
	listing, err := s.Files.ListDeleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open files: %w", err)
	}

	procs, err := process.Parse(strings.NewReader(listing), process.ParseOptions{Filter: s.Filter, PIDs: pids})
	if err != nil {
		return nil, err
	}
	s.log().Debug("parsed listing", "processes", len(procs))
	if len(procs) == 0 {
		return procs, nil
	}

	rows, err := s.Units.ListUnits(ctx, process.PIDs(procs))
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	if err := process.Correlate(procs, rows); err != nil {
		return nil, err
	}
	return procs, nil
}

func (s *Scanner) log() *slog.Logger {
	if s.Log == nil {
		return logutil.Discard()
	}
	return s.Log
}
