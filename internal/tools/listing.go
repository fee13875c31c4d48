package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/w31r4/longoverdue/internal/process"
)

// ErrNoMatch is returned by MatchPIDs when no process matches the pattern.
var ErrNoMatch = errors.New("no process matched")

// ListDeleted returns the lsof -F0 listing of open files that were deleted
// or replaced on disk.
func (k *Kit) ListDeleted(ctx context.Context) (string, error) {
	out, err := k.output(ctx, "lsof", "-dDEL", "-F0")
	if err != nil {
		// lsof exits 1 when nothing matched the selection.
		if ExitCode(err) == 1 && strings.TrimSpace(out) == "" {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// ListUnits asks ps for the system and user unit of each pid. The pid column
// lets the caller join by id instead of by position.
func (k *Kit) ListUnits(ctx context.Context, pids []string) ([]process.UnitRow, error) {
	if len(pids) == 0 {
		return nil, nil
	}
	args := append([]string{"-o", "pid=,unit=,uunit="}, pids...)
	out, err := k.output(ctx, "ps", args...)
	if err != nil {
		// ps exits 1 when none of the pids exist any more; the join reports that.
		if ExitCode(err) != 1 || strings.TrimSpace(out) != "" {
			return nil, err
		}
		return nil, nil
	}
	return process.ParseUnitRows(out)
}

// MatchPIDs resolves pattern to process ids with pgrep. When uid is not
// negative only processes of that user are considered.
func (k *Kit) MatchPIDs(ctx context.Context, pattern string, uid int) ([]string, error) {
	var args []string
	if uid >= 0 {
		args = append(args, "-u", strconv.Itoa(uid))
	}
	args = append(args, "--", pattern)

	out, err := k.output(ctx, "pgrep", args...)
	if err != nil {
		if ExitCode(err) == 1 {
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
		}
		return nil, err
	}
	pids := splitLines(out)
	if len(pids) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	return pids, nil
}

// CgroupUnits resolves units from /proc instead of ps.
type CgroupUnits struct {
	Root string
}

func (c CgroupUnits) ListUnits(_ context.Context, pids []string) ([]process.UnitRow, error) {
	return process.CgroupRows(c.Root, pids), nil
}
