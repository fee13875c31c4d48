package process

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnitMismatch means the unit listing does not line up with the processes
// it was requested for. Usually a process exited between the two queries.
var ErrUnitMismatch = errors.New("unit listing does not match process listing")

// UnitRow is one line of the unit listing. PID is empty when the lister only
// prints the unit columns, in which case rows are matched by position.
type UnitRow struct {
	PID   string
	Unit  string
	UUnit string
}

// ParseUnitRows parses the output of `ps -o [pid=,]unit=,uunit=`. Lines with
// three columns carry the pid, lines with two are positional.
func ParseUnitRows(out string) ([]UnitRow, error) {
	var rows []UnitRow
	for i, line := range strings.Split(out, "\n") {
		cols := strings.Fields(line)
		switch len(cols) {
		case 0:
			continue
		case 2:
			rows = append(rows, UnitRow{Unit: cols[0], UUnit: cols[1]})
		case 3:
			rows = append(rows, UnitRow{PID: cols[0], Unit: cols[1], UUnit: cols[2]})
		default:
			return nil, fmt.Errorf("unit listing line %d: want 2 or 3 columns, got %d", i+1, len(cols))
		}
	}
	return rows, nil
}

// Correlate assigns Unit and UUnit to every process. Rows that carry a pid are
// joined by pid, other rows strictly by position. Any process left without a
// row fails the whole join.
func Correlate(procs []*Process, rows []UnitRow) error {
	if keyed(rows) {
		byPID := make(map[string]UnitRow, len(rows))
		for _, r := range rows {
			byPID[r.PID] = r
		}
		for _, p := range procs {
			r, ok := byPID[p.PID]
			if !ok {
				return fmt.Errorf("%w: no unit for pid %s", ErrUnitMismatch, p.PID)
			}
			p.Unit, p.UUnit = r.Unit, r.UUnit
		}
		return nil
	}

	if len(rows) != len(procs) {
		return fmt.Errorf("%w: %d processes, %d unit lines", ErrUnitMismatch, len(procs), len(rows))
	}
	for i, p := range procs {
		p.Unit, p.UUnit = rows[i].Unit, rows[i].UUnit
	}
	return nil
}

func keyed(rows []UnitRow) bool {
	if len(rows) == 0 {
		return false
	}
	for _, r := range rows {
		if r.PID == "" {
			return false
		}
	}
	return true
}
