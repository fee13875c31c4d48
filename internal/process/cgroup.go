package process

import (
	"os"
	"path/filepath"
	"strings"
)

var unitSuffixes = []string{".service", ".scope", ".socket", ".mount", ".swap", ".timer"}

// CgroupRows resolves units from /proc/<pid>/cgroup under rootPath instead of
// asking ps. Processes whose cgroup file cannot be read get no row, which the
// keyed join reports as a mismatch.
func CgroupRows(rootPath string, pids []string) []UnitRow {
	if rootPath == "" {
		rootPath = "/"
	}
	rootPath = filepath.Clean(rootPath)

	rows := make([]UnitRow, 0, len(pids))
	for _, pid := range pids {
		data, err := os.ReadFile(filepath.Join(rootPath, "proc", pid, "cgroup"))
		if err != nil {
			continue
		}
		unit, uunit := unitsFromCgroupContent(string(data))
		rows = append(rows, UnitRow{PID: pid, Unit: unit, UUnit: uunit})
	}
	return rows
}

// unitsFromCgroupContent returns the system unit and user unit the way
// `ps -o unit=,uunit=` prints them, with "-" for a missing value.
func unitsFromCgroupContent(content string) (string, string) {
	var fallback string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// cgroup v1: <hier>:<controllers>:<path>
		// cgroup v2: 0::<path>
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 || parts[2] == "" {
			continue
		}
		if parts[1] == "" || parts[1] == "name=systemd" {
			return unitsFromCgroupPath(parts[2])
		}
		if fallback == "" {
			fallback = parts[2]
		}
	}
	if fallback == "" {
		return NoUnit, NoUnit
	}
	return unitsFromCgroupPath(fallback)
}

func unitsFromCgroupPath(path string) (string, string) {
	unit, uunit := "", ""
	for _, seg := range strings.Split(path, "/") {
		if !isUnitName(seg) {
			continue
		}
		if unit == "" {
			unit = seg
			continue
		}
		// Everything below user@UID.service belongs to the user manager;
		// the deepest unit there is the user unit.
		if strings.HasPrefix(unit, "user@") {
			uunit = seg
		}
	}
	if unit == "" {
		unit = NoUnit
	}
	if uunit == "" {
		uunit = NoUnit
	}
	return unit, uunit
}

func isUnitName(seg string) bool {
	for _, suffix := range unitSuffixes {
		if strings.HasSuffix(seg, suffix) && len(seg) > len(suffix) {
			return true
		}
	}
	return false
}
