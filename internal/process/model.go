// Package process rebuilds processes and their stale open files from the
// field-coded output of the open-file lister, and joins them with the systemd
// units they run under.
package process

// NoUnit is what the unit lister prints when a process has no user unit.
const NoUnit = "-"

// File is one open file handle of a process that points at a deleted or
// replaced file under the system path.
type File struct {
	FD     string `json:"fd"`             // File descriptor as printed by lsof (e.g. "DEL", "txt", "3u")
	Mode   string `json:"mode,omitempty"` // Access mode
	Lock   string `json:"lock,omitempty"` // Lock state
	Type   string `json:"type,omitempty"` // File type
	Device string `json:"device,omitempty"`
	Inode  string `json:"inode,omitempty"`
	Path   string `json:"path"` // Path with any lsof annotation stripped
}

// Process is a running process that holds at least one stale file.
type Process struct {
	PID     string `json:"pid"`
	PPID    string `json:"ppid,omitempty"`
	Command string `json:"command"`
	UID     string `json:"uid,omitempty"`
	GID     string `json:"gid,omitempty"`
	User    string `json:"user"`
	Unit    string `json:"unit,omitempty"`  // System unit, empty until correlated
	UUnit   string `json:"uunit,omitempty"` // User unit, empty until correlated
	Files   []File `json:"files"`
}

// HasUserUnit reports whether the process runs inside a user session unit.
func (p *Process) HasUserUnit() bool {
	return p.UUnit != "" && p.UUnit != NoUnit
}

// PIDs returns the ids of procs in order.
func PIDs(procs []*Process) []string {
	out := make([]string, len(procs))
	for i, p := range procs {
		out[i] = p.PID
	}
	return out
}

func newProcess(fields map[byte]string) *Process {
	return &Process{
		PID:     fields['p'],
		PPID:    fields['R'],
		Command: fields['c'],
		UID:     fields['u'],
		GID:     fields['g'],
		User:    fields['L'],
	}
}

func newFile(fields map[byte]string, path string) File {
	return File{
		FD:     fields['f'],
		Mode:   fields['a'],
		Lock:   fields['l'],
		Type:   fields['t'],
		Device: fields['D'],
		Inode:  fields['i'],
		Path:   path,
	}
}
