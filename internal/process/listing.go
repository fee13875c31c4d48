package process

import (
	"bufio"
	"errors"
	"io"
	"path"
	"strings"
)

const (
	tagProcess = 'p'
	tagFile    = 'f'
)

// ErrOrphanFile is returned when a file record appears before any process record.
var ErrOrphanFile = errors.New("file record before any process record")

// Filter decides which stale files are of interest.
type Filter struct {
	SystemPath        string
	ExcludeNames      map[string]struct{}
	ExcludeExtensions map[string]struct{}
}

// NewFilter builds a Filter from plain lists. Extensions may be given with or
// without the leading dot.
func NewFilter(systemPath string, names, extensions []string) Filter {
	f := Filter{
		SystemPath:        systemPath,
		ExcludeNames:      make(map[string]struct{}, len(names)),
		ExcludeExtensions: make(map[string]struct{}, len(extensions)),
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			f.ExcludeNames[n] = struct{}{}
		}
	}
	for _, e := range extensions {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		f.ExcludeExtensions[e] = struct{}{}
	}
	return f
}

// Keep reports whether a stripped file path is under the system path and not excluded.
func (f Filter) Keep(p string) bool {
	if !underPrefix(p, f.SystemPath) {
		return false
	}
	base := path.Base(p)
	if _, ok := f.ExcludeNames[base]; ok {
		return false
	}
	if ext := path.Ext(base); ext != "" {
		if _, ok := f.ExcludeExtensions[ext]; ok {
			return false
		}
	}
	return true
}

func underPrefix(p, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return strings.HasPrefix(p, "/")
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// ParseOptions controls Parse.
type ParseOptions struct {
	Filter Filter
	// PIDs restricts the result to these process ids when non-nil.
	// An empty, non-nil slice keeps nothing.
	PIDs []string
}

// Parse reads an lsof -F0 listing and returns the processes that hold at
// least one file accepted by the filter, in listing order.
func Parse(r io.Reader, opts ParseOptions) ([]*Process, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	var procs []*Process
	var cur *Process
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		switch line[0] {
		case tagProcess:
			fields, err := DecodeRecord(line)
			if err != nil {
				return nil, &DecodeError{Line: lineNo, Err: err}
			}
			if cur != nil && len(cur.Files) == 0 {
				procs = procs[:len(procs)-1]
			}
			cur = newProcess(fields)
			procs = append(procs, cur)

		case tagFile:
			if cur == nil {
				return nil, &DecodeError{Line: lineNo, Err: ErrOrphanFile}
			}
			fields, err := DecodeRecord(line)
			if err != nil {
				return nil, &DecodeError{Line: lineNo, Err: err}
			}
			name := StripPath(fields['n'])
			if !opts.Filter.Keep(name) {
				continue
			}
			cur.Files = append(cur.Files, newFile(fields, name))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cur != nil && len(cur.Files) == 0 {
		procs = procs[:len(procs)-1]
	}

	if opts.PIDs != nil {
		procs = keepPIDs(procs, opts.PIDs)
	}
	return procs, nil
}

func keepPIDs(procs []*Process, pids []string) []*Process {
	want := make(map[string]struct{}, len(pids))
	for _, pid := range pids {
		want[strings.TrimSpace(pid)] = struct{}{}
	}
	out := procs[:0]
	for _, p := range procs {
		if _, ok := want[p.PID]; ok {
			out = append(out, p)
		}
	}
	return out
}
