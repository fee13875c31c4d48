package process

import (
	"regexp"
	"strconv"
)

// pathRE matches the name field of an lsof file record. lsof appends
// " (deleted)" for unlinked files and " (path dev=MAJ,MIN)" when the path now
// resolves to a different device than the open file.
var pathRE = regexp.MustCompile(`^(.*?)(?: \((?:path dev=(\d+),(\d+)|deleted)\))?$`)

// Annotation is the parsed parenthetical suffix of an lsof path, if any.
type Annotation struct {
	Deleted  bool
	Moved    bool // path dev=MAJ,MIN
	DevMajor int
	DevMinor int
}

// ParsePath strips the annotation suffix from an lsof path and returns the
// bare path together with what the suffix said. Parentheses elsewhere in the
// path are left untouched.
func ParsePath(raw string) (string, Annotation) {
	m := pathRE.FindStringSubmatchIndex(raw)
	if m == nil {
		return raw, Annotation{}
	}
	path := raw[m[2]:m[3]]

	var a Annotation
	switch {
	case m[4] >= 0:
		a.Moved = true
		a.DevMajor, _ = strconv.Atoi(raw[m[4]:m[5]])
		a.DevMinor, _ = strconv.Atoi(raw[m[6]:m[7]])
	case m[1] > m[3]:
		a.Deleted = true
	}
	return path, a
}

// StripPath is ParsePath without the annotation.
func StripPath(raw string) string {
	path, _ := ParsePath(raw)
	return path
}
