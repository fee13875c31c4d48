package action

import (
	"context"
	"sort"
)

// Lookup resolves pattern to processes and returns the distinct outdated
// files they use, sorted. uid < 0 matches processes of every user. A pattern
// that matches nothing returns the matcher's no-match error.
func (s *Scanner) Lookup(ctx context.Context, m Matcher, pattern string, uid int) ([]string, error) {
	pids, err := m.MatchPIDs(ctx, pattern, uid)
	if err != nil {
		return nil, err
	}
	s.log().Debug("matched pattern", "pattern", pattern, "pids", len(pids))

	procs, err := s.Scan(ctx, pids)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var files []string
	for _, p := range procs {
		for _, f := range p.Files {
			if _, ok := seen[f.Path]; ok {
				continue
			}
			seen[f.Path] = struct{}{}
			files = append(files, f.Path)
		}
	}
	sort.Strings(files)
	return files, nil
}
