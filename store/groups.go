package store

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"tchat/models"
)

// LoadGroups reads the group directory. Malformed lines are skipped with a
// warning; they only ever appear after manual edits.
func (s *Store) LoadGroups() ([]*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := readLines(s.path(groupsFile))
	if err != nil {
		return nil, err
	}

	var groups []*models.Group
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		group, ok := models.GroupFromFileLine(line)
		if !ok {
			s.logger.Warn("skipping malformed group line", zap.String("line", line))
			continue
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// SaveGroups rewrites the full group directory, one line per group, sorted by
// name so the file is stable across rewrites.
func (s *Store) SaveGroups(groups []*models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]*models.Group, len(groups))
	copy(sorted, groups)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	lines := make([]string, 0, len(sorted))
	for _, group := range sorted {
		lines = append(lines, group.FileLine())
	}
	return writeLines(s.path(groupsFile), lines)
}
