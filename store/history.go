package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AppendGeneral appends one broadcast message to the general chat log.
func (s *Store) AppendGeneral(ts time.Time, sender, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := ts.Format(HistoryTimeLayout) + "|" + sender + "|" + body
	return appendLine(s.historyPath(generalChatFile), line)
}

// AppendPrivate appends one private message to the pair's log. The file is
// keyed by both participant names sorted lexicographically, so either
// direction of the conversation lands in the same file.
func (s *Store) AppendPrivate(ts time.Time, sender, recipient, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := ts.Format(HistoryTimeLayout) + "|" + sender + "|" + recipient + "|" + body
	return appendLine(s.historyPath(privateFileName(sender, recipient)), line)
}

// AppendGroup appends one group message to the group's log.
func (s *Store) AppendGroup(ts time.Time, group, sender, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := ts.Format(HistoryTimeLayout) + "|" + sender + "|" + body
	return appendLine(s.historyPath(groupChatPrefix+group+".txt"), line)
}

func privateFileName(a, b string) string {
	users := []string{a, b}
	sort.Strings(users)
	return privateChatPrefix + users[0] + "_" + users[1] + ".txt"
}

// TrimHistory rewrites every history log keeping only entries newer than the
// cutoff. Lines whose timestamp does not parse are kept: a log must never
// silently drop what it cannot read. Returns the number of entries removed.
func (s *Store) TrimHistory(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, historyDir))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		path := s.historyPath(entry.Name())
		lines, err := readLines(path)
		if err != nil {
			s.logger.Warn("trim: cannot read log", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		var kept []string
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			tsField := line
			if i := strings.IndexByte(line, '|'); i >= 0 {
				tsField = line[:i]
			}
			ts, err := time.Parse(HistoryTimeLayout, tsField)
			if err != nil || ts.After(cutoff) {
				kept = append(kept, line)
				continue
			}
			removed++
		}

		if err := writeLines(path, kept); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
