// Package store is the flat-file persistence layer: full-set rewrites for the
// user directory, group directory and offline mailbox, append-only logs for
// message history. Rewrites go through a temp file and rename so a concurrent
// reader never sees a half-written file.
package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	usersFile   = "utilisateurs.txt"
	groupsFile  = "groupes_chat.txt"
	mailboxFile = "messages_offline.txt"

	historyDir        = "messages_history"
	generalChatFile   = "general_chat.txt"
	privateChatPrefix = "private_"
	groupChatPrefix   = "group_"
)

// HistoryTimeLayout is the timestamp layout of history log lines.
const HistoryTimeLayout = "2006-01-02 15:04:05"

type Store struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// New opens the data directory, creating it and the history subdirectory if
// needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, historyDir), 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) historyPath(name string) string {
	return filepath.Join(s.dir, historyDir, name)
}

// readLines returns the file's lines; a missing file reads as empty.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, "\n"), nil
}

// writeLines replaces the file's contents atomically: write to a temp file in
// the same directory, then rename over the target.
func writeLines(path string, lines []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	var content string
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
