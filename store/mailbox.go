package store

import (
	"sort"
	"strings"
)

// LoadMailbox reads the offline mailbox into recipient → pending messages,
// preserving the stored (FIFO) order per recipient. Each line is
// "recipient|formattedMessage"; only the first pipe separates the two, the
// message itself may contain pipes.
func (s *Store) LoadMailbox() (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := readLines(s.path(mailboxFile))
	if err != nil {
		return nil, err
	}

	mailbox := make(map[string][]string)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		mailbox[parts[0]] = append(mailbox[parts[0]], parts[1])
	}
	return mailbox, nil
}

// SaveMailbox rewrites the full offline mailbox. Recipients are written in
// sorted order, each recipient's queue in FIFO order.
func (s *Store) SaveMailbox(mailbox map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipients := make([]string, 0, len(mailbox))
	for recipient := range mailbox {
		recipients = append(recipients, recipient)
	}
	sort.Strings(recipients)

	var lines []string
	for _, recipient := range recipients {
		for _, message := range mailbox[recipient] {
			lines = append(lines, recipient+"|"+message)
		}
	}
	return writeLines(s.path(mailboxFile), lines)
}
