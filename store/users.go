package store

import (
	"strings"

	"tchat/models"
)

// LoadUsers reads the user directory. Lines are "name,address"; a missing
// address defaults to loopback.
func (s *Store) LoadUsers() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := readLines(s.path(usersFile))
	if err != nil {
		return nil, err
	}

	var users []models.User
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		user := models.User{Name: parts[0], Address: "127.0.0.1"}
		if len(parts) == 2 && parts[1] != "" {
			user.Address = parts[1]
		}
		users = append(users, user)
	}
	return users, nil
}

// SaveUsers rewrites the full user directory.
func (s *Store) SaveUsers(users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]string, 0, len(users))
	for _, user := range users {
		address := user.Address
		if address == "" {
			address = "127.0.0.1"
		}
		lines = append(lines, user.Name+","+address)
	}
	return writeLines(s.path(usersFile), lines)
}
