package models

import (
	"sort"
	"strings"
	"time"
)

// GroupTimeLayout is the timestamp layout used in the group directory file
// (ISO 8601 local date-time, no offset).
const GroupTimeLayout = "2006-01-02T15:04:05"

// User is one entry of the persisted user directory.
type User struct {
	Name    string
	Address string
}

// Group is a chat group with its membership and moderator sets.
// The creator is always both a member and a moderator.
type Group struct {
	Name        string
	Creator     string
	Description string
	Members     map[string]struct{}
	Moderators  map[string]struct{}
	CreatedAt   time.Time
	Active      bool
}

// NewGroup creates a group whose creator is its sole member and moderator.
func NewGroup(name, creator, description string) *Group {
	g := &Group{
		Name:        name,
		Creator:     creator,
		Description: description,
		Members:     make(map[string]struct{}),
		Moderators:  make(map[string]struct{}),
		CreatedAt:   time.Now(),
		Active:      true,
	}
	g.Members[creator] = struct{}{}
	g.Moderators[creator] = struct{}{}
	return g
}

func (g *Group) IsMember(user string) bool {
	_, ok := g.Members[user]
	return ok
}

func (g *Group) IsModerator(user string) bool {
	_, ok := g.Moderators[user]
	return ok
}

func (g *Group) AddMember(user string) {
	g.Members[user] = struct{}{}
}

// RemoveMember drops the user from both sets. The caller is responsible for
// never removing the creator.
func (g *Group) RemoveMember(user string) {
	delete(g.Members, user)
	delete(g.Moderators, user)
}

// PromoteModerator adds the user to the moderator set; only existing members
// can be promoted, so moderators stay a subset of members.
func (g *Group) PromoteModerator(user string) {
	if g.IsMember(user) {
		g.Moderators[user] = struct{}{}
	}
}

// MemberNames returns the members in sorted order.
func (g *Group) MemberNames() []string {
	return sortedKeys(g.Members)
}

// ModeratorNames returns the moderators in sorted order.
func (g *Group) ModeratorNames() []string {
	return sortedKeys(g.Moderators)
}

func sortedKeys(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileLine serializes the group as one line of the group directory file:
// name|creator|description|members|moderators|created|active.
func (g *Group) FileLine() string {
	active := "false"
	if g.Active {
		active = "true"
	}
	return strings.Join([]string{
		g.Name,
		g.Creator,
		g.Description,
		strings.Join(g.MemberNames(), ","),
		strings.Join(g.ModeratorNames(), ","),
		g.CreatedAt.Format(GroupTimeLayout),
		active,
	}, "|")
}

// GroupFromFileLine parses one line of the group directory file. Lines with
// fewer than 7 fields are rejected. An unparsable timestamp falls back to
// now, the same tolerance the loader has always had for old files.
func GroupFromFileLine(line string) (*Group, bool) {
	parts := strings.Split(line, "|")
	if len(parts) < 7 {
		return nil, false
	}

	g := NewGroup(parts[0], parts[1], parts[2])
	for _, m := range splitList(parts[3]) {
		g.Members[m] = struct{}{}
	}
	for _, m := range splitList(parts[4]) {
		g.Moderators[m] = struct{}{}
	}
	if ts, err := time.Parse(GroupTimeLayout, parts[5]); err == nil {
		g.CreatedAt = ts
	} else {
		g.CreatedAt = time.Now()
	}
	g.Active = parts[6] == "true"
	return g, true
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
