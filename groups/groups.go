// Package groups is the in-memory group directory, backed by the store.
// Outcome messages are the user-facing reply lines; every mutation rewrites
// the full group file.
package groups

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"tchat/models"
	"tchat/store"
)

type Manager struct {
	mu     sync.RWMutex
	groups map[string]*models.Group
	store  *store.Store
	logger *zap.Logger
}

// NewManager loads the group directory from disk.
func NewManager(st *store.Store, logger *zap.Logger) (*Manager, error) {
	loaded, err := st.LoadGroups()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		groups: make(map[string]*models.Group, len(loaded)),
		store:  st,
		logger: logger,
	}
	for _, group := range loaded {
		m.groups[group.Name] = group
	}
	return m, nil
}

// persist rewrites the group file. A write failure is logged and the
// in-memory state stands.
func (m *Manager) persist() {
	all := make([]*models.Group, 0, len(m.groups))
	for _, group := range m.groups {
		all = append(all, group)
	}
	if err := m.store.SaveGroups(all); err != nil {
		m.logger.Error("saving groups failed", zap.Error(err))
	}
}

// Create makes a new group whose creator is sole member and moderator.
// Returns false when the name is already taken.
func (m *Manager) Create(name, creator, description string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.groups[name]; exists {
		return false
	}

	m.groups[name] = models.NewGroup(name, creator, description)
	m.persist()
	return true
}

// AddMember adds a user to a group on behalf of a moderator. The returned
// string is the reply line for the requester.
func (m *Manager) AddMember(groupName, user, requester string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[groupName]
	if !ok {
		return "Le groupe '" + groupName + "' n'existe pas"
	}
	if !group.IsModerator(requester) {
		return "Seuls les modérateurs peuvent ajouter des gens"
	}
	if group.IsMember(user) {
		return user + " est déjà dans le groupe"
	}

	group.AddMember(user)
	m.persist()
	return user + " a été ajouté au groupe '" + groupName + "'"
}

// RemoveMember removes a user from a group on behalf of a moderator. The
// creator can never be removed.
func (m *Manager) RemoveMember(groupName, user, requester string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[groupName]
	if !ok {
		return "Le groupe '" + groupName + "' n'existe pas"
	}
	if !group.IsModerator(requester) {
		return "Seuls les modérateurs peuvent virer des gens"
	}
	if user == group.Creator {
		return "On peut pas virer le créateur du groupe"
	}
	if !group.IsMember(user) {
		return user + " n'est pas dans ce groupe"
	}

	group.RemoveMember(user)
	m.persist()
	return user + " a été viré du groupe '" + groupName + "'"
}

// Promote makes a member a moderator, on behalf of an existing moderator.
func (m *Manager) Promote(groupName, user, requester string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[groupName]
	if !ok {
		return "Le groupe '" + groupName + "' n'existe pas"
	}
	if !group.IsModerator(requester) {
		return "Seuls les modérateurs peuvent promouvoir quelqu'un"
	}
	if !group.IsMember(user) {
		return user + " n'est pas membre du groupe"
	}
	if group.IsModerator(user) {
		return user + " est déjà modérateur"
	}

	group.PromoteModerator(user)
	m.persist()
	return user + " est maintenant modérateur du groupe '" + groupName + "'"
}

// Summary is one row of the full group listing.
type Summary struct {
	Name        string
	MemberCount int
	Description string
}

// ListAll returns a snapshot of every group, sorted by name.
func (m *Manager) ListAll() []Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]Summary, 0, len(m.groups))
	for _, group := range m.groups {
		summaries = append(summaries, Summary{
			Name:        group.Name,
			MemberCount: len(group.Members),
			Description: group.Description,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

// Membership is one row of a user's group listing.
type Membership struct {
	Name        string
	Moderator   bool
	Description string
}

// ListForUser returns the groups the user belongs to, sorted by name. The
// creator counts as moderator since the creator is always in the moderator
// set.
func (m *Manager) ListForUser(user string) []Membership {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var memberships []Membership
	for _, group := range m.groups {
		if !group.IsMember(user) {
			continue
		}
		memberships = append(memberships, Membership{
			Name:        group.Name,
			Moderator:   group.IsModerator(user),
			Description: group.Description,
		})
	}
	sort.Slice(memberships, func(i, j int) bool { return memberships[i].Name < memberships[j].Name })
	return memberships
}

// MemberInfo is the membership detail block of one group.
type MemberInfo struct {
	Creator    string
	Moderators []string
	Members    []string
	Total      int
}

// Info returns the membership details of a group, or false if it does not
// exist.
func (m *Manager) Info(groupName string) (MemberInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	group, ok := m.groups[groupName]
	if !ok {
		return MemberInfo{}, false
	}
	return MemberInfo{
		Creator:    group.Creator,
		Moderators: group.ModeratorNames(),
		Members:    group.MemberNames(),
		Total:      len(group.Members),
	}, true
}

// RelayStatus says whether a group message can be relayed, and if not, why.
type RelayStatus int

const (
	RelayOK RelayStatus = iota
	RelayUnknownGroup
	RelayInactive
	RelayNotMember
)

// RelayTargets returns the members a group message from sender should reach
// (everyone but the sender), with the status explaining any refusal.
func (m *Manager) RelayTargets(groupName, sender string) ([]string, RelayStatus) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	group, ok := m.groups[groupName]
	switch {
	case !ok:
		return nil, RelayUnknownGroup
	case !group.Active:
		return nil, RelayInactive
	case !group.IsMember(sender):
		return nil, RelayNotMember
	}

	var targets []string
	for _, member := range group.MemberNames() {
		if member != sender {
			targets = append(targets, member)
		}
	}
	return targets, RelayOK
}
