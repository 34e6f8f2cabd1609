package groups

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tchat/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	m, err := NewManager(st, zap.NewNop())
	require.NoError(t, err)
	return m, st
}

func TestCreate(t *testing.T) {
	m, _ := newTestManager(t)

	require.True(t, m.Create("team", "alice", "squad"))
	assert.False(t, m.Create("team", "bob", "other"), "duplicate name must be rejected")

	info, ok := m.Info("team")
	require.True(t, ok)
	assert.Equal(t, "alice", info.Creator)
	assert.Equal(t, []string{"alice"}, info.Members)
	assert.Equal(t, []string{"alice"}, info.Moderators)
	assert.Equal(t, 1, info.Total)
}

func TestCreatorInvariant(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.Create("team", "alice", "squad"))
	m.AddMember("team", "bob", "alice")
	m.Promote("team", "bob", "alice")

	// Even another moderator cannot remove the creator.
	assert.Equal(t, "On peut pas virer le créateur du groupe", m.RemoveMember("team", "alice", "bob"))

	info, _ := m.Info("team")
	assert.Contains(t, info.Members, "alice")
	assert.Contains(t, info.Moderators, "alice")
}

func TestAddMemberOutcomes(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.Create("team", "alice", "squad"))

	assert.Equal(t, "Le groupe 'nope' n'existe pas", m.AddMember("nope", "bob", "alice"))
	assert.Equal(t, "Seuls les modérateurs peuvent ajouter des gens", m.AddMember("team", "carol", "bob"))
	assert.Equal(t, "bob a été ajouté au groupe 'team'", m.AddMember("team", "bob", "alice"))
	assert.Equal(t, "bob est déjà dans le groupe", m.AddMember("team", "bob", "alice"))
}

func TestRemoveMemberOutcomes(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.Create("team", "alice", "squad"))
	m.AddMember("team", "bob", "alice")

	assert.Equal(t, "Le groupe 'nope' n'existe pas", m.RemoveMember("nope", "bob", "alice"))
	assert.Equal(t, "Seuls les modérateurs peuvent virer des gens", m.RemoveMember("team", "alice", "bob"))
	assert.Equal(t, "carol n'est pas dans ce groupe", m.RemoveMember("team", "carol", "alice"))
	assert.Equal(t, "bob a été viré du groupe 'team'", m.RemoveMember("team", "bob", "alice"))

	info, _ := m.Info("team")
	assert.NotContains(t, info.Members, "bob")
}

func TestPromoteKeepsModeratorsSubsetOfMembers(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.Create("team", "alice", "squad"))
	m.AddMember("team", "bob", "alice")

	assert.Equal(t, "carol n'est pas membre du groupe", m.Promote("team", "carol", "alice"))
	assert.Equal(t, "Seuls les modérateurs peuvent promouvoir quelqu'un", m.Promote("team", "bob", "bob"))
	assert.Equal(t, "bob est maintenant modérateur du groupe 'team'", m.Promote("team", "bob", "alice"))
	assert.Equal(t, "bob est déjà modérateur", m.Promote("team", "bob", "alice"))

	// Removal strips the moderator role along with membership.
	m.RemoveMember("team", "bob", "alice")
	info, _ := m.Info("team")
	for _, moderator := range info.Moderators {
		assert.Contains(t, info.Members, moderator)
	}
	assert.NotContains(t, info.Moderators, "bob")
}

func TestListAll(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.Create("zulu", "alice", "last"))
	require.True(t, m.Create("alpha", "bob", "first"))
	m.AddMember("alpha", "carol", "bob")

	summaries := m.ListAll()
	require.Len(t, summaries, 2)
	assert.Equal(t, Summary{Name: "alpha", MemberCount: 2, Description: "first"}, summaries[0])
	assert.Equal(t, Summary{Name: "zulu", MemberCount: 1, Description: "last"}, summaries[1])
}

func TestListForUser(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.Create("team", "alice", "squad"))
	require.True(t, m.Create("side", "bob", "other"))
	m.AddMember("side", "alice", "bob")

	memberships := m.ListForUser("alice")
	require.Len(t, memberships, 2)
	assert.Equal(t, Membership{Name: "side", Moderator: false, Description: "other"}, memberships[0])
	assert.Equal(t, Membership{Name: "team", Moderator: true, Description: "squad"}, memberships[1])

	assert.Empty(t, m.ListForUser("nobody"))
}

func TestRelayTargets(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.Create("team", "alice", "squad"))
	m.AddMember("team", "bob", "alice")
	m.AddMember("team", "carol", "alice")

	targets, status := m.RelayTargets("team", "alice")
	require.Equal(t, RelayOK, status)
	assert.Equal(t, []string{"bob", "carol"}, targets)

	_, status = m.RelayTargets("team", "dave")
	assert.Equal(t, RelayNotMember, status, "non-members cannot relay")

	_, status = m.RelayTargets("nope", "alice")
	assert.Equal(t, RelayUnknownGroup, status)
}

func TestRelayTargetsInactiveGroup(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.Create("team", "alice", "squad"))
	m.AddMember("team", "bob", "alice")

	m.groups["team"].Active = false

	_, status := m.RelayTargets("team", "alice")
	assert.Equal(t, RelayInactive, status, "inactive groups relay to no one, even for members")
}

func TestPersistenceAcrossReload(t *testing.T) {
	m, st := newTestManager(t)
	require.True(t, m.Create("team", "alice", "squad"))
	m.AddMember("team", "bob", "alice")
	m.Promote("team", "bob", "alice")

	reloaded, err := NewManager(st, zap.NewNop())
	require.NoError(t, err)

	info, ok := reloaded.Info("team")
	require.True(t, ok)
	assert.Equal(t, "alice", info.Creator)
	assert.Equal(t, []string{"alice", "bob"}, info.Members)
	assert.Equal(t, []string{"alice", "bob"}, info.Moderators)
}
