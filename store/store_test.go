package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tchat/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return st
}

func TestUsersRoundTrip(t *testing.T) {
	st := newTestStore(t)

	users := []models.User{
		{Name: "alice", Address: "10.0.0.5"},
		{Name: "bob", Address: ""},
	}
	require.NoError(t, st.SaveUsers(users))

	loaded, err := st.LoadUsers()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, models.User{Name: "alice", Address: "10.0.0.5"}, loaded[0])
	// An empty address is persisted as the loopback placeholder.
	assert.Equal(t, models.User{Name: "bob", Address: "127.0.0.1"}, loaded[1])
}

func TestLoadUsersMissingFile(t *testing.T) {
	st := newTestStore(t)
	users, err := st.LoadUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGroupsRoundTrip(t *testing.T) {
	st := newTestStore(t)

	team := models.NewGroup("team", "alice", "squad chat")
	team.AddMember("bob")
	team.AddMember("carol")
	team.PromoteModerator("bob")
	archive := models.NewGroup("archive", "bob", "old stuff")
	archive.Active = false

	require.NoError(t, st.SaveGroups([]*models.Group{team, archive}))

	loaded, err := st.LoadGroups()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// Sorted by name on save.
	require.Equal(t, "archive", loaded[0].Name)
	assert.False(t, loaded[0].Active)

	got := loaded[1]
	assert.Equal(t, "team", got.Name)
	assert.Equal(t, "alice", got.Creator)
	assert.Equal(t, "squad chat", got.Description)
	assert.Equal(t, []string{"alice", "bob", "carol"}, got.MemberNames())
	assert.Equal(t, []string{"alice", "bob"}, got.ModeratorNames())
	assert.True(t, got.Active)
	assert.Equal(t,
		team.CreatedAt.Format(models.GroupTimeLayout),
		got.CreatedAt.Format(models.GroupTimeLayout))
}

func TestGroupsSkipMalformedLines(t *testing.T) {
	st := newTestStore(t)

	path := filepath.Join(st.dir, groupsFile)
	content := "team|alice|desc|alice|alice|2024-01-02T10:00:00|true\nnot a group line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := st.LoadGroups()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "team", loaded[0].Name)
}

func TestMailboxRoundTrip(t *testing.T) {
	st := newTestStore(t)

	mailbox := map[string][]string{
		"carol": {
			"[PRIVÉ] alice → carol : salut",
			"[PRIVÉ] bob → carol : avec | des | pipes",
		},
		"dave": {"[PRIVÉ] alice → dave : hey"},
	}
	require.NoError(t, st.SaveMailbox(mailbox))

	loaded, err := st.LoadMailbox()
	require.NoError(t, err)
	assert.Equal(t, mailbox, loaded)
}

func TestMailboxEmptyRewrite(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SaveMailbox(map[string][]string{"carol": {"msg"}}))
	require.NoError(t, st.SaveMailbox(map[string][]string{}))

	loaded, err := st.LoadMailbox()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestHistoryAppendFormats(t *testing.T) {
	st := newTestStore(t)
	ts := time.Date(2024, 3, 15, 18, 30, 0, 0, time.Local)

	require.NoError(t, st.AppendGeneral(ts, "alice", "hello all"))
	require.NoError(t, st.AppendPrivate(ts, "bob", "alice", "hi"))
	require.NoError(t, st.AppendGroup(ts, "team", "alice", "go"))

	general, err := os.ReadFile(st.historyPath(generalChatFile))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15 18:30:00|alice|hello all\n", string(general))

	// The private file is keyed by the sorted participant pair.
	private, err := os.ReadFile(st.historyPath("private_alice_bob.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15 18:30:00|bob|alice|hi\n", string(private))

	group, err := os.ReadFile(st.historyPath("group_team.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15 18:30:00|alice|go\n", string(group))
}

func TestPrivateFileSameForBothDirections(t *testing.T) {
	st := newTestStore(t)
	ts := time.Date(2024, 3, 15, 18, 30, 0, 0, time.Local)

	require.NoError(t, st.AppendPrivate(ts, "bob", "alice", "ping"))
	require.NoError(t, st.AppendPrivate(ts, "alice", "bob", "pong"))

	data, err := os.ReadFile(st.historyPath("private_alice_bob.txt"))
	require.NoError(t, err)
	assert.Equal(t,
		"2024-03-15 18:30:00|bob|alice|ping\n2024-03-15 18:30:00|alice|bob|pong\n",
		string(data))
}

func TestTrimHistory(t *testing.T) {
	st := newTestStore(t)

	old := time.Now().AddDate(0, 0, -60)
	recent := time.Now().AddDate(0, 0, -1)
	require.NoError(t, st.AppendGeneral(old, "alice", "ancient"))
	require.NoError(t, st.AppendGeneral(recent, "bob", "fresh"))

	// A line whose timestamp does not parse must survive the trim.
	require.NoError(t, appendLine(st.historyPath(generalChatFile), "garbage|no|timestamp"))

	removed, err := st.TrimHistory(time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	data, err := os.ReadFile(st.historyPath(generalChatFile))
	require.NoError(t, err)
	content := string(data)
	assert.NotContains(t, content, "ancient")
	assert.Contains(t, content, "fresh")
	assert.Contains(t, content, "garbage|no|timestamp")
}

func TestWriteLinesIsAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	require.NoError(t, writeLines(path, []string{"a", "b"}))
	require.NoError(t, writeLines(path, []string{"c"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c\n", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file.txt", entries[0].Name())
}
