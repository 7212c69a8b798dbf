package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployment-bingo/bingosync/internal/model"
)

func ident(b byte) model.Identity {
	var id model.Identity
	id[0] = b
	return id
}

func TestCurrentPlayer(t *testing.T) {
	local := ident(1)
	players := map[model.Identity]model.Player{
		local: {Identity: local, Name: "scott", Online: true},
	}

	p, ok := CurrentPlayer(players, local)
	require.True(t, ok)
	assert.Equal(t, "scott", p.Name)

	_, ok = CurrentPlayer(players, ident(9))
	assert.False(t, ok, "unknown local identity resolves to nothing")
}

func TestPlayersInSessionFiltersBySession(t *testing.T) {
	players := map[model.Identity]model.Player{
		ident(1): {Identity: ident(1), Name: "alice"},
		ident(2): {Identity: ident(2), Name: "bob"},
	}
	memberships := []model.PlayerSession{
		{GameSessionID: 7, PlayerID: ident(1)},
		{GameSessionID: 8, PlayerID: ident(2)},
	}

	got := PlayersInSession(players, memberships, 7)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Name)
}

func TestPlayersInSessionSkipsDanglingReferences(t *testing.T) {
	players := map[model.Identity]model.Player{
		ident(1): {Identity: ident(1), Name: "alice"},
	}
	// The second membership references a player whose insert has not
	// arrived yet; the join must exclude it without error.
	memberships := []model.PlayerSession{
		{GameSessionID: 7, PlayerID: ident(1)},
		{GameSessionID: 7, PlayerID: ident(2)},
	}

	got := PlayersInSession(players, memberships, 7)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Name)
}

func TestPlayersInSessionSortedByDisplayName(t *testing.T) {
	players := map[model.Identity]model.Player{
		ident(1): {Identity: ident(1), Name: "zed"},
		ident(2): {Identity: ident(2), Name: "amy"},
		ident(3): {Identity: ident(3)}, // unnamed, falls back to hex
	}
	memberships := []model.PlayerSession{
		{GameSessionID: 7, PlayerID: ident(1)},
		{GameSessionID: 7, PlayerID: ident(2)},
		{GameSessionID: 7, PlayerID: ident(3)},
	}

	got := PlayersInSession(players, memberships, 7)
	require.Len(t, got, 3)
	assert.Equal(t, "amy", got[0].DisplayName())
	assert.Equal(t, ident(3).Short(), got[1].DisplayName())
	assert.Equal(t, "zed", got[2].DisplayName())
}

func TestSubjectsForItem(t *testing.T) {
	players := map[model.Identity]model.Player{
		ident(1): {Identity: ident(1), Name: "alice"},
	}
	subjects := []model.PlayerItemSubject{
		{BingoItemID: 3, PlayerID: ident(1)},
		{BingoItemID: 3, PlayerID: ident(2)}, // dangling
		{BingoItemID: 4, PlayerID: ident(1)},
	}

	got := SubjectsForItem(players, subjects, 3)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Name)
}

func TestSessionsByNewest(t *testing.T) {
	sessions := []model.GameSession{
		{ID: 1, Name: "first"},
		{ID: 3, Name: "third"},
		{ID: 2, Name: "second"},
	}

	got := SessionsByNewest(sessions)
	require.Len(t, got, 3)
	assert.Equal(t, uint32(3), got[0].ID)
	assert.Equal(t, uint32(2), got[1].ID)
	assert.Equal(t, uint32(1), got[2].ID)
	// The input order is untouched.
	assert.Equal(t, uint32(1), sessions[0].ID)
}

func TestItemsByNewest(t *testing.T) {
	items := []model.BingoItem{
		{ID: 10, Body: "a"},
		{ID: 30, Body: "b"},
		{ID: 20, Body: "c"},
	}

	got := ItemsByNewest(items)
	require.Len(t, got, 3)
	assert.Equal(t, uint32(30), got[0].ID)
	assert.Equal(t, uint32(10), got[2].ID)
}

func TestSessionWinner(t *testing.T) {
	winner := ident(5)
	players := map[model.Identity]model.Player{
		winner: {Identity: winner, Name: "champ"},
	}

	_, ok := SessionWinner(players, model.GameSession{ID: 1, Active: true})
	assert.False(t, ok, "active session has no winner")

	p, ok := SessionWinner(players, model.GameSession{ID: 1, Winner: &winner})
	require.True(t, ok)
	assert.Equal(t, "champ", p.Name)

	unknown := ident(6)
	_, ok = SessionWinner(players, model.GameSession{ID: 1, Winner: &unknown})
	assert.False(t, ok, "winner not yet cached resolves leniently")
}
