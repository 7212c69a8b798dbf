package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/protocol"
)

func TestCachesApplyRoutesToCollection(t *testing.T) {
	caches := NewCaches()
	id := model.NewIdentity()

	require.NoError(t, caches.Apply(protocol.Insert(protocol.CollectionPlayer, model.Player{Identity: id, Name: "scott"})))
	require.NoError(t, caches.Apply(protocol.Insert(protocol.CollectionGameSession, model.GameSession{ID: 1, Name: "deploy day"})))
	require.NoError(t, caches.Apply(protocol.Insert(protocol.CollectionBingoItem, model.BingoItem{ID: 2, Body: "rollback"})))

	player, ok := caches.Players.Get(id)
	require.True(t, ok)
	assert.Equal(t, "scott", player.Name)

	session, ok := caches.Sessions.Get(1)
	require.True(t, ok)
	assert.Equal(t, "deploy day", session.Name)

	item, ok := caches.Items.Get(2)
	require.True(t, ok)
	assert.Equal(t, "rollback", item.Body)
}

func TestCachesApplyUpdateUsesOldRowKey(t *testing.T) {
	caches := NewCaches()
	id := model.NewIdentity()
	board := model.BingoBoard{PlayerID: id, GameSessionID: 1}

	require.NoError(t, caches.Apply(protocol.Insert(protocol.CollectionBingoBoard, board)))

	// A reassignment moves the board to a new owner key.
	newID := model.NewIdentity()
	moved := board
	moved.PlayerID = newID
	require.NoError(t, caches.Apply(protocol.Update(protocol.CollectionBingoBoard, board, moved)))

	_, ok := caches.Boards.Get(board.Key())
	assert.False(t, ok, "old key must be gone")
	_, ok = caches.Boards.Get(moved.Key())
	assert.True(t, ok)
}

func TestCachesApplyUpdateWithoutOldRow(t *testing.T) {
	caches := NewCaches()

	require.NoError(t, caches.Apply(protocol.Insert(protocol.CollectionGameSession, model.GameSession{ID: 1})))

	change := protocol.Insert(protocol.CollectionGameSession, model.GameSession{ID: 1, Active: true})
	change.Op = protocol.OpUpdate
	change.OldRow = nil
	require.NoError(t, caches.Apply(change))

	session, ok := caches.Sessions.Get(1)
	require.True(t, ok)
	assert.True(t, session.Active)
	assert.Equal(t, 1, caches.Sessions.Len())
}

func TestCachesApplyDelete(t *testing.T) {
	caches := NewCaches()
	sub := model.PlayerItemSubject{BingoItemID: 1, PlayerID: model.NewIdentity()}

	require.NoError(t, caches.Apply(protocol.Insert(protocol.CollectionPlayerItemSubject, sub)))
	require.NoError(t, caches.Apply(protocol.Delete(protocol.CollectionPlayerItemSubject, sub)))

	assert.Equal(t, 0, caches.Subjects.Len())
}

func TestCachesApplyUnknownCollection(t *testing.T) {
	caches := NewCaches()

	err := caches.Apply(protocol.RowChange{Collection: "nope", Op: protocol.OpInsert, Row: []byte(`{}`)})
	assert.Error(t, err)
}

func TestCachesApplyBadRow(t *testing.T) {
	caches := NewCaches()

	err := caches.Apply(protocol.RowChange{
		Collection: protocol.CollectionGameSession,
		Op:         protocol.OpInsert,
		Row:        []byte(`{"id": "not a number"}`),
	})
	assert.Error(t, err)
	assert.Equal(t, 0, caches.Sessions.Len())
}
