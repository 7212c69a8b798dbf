package server

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/deployment-bingo/bingosync/internal/dependencies/mocks"
	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/protocol"
	"github.com/deployment-bingo/bingosync/internal/storage/memory"
	"github.com/deployment-bingo/bingosync/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.service = NewService(s.storage, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

// connect creates an anonymous player and returns its identity.
func (s *ServiceSuite) connect() model.Identity {
	id, token, changes, err := s.service.Connect(s.ctx, "")
	s.Require().NoError(err)
	s.Require().NotEmpty(token)
	s.Require().Len(changes, 1)
	return id
}

// seedItems fills the pool with n items.
func (s *ServiceSuite) seedItems(n int, subjects ...model.Identity) {
	for i := 0; i < n; i++ {
		_, err := s.service.SubmitNewBingoItem(s.ctx, fmt.Sprintf("item %d", i), subjects)
		s.Require().NoError(err)
	}
}

func decodeRow[T any](s *ServiceSuite, change protocol.RowChange) T {
	var row T
	s.Require().NoError(json.Unmarshal(change.Row, &row))
	return row
}

func (s *ServiceSuite) TestConnectAssignsIdentity() {
	id, token, changes, err := s.service.Connect(s.ctx, "")
	s.Require().NoError(err)
	s.False(id.IsZero())
	s.NotEmpty(token)

	s.Require().Len(changes, 1)
	s.Equal(protocol.CollectionPlayer, changes[0].Collection)
	s.Equal(protocol.OpInsert, changes[0].Op)
	player := decodeRow[model.Player](s, changes[0])
	s.Equal(id, player.Identity)
	s.True(player.Online)
}

func (s *ServiceSuite) TestConnectWithTokenReusesIdentity() {
	id, token, _, err := s.service.Connect(s.ctx, "")
	s.Require().NoError(err)

	_, err = s.service.Disconnect(s.ctx, id)
	s.Require().NoError(err)

	again, sameToken, changes, err := s.service.Connect(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(id, again)
	s.Equal(token, sameToken)

	s.Require().Len(changes, 1)
	s.Equal(protocol.OpUpdate, changes[0].Op)
	player := decodeRow[model.Player](s, changes[0])
	s.True(player.Online)
}

func (s *ServiceSuite) TestConnectWithUnknownTokenMintsFreshIdentity() {
	id, token, _, err := s.service.Connect(s.ctx, "stale-token")
	s.Require().NoError(err)
	s.False(id.IsZero())
	s.NotEqual("stale-token", token)
}

func (s *ServiceSuite) TestDisconnectMarksOffline() {
	id := s.connect()

	changes, err := s.service.Disconnect(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(changes, 1)
	player := decodeRow[model.Player](s, changes[0])
	s.False(player.Online)

	// Already offline; nothing to emit.
	changes, err = s.service.Disconnect(s.ctx, id)
	s.Require().NoError(err)
	s.Empty(changes)
}

func (s *ServiceSuite) TestSetName() {
	id := s.connect()

	changes, err := s.service.SetName(s.ctx, id, "scott")
	s.Require().NoError(err)
	s.Require().Len(changes, 1)
	player := decodeRow[model.Player](s, changes[0])
	s.Equal("scott", player.Name)
}

func (s *ServiceSuite) TestSetNameRejectsEmpty() {
	id := s.connect()

	_, err := s.service.SetName(s.ctx, id, "   ")
	s.ErrorIs(err, model.ErrEmptyName)
}

func (s *ServiceSuite) TestSetNameUnknownPlayer() {
	_, err := s.service.SetName(s.ctx, model.NewIdentity(), "scott")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestStartNewGameSnapshotsPoolAndJoinsCreator() {
	id := s.connect()
	s.seedItems(30)

	changes, err := s.service.StartNewGame(s.ctx, id, "deploy day", "")
	s.Require().NoError(err)

	// Session insert, membership insert, board insert.
	s.Require().Len(changes, 3)
	s.Equal(protocol.CollectionGameSession, changes[0].Collection)
	s.Equal(protocol.CollectionPlayerSession, changes[1].Collection)
	s.Equal(protocol.CollectionBingoBoard, changes[2].Collection)

	session := decodeRow[model.GameSession](s, changes[0])
	s.True(session.Active)
	s.Len(session.BoardItems, 30)

	board := decodeRow[model.BingoBoard](s, changes[2])
	s.Equal(id, board.PlayerID)
	s.Len(board.Tiles, model.TileCount)

	// Every (x, y) pair is distinct and in range.
	seen := map[[2]int]bool{}
	for _, tile := range board.Tiles {
		s.GreaterOrEqual(tile.X, 0)
		s.Less(tile.X, model.BoardSize)
		s.GreaterOrEqual(tile.Y, 0)
		s.Less(tile.Y, model.BoardSize)
		s.False(seen[[2]int{tile.X, tile.Y}])
		seen[[2]int{tile.X, tile.Y}] = true
	}
}

func (s *ServiceSuite) TestStartNewGameWithThinPoolFails() {
	id := s.connect()
	s.seedItems(model.TileCount - 1)

	_, err := s.service.StartNewGame(s.ctx, id, "deploy day", "")
	s.ErrorIs(err, model.ErrNotEnoughItems)
}

func (s *ServiceSuite) TestJoinGameExcludesSubjectItems() {
	creator := s.connect()
	tagged := s.connect()

	s.seedItems(25)
	// Items the tagged player is the subject of can't appear on their board.
	s.seedItems(5, tagged)

	changes, err := s.service.StartNewGame(s.ctx, creator, "deploy day", "")
	s.Require().NoError(err)
	session := decodeRow[model.GameSession](s, changes[0])

	joinChanges, err := s.service.JoinGame(s.ctx, tagged, session.ID, "")
	s.Require().NoError(err)
	s.Require().Len(joinChanges, 2)

	board := decodeRow[model.BingoBoard](s, joinChanges[1])
	for _, tile := range board.Tiles {
		s.LessOrEqual(tile.ItemID, uint32(25), "tagged items must not be dealt")
	}
}

func (s *ServiceSuite) TestJoinGamePassword() {
	creator := s.connect()
	joiner := s.connect()
	s.seedItems(25)

	changes, err := s.service.StartNewGame(s.ctx, creator, "private game", "hunter2")
	s.Require().NoError(err)
	session := decodeRow[model.GameSession](s, changes[0])

	_, err = s.service.JoinGame(s.ctx, joiner, session.ID, "wrong")
	s.ErrorIs(err, model.ErrWrongPassword)

	_, err = s.service.JoinGame(s.ctx, joiner, session.ID, "")
	s.ErrorIs(err, model.ErrWrongPassword)

	joinChanges, err := s.service.JoinGame(s.ctx, joiner, session.ID, "hunter2")
	s.Require().NoError(err)
	s.Len(joinChanges, 2)
}

func (s *ServiceSuite) TestJoinGameRejoinIsNoop() {
	creator := s.connect()
	s.seedItems(25)

	changes, err := s.service.StartNewGame(s.ctx, creator, "deploy day", "")
	s.Require().NoError(err)
	session := decodeRow[model.GameSession](s, changes[0])

	joinChanges, err := s.service.JoinGame(s.ctx, creator, session.ID, "")
	s.Require().NoError(err)
	s.Empty(joinChanges)
}

func (s *ServiceSuite) TestJoinGameUnknownSession() {
	id := s.connect()
	_, err := s.service.JoinGame(s.ctx, id, 99, "")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ServiceSuite) TestDeleteBingoItemRemovesSubjects() {
	tagged := s.connect()
	s.seedItems(1, tagged)

	changes, err := s.service.DeleteBingoItem(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(changes, 2)
	s.Equal(protocol.CollectionPlayerItemSubject, changes[0].Collection)
	s.Equal(protocol.OpDelete, changes[0].Op)
	s.Equal(protocol.CollectionBingoItem, changes[1].Collection)
	s.Equal(protocol.OpDelete, changes[1].Op)

	_, err = s.service.DeleteBingoItem(s.ctx, 1)
	s.ErrorIs(err, model.ErrItemNotFound)
}

// startGameWithMembers seeds a pool, starts a game, and joins the given
// players. Returns the session ID.
func (s *ServiceSuite) startGameWithMembers(creator model.Identity, others ...model.Identity) uint32 {
	s.seedItems(25)
	changes, err := s.service.StartNewGame(s.ctx, creator, "deploy day", "")
	s.Require().NoError(err)
	session := decodeRow[model.GameSession](s, changes[0])
	for _, other := range others {
		_, err := s.service.JoinGame(s.ctx, other, session.ID, "")
		s.Require().NoError(err)
	}
	return session.ID
}

func (s *ServiceSuite) TestCastCheckOffVoteBelowMajorityEmitsNothing() {
	creator := s.connect()
	second := s.connect()
	third := s.connect()
	sessionID := s.startGameWithMembers(creator, second, third)

	changes, err := s.service.CastCheckOffVote(s.ctx, creator, sessionID, 1)
	s.Require().NoError(err)
	s.Empty(changes, "one of three voters is not a majority")
}

func (s *ServiceSuite) TestCastCheckOffVoteMajorityChecksItem() {
	creator := s.connect()
	second := s.connect()
	third := s.connect()
	sessionID := s.startGameWithMembers(creator, second, third)

	_, err := s.service.CastCheckOffVote(s.ctx, creator, sessionID, 1)
	s.Require().NoError(err)

	changes, err := s.service.CastCheckOffVote(s.ctx, second, sessionID, 1)
	s.Require().NoError(err)
	s.Require().Len(changes, 1)
	s.Equal(protocol.CollectionGameSession, changes[0].Collection)
	s.Equal(protocol.OpUpdate, changes[0].Op)

	session := decodeRow[model.GameSession](s, changes[0])
	item, ok := session.FindBoardItem(1)
	s.Require().True(ok)
	s.True(item.Checked)

	// Checked state is visible in the old row diff too.
	var oldSession model.GameSession
	s.Require().NoError(json.Unmarshal(changes[0].OldRow, &oldSession))
	oldItem, _ := oldSession.FindBoardItem(1)
	s.False(oldItem.Checked)

	// Votes are cleared; a later vote on the checked item fails.
	_, err = s.service.CastCheckOffVote(s.ctx, third, sessionID, 1)
	s.ErrorIs(err, model.ErrItemChecked)
}

func (s *ServiceSuite) TestCastCheckOffVoteDuplicateIsNoop() {
	creator := s.connect()
	second := s.connect()
	third := s.connect()
	sessionID := s.startGameWithMembers(creator, second, third)

	_, err := s.service.CastCheckOffVote(s.ctx, creator, sessionID, 1)
	s.Require().NoError(err)

	// Voting again must not push the count over the majority line.
	changes, err := s.service.CastCheckOffVote(s.ctx, creator, sessionID, 1)
	s.Require().NoError(err)
	s.Empty(changes)
}

func (s *ServiceSuite) TestCastCheckOffVoteExpiredVotesDoNotCount() {
	creator := s.connect()
	second := s.connect()
	third := s.connect()
	sessionID := s.startGameWithMembers(creator, second, third)

	_, err := s.service.CastCheckOffVote(s.ctx, creator, sessionID, 1)
	s.Require().NoError(err)

	// The first vote ages past the TTL, so the second vote stands alone
	// and must not complete a majority of three.
	s.clock.Advance(voteTTL + time.Minute)
	changes, err := s.service.CastCheckOffVote(s.ctx, second, sessionID, 1)
	s.Require().NoError(err)
	s.Empty(changes, "a stale vote must not count toward the majority")

	// Two live votes do.
	changes, err = s.service.CastCheckOffVote(s.ctx, third, sessionID, 1)
	s.Require().NoError(err)
	s.Require().Len(changes, 1)
	session := decodeRow[model.GameSession](s, changes[0])
	item, ok := session.FindBoardItem(1)
	s.Require().True(ok)
	s.True(item.Checked)
}

func (s *ServiceSuite) TestCastCheckOffVoteExpiredVoteCanBeRecast() {
	creator := s.connect()
	second := s.connect()
	third := s.connect()
	sessionID := s.startGameWithMembers(creator, second, third)

	_, err := s.service.CastCheckOffVote(s.ctx, creator, sessionID, 1)
	s.Require().NoError(err)
	s.clock.Advance(voteTTL + time.Minute)

	// The expired vote no longer shadows its caster; voting again
	// counts as a fresh live vote.
	_, err = s.service.CastCheckOffVote(s.ctx, creator, sessionID, 1)
	s.Require().NoError(err)

	changes, err := s.service.CastCheckOffVote(s.ctx, second, sessionID, 1)
	s.Require().NoError(err)
	s.Require().Len(changes, 1, "two live votes of three members are a majority")
}

func (s *ServiceSuite) TestCastCheckOffVoteRequiresMembership() {
	creator := s.connect()
	outsider := s.connect()
	sessionID := s.startGameWithMembers(creator)

	_, err := s.service.CastCheckOffVote(s.ctx, outsider, sessionID, 1)
	s.ErrorIs(err, model.ErrNotInSession)
}

func (s *ServiceSuite) TestCastCheckOffVoteUnknownItem() {
	creator := s.connect()
	sessionID := s.startGameWithMembers(creator)

	_, err := s.service.CastCheckOffVote(s.ctx, creator, sessionID, 999)
	s.ErrorIs(err, model.ErrItemNotFound)
}

func (s *ServiceSuite) TestSoloPlayerCompletingRowWins() {
	creator := s.connect()
	sessionID := s.startGameWithMembers(creator)

	board, err := s.storage.GetBoard(s.ctx, model.BoardKey{PlayerID: creator, GameSessionID: sessionID})
	s.Require().NoError(err)

	// Check off the creator's top row. A solo voter is always a majority.
	var final []protocol.RowChange
	for _, tile := range board.Tiles {
		if tile.Y != 0 {
			continue
		}
		final, err = s.service.CastCheckOffVote(s.ctx, creator, sessionID, tile.ItemID)
		s.Require().NoError(err)
	}

	s.Require().Len(final, 1)
	session := decodeRow[model.GameSession](s, final[0])
	s.False(session.Active)
	s.Require().NotNil(session.Winner)
	s.Equal(creator, *session.Winner)

	// The ended session accepts no more votes.
	_, err = s.service.CastCheckOffVote(s.ctx, creator, sessionID, board.Tiles[0].ItemID)
	s.ErrorIs(err, model.ErrSessionInactive)
}

func (s *ServiceSuite) TestInviteSignupFlow() {
	anonymous := s.connect()

	invite, err := s.service.CreateInvite(s.ctx)
	s.Require().NoError(err)

	_, err = s.service.UsePlayerInvite(s.ctx, invite.Token)
	s.Require().NoError(err)

	// An invite is single-use.
	_, err = s.service.UsePlayerInvite(s.ctx, invite.Token)
	s.ErrorIs(err, model.ErrInviteUsed)

	changes, err := s.service.CreatePlayer(s.ctx, "scott", "hunter2")
	s.Require().NoError(err)
	s.Require().Len(changes, 1)
	account := decodeRow[model.Player](s, changes[0])
	s.False(account.Online, "account players start offline")

	newID, token, signInChanges, err := s.service.SignIn(s.ctx, anonymous, "scott", "hunter2")
	s.Require().NoError(err)
	s.NotEqual(anonymous, newID)
	s.NotEmpty(token)

	// Anonymous row deleted, then the account row's offline to online
	// transition that reassignment watchers key on.
	s.Require().Len(signInChanges, 2)
	s.Equal(protocol.OpDelete, signInChanges[0].Op)
	deleted := decodeRow[model.Player](s, signInChanges[0])
	s.Equal(anonymous, deleted.Identity)

	s.Equal(protocol.OpUpdate, signInChanges[1].Op)
	var oldRow model.Player
	s.Require().NoError(json.Unmarshal(signInChanges[1].OldRow, &oldRow))
	s.False(oldRow.Online)
	updated := decodeRow[model.Player](s, signInChanges[1])
	s.True(updated.Online)
	s.Equal(newID, updated.Identity)
}

func (s *ServiceSuite) TestCreatePlayerDuplicateName() {
	_, err := s.service.CreatePlayer(s.ctx, "scott", "hunter2")
	s.Require().NoError(err)

	_, err = s.service.CreatePlayer(s.ctx, "scott", "other")
	s.ErrorIs(err, model.ErrAccountExists)
}

func (s *ServiceSuite) TestSignInWrongPassword() {
	anonymous := s.connect()
	_, err := s.service.CreatePlayer(s.ctx, "scott", "hunter2")
	s.Require().NoError(err)

	_, _, _, err = s.service.SignIn(s.ctx, anonymous, "scott", "wrong")
	s.ErrorIs(err, model.ErrInvalidCredentials)

	_, _, _, err = s.service.SignIn(s.ctx, anonymous, "nobody", "hunter2")
	s.ErrorIs(err, model.ErrInvalidCredentials)
}

func (s *ServiceSuite) TestSnapshotSeedsSubscription() {
	creator := s.connect()
	other := s.connect()
	s.startGameWithMembers(creator, other)

	snapshot, err := s.service.Snapshot(s.ctx, []protocol.Query{
		protocol.QueryAll(protocol.CollectionPlayer),
		protocol.QueryAll(protocol.CollectionGameSession),
		protocol.QueryBoardsFor(creator),
	})
	s.Require().NoError(err)

	var players, sessions, boards int
	for _, change := range snapshot {
		s.Equal(protocol.OpInsert, change.Op)
		switch change.Collection {
		case protocol.CollectionPlayer:
			players++
		case protocol.CollectionGameSession:
			sessions++
		case protocol.CollectionBingoBoard:
			boards++
		}
	}
	s.Equal(2, players)
	s.Equal(1, sessions)
	s.Equal(1, boards, "only the queried player's board is included")
}

func (s *ServiceSuite) TestUseUnknownInvite() {
	_, err := s.service.UsePlayerInvite(s.ctx, "bogus")
	s.ErrorIs(err, model.ErrInviteNotFound)
}
