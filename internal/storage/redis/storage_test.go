package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/deployment-bingo/bingosync/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.VoteTTL = time.Minute

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) identity(b byte) model.Identity {
	var id model.Identity
	id[0] = b
	return id
}

func (s *StorageSuite) TestPlayerRoundTrip() {
	id := s.identity(1)
	err := s.storage.SavePlayer(s.ctx, &model.Player{Identity: id, Name: "scott", Online: true})
	s.Require().NoError(err)

	player, err := s.storage.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("scott", player.Name)
	s.True(player.Online)

	players, err := s.storage.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Len(players, 1)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, s.identity(9))
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestDeletePlayerRemovesIndexEntry() {
	id := s.identity(1)
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{Identity: id}))
	s.Require().NoError(s.storage.DeletePlayer(s.ctx, id))

	players, err := s.storage.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *StorageSuite) TestSessionIDsAreMonotonic() {
	first, err := s.storage.NextSessionID(s.ctx)
	s.Require().NoError(err)
	second, err := s.storage.NextSessionID(s.ctx)
	s.Require().NoError(err)
	s.Equal(first+1, second)
}

func (s *StorageSuite) TestSessionRoundTrip() {
	session := &model.GameSession{
		ID:     1,
		Name:   "deploy day",
		Active: true,
		BoardItems: []model.BoardItem{
			{ID: 1, Body: "it works on my machine"},
		},
	}
	s.Require().NoError(s.storage.SaveSession(s.ctx, session))

	got, err := s.storage.GetSession(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("deploy day", got.Name)
	s.Len(got.BoardItems, 1)

	sessions, err := s.storage.ListSessions(s.ctx)
	s.Require().NoError(err)
	s.Len(sessions, 1)
}

func (s *StorageSuite) TestSessionSecret() {
	hash, err := s.storage.GetSessionSecret(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(hash, "sessions without a password have no secret")

	s.Require().NoError(s.storage.SaveSessionSecret(s.ctx, 1, "hashed"))
	hash, err = s.storage.GetSessionSecret(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("hashed", hash)
}

func (s *StorageSuite) TestMemberships() {
	m := model.PlayerSession{GameSessionID: 3, PlayerID: s.identity(1)}
	s.Require().NoError(s.storage.SaveMembership(s.ctx, m))
	s.Require().NoError(s.storage.SaveMembership(s.ctx, m), "re-adding is idempotent")

	all, err := s.storage.ListMemberships(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)

	members, err := s.storage.ListSessionMembers(s.ctx, 3)
	s.Require().NoError(err)
	s.Equal([]model.Identity{s.identity(1)}, members)

	s.Require().NoError(s.storage.DeleteMembership(s.ctx, m))
	all, err = s.storage.ListMemberships(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *StorageSuite) TestItemRoundTrip() {
	item := &model.BingoItem{ID: 1, Body: "rollback", CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.storage.SaveItem(s.ctx, item))

	got, err := s.storage.GetItem(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("rollback", got.Body)

	s.Require().NoError(s.storage.DeleteItem(s.ctx, 1))
	_, err = s.storage.GetItem(s.ctx, 1)
	s.ErrorIs(err, model.ErrItemNotFound)
}

func (s *StorageSuite) TestSubjects() {
	sub := model.PlayerItemSubject{BingoItemID: 2, PlayerID: s.identity(1)}
	other := model.PlayerItemSubject{BingoItemID: 3, PlayerID: s.identity(1)}
	s.Require().NoError(s.storage.SaveSubject(s.ctx, sub))
	s.Require().NoError(s.storage.SaveSubject(s.ctx, other))

	forPlayer, err := s.storage.ListSubjectsForPlayer(s.ctx, s.identity(1))
	s.Require().NoError(err)
	s.Len(forPlayer, 2)

	removed, err := s.storage.DeleteSubjectsForItem(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal([]model.PlayerItemSubject{sub}, removed)

	remaining, err := s.storage.ListSubjects(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.PlayerItemSubject{other}, remaining)
}

func (s *StorageSuite) TestBoardRoundTrip() {
	board := &model.BingoBoard{
		PlayerID:      s.identity(1),
		GameSessionID: 4,
		Tiles:         []model.TilePlacement{{ItemID: 1, X: 0, Y: 0}},
	}
	s.Require().NoError(s.storage.SaveBoard(s.ctx, board))

	got, err := s.storage.GetBoard(s.ctx, board.Key())
	s.Require().NoError(err)
	s.Len(got.Tiles, 1)

	boards, err := s.storage.ListSessionBoards(s.ctx, 4)
	s.Require().NoError(err)
	s.Len(boards, 1)

	_, err = s.storage.GetBoard(s.ctx, model.BoardKey{PlayerID: s.identity(2), GameSessionID: 4})
	s.ErrorIs(err, model.ErrBoardNotFound)
}

func (s *StorageSuite) TestVotesExpire() {
	vote := &model.ItemCheckVote{ID: 1, GameSessionID: 4, BingoItemID: 2, PlayerID: s.identity(1)}
	s.Require().NoError(s.storage.SaveVote(s.ctx, vote))

	votes, err := s.storage.ListVotes(s.ctx, 4, 2)
	s.Require().NoError(err)
	s.Len(votes, 1)

	s.mini.FastForward(2 * time.Minute)

	votes, err = s.storage.ListVotes(s.ctx, 4, 2)
	s.Require().NoError(err)
	s.Empty(votes, "expired votes are skipped even while indexed")
}

func (s *StorageSuite) TestDeleteVotes() {
	s.Require().NoError(s.storage.SaveVote(s.ctx, &model.ItemCheckVote{ID: 1, GameSessionID: 4, BingoItemID: 2}))
	s.Require().NoError(s.storage.SaveVote(s.ctx, &model.ItemCheckVote{ID: 2, GameSessionID: 4, BingoItemID: 2}))

	s.Require().NoError(s.storage.DeleteVotes(s.ctx, 4, 2))

	votes, err := s.storage.ListVotes(s.ctx, 4, 2)
	s.Require().NoError(err)
	s.Empty(votes)
}

func (s *StorageSuite) TestAccountRoundTrip() {
	account := &model.Account{Identity: s.identity(1), Name: "scott", PasswordHash: "hash"}
	s.Require().NoError(s.storage.SaveAccount(s.ctx, account))

	got, err := s.storage.GetAccountByName(s.ctx, "scott")
	s.Require().NoError(err)
	s.Equal(s.identity(1), got.Identity)

	_, err = s.storage.GetAccountByName(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *StorageSuite) TestInviteRoundTrip() {
	invite := &model.PlayerInvite{ID: 1, Token: "tok"}
	s.Require().NoError(s.storage.SaveInvite(s.ctx, invite))

	got, err := s.storage.GetInviteByToken(s.ctx, "tok")
	s.Require().NoError(err)
	s.False(got.Used)

	got.Used = true
	s.Require().NoError(s.storage.SaveInvite(s.ctx, got))
	got, err = s.storage.GetInviteByToken(s.ctx, "tok")
	s.Require().NoError(err)
	s.True(got.Used)
}

func (s *StorageSuite) TestConnTokens() {
	s.Require().NoError(s.storage.SaveConnToken(s.ctx, "tok", s.identity(1)))

	id, err := s.storage.GetConnTokenIdentity(s.ctx, "tok")
	s.Require().NoError(err)
	s.Equal(s.identity(1), id)

	_, err = s.storage.GetConnTokenIdentity(s.ctx, "other")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
