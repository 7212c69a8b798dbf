package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/deployment-bingo/bingosync/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) identity(b byte) model.Identity {
	var id model.Identity
	id[0] = b
	return id
}

func (s *StorageSuite) TestPlayerRoundTrip() {
	id := s.identity(1)
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{Identity: id, Name: "scott"}))

	player, err := s.storage.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("scott", player.Name)

	// Mutating the returned row must not affect the stored copy
	player.Name = "changed"
	again, err := s.storage.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("scott", again.Name)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, s.identity(9))
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestDeletePlayer() {
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

func (s *StorageSuite) TestSessionSecret() {
	hash, err := s.storage.GetSessionSecret(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(hash)

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

func (s *StorageSuite) TestSubjects() {
	sub := model.PlayerItemSubject{BingoItemID: 2, PlayerID: s.identity(1)}
	other := model.PlayerItemSubject{BingoItemID: 3, PlayerID: s.identity(2)}
	s.Require().NoError(s.storage.SaveSubject(s.ctx, sub))
	s.Require().NoError(s.storage.SaveSubject(s.ctx, other))

	forPlayer, err := s.storage.ListSubjectsForPlayer(s.ctx, s.identity(1))
	s.Require().NoError(err)
	s.Equal([]model.PlayerItemSubject{sub}, forPlayer)

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

func (s *StorageSuite) TestVotes() {
	s.Require().NoError(s.storage.SaveVote(s.ctx, &model.ItemCheckVote{ID: 1, GameSessionID: 4, BingoItemID: 2, PlayerID: s.identity(1)}))
	s.Require().NoError(s.storage.SaveVote(s.ctx, &model.ItemCheckVote{ID: 2, GameSessionID: 4, BingoItemID: 3, PlayerID: s.identity(1)}))

	votes, err := s.storage.ListVotes(s.ctx, 4, 2)
	s.Require().NoError(err)
	s.Len(votes, 1)

	s.Require().NoError(s.storage.DeleteVotes(s.ctx, 4, 2))
	votes, err = s.storage.ListVotes(s.ctx, 4, 2)
	s.Require().NoError(err)
	s.Empty(votes)

	votes, err = s.storage.ListVotes(s.ctx, 4, 3)
	s.Require().NoError(err)
	s.Len(votes, 1, "votes for other items survive")
}

func (s *StorageSuite) TestAccounts() {
	s.Require().NoError(s.storage.SaveAccount(s.ctx, &model.Account{Identity: s.identity(1), Name: "scott", PasswordHash: "hash"}))

	account, err := s.storage.GetAccountByName(s.ctx, "scott")
	s.Require().NoError(err)
	s.Equal(s.identity(1), account.Identity)

	_, err = s.storage.GetAccountByName(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *StorageSuite) TestInvites() {
	s.Require().NoError(s.storage.SaveInvite(s.ctx, &model.PlayerInvite{ID: 1, Token: "tok"}))

	invite, err := s.storage.GetInviteByToken(s.ctx, "tok")
	s.Require().NoError(err)
	s.False(invite.Used)

	invite.Used = true
	s.Require().NoError(s.storage.SaveInvite(s.ctx, invite))
	invite, err = s.storage.GetInviteByToken(s.ctx, "tok")
	s.Require().NoError(err)
	s.True(invite.Used)
}

func (s *StorageSuite) TestConnTokens() {
	s.Require().NoError(s.storage.SaveConnToken(s.ctx, "tok", s.identity(1)))

	id, err := s.storage.GetConnTokenIdentity(s.ctx, "tok")
	s.Require().NoError(err)
	s.Equal(s.identity(1), id)

	_, err = s.storage.GetConnTokenIdentity(s.ctx, "other")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
