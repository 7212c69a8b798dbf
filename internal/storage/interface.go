package storage

import (
	"context"

	"github.com/deployment-bingo/bingosync/internal/model"
)

// Storage defines the interface for the store's data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.Identity) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.Identity) error
	ListPlayers(ctx context.Context) ([]*model.Player, error)

	// Game session operations
	NextSessionID(ctx context.Context) (uint32, error)
	SaveSession(ctx context.Context, session *model.GameSession) error
	GetSession(ctx context.Context, id uint32) (*model.GameSession, error)
	ListSessions(ctx context.Context) ([]*model.GameSession, error)

	// Session password hashes, stored apart from the session row so they
	// never reach a subscriber
	SaveSessionSecret(ctx context.Context, sessionID uint32, hash string) error
	GetSessionSecret(ctx context.Context, sessionID uint32) (string, error)

	// Membership operations (insert/delete only)
	SaveMembership(ctx context.Context, m model.PlayerSession) error
	DeleteMembership(ctx context.Context, m model.PlayerSession) error
	ListMemberships(ctx context.Context) ([]model.PlayerSession, error)
	ListSessionMembers(ctx context.Context, sessionID uint32) ([]model.Identity, error)

	// Pool item operations
	NextItemID(ctx context.Context) (uint32, error)
	SaveItem(ctx context.Context, item *model.BingoItem) error
	GetItem(ctx context.Context, id uint32) (*model.BingoItem, error)
	DeleteItem(ctx context.Context, id uint32) error
	ListItems(ctx context.Context) ([]*model.BingoItem, error)

	// Item subject operations (insert/delete only)
	SaveSubject(ctx context.Context, sub model.PlayerItemSubject) error
	DeleteSubjectsForItem(ctx context.Context, itemID uint32) ([]model.PlayerItemSubject, error)
	ListSubjects(ctx context.Context) ([]model.PlayerItemSubject, error)
	ListSubjectsForPlayer(ctx context.Context, playerID model.Identity) ([]model.PlayerItemSubject, error)

	// Board operations
	SaveBoard(ctx context.Context, board *model.BingoBoard) error
	GetBoard(ctx context.Context, key model.BoardKey) (*model.BingoBoard, error)
	ListSessionBoards(ctx context.Context, sessionID uint32) ([]*model.BingoBoard, error)

	// Check-off vote operations
	NextVoteID(ctx context.Context) (uint32, error)
	SaveVote(ctx context.Context, vote *model.ItemCheckVote) error
	ListVotes(ctx context.Context, sessionID, itemID uint32) ([]*model.ItemCheckVote, error)
	DeleteVotes(ctx context.Context, sessionID, itemID uint32) error

	// Account operations
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccountByName(ctx context.Context, name string) (*model.Account, error)

	// Invite operations
	NextInviteID(ctx context.Context) (uint32, error)
	SaveInvite(ctx context.Context, invite *model.PlayerInvite) error
	GetInviteByToken(ctx context.Context, token string) (*model.PlayerInvite, error)

	// Reconnect token operations
	SaveConnToken(ctx context.Context, token string, id model.Identity) error
	GetConnTokenIdentity(ctx context.Context, token string) (model.Identity, error)
}
