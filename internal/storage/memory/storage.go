package memory

import (
	"context"
	"sync"

	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players        map[model.Identity]*model.Player
	sessions       map[uint32]*model.GameSession
	sessionSecrets map[uint32]string
	memberships    map[model.PlayerSession]struct{}
	items          map[uint32]*model.BingoItem
	subjects       map[model.PlayerItemSubject]struct{}
	boards         map[model.BoardKey]*model.BingoBoard
	votes          map[uint32]*model.ItemCheckVote
	accounts       map[string]*model.Account
	invites        map[string]*model.PlayerInvite
	connTokens     map[string]model.Identity

	nextSessionID uint32
	nextItemID    uint32
	nextVoteID    uint32
	nextInviteID  uint32
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:        make(map[model.Identity]*model.Player),
		sessions:       make(map[uint32]*model.GameSession),
		sessionSecrets: make(map[uint32]string),
		memberships:    make(map[model.PlayerSession]struct{}),
		items:          make(map[uint32]*model.BingoItem),
		subjects:       make(map[model.PlayerItemSubject]struct{}),
		boards:         make(map[model.BoardKey]*model.BingoBoard),
		votes:          make(map[uint32]*model.ItemCheckVote),
		accounts:       make(map[string]*model.Account),
		invites:        make(map[string]*model.PlayerInvite),
		connTokens:     make(map[string]model.Identity),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *player
	s.players[player.Identity] = &copied
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.Identity) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	copied := *player
	return &copied, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Player, 0, len(s.players))
	for _, p := range s.players {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

// Game session operations

func (s *Storage) NextSessionID(ctx context.Context) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSessionID++
	return s.nextSessionID, nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	copied.BoardItems = append([]model.BoardItem(nil), session.BoardItems...)
	s.sessions[session.ID] = &copied
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id uint32) (*model.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	copied := *session
	copied.BoardItems = append([]model.BoardItem(nil), session.BoardItems...)
	return &copied, nil
}

func (s *Storage) ListSessions(ctx context.Context) ([]*model.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.GameSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := *session
		copied.BoardItems = append([]model.BoardItem(nil), session.BoardItems...)
		out = append(out, &copied)
	}
	return out, nil
}

func (s *Storage) SaveSessionSecret(ctx context.Context, sessionID uint32, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionSecrets[sessionID] = hash
	return nil
}

func (s *Storage) GetSessionSecret(ctx context.Context, sessionID uint32) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionSecrets[sessionID], nil
}

// Membership operations

func (s *Storage) SaveMembership(ctx context.Context, m model.PlayerSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[m] = struct{}{}
	return nil
}

func (s *Storage) DeleteMembership(ctx context.Context, m model.PlayerSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships, m)
	return nil
}

func (s *Storage) ListMemberships(ctx context.Context) ([]model.PlayerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PlayerSession, 0, len(s.memberships))
	for m := range s.memberships {
		out = append(out, m)
	}
	return out, nil
}

func (s *Storage) ListSessionMembers(ctx context.Context, sessionID uint32) ([]model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Identity
	for m := range s.memberships {
		if m.GameSessionID == sessionID {
			out = append(out, m.PlayerID)
		}
	}
	return out, nil
}

// Pool item operations

func (s *Storage) NextItemID(ctx context.Context) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextItemID++
	return s.nextItemID, nil
}

func (s *Storage) SaveItem(ctx context.Context, item *model.BingoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *Storage) GetItem(ctx context.Context, id uint32) (*model.BingoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, model.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *Storage) DeleteItem(ctx context.Context, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *Storage) ListItems(ctx context.Context) ([]*model.BingoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.BingoItem, 0, len(s.items))
	for _, item := range s.items {
		copied := *item
		out = append(out, &copied)
	}
	return out, nil
}

// Item subject operations

func (s *Storage) SaveSubject(ctx context.Context, sub model.PlayerItemSubject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[sub] = struct{}{}
	return nil
}

func (s *Storage) DeleteSubjectsForItem(ctx context.Context, itemID uint32) ([]model.PlayerItemSubject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []model.PlayerItemSubject
	for sub := range s.subjects {
		if sub.BingoItemID == itemID {
			removed = append(removed, sub)
			delete(s.subjects, sub)
		}
	}
	return removed, nil
}

func (s *Storage) ListSubjects(ctx context.Context) ([]model.PlayerItemSubject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PlayerItemSubject, 0, len(s.subjects))
	for sub := range s.subjects {
		out = append(out, sub)
	}
	return out, nil
}

func (s *Storage) ListSubjectsForPlayer(ctx context.Context, playerID model.Identity) ([]model.PlayerItemSubject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.PlayerItemSubject
	for sub := range s.subjects {
		if sub.PlayerID == playerID {
			out = append(out, sub)
		}
	}
	return out, nil
}

// Board operations

func (s *Storage) SaveBoard(ctx context.Context, board *model.BingoBoard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *board
	copied.Tiles = append([]model.TilePlacement(nil), board.Tiles...)
	s.boards[board.Key()] = &copied
	return nil
}

func (s *Storage) GetBoard(ctx context.Context, key model.BoardKey) (*model.BingoBoard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.boards[key]
	if !ok {
		return nil, model.ErrBoardNotFound
	}
	copied := *board
	copied.Tiles = append([]model.TilePlacement(nil), board.Tiles...)
	return &copied, nil
}

func (s *Storage) ListSessionBoards(ctx context.Context, sessionID uint32) ([]*model.BingoBoard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.BingoBoard
	for key, board := range s.boards {
		if key.GameSessionID == sessionID {
			copied := *board
			copied.Tiles = append([]model.TilePlacement(nil), board.Tiles...)
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Check-off vote operations

func (s *Storage) NextVoteID(ctx context.Context) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextVoteID++
	return s.nextVoteID, nil
}

func (s *Storage) SaveVote(ctx context.Context, vote *model.ItemCheckVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *vote
	s.votes[vote.ID] = &copied
	return nil
}

func (s *Storage) ListVotes(ctx context.Context, sessionID, itemID uint32) ([]*model.ItemCheckVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.ItemCheckVote
	for _, vote := range s.votes {
		if vote.GameSessionID == sessionID && vote.BingoItemID == itemID {
			copied := *vote
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *Storage) DeleteVotes(ctx context.Context, sessionID, itemID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, vote := range s.votes {
		if vote.GameSessionID == sessionID && vote.BingoItemID == itemID {
			delete(s.votes, id)
		}
	}
	return nil
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *account
	s.accounts[account.Name] = &copied
	return nil
}

func (s *Storage) GetAccountByName(ctx context.Context, name string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[name]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

// Invite operations

func (s *Storage) NextInviteID(ctx context.Context) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextInviteID++
	return s.nextInviteID, nil
}

func (s *Storage) SaveInvite(ctx context.Context, invite *model.PlayerInvite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *invite
	s.invites[invite.Token] = &copied
	return nil
}

func (s *Storage) GetInviteByToken(ctx context.Context, token string) (*model.PlayerInvite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	invite, ok := s.invites[token]
	if !ok {
		return nil, model.ErrInviteNotFound
	}
	copied := *invite
	return &copied, nil
}

// Reconnect token operations

func (s *Storage) SaveConnToken(ctx context.Context, token string, id model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connTokens[token] = id
	return nil
}

func (s *Storage) GetConnTokenIdentity(ctx context.Context, token string) (model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.connTokens[token]
	if !ok {
		return model.Identity{}, model.ErrPlayerNotFound
	}
	return id, nil
}
