package server

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/deployment-bingo/bingosync/internal/dependencies/clock"
	"github.com/deployment-bingo/bingosync/internal/dependencies/random"
	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/protocol"
	"github.com/deployment-bingo/bingosync/internal/storage"
	"github.com/deployment-bingo/bingosync/internal/views"
)

// Service implements the store's remote calls. Each call validates,
// mutates storage, and returns the row changes to broadcast. Callers
// hand the changes to the hub; the service itself never talks to
// connections.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewService creates the call service.
func NewService(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "service")),
	}
}

// Snapshot renders the rows currently matching the given queries as
// insert changes, for seeding a fresh subscription. Re-delivery of a
// row that raced in through a broadcast is harmless; clients treat a
// repeated insert as an overwrite.
func (s *Service) Snapshot(ctx context.Context, queries []protocol.Query) ([]protocol.RowChange, error) {
	var changes []protocol.RowChange
	for _, q := range queries {
		rows, err := s.collectionRows(ctx, q.Collection)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			change := protocol.Insert(q.Collection, row)
			if q.Matches(q.Collection, change.Row) {
				changes = append(changes, change)
			}
		}
	}
	return changes, nil
}

func (s *Service) collectionRows(ctx context.Context, c protocol.Collection) ([]any, error) {
	var out []any
	switch c {
	case protocol.CollectionPlayer:
		players, err := s.storage.ListPlayers(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range players {
			out = append(out, p)
		}
	case protocol.CollectionGameSession:
		sessions, err := s.storage.ListSessions(ctx)
		if err != nil {
			return nil, err
		}
		for _, session := range sessions {
			out = append(out, session)
		}
	case protocol.CollectionPlayerSession:
		memberships, err := s.storage.ListMemberships(ctx)
		if err != nil {
			return nil, err
		}
		for _, m := range memberships {
			out = append(out, m)
		}
	case protocol.CollectionBingoItem:
		items, err := s.storage.ListItems(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			out = append(out, item)
		}
	case protocol.CollectionPlayerItemSubject:
		subjects, err := s.storage.ListSubjects(ctx)
		if err != nil {
			return nil, err
		}
		for _, sub := range subjects {
			out = append(out, sub)
		}
	case protocol.CollectionBingoBoard:
		sessions, err := s.storage.ListSessions(ctx)
		if err != nil {
			return nil, err
		}
		for _, session := range sessions {
			boards, err := s.storage.ListSessionBoards(ctx, session.ID)
			if err != nil {
				return nil, err
			}
			for _, board := range boards {
				out = append(out, board)
			}
		}
	}
	return out, nil
}

// Connect resolves a reconnect token to an existing identity, or mints
// a fresh identity and token. The returned changes carry the player's
// transition to online.
func (s *Service) Connect(ctx context.Context, token string) (model.Identity, string, []protocol.RowChange, error) {
	if token != "" {
		id, err := s.storage.GetConnTokenIdentity(ctx, token)
		if err == nil {
			player, err := s.storage.GetPlayer(ctx, id)
			if err != nil {
				return model.Identity{}, "", nil, err
			}
			old := *player
			player.Online = true
			if err := s.storage.SavePlayer(ctx, player); err != nil {
				return model.Identity{}, "", nil, err
			}
			s.logger.Info("player reconnected", slog.String("identity", id.Short()))
			return id, token, []protocol.RowChange{
				protocol.Update(protocol.CollectionPlayer, old, player),
			}, nil
		}
		// Unknown or expired token; fall through to a fresh identity.
	}

	id := model.NewIdentity()
	player := &model.Player{Identity: id, Online: true}
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return model.Identity{}, "", nil, err
	}

	token = uuid.NewString()
	if err := s.storage.SaveConnToken(ctx, token, id); err != nil {
		return model.Identity{}, "", nil, err
	}

	s.logger.Info("player connected", slog.String("identity", id.Short()))
	return id, token, []protocol.RowChange{
		protocol.Insert(protocol.CollectionPlayer, player),
	}, nil
}

// Disconnect marks the identity's player offline.
func (s *Service) Disconnect(ctx context.Context, id model.Identity) ([]protocol.RowChange, error) {
	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !player.Online {
		return nil, nil
	}
	old := *player
	player.Online = false
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	s.logger.Info("player disconnected", slog.String("identity", id.Short()))
	return []protocol.RowChange{
		protocol.Update(protocol.CollectionPlayer, old, player),
	}, nil
}

// SetName sets the calling player's display name.
func (s *Service) SetName(ctx context.Context, id model.Identity, name string) ([]protocol.RowChange, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *player
	player.Name = name
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	return []protocol.RowChange{
		protocol.Update(protocol.CollectionPlayer, old, player),
	}, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", model.ErrEmptyName
	}
	return name, nil
}

// StartNewGame creates a session from a snapshot of the current item
// pool and joins the caller to it. Item bodies are copied into the
// session so pool deletions don't disturb running games.
func (s *Service) StartNewGame(ctx context.Context, id model.Identity, name, password string) ([]protocol.RowChange, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	items, err := s.storage.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(items, func(a, b *model.BingoItem) int {
		return int(a.ID) - int(b.ID)
	})
	boardItems := make([]model.BoardItem, 0, len(items))
	for _, item := range items {
		boardItems = append(boardItems, model.BoardItem{ID: item.ID, Body: item.Body})
	}

	sessionID, err := s.storage.NextSessionID(ctx)
	if err != nil {
		return nil, err
	}
	session := &model.GameSession{
		ID:         sessionID,
		Name:       name,
		Active:     true,
		BoardItems: boardItems,
	}
	if err := s.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		if err := s.storage.SaveSessionSecret(ctx, sessionID, string(hash)); err != nil {
			return nil, err
		}
	}

	changes := []protocol.RowChange{
		protocol.Insert(protocol.CollectionGameSession, session),
	}

	s.logger.Info("game session started",
		slog.Uint64("session_id", uint64(sessionID)),
		slog.String("creator", id.Short()),
		slog.Int("pool_size", len(boardItems)))

	joinChanges, err := s.JoinGame(ctx, id, sessionID, password)
	if err != nil {
		return nil, err
	}
	return append(changes, joinChanges...), nil
}

// JoinGame adds the caller to a session and deals their board. Joining
// a session the caller is already in is a no-op.
func (s *Service) JoinGame(ctx context.Context, id model.Identity, sessionID uint32, password string) ([]protocol.RowChange, error) {
	session, err := s.storage.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, model.ErrSessionInactive
	}

	hash, err := s.storage.GetSessionSecret(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if hash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			return nil, model.ErrWrongPassword
		}
	}

	members, err := s.storage.ListSessionMembers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(members, id) {
		return nil, nil
	}

	board, err := s.dealBoard(ctx, id, session)
	if err != nil {
		return nil, err
	}

	membership := model.PlayerSession{GameSessionID: sessionID, PlayerID: id}
	if err := s.storage.SaveMembership(ctx, membership); err != nil {
		return nil, err
	}
	if err := s.storage.SaveBoard(ctx, board); err != nil {
		return nil, err
	}

	s.logger.Info("player joined session",
		slog.Uint64("session_id", uint64(sessionID)),
		slog.String("identity", id.Short()))

	return []protocol.RowChange{
		protocol.Insert(protocol.CollectionPlayerSession, membership),
		protocol.Insert(protocol.CollectionBingoBoard, board),
	}, nil
}

// dealBoard picks tile placements for a player from the session's item
// snapshot, excluding items the player is the subject of.
func (s *Service) dealBoard(ctx context.Context, id model.Identity, session *model.GameSession) (*model.BingoBoard, error) {
	subjects, err := s.storage.ListSubjectsForPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	excluded := make(map[uint32]bool, len(subjects))
	for _, sub := range subjects {
		excluded[sub.BingoItemID] = true
	}

	eligible := make([]model.BoardItem, 0, len(session.BoardItems))
	for _, item := range session.BoardItems {
		if !excluded[item.ID] {
			eligible = append(eligible, item)
		}
	}
	if len(eligible) < model.TileCount {
		return nil, model.ErrNotEnoughItems
	}

	s.random.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	tiles := make([]model.TilePlacement, model.TileCount)
	for i := range model.TileCount {
		tiles[i] = model.TilePlacement{
			ItemID: eligible[i].ID,
			X:      i % model.BoardSize,
			Y:      i / model.BoardSize,
		}
	}
	return &model.BingoBoard{
		PlayerID:      id,
		GameSessionID: session.ID,
		Tiles:         tiles,
	}, nil
}

// SubmitNewBingoItem adds an item to the pool, optionally tagging the
// players it is about. Tagged players never see the item on their own
// boards.
func (s *Service) SubmitNewBingoItem(ctx context.Context, body string, subjects []model.Identity) ([]protocol.RowChange, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, model.ErrEmptyBody
	}

	itemID, err := s.storage.NextItemID(ctx)
	if err != nil {
		return nil, err
	}
	item := &model.BingoItem{
		ID:        itemID,
		Body:      body,
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	changes := []protocol.RowChange{
		protocol.Insert(protocol.CollectionBingoItem, item),
	}
	for _, playerID := range subjects {
		sub := model.PlayerItemSubject{BingoItemID: itemID, PlayerID: playerID}
		if err := s.storage.SaveSubject(ctx, sub); err != nil {
			return nil, err
		}
		changes = append(changes, protocol.Insert(protocol.CollectionPlayerItemSubject, sub))
	}
	return changes, nil
}

// DeleteBingoItem removes a pool item and its subject tags. Sessions
// that snapshotted the item keep their copy.
func (s *Service) DeleteBingoItem(ctx context.Context, itemID uint32) ([]protocol.RowChange, error) {
	item, err := s.storage.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	removed, err := s.storage.DeleteSubjectsForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	var changes []protocol.RowChange
	for _, sub := range removed {
		changes = append(changes, protocol.Delete(protocol.CollectionPlayerItemSubject, sub))
	}

	if err := s.storage.DeleteItem(ctx, itemID); err != nil {
		return nil, err
	}
	return append(changes, protocol.Delete(protocol.CollectionBingoItem, item)), nil
}

// CastCheckOffVote records the caller's vote to check an item off. When
// a strict majority of session members have voted, the item is checked
// and the votes are cleared; if the check completes a line on any
// board, that board's owner wins and the session ends. Voting twice is
// a no-op.
func (s *Service) CastCheckOffVote(ctx context.Context, id model.Identity, sessionID, itemID uint32) ([]protocol.RowChange, error) {
	session, err := s.storage.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, model.ErrSessionInactive
	}

	members, err := s.storage.ListSessionMembers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(members, id) {
		return nil, model.ErrNotInSession
	}

	itemIdx := -1
	for i, item := range session.BoardItems {
		if item.ID == itemID {
			itemIdx = i
			break
		}
	}
	if itemIdx < 0 {
		return nil, model.ErrItemNotFound
	}
	if session.BoardItems[itemIdx].Checked {
		return nil, model.ErrItemChecked
	}

	votes, err := s.storage.ListVotes(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}
	votes = s.liveVotes(votes)
	for _, vote := range votes {
		if vote.PlayerID == id {
			return nil, nil
		}
	}

	voteID, err := s.storage.NextVoteID(ctx)
	if err != nil {
		return nil, err
	}
	vote := &model.ItemCheckVote{
		ID:            voteID,
		GameSessionID: sessionID,
		BingoItemID:   itemID,
		PlayerID:      id,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.storage.SaveVote(ctx, vote); err != nil {
		return nil, err
	}

	voters := len(votes) + 1
	if voters*2 <= len(members) {
		return nil, nil
	}

	// Majority reached: check the item off and look for a winner.
	old := cloneSession(session)
	session.BoardItems[itemIdx].Checked = true

	winner, err := s.findWinner(ctx, session)
	if err != nil {
		return nil, err
	}
	if winner != nil {
		session.Active = false
		session.Winner = winner
	}

	if err := s.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	if err := s.storage.DeleteVotes(ctx, sessionID, itemID); err != nil {
		return nil, err
	}

	s.logger.Info("item checked off",
		slog.Uint64("session_id", uint64(sessionID)),
		slog.Uint64("item_id", uint64(itemID)),
		slog.Int("voters", voters),
		slog.Int("members", len(members)),
		slog.Bool("won", winner != nil))

	return []protocol.RowChange{
		protocol.Update(protocol.CollectionGameSession, old, session),
	}, nil
}

// voteTTL matches the redis backend's vote expiry. Redis drops expired
// votes server-side; filtering here covers the memory backend, where a
// stale vote would otherwise count toward a much later majority.
const voteTTL = 5 * time.Minute

// liveVotes filters out votes past the TTL.
func (s *Service) liveVotes(votes []*model.ItemCheckVote) []*model.ItemCheckVote {
	cutoff := s.clock.Now().Add(-voteTTL)
	live := votes[:0]
	for _, vote := range votes {
		if vote.CreatedAt.After(cutoff) {
			live = append(live, vote)
		}
	}
	return live
}

// findWinner returns the owner of the first board with a completed row
// or column, in identity order for determinism, or nil if nobody has
// won yet.
func (s *Service) findWinner(ctx context.Context, session *model.GameSession) (*model.Identity, error) {
	boards, err := s.storage.ListSessionBoards(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(boards, func(a, b *model.BingoBoard) int {
		return strings.Compare(a.PlayerID.Hex(), b.PlayerID.Hex())
	})
	for _, board := range boards {
		grid := views.ComposeGrid(board, *session)
		if grid.HasCompletedLine() {
			winner := board.PlayerID
			return &winner, nil
		}
	}
	return nil, nil
}

func cloneSession(session *model.GameSession) *model.GameSession {
	clone := *session
	clone.BoardItems = slices.Clone(session.BoardItems)
	return &clone
}

// CreateInvite mints an unused invite token. Exposed on the admin
// surface, not as a remote call.
func (s *Service) CreateInvite(ctx context.Context) (*model.PlayerInvite, error) {
	inviteID, err := s.storage.NextInviteID(ctx)
	if err != nil {
		return nil, err
	}
	invite := &model.PlayerInvite{
		ID:    inviteID,
		Token: uuid.NewString(),
	}
	if err := s.storage.SaveInvite(ctx, invite); err != nil {
		return nil, err
	}
	s.logger.Info("invite created", slog.Uint64("invite_id", uint64(inviteID)))
	return invite, nil
}

// UsePlayerInvite consumes an invite token.
func (s *Service) UsePlayerInvite(ctx context.Context, token string) ([]protocol.RowChange, error) {
	invite, err := s.storage.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invite.Used {
		return nil, model.ErrInviteUsed
	}
	invite.Used = true
	if err := s.storage.SaveInvite(ctx, invite); err != nil {
		return nil, err
	}
	return nil, nil
}

// CreatePlayer registers a named account with a password. The account's
// player row starts offline; it comes online when the account signs in.
func (s *Service) CreatePlayer(ctx context.Context, name, password string) ([]protocol.RowChange, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.storage.GetAccountByName(ctx, name); err == nil {
		return nil, model.ErrAccountExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	account := &model.Account{
		Identity:     model.NewIdentity(),
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	player := &model.Player{Identity: account.Identity, Name: name}
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	s.logger.Info("account created", slog.String("identity", account.Identity.Short()))
	return []protocol.RowChange{
		protocol.Insert(protocol.CollectionPlayer, player),
	}, nil
}

// SignIn swaps the connection from its anonymous identity to an
// account identity. The anonymous player row is deleted and the
// account's player row transitions offline to online, which is the
// signal reconnecting clients key their reassignment on. A fresh
// reconnect token is minted for the account identity.
func (s *Service) SignIn(ctx context.Context, anonymous model.Identity, name, password string) (model.Identity, string, []protocol.RowChange, error) {
	account, err := s.storage.GetAccountByName(ctx, name)
	if err != nil {
		return model.Identity{}, "", nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return model.Identity{}, "", nil, model.ErrInvalidCredentials
	}

	var changes []protocol.RowChange

	if anonymous != account.Identity {
		if anonPlayer, err := s.storage.GetPlayer(ctx, anonymous); err == nil {
			if err := s.storage.DeletePlayer(ctx, anonymous); err != nil {
				return model.Identity{}, "", nil, err
			}
			changes = append(changes, protocol.Delete(protocol.CollectionPlayer, anonPlayer))
		}
	}

	player, err := s.storage.GetPlayer(ctx, account.Identity)
	if err != nil {
		player = &model.Player{Identity: account.Identity, Name: account.Name}
		if err := s.storage.SavePlayer(ctx, player); err != nil {
			return model.Identity{}, "", nil, err
		}
		changes = append(changes, protocol.Insert(protocol.CollectionPlayer, player))
	}

	old := *player
	old.Online = false
	player.Online = true
	if player.Name == "" {
		player.Name = account.Name
	}
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return model.Identity{}, "", nil, err
	}
	changes = append(changes, protocol.Update(protocol.CollectionPlayer, old, player))

	token := uuid.NewString()
	if err := s.storage.SaveConnToken(ctx, token, account.Identity); err != nil {
		return model.Identity{}, "", nil, err
	}

	s.logger.Info("player signed in",
		slog.String("anonymous", anonymous.Short()),
		slog.String("identity", account.Identity.Short()))
	return account.Identity, token, changes, nil
}
