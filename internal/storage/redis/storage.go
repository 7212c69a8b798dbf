package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *Storage) getJSON(ctx context.Context, key string, v any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Storage) nextID(ctx context.Context, name string) (uint32, error) {
	n, err := s.client.Incr(ctx, seqKey(name)).Result()
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	if err := s.setJSON(ctx, playerKey(player.Identity), player, 0); err != nil {
		return err
	}
	return s.client.SAdd(ctx, playersIndexKey(), player.Identity.Hex()).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.Identity) (*model.Player, error) {
	var player model.Player
	if err := s.getJSON(ctx, playerKey(id), &player, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.Identity) error {
	if err := s.client.Del(ctx, playerKey(id)).Err(); err != nil {
		return err
	}
	return s.client.SRem(ctx, playersIndexKey(), id.Hex()).Err()
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	members, err := s.client.SMembers(ctx, playersIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.Player, 0, len(members))
	for _, member := range members {
		id, err := model.ParseIdentity(member)
		if err != nil {
			return nil, err
		}
		player, err := s.GetPlayer(ctx, id)
		if errors.Is(err, model.ErrPlayerNotFound) {
			// Index entry outlived the row; skip it
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, player)
	}
	return out, nil
}

// Game session operations

func (s *Storage) NextSessionID(ctx context.Context) (uint32, error) {
	return s.nextID(ctx, "session")
}

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	if err := s.setJSON(ctx, sessionKey(session.ID), session, 0); err != nil {
		return err
	}
	return s.client.SAdd(ctx, sessionsIndexKey(), strconv.FormatUint(uint64(session.ID), 10)).Err()
}

func (s *Storage) GetSession(ctx context.Context, id uint32) (*model.GameSession, error) {
	var session model.GameSession
	if err := s.getJSON(ctx, sessionKey(id), &session, model.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) ListSessions(ctx context.Context) ([]*model.GameSession, error) {
	members, err := s.client.SMembers(ctx, sessionsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.GameSession, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			return nil, err
		}
		session, err := s.GetSession(ctx, uint32(id))
		if errors.Is(err, model.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, nil
}

func (s *Storage) SaveSessionSecret(ctx context.Context, sessionID uint32, hash string) error {
	return s.client.Set(ctx, sessionSecretKey(sessionID), hash, 0).Err()
}

func (s *Storage) GetSessionSecret(ctx context.Context, sessionID uint32) (string, error) {
	hash, err := s.client.Get(ctx, sessionSecretKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return hash, err
}

// Membership operations

func (s *Storage) SaveMembership(ctx context.Context, m model.PlayerSession) error {
	return s.client.SAdd(ctx, membershipsKey(), encodePair(m.GameSessionID, m.PlayerID)).Err()
}

func (s *Storage) DeleteMembership(ctx context.Context, m model.PlayerSession) error {
	return s.client.SRem(ctx, membershipsKey(), encodePair(m.GameSessionID, m.PlayerID)).Err()
}

func (s *Storage) ListMemberships(ctx context.Context) ([]model.PlayerSession, error) {
	members, err := s.client.SMembers(ctx, membershipsKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.PlayerSession, 0, len(members))
	for _, member := range members {
		sessionID, playerID, err := decodePair(member)
		if err != nil {
			return nil, err
		}
		out = append(out, model.PlayerSession{GameSessionID: sessionID, PlayerID: playerID})
	}
	return out, nil
}

func (s *Storage) ListSessionMembers(ctx context.Context, sessionID uint32) ([]model.Identity, error) {
	all, err := s.ListMemberships(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Identity
	for _, m := range all {
		if m.GameSessionID == sessionID {
			out = append(out, m.PlayerID)
		}
	}
	return out, nil
}

// Pool item operations

func (s *Storage) NextItemID(ctx context.Context) (uint32, error) {
	return s.nextID(ctx, "item")
}

func (s *Storage) SaveItem(ctx context.Context, item *model.BingoItem) error {
	if err := s.setJSON(ctx, itemKey(item.ID), item, 0); err != nil {
		return err
	}
	return s.client.SAdd(ctx, itemsIndexKey(), strconv.FormatUint(uint64(item.ID), 10)).Err()
}

func (s *Storage) GetItem(ctx context.Context, id uint32) (*model.BingoItem, error) {
	var item model.BingoItem
	if err := s.getJSON(ctx, itemKey(id), &item, model.ErrItemNotFound); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Storage) DeleteItem(ctx context.Context, id uint32) error {
	if err := s.client.Del(ctx, itemKey(id)).Err(); err != nil {
		return err
	}
	return s.client.SRem(ctx, itemsIndexKey(), strconv.FormatUint(uint64(id), 10)).Err()
}

func (s *Storage) ListItems(ctx context.Context) ([]*model.BingoItem, error) {
	members, err := s.client.SMembers(ctx, itemsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.BingoItem, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			return nil, err
		}
		item, err := s.GetItem(ctx, uint32(id))
		if errors.Is(err, model.ErrItemNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Item subject operations

func (s *Storage) SaveSubject(ctx context.Context, sub model.PlayerItemSubject) error {
	return s.client.SAdd(ctx, subjectsKey(), encodePair(sub.BingoItemID, sub.PlayerID)).Err()
}

func (s *Storage) DeleteSubjectsForItem(ctx context.Context, itemID uint32) ([]model.PlayerItemSubject, error) {
	all, err := s.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	var removed []model.PlayerItemSubject
	for _, sub := range all {
		if sub.BingoItemID != itemID {
			continue
		}
		if err := s.client.SRem(ctx, subjectsKey(), encodePair(sub.BingoItemID, sub.PlayerID)).Err(); err != nil {
			return nil, err
		}
		removed = append(removed, sub)
	}
	return removed, nil
}

func (s *Storage) ListSubjects(ctx context.Context) ([]model.PlayerItemSubject, error) {
	members, err := s.client.SMembers(ctx, subjectsKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.PlayerItemSubject, 0, len(members))
	for _, member := range members {
		itemID, playerID, err := decodePair(member)
		if err != nil {
			return nil, err
		}
		out = append(out, model.PlayerItemSubject{BingoItemID: itemID, PlayerID: playerID})
	}
	return out, nil
}

func (s *Storage) ListSubjectsForPlayer(ctx context.Context, playerID model.Identity) ([]model.PlayerItemSubject, error) {
	all, err := s.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.PlayerItemSubject
	for _, sub := range all {
		if sub.PlayerID == playerID {
			out = append(out, sub)
		}
	}
	return out, nil
}

// Board operations

func (s *Storage) SaveBoard(ctx context.Context, board *model.BingoBoard) error {
	if err := s.setJSON(ctx, boardKey(board.Key()), board, 0); err != nil {
		return err
	}
	return s.client.SAdd(ctx, sessionBoardsIndexKey(board.GameSessionID), board.PlayerID.Hex()).Err()
}

func (s *Storage) GetBoard(ctx context.Context, key model.BoardKey) (*model.BingoBoard, error) {
	var board model.BingoBoard
	if err := s.getJSON(ctx, boardKey(key), &board, model.ErrBoardNotFound); err != nil {
		return nil, err
	}
	return &board, nil
}

func (s *Storage) ListSessionBoards(ctx context.Context, sessionID uint32) ([]*model.BingoBoard, error) {
	members, err := s.client.SMembers(ctx, sessionBoardsIndexKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.BingoBoard, 0, len(members))
	for _, member := range members {
		playerID, err := model.ParseIdentity(member)
		if err != nil {
			return nil, err
		}
		board, err := s.GetBoard(ctx, model.BoardKey{PlayerID: playerID, GameSessionID: sessionID})
		if errors.Is(err, model.ErrBoardNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, board)
	}
	return out, nil
}

// Check-off vote operations

func (s *Storage) NextVoteID(ctx context.Context) (uint32, error) {
	return s.nextID(ctx, "vote")
}

func (s *Storage) SaveVote(ctx context.Context, vote *model.ItemCheckVote) error {
	if err := s.setJSON(ctx, voteKey(vote.ID), vote, s.cfg.VoteTTL); err != nil {
		return err
	}
	return s.client.SAdd(ctx, votesIndexKey(vote.GameSessionID, vote.BingoItemID),
		strconv.FormatUint(uint64(vote.ID), 10)).Err()
}

func (s *Storage) ListVotes(ctx context.Context, sessionID, itemID uint32) ([]*model.ItemCheckVote, error) {
	members, err := s.client.SMembers(ctx, votesIndexKey(sessionID, itemID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.ItemCheckVote, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			return nil, err
		}
		var vote model.ItemCheckVote
		err = s.getJSON(ctx, voteKey(uint32(id)), &vote, redis.Nil)
		if errors.Is(err, redis.Nil) {
			// Vote expired under its index entry
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &vote)
	}
	return out, nil
}

func (s *Storage) DeleteVotes(ctx context.Context, sessionID, itemID uint32) error {
	members, err := s.client.SMembers(ctx, votesIndexKey(sessionID, itemID)).Result()
	if err != nil {
		return nil
	}
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			continue
		}
		if err := s.client.Del(ctx, voteKey(uint32(id))).Err(); err != nil {
			return err
		}
	}
	return s.client.Del(ctx, votesIndexKey(sessionID, itemID)).Err()
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	return s.setJSON(ctx, accountKey(account.Name), account, 0)
}

func (s *Storage) GetAccountByName(ctx context.Context, name string) (*model.Account, error) {
	var account model.Account
	if err := s.getJSON(ctx, accountKey(name), &account, model.ErrAccountNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

// Invite operations

func (s *Storage) NextInviteID(ctx context.Context) (uint32, error) {
	return s.nextID(ctx, "invite")
}

func (s *Storage) SaveInvite(ctx context.Context, invite *model.PlayerInvite) error {
	return s.setJSON(ctx, inviteKey(invite.Token), invite, s.cfg.InviteTTL)
}

func (s *Storage) GetInviteByToken(ctx context.Context, token string) (*model.PlayerInvite, error) {
	var invite model.PlayerInvite
	if err := s.getJSON(ctx, inviteKey(token), &invite, model.ErrInviteNotFound); err != nil {
		return nil, err
	}
	return &invite, nil
}

// Reconnect token operations

func (s *Storage) SaveConnToken(ctx context.Context, token string, id model.Identity) error {
	return s.client.Set(ctx, connTokenKey(token), id.Hex(), s.cfg.TokenTTL).Err()
}

func (s *Storage) GetConnTokenIdentity(ctx context.Context, token string) (model.Identity, error) {
	hex, err := s.client.Get(ctx, connTokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Identity{}, model.ErrPlayerNotFound
		}
		return model.Identity{}, err
	}
	return model.ParseIdentity(hex)
}
