package redis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deployment-bingo/bingosync/internal/model"
)

// Key prefix for all store data
const keyPrefix = "bingo"

// playerKey returns the Redis key for a Player
func playerKey(id model.Identity) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id.Hex())
}

// playersIndexKey returns the Redis key for the SET of all player ids
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// sessionKey returns the Redis key for a GameSession
func sessionKey(id uint32) string {
	return fmt.Sprintf("%s:session:%d", keyPrefix, id)
}

// sessionsIndexKey returns the Redis key for the SET of all session ids
func sessionsIndexKey() string {
	return fmt.Sprintf("%s:idx:sessions", keyPrefix)
}

// sessionSecretKey returns the Redis key for a session's password hash
func sessionSecretKey(id uint32) string {
	return fmt.Sprintf("%s:session_secret:%d", keyPrefix, id)
}

// membershipsKey returns the Redis key for the SET of membership pairs
func membershipsKey() string {
	return fmt.Sprintf("%s:memberships", keyPrefix)
}

// itemKey returns the Redis key for a BingoItem
func itemKey(id uint32) string {
	return fmt.Sprintf("%s:item:%d", keyPrefix, id)
}

// itemsIndexKey returns the Redis key for the SET of all item ids
func itemsIndexKey() string {
	return fmt.Sprintf("%s:idx:items", keyPrefix)
}

// subjectsKey returns the Redis key for the SET of item-subject pairs
func subjectsKey() string {
	return fmt.Sprintf("%s:subjects", keyPrefix)
}

// boardKey returns the Redis key for a BingoBoard
func boardKey(key model.BoardKey) string {
	return fmt.Sprintf("%s:board:%d:%s", keyPrefix, key.GameSessionID, key.PlayerID.Hex())
}

// sessionBoardsIndexKey returns the Redis key for the SET of player ids
// with a board in the session
func sessionBoardsIndexKey(sessionID uint32) string {
	return fmt.Sprintf("%s:idx:session_boards:%d", keyPrefix, sessionID)
}

// voteKey returns the Redis key for an ItemCheckVote
func voteKey(id uint32) string {
	return fmt.Sprintf("%s:vote:%d", keyPrefix, id)
}

// votesIndexKey returns the Redis key for the SET of vote ids for one
// item in one session
func votesIndexKey(sessionID, itemID uint32) string {
	return fmt.Sprintf("%s:idx:votes:%d:%d", keyPrefix, sessionID, itemID)
}

// accountKey returns the Redis key for an Account
func accountKey(name string) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, name)
}

// inviteKey returns the Redis key for a PlayerInvite
func inviteKey(token string) string {
	return fmt.Sprintf("%s:invite:%s", keyPrefix, token)
}

// connTokenKey returns the Redis key for a reconnect token
func connTokenKey(token string) string {
	return fmt.Sprintf("%s:conn_token:%s", keyPrefix, token)
}

// seqKey returns the Redis key for an auto-increment counter
func seqKey(name string) string {
	return fmt.Sprintf("%s:seq:%s", keyPrefix, name)
}

// Membership and subject rows have no document of their own; the pair is
// the row. They are stored as "<uint32>:<identity-hex>" set members.

func encodePair(id uint32, playerID model.Identity) string {
	return fmt.Sprintf("%d:%s", id, playerID.Hex())
}

func decodePair(member string) (uint32, model.Identity, error) {
	parts := strings.SplitN(member, ":", 2)
	if len(parts) != 2 {
		return 0, model.Identity{}, fmt.Errorf("malformed pair member %q", member)
	}
	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, model.Identity{}, fmt.Errorf("malformed pair member %q: %w", member, err)
	}
	playerID, err := model.ParseIdentity(parts[1])
	if err != nil {
		return 0, model.Identity{}, fmt.Errorf("malformed pair member %q: %w", member, err)
	}
	return uint32(id), playerID, nil
}
