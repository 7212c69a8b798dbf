package model

import "time"

// BingoItem is a shared pool item. Items are not bound to one session;
// they persist until explicitly deleted.
type BingoItem struct {
	ID        uint32    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemCheckVote records one player's vote to check off an item in a
// session. Votes expire server-side; the client never sees them.
type ItemCheckVote struct {
	ID            uint32    `json:"id"`
	GameSessionID uint32    `json:"game_session_id"`
	BingoItemID   uint32    `json:"bingo_item_id"`
	PlayerID      Identity  `json:"player_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// PlayerInvite is a single-use signup token.
type PlayerInvite struct {
	ID    uint32 `json:"id"`
	Token string `json:"token"`
	Used  bool   `json:"used"`
}
