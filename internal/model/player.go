package model

// Player represents a connected or previously seen participant.
// At most one row exists per identity; the Online flag is the only
// server-driven signal of connect and disconnect.
type Player struct {
	Identity Identity `json:"identity"`
	Name     string   `json:"name,omitempty"`
	Online   bool     `json:"online"`
}

// DisplayName returns the player's name, falling back to a short hex
// form of the identity for players who have not set one.
func (p Player) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Identity.Short()
}

// PlayerSession is a membership row linking a player to a game session.
// The pair itself is the key; rows are only inserted and deleted.
type PlayerSession struct {
	GameSessionID uint32   `json:"game_session_id"`
	PlayerID      Identity `json:"player_id"`
}

// PlayerItemSubject links a player to a pool item they are the subject
// of. Subject players never see the item on their own boards.
type PlayerItemSubject struct {
	BingoItemID uint32   `json:"bingo_item_id"`
	PlayerID    Identity `json:"player_id"`
}
