package model

// GameSession is one round of deployment bingo. Sessions are created by
// the start-new-game intent, become inactive exactly once when a winning
// condition is reached, and are never deleted while boards reference them.
type GameSession struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	// Winner is set when the session ends.
	Winner *Identity `json:"winner,omitempty"`
	// BoardItems is the session's item list, fixed at creation. Bodies are
	// copied from the pool so deleting a pool item doesn't break boards.
	BoardItems []BoardItem `json:"board_items"`
}

// BoardItem is a per-session item instance. Checked is the only field
// that mutates after creation, and only as the result of the store
// resolving a check-off vote.
type BoardItem struct {
	ID      uint32 `json:"id"`
	Body    string `json:"body"`
	Checked bool   `json:"checked"`
}

// FindBoardItem returns the session's board item with the given id.
func (s GameSession) FindBoardItem(itemID uint32) (BoardItem, bool) {
	for _, item := range s.BoardItems {
		if item.ID == itemID {
			return item, true
		}
	}
	return BoardItem{}, false
}
