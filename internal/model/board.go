package model

// BoardSize is the grid dimension of a bingo board.
const BoardSize = 5

// TileCount is the number of placements on a fully assigned board.
const TileCount = BoardSize * BoardSize

// TilePlacement assigns one session board item to one (x, y) cell of a
// player's board. x and y are in [0, BoardSize).
type TilePlacement struct {
	ItemID uint32 `json:"item_id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// BoardKey identifies a board: one per player per session.
type BoardKey struct {
	PlayerID      Identity
	GameSessionID uint32
}

// BingoBoard is a player's board for one session. A fully assigned board
// has exactly TileCount placements with distinct coordinates, each item
// drawn from the owning session's board item list. From the client's
// perspective a board exists atomically or not at all.
type BingoBoard struct {
	PlayerID      Identity        `json:"player_id"`
	GameSessionID uint32          `json:"game_session_id"`
	Tiles         []TilePlacement `json:"tiles"`
}

// Key returns the board's composite key.
func (b BingoBoard) Key() BoardKey {
	return BoardKey{PlayerID: b.PlayerID, GameSessionID: b.GameSessionID}
}
