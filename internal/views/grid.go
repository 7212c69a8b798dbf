package views

import (
	"encoding/json"

	"github.com/deployment-bingo/bingosync/internal/model"
)

// Cell is one position of the rendered grid. Empty cells are a valid
// terminal state: a board that has not arrived yet renders as all-empty
// rather than as an error.
type Cell struct {
	Item   model.BoardItem
	Filled bool
}

// Grid is a dense BoardSize x BoardSize view of a player's board with
// item bodies and checked state resolved from the owning session.
type Grid struct {
	cells [model.BoardSize][model.BoardSize]Cell
}

// ComposeGrid builds the grid for a board and its owning session. A nil
// board yields an all-empty grid. Placements outside the grid bounds or
// referencing unknown item ids leave their cells empty.
func ComposeGrid(board *model.BingoBoard, session model.GameSession) Grid {
	var g Grid
	if board == nil {
		return g
	}
	for _, tile := range board.Tiles {
		if tile.X < 0 || tile.X >= model.BoardSize || tile.Y < 0 || tile.Y >= model.BoardSize {
			continue
		}
		item, ok := session.FindBoardItem(tile.ItemID)
		if !ok {
			continue
		}
		g.cells[tile.X][tile.Y] = Cell{Item: item, Filled: true}
	}
	return g
}

// At returns the cell at (x, y). Out-of-range coordinates return an
// empty cell.
func (g Grid) At(x, y int) Cell {
	if x < 0 || x >= model.BoardSize || y < 0 || y >= model.BoardSize {
		return Cell{}
	}
	return g.cells[x][y]
}

// FilledCount returns the number of resolved cells. A fully loaded board
// fills all of them.
func (g Grid) FilledCount() int {
	count := 0
	for x := range model.BoardSize {
		for y := range model.BoardSize {
			if g.cells[x][y].Filled {
				count++
			}
		}
	}
	return count
}

// HasCompletedLine reports whether any full row or column of the grid is
// checked off. This is the winning condition.
func (g Grid) HasCompletedLine() bool {
	for x := range model.BoardSize {
		if g.lineChecked(func(i int) Cell { return g.cells[x][i] }) {
			return true
		}
	}
	for y := range model.BoardSize {
		if g.lineChecked(func(i int) Cell { return g.cells[i][y] }) {
			return true
		}
	}
	return false
}

// MarshalJSON renders the grid as rows of cells, outer index y.
func (g Grid) MarshalJSON() ([]byte, error) {
	type cellJSON struct {
		Body    string `json:"body,omitempty"`
		Checked bool   `json:"checked,omitempty"`
		Filled  bool   `json:"filled"`
	}
	var rows [model.BoardSize][model.BoardSize]cellJSON
	for y := range model.BoardSize {
		for x := range model.BoardSize {
			c := g.cells[x][y]
			rows[y][x] = cellJSON{Body: c.Item.Body, Checked: c.Item.Checked, Filled: c.Filled}
		}
	}
	return json.Marshal(map[string]any{"cells": rows})
}

func (g Grid) lineChecked(cell func(i int) Cell) bool {
	for i := range model.BoardSize {
		c := cell(i)
		if !c.Filled || !c.Item.Checked {
			return false
		}
	}
	return true
}
