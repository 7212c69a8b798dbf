package views

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployment-bingo/bingosync/internal/model"
)

func fullSession() model.GameSession {
	session := model.GameSession{ID: 1, Name: "deploy day", Active: true}
	for i := range uint32(model.TileCount) {
		session.BoardItems = append(session.BoardItems, model.BoardItem{
			ID:   i + 1,
			Body: fmt.Sprintf("item %d", i+1),
		})
	}
	return session
}

func fullBoard(session model.GameSession) *model.BingoBoard {
	board := &model.BingoBoard{PlayerID: ident(1), GameSessionID: session.ID}
	i := 0
	for x := range model.BoardSize {
		for y := range model.BoardSize {
			board.Tiles = append(board.Tiles, model.TilePlacement{
				ItemID: session.BoardItems[i].ID,
				X:      x,
				Y:      y,
			})
			i++
		}
	}
	return board
}

func TestComposeGridFullBoardFillsEveryCell(t *testing.T) {
	session := fullSession()
	grid := ComposeGrid(fullBoard(session), session)

	assert.Equal(t, model.TileCount, grid.FilledCount())
	for x := range model.BoardSize {
		for y := range model.BoardSize {
			cell := grid.At(x, y)
			require.True(t, cell.Filled, "cell (%d,%d) should be filled", x, y)
			assert.NotEmpty(t, cell.Item.Body)
		}
	}
}

func TestComposeGridNilBoardIsAllEmpty(t *testing.T) {
	grid := ComposeGrid(nil, fullSession())

	assert.Equal(t, 0, grid.FilledCount())
	assert.False(t, grid.At(0, 0).Filled)
}

func TestComposeGridPartialBoardLeavesGaps(t *testing.T) {
	session := fullSession()
	board := &model.BingoBoard{
		PlayerID:      ident(1),
		GameSessionID: session.ID,
		Tiles: []model.TilePlacement{
			{ItemID: 1, X: 0, Y: 0},
			{ItemID: 2, X: 4, Y: 4},
		},
	}

	grid := ComposeGrid(board, session)

	assert.Equal(t, 2, grid.FilledCount())
	assert.True(t, grid.At(0, 0).Filled)
	assert.True(t, grid.At(4, 4).Filled)
	assert.False(t, grid.At(2, 2).Filled)
}

func TestComposeGridSkipsUnresolvableTiles(t *testing.T) {
	session := fullSession()
	board := &model.BingoBoard{
		PlayerID:      ident(1),
		GameSessionID: session.ID,
		Tiles: []model.TilePlacement{
			{ItemID: 9999, X: 0, Y: 0}, // not in the session's item list
			{ItemID: 1, X: 7, Y: 0},    // out of bounds
			{ItemID: 2, X: 1, Y: 1},
		},
	}

	grid := ComposeGrid(board, session)

	assert.Equal(t, 1, grid.FilledCount())
	assert.True(t, grid.At(1, 1).Filled)
}

func TestAtOutOfRangeIsEmpty(t *testing.T) {
	session := fullSession()
	grid := ComposeGrid(fullBoard(session), session)

	assert.False(t, grid.At(-1, 0).Filled)
	assert.False(t, grid.At(0, model.BoardSize).Filled)
}

func TestHasCompletedLine(t *testing.T) {
	session := fullSession()
	board := fullBoard(session)

	grid := ComposeGrid(board, session)
	assert.False(t, grid.HasCompletedLine())

	// Check off the column at x=2: tiles where X == 2.
	checked := map[uint32]bool{}
	for _, tile := range board.Tiles {
		if tile.X == 2 {
			checked[tile.ItemID] = true
		}
	}
	for i, item := range session.BoardItems {
		if checked[item.ID] {
			session.BoardItems[i].Checked = true
		}
	}

	grid = ComposeGrid(board, session)
	assert.True(t, grid.HasCompletedLine())
}

func TestHasCompletedLineNeedsFilledCells(t *testing.T) {
	session := fullSession()
	for i := range session.BoardItems {
		session.BoardItems[i].Checked = true
	}
	// Four checked tiles in a row, fifth cell missing.
	board := &model.BingoBoard{
		PlayerID:      ident(1),
		GameSessionID: session.ID,
		Tiles: []model.TilePlacement{
			{ItemID: 1, X: 0, Y: 0},
			{ItemID: 2, X: 0, Y: 1},
			{ItemID: 3, X: 0, Y: 2},
			{ItemID: 4, X: 0, Y: 3},
		},
	}

	grid := ComposeGrid(board, session)
	assert.False(t, grid.HasCompletedLine())
}
