// Package protocol defines the JSON frames exchanged between the bingo
// store and its clients over a persistent websocket connection.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/deployment-bingo/bingosync/internal/model"
)

// Collection names the mirrored row sets.
type Collection string

const (
	CollectionPlayer            Collection = "player"
	CollectionGameSession       Collection = "game_session"
	CollectionPlayerSession     Collection = "player_session"
	CollectionBingoItem         Collection = "bingo_item"
	CollectionPlayerItemSubject Collection = "player_item_subject"
	CollectionBingoBoard        Collection = "bingo_board"
)

// Collections lists every collection a client may subscribe to.
func Collections() []Collection {
	return []Collection{
		CollectionPlayer,
		CollectionGameSession,
		CollectionPlayerSession,
		CollectionBingoItem,
		CollectionPlayerItemSubject,
		CollectionBingoBoard,
	}
}

// Op is a row change operation.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// RowChange is one insert/update/delete notification for one row of one
// collection. OldRow is set only for updates.
type RowChange struct {
	Collection Collection      `json:"collection"`
	Op         Op              `json:"op"`
	Row        json.RawMessage `json:"row"`
	OldRow     json.RawMessage `json:"old_row,omitempty"`
}

// Query is an equality filter on one column of a collection. An empty
// Column subscribes to the whole collection.
type Query struct {
	Collection Collection `json:"collection"`
	Column     string     `json:"column,omitempty"`
	Value      string     `json:"value,omitempty"`
}

// Matches reports whether a row of the given collection passes the
// filter. Values are compared in their string form, so identity columns
// use hex and integer columns use their decimal rendering.
func (q Query) Matches(collection Collection, row json.RawMessage) bool {
	if q.Collection != collection {
		return false
	}
	if q.Column == "" {
		return true
	}
	var fields map[string]any
	if err := json.Unmarshal(row, &fields); err != nil {
		return false
	}
	v, ok := fields[q.Column]
	if !ok {
		return false
	}
	switch v := v.(type) {
	case string:
		return v == q.Value
	case float64:
		// JSON numbers decode as float64; all our ids are integers.
		return fmt.Sprintf("%.0f", v) == q.Value
	case bool:
		return fmt.Sprintf("%t", v) == q.Value
	default:
		return false
	}
}

// QueryAll subscribes to every row of a collection.
func QueryAll(c Collection) Query {
	return Query{Collection: c}
}

// QueryBoardsFor subscribes to the boards owned by one player. This is
// the identity-scoped query re-issued after an identity reassignment.
func QueryBoardsFor(id model.Identity) Query {
	return Query{Collection: CollectionBingoBoard, Column: "player_id", Value: id.Hex()}
}
