package client

import (
	"encoding/json"
	"fmt"

	"github.com/deployment-bingo/bingosync/internal/cache"
	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/protocol"
)

// Caches bundles the per-collection mirrors a connection maintains.
// Rows flow in exclusively through Apply, in delivery order.
type Caches struct {
	Players     *cache.Cache[model.Identity, model.Player]
	Sessions    *cache.Cache[uint32, model.GameSession]
	Memberships *cache.Cache[model.PlayerSession, model.PlayerSession]
	Items       *cache.Cache[uint32, model.BingoItem]
	Subjects    *cache.Cache[model.PlayerItemSubject, model.PlayerItemSubject]
	Boards      *cache.Cache[model.BoardKey, model.BingoBoard]
}

// NewCaches creates empty caches for every collection.
func NewCaches() *Caches {
	return &Caches{
		Players: cache.New(func(p model.Player) model.Identity {
			return p.Identity
		}),
		Sessions: cache.New(func(s model.GameSession) uint32 {
			return s.ID
		}),
		Memberships: cache.New(func(m model.PlayerSession) model.PlayerSession {
			return m
		}),
		Items: cache.New(func(i model.BingoItem) uint32 {
			return i.ID
		}),
		Subjects: cache.New(func(s model.PlayerItemSubject) model.PlayerItemSubject {
			return s
		}),
		Boards: cache.New(func(b model.BingoBoard) model.BoardKey {
			return b.Key()
		}),
	}
}

// Apply routes one row change to its collection's cache.
func (c *Caches) Apply(change protocol.RowChange) error {
	switch change.Collection {
	case protocol.CollectionPlayer:
		return applyChange(c.Players, change)
	case protocol.CollectionGameSession:
		return applyChange(c.Sessions, change)
	case protocol.CollectionPlayerSession:
		return applyChange(c.Memberships, change)
	case protocol.CollectionBingoItem:
		return applyChange(c.Items, change)
	case protocol.CollectionPlayerItemSubject:
		return applyChange(c.Subjects, change)
	case protocol.CollectionBingoBoard:
		return applyChange(c.Boards, change)
	default:
		return fmt.Errorf("unknown collection %q", change.Collection)
	}
}

func applyChange[K comparable, T any](target *cache.Cache[K, T], change protocol.RowChange) error {
	var row T
	if err := json.Unmarshal(change.Row, &row); err != nil {
		return fmt.Errorf("decoding %s row: %w", change.Collection, err)
	}

	switch change.Op {
	case protocol.OpInsert:
		target.Apply(cache.Insert(row))
	case protocol.OpUpdate:
		// Without an old row the key cannot have moved, so the new row
		// stands in for it.
		old := row
		if change.OldRow != nil {
			if err := json.Unmarshal(change.OldRow, &old); err != nil {
				return fmt.Errorf("decoding %s old row: %w", change.Collection, err)
			}
		}
		target.Apply(cache.Update(old, row))
	case protocol.OpDelete:
		target.Apply(cache.Delete(row))
	default:
		return fmt.Errorf("unknown op %q", change.Op)
	}
	return nil
}
