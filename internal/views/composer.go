// Package views derives presentation-ready structures by joining cache
// snapshots. Everything here is pure: views never mutate cached data,
// and joins tolerate dangling references because cross-collection event
// ordering is not guaranteed. A membership row whose player has not
// arrived yet is "not yet resolved", never an error, and heals itself
// once the missing insert is delivered.
package views

import (
	"cmp"
	"slices"

	"github.com/deployment-bingo/bingosync/internal/model"
)

// CurrentPlayer resolves the local identity against the player snapshot.
func CurrentPlayer(players map[model.Identity]model.Player, local model.Identity) (model.Player, bool) {
	p, ok := players[local]
	return p, ok
}

// PlayersInSession resolves the members of one session. Rows referencing
// players not yet cached are filtered out silently. The result is sorted
// by display name, then identity, so presentation order is stable.
func PlayersInSession(players map[model.Identity]model.Player, memberships []model.PlayerSession, sessionID uint32) []model.Player {
	var out []model.Player
	for _, m := range memberships {
		if m.GameSessionID != sessionID {
			continue
		}
		if p, ok := players[m.PlayerID]; ok {
			out = append(out, p)
		}
	}
	sortPlayers(out)
	return out
}

// SubjectsForItem resolves the players an item is about, with the same
// lenient-join policy as PlayersInSession.
func SubjectsForItem(players map[model.Identity]model.Player, subjects []model.PlayerItemSubject, itemID uint32) []model.Player {
	var out []model.Player
	for _, sub := range subjects {
		if sub.BingoItemID != itemID {
			continue
		}
		if p, ok := players[sub.PlayerID]; ok {
			out = append(out, p)
		}
	}
	sortPlayers(out)
	return out
}

// SessionsByNewest returns sessions in descending id order, newest first.
func SessionsByNewest(sessions []model.GameSession) []model.GameSession {
	out := slices.Clone(sessions)
	slices.SortFunc(out, func(a, b model.GameSession) int {
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// ItemsByNewest returns pool items in descending id order, newest first.
func ItemsByNewest(items []model.BingoItem) []model.BingoItem {
	out := slices.Clone(items)
	slices.SortFunc(out, func(a, b model.BingoItem) int {
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// SessionWinner resolves a finished session's winner, if the player row
// is cached.
func SessionWinner(players map[model.Identity]model.Player, session model.GameSession) (model.Player, bool) {
	if session.Winner == nil {
		return model.Player{}, false
	}
	p, ok := players[*session.Winner]
	return p, ok
}

func sortPlayers(players []model.Player) {
	slices.SortFunc(players, func(a, b model.Player) int {
		if c := cmp.Compare(a.DisplayName(), b.DisplayName()); c != 0 {
			return c
		}
		return cmp.Compare(a.Identity.Hex(), b.Identity.Hex())
	})
}
