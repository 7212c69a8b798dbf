package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deployment-bingo/bingosync/internal/cache"
	"github.com/deployment-bingo/bingosync/internal/model"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream live state changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			watchCache(conn.Caches().Players, "player", func(p model.Player) string {
				status := "offline"
				if p.Online {
					status = "online"
				}
				return fmt.Sprintf("%s %s (%s)", p.Identity.Short(), p.DisplayName(), status)
			})
			watchCache(conn.Caches().Sessions, "session", func(s model.GameSession) string {
				return fmt.Sprintf("#%d %s", s.ID, s.Name)
			})
			watchCache(conn.Caches().Memberships, "membership", func(m model.PlayerSession) string {
				return fmt.Sprintf("%s in #%d", m.PlayerID.Short(), m.GameSessionID)
			})
			watchCache(conn.Caches().Items, "item", func(item model.BingoItem) string {
				return fmt.Sprintf("#%d %s", item.ID, item.Body)
			})
			watchCache(conn.Caches().Subjects, "subject", func(s model.PlayerItemSubject) string {
				return fmt.Sprintf("item #%d about %s", s.BingoItemID, s.PlayerID.Short())
			})
			watchCache(conn.Caches().Boards, "board", func(b model.BingoBoard) string {
				return fmt.Sprintf("%s in #%d, %d tiles", b.PlayerID.Short(), b.GameSessionID, len(b.Tiles))
			})

			select {
			case <-cmd.Context().Done():
				return nil
			case <-conn.Done():
				return fmt.Errorf("connection lost")
			}
		},
	}
}

func watchCache[K comparable, T any](c *cache.Cache[K, T], name string, describe func(T) string) {
	c.OnInsert(func(row T) {
		fmt.Printf("+ %-10s %s\n", name, describe(row))
	})
	c.OnUpdate(func(oldRow, newRow T) {
		fmt.Printf("~ %-10s %s\n", name, describe(newRow))
	})
	c.OnDelete(func(row T) {
		fmt.Printf("- %-10s %s\n", name, describe(row))
	})
}
