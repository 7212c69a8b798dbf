package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/views"
)

func newBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board <session-id>",
		Short: "Show your board for a game session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseID(args[0])
			if err != nil {
				return err
			}

			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			waitForSync(conn)

			caches := conn.Caches()
			session, ok := caches.Sessions.Get(sessionID)
			if !ok {
				return fmt.Errorf("no game session #%d", sessionID)
			}

			key := model.BoardKey{PlayerID: conn.Identity(), GameSessionID: sessionID}
			board, ok := caches.Boards.Get(key)
			if !ok {
				return fmt.Errorf("no board in game #%d, join it first", sessionID)
			}

			out := NewOutput(cfg.Output)
			out.Print(views.ComposeGrid(&board, session))
			if winner, ok := views.SessionWinner(caches.Players.Snapshot(), session); ok {
				out.PrintMessage(fmt.Sprintf("game won by %s", winner.DisplayName()))
			}
			return nil
		},
	}
}
