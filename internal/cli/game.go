package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deployment-bingo/bingosync/internal/client"
	"github.com/deployment-bingo/bingosync/internal/views"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game session commands",
	}

	cmd.AddCommand(newGameStartCmd())
	cmd.AddCommand(newGameJoinCmd())
	cmd.AddCommand(newGameListCmd())

	return cmd
}

func newGameStartCmd() *cobra.Command {
	var name string
	var password string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new game session",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := awaitCall(func(done func(error)) error {
				return conn.StartNewGame(name, password, client.OnComplete(done))
			}); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("started game %q", name))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Session name")
	cmd.Flags().StringVar(&password, "password", "", "Session password, empty for open sessions")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newGameJoinCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "join <session-id>",
		Short: "Join a game session and get dealt a board",
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

			if err := awaitCall(func(done func(error)) error {
				return conn.JoinGame(sessionID, password, client.OnComplete(done))
			}); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("joined game #%d", sessionID))
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Session password")

	return cmd
}

func newGameListCmd() *cobra.Command {
	var page int
	var pageSize int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List game sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			waitForSync(conn)

			sessions := views.SessionsByNewest(conn.Caches().Sessions.Rows())

			paginator := views.NewPaginator(pageSize)
			paginator.SetLength(len(sessions))
			paginator.SetIndex(page)

			out := NewOutput(cfg.Output)
			out.Print(views.PageOf(sessions, paginator))
			if n := paginator.PageCount(); n > 1 {
				out.PrintMessage(fmt.Sprintf("page %d of %d", paginator.Index()+1, n))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page index, clamped to the last page")
	cmd.Flags().IntVar(&pageSize, "page-size", views.DefaultPageSize, "Sessions per page")

	return cmd
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return uint32(id), nil
}
