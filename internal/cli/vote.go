package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deployment-bingo/bingosync/internal/client"
)

func newVoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <session-id> <item-id>",
		Short: "Vote to check off a bingo item in a session",
		Long: `Vote to check off a bingo item in a session.

The item stays unchecked until a majority of the session's members have
voted for it. Your own tile only fills in once the store confirms the
check, never optimistically.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseID(args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID(args[1])
			if err != nil {
				return err
			}

			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := awaitCall(func(done func(error)) error {
				return conn.CastCheckOffVote(sessionID, itemID, client.OnComplete(done))
			}); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("voted to check off item #%d in game #%d", itemID, sessionID))
			return nil
		},
	}
}
