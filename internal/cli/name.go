package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deployment-bingo/bingosync/internal/client"
	"github.com/deployment-bingo/bingosync/internal/views"
)

func newNameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "name",
		Short: "Display name commands",
	}

	cmd.AddCommand(newNameSetCmd())
	cmd.AddCommand(newNameShowCmd())

	return cmd
}

func newNameSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Set your display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := awaitCall(func(done func(error)) error {
				return conn.SetName(args[0], client.OnComplete(done))
			}); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("name set to %q", args[0]))
			return nil
		},
	}
}

func newNameShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show who you are",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			waitForSync(conn)

			me, ok := views.CurrentPlayer(conn.Caches().Players.Snapshot(), conn.Identity())
			if !ok {
				return fmt.Errorf("own player row not synced yet")
			}

			NewOutput(cfg.Output).Print(me)
			return nil
		},
	}
}
