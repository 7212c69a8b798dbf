package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deployment-bingo/bingosync/internal/client"
	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/views"
)

func newItemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Bingo item pool commands",
	}

	cmd.AddCommand(newItemSubmitCmd())
	cmd.AddCommand(newItemDeleteCmd())
	cmd.AddCommand(newItemListCmd())

	return cmd
}

func newItemSubmitCmd() *cobra.Command {
	var subjectHexes []string

	cmd := &cobra.Command{
		Use:   "submit <body>",
		Short: "Submit a new bingo item to the pool",
		Long: `Submit a new bingo item to the pool.

Items tagged with --subject are about those players: their boards never
include the item, so nobody holds a tile about themselves.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subjects := make([]model.Identity, 0, len(subjectHexes))
			for _, hex := range subjectHexes {
				id, err := model.ParseIdentity(hex)
				if err != nil {
					return fmt.Errorf("invalid subject %q: %w", hex, err)
				}
				subjects = append(subjects, id)
			}

			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := awaitCall(func(done func(error)) error {
				return conn.SubmitNewBingoItem(args[0], subjects, client.OnComplete(done))
			}); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("item submitted")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&subjectHexes, "subject", nil, "Player identity (hex) the item is about, repeatable")

	return cmd
}

func newItemDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete a bingo item from the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID(args[0])
			if err != nil {
				return err
			}

			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := awaitCall(func(done func(error)) error {
				return conn.DeleteBingoItem(itemID, client.OnComplete(done))
			}); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("deleted item #%d", itemID))
			return nil
		},
	}
}

func newItemListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pool items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			waitForSync(conn)

			items := views.ItemsByNewest(conn.Caches().Items.Rows())
			NewOutput(cfg.Output).Print(items)
			return nil
		},
	}
}
