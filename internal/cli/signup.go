package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/deployment-bingo/bingosync/internal/model"
)

func newSignupCmd() *cobra.Command {
	var invite string
	var name string
	var password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account from an invite and sign in",
		Long: `Create an account from an invite token and sign in to it.

Signing in moves this connection onto the account's identity: the
anonymous player you connected as is deleted and the reconnect token is
replaced, so later commands run as the account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			type outcome struct {
				identity model.Identity
				err      error
			}
			outcomes := make(chan outcome, 1)
			if err := conn.Signup(invite, name, password, callTimeout, func(id model.Identity, err error) {
				outcomes <- outcome{identity: id, err: err}
			}); err != nil {
				return err
			}

			select {
			case o := <-outcomes:
				if o.err != nil {
					return o.err
				}
				NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("signed in as %s (%s)", name, o.identity.Short()))
				return nil
			case <-time.After(callTimeout + time.Second):
				return fmt.Errorf("timed out waiting for the store")
			}
		},
	}

	cmd.Flags().StringVar(&invite, "invite", "", "Invite token")
	cmd.Flags().StringVar(&name, "name", "", "Account name")
	cmd.Flags().StringVar(&password, "pass", "", "Account password")
	_ = cmd.MarkFlagRequired("invite")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}
