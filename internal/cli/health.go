package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the store is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			httpClient := &http.Client{Timeout: 5 * time.Second}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, cfg.HTTPBase()+"/healthz", nil)
			if err != nil {
				return err
			}

			resp, err := httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("store unreachable: %w", err)
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("store unhealthy: %s", resp.Status)
			}

			NewOutput(cfg.Output).PrintMessage("store is healthy")
			return nil
		},
	}
}
