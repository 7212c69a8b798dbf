// Package cli implements the bingoctl command set: a thin terminal
// front end over the sync client.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "bingoctl",
		Short: "CLI for the deployment bingo store",
		Long: `bingoctl talks to a bingo store over its websocket sync protocol.

It covers the full player surface: naming yourself, starting and joining
game sessions, contributing bingo items, voting items off, and the
invite-based account signup flow. The watch command streams live state
changes to stdout.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Store sync URL (env: BINGO_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Reconnect token file (env: BINGO_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newNameCmd())
	rootCmd.AddCommand(newGameCmd())
	rootCmd.AddCommand(newItemCmd())
	rootCmd.AddCommand(newVoteCmd())
	rootCmd.AddCommand(newBoardCmd())
	rootCmd.AddCommand(newSignupCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
