package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/deployment-bingo/bingosync/internal/client"
)

const (
	callTimeout = 10 * time.Second
	syncSettle  = 2 * time.Second
)

// connect dials the store with the configured token file.
func connect(ctx context.Context, cfg *Config) (*client.Conn, error) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if cfg.Verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	conn, err := client.NewBuilder(cfg.ServerURL).
		WithTokenStore(client.NewFileTokenStore(cfg.TokenFile)).
		WithLogger(logger).
		Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.ServerURL, err)
	}
	return conn, nil
}

// awaitCall turns a completion callback into a synchronous result.
func awaitCall(call func(done func(error)) error) error {
	errCh := make(chan error, 1)
	if err := call(func(err error) {
		errCh <- err
	}); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	case <-time.After(callTimeout):
		return fmt.Errorf("timed out waiting for the store")
	}
}

// waitForSync waits until the subscription snapshot has landed: the
// cache row counts stop changing between polls. There is no explicit
// end-of-snapshot marker on the wire.
func waitForSync(conn *client.Conn) {
	caches := conn.Caches()
	count := func() int {
		return caches.Players.Len() +
			caches.Sessions.Len() +
			caches.Memberships.Len() +
			caches.Items.Len() +
			caches.Subjects.Len() +
			caches.Boards.Len()
	}

	deadline := time.Now().Add(syncSettle)
	last := -1
	for time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		current := count()
		if current == last && current > 0 {
			return
		}
		last = current
	}
}
