package cli

import (
	"net/url"
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	TokenFile string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("BINGO_SERVER", "ws://localhost:8080/sync"),
		TokenFile: getEnvOrDefault("BINGO_TOKEN_FILE", defaultTokenFile()),
		Output:    "text",
		Verbose:   false,
	}
}

// HTTPBase derives the server's HTTP base URL from the sync URL, for
// the health endpoint.
func (c *Config) HTTPBase() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return c.ServerURL
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String()
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bingo/token"
	}
	return filepath.Join(home, ".bingo", "token")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
