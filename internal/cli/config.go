package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Environment variables read by the CLI
const (
	envServer    = "PUTP_SERVER"
	envToken     = "PUTP_TOKEN"
	envTokenFile = "PUTP_TOKEN_FILE"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool

	// Fs holds the token file; nil means the OS filesystem
	Fs afero.Fs
}

// DefaultConfig returns a Config from the environment
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault(envServer, "http://localhost:8080"),
		Token:     os.Getenv(envToken),
		TokenFile: getEnvOrDefault(envTokenFile, defaultTokenFile()),
		Output:    "text",
	}
}

func (c *Config) fs() afero.Fs {
	if c.Fs == nil {
		return afero.NewOsFs()
	}
	return c.Fs
}

// LoadToken reads the token file unless a token was already given.
// A missing file leaves the token empty.
func (c *Config) LoadToken() error {
	if c.Token != "" || c.TokenFile == "" {
		return nil
	}

	data, err := afero.ReadFile(c.fs(), c.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read token file: %w", err)
	}
	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken stores token in the token file, readable only by the owner
func (c *Config) SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}

	fs := c.fs()
	if err := fs.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return err
	}
	if err := afero.WriteFile(fs, c.TokenFile, []byte(token+"\n"), 0o600); err != nil {
		return err
	}
	c.Token = token
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".putp", "token")
	}
	return filepath.Join(home, ".putp", "token")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
