package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds every go-peersec setting.
type Config struct {
	Listen ListenConfig
	Keys   KeysConfig
	Auth   AuthConfig
	Time   TimeConfig
	Log    LogConfig
}

// ListenConfig configures the secure listener and its accept loop.
type ListenConfig struct {
	// Address is the TCP address to bind.
	// Default: 127.0.0.1:7656
	Address string

	// AcceptRate is the number of handshakes admitted per second.
	// Default: 50
	AcceptRate float64

	// AcceptBurst is the number of handshakes admitted at once.
	// Default: 16
	AcceptBurst int

	// HandshakeTimeout bounds each handshake through a transport deadline.
	// Zero disables the deadline.
	// Default: 10 seconds
	HandshakeTimeout time.Duration
}

// KeysConfig locates the identity keystore.
type KeysConfig struct {
	// Dir holds the keystore.
	// Default: $HOME/.go-peersec/keys
	Dir string

	// Name is the keystore file name inside Dir.
	// Default: identity.yaml
	Name string
}

// AuthConfig restricts which peers may complete a handshake.
type AuthConfig struct {
	// AllowedPeers lists accepted identities. Empty accepts everyone.
	AllowedPeers []string
}

// TimeConfig configures the clock used to timestamp packets.
type TimeConfig struct {
	NTPEnabled bool
	NTPServers []string
	NTPTimeout time.Duration
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	// Default: warn
	Level string
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Listen: ListenConfig{
			Address:          "127.0.0.1:7656",
			AcceptRate:       50,
			AcceptBurst:      16,
			HandshakeTimeout: 10 * time.Second,
		},
		Keys: KeysConfig{
			Dir:  filepath.Join(BuildPeersecDirPath(), "keys"),
			Name: "identity.yaml",
		},
		Auth: AuthConfig{
			AllowedPeers: []string{},
		},
		Time: TimeConfig{
			NTPEnabled: false,
			NTPServers: []string{
				"0.pool.ntp.org",
				"1.pool.ntp.org",
				"2.pool.ntp.org",
			},
			NTPTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// KeystorePath returns the full path of the keystore file. The name may not
// escape Dir.
func (c *Config) KeystorePath() (string, error) {
	return SanitizePath(c.Keys.Dir, c.Keys.Name)
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (logrus.Level, error) {
	return logrus.ParseLevel(c.Log.Level)
}

// Validate checks a configuration for values the node cannot run with.
func Validate(cfg Config) error {
	validators := []func(Config) error{
		validateListen,
		validateKeys,
		validateTime,
		validateLog,
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateListen(cfg Config) error {
	if cfg.Listen.Address == "" {
		return newValidationError("listen.address must not be empty")
	}
	if cfg.Listen.AcceptRate <= 0 {
		return newValidationError(fmt.Sprintf("listen.accept_rate must be positive, got %v", cfg.Listen.AcceptRate))
	}
	if cfg.Listen.AcceptBurst < 1 {
		return newValidationError(fmt.Sprintf("listen.accept_burst must be at least 1, got %d", cfg.Listen.AcceptBurst))
	}
	if cfg.Listen.HandshakeTimeout < 0 {
		return newValidationError("listen.handshake_timeout must not be negative")
	}
	return nil
}

func validateKeys(cfg Config) error {
	if cfg.Keys.Dir == "" {
		return newValidationError("keys.dir must not be empty")
	}
	if cfg.Keys.Name == "" || strings.ContainsRune(cfg.Keys.Name, filepath.Separator) {
		return newValidationError(fmt.Sprintf("keys.name must be a plain file name, got %q", cfg.Keys.Name))
	}
	return nil
}

func validateTime(cfg Config) error {
	if cfg.Time.NTPEnabled && len(cfg.Time.NTPServers) == 0 {
		return newValidationError("time.ntp_servers must not be empty when time.ntp_enabled is set")
	}
	if cfg.Time.NTPTimeout <= 0 {
		return newValidationError("time.ntp_timeout must be positive")
	}
	return nil
}

func validateLog(cfg Config) error {
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return newValidationError(fmt.Sprintf("log.level: %v", err))
	}
	return nil
}

type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}
