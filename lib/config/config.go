package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-i2p/go-peersec/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

var log = logger.GetGoI2PLogger()

// GOPEERSEC_BASE_DIR is the directory under $HOME holding config and keys.
const GOPEERSEC_BASE_DIR = ".go-peersec"

// Load reads the configuration at path. An empty path selects
// $HOME/.go-peersec/config.yaml, which is created with defaults when missing.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(BuildPeersecDirPath())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	setDefaults(v)

	if err := handleConfigFile(v, path); err != nil {
		return nil, err
	}

	cfg := fromViper(v)
	if err := Validate(*cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("listen.address", d.Listen.Address)
	v.SetDefault("listen.accept_rate", d.Listen.AcceptRate)
	v.SetDefault("listen.accept_burst", d.Listen.AcceptBurst)
	v.SetDefault("listen.handshake_timeout", d.Listen.HandshakeTimeout)

	v.SetDefault("keys.dir", d.Keys.Dir)
	v.SetDefault("keys.name", d.Keys.Name)

	v.SetDefault("auth.allowed_peers", d.Auth.AllowedPeers)

	v.SetDefault("time.ntp_enabled", d.Time.NTPEnabled)
	v.SetDefault("time.ntp_servers", d.Time.NTPServers)
	v.SetDefault("time.ntp_timeout", d.Time.NTPTimeout)

	v.SetDefault("log.level", d.Log.Level)
}

// fromViper reads every key set by setDefaults.
func fromViper(v *viper.Viper) *Config {
	return &Config{
		Listen: ListenConfig{
			Address:          v.GetString("listen.address"),
			AcceptRate:       v.GetFloat64("listen.accept_rate"),
			AcceptBurst:      v.GetInt("listen.accept_burst"),
			HandshakeTimeout: v.GetDuration("listen.handshake_timeout"),
		},
		Keys: KeysConfig{
			Dir:  v.GetString("keys.dir"),
			Name: v.GetString("keys.name"),
		},
		Auth: AuthConfig{
			AllowedPeers: v.GetStringSlice("auth.allowed_peers"),
		},
		Time: TimeConfig{
			NTPEnabled: v.GetBool("time.ntp_enabled"),
			NTPServers: v.GetStringSlice("time.ntp_servers"),
			NTPTimeout: v.GetDuration("time.ntp_timeout"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}
}

func handleConfigFile(v *viper.Viper, path string) error {
	err := v.ReadInConfig()
	if err == nil {
		log.WithField("file", v.ConfigFileUsed()).Debug("Using config file")
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && path == "" {
		return createDefaultConfig(v, BuildPeersecDirPath())
	}
	if path != "" && errors.Is(err, os.ErrNotExist) {
		return oops.Wrapf(err, "config file %s not found", path)
	}
	return oops.Wrapf(err, "error reading config file")
}

func createDefaultConfig(v *viper.Viper, dir string) error {
	file := filepath.Join(dir, "config.yaml")
	if err := CreateSecureDirectory(dir); err != nil {
		return err
	}
	if err := v.WriteConfigAs(file); err != nil {
		return oops.Wrapf(err, "could not write default config file")
	}
	log.WithField("file", file).Debug("Created default configuration")
	return nil
}

// BuildPeersecDirPath returns $HOME/.go-peersec.
func BuildPeersecDirPath() string {
	return filepath.Join(util.UserHome(), GOPEERSEC_BASE_DIR)
}
