package main

import (
	"fmt"
	"os"

	"github.com/go-i2p/go-peersec/lib/config"
	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

var log = logger.GetGoI2PLogger()

var (
	cfgFile  string
	logLevel string

	// set during PersistentPreRunE
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "go-peersec",
	Short: "Authenticated peer connections and signed packets",
	Long: `go-peersec runs a peer that accepts Noise-authenticated connections
and verifies the signed packets sent over them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return oops.Wrapf(err, "failed to load config")
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return applyLogLevel(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.go-peersec/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
}

func applyLogLevel(c *config.Config) error {
	level, err := c.LogLevel()
	if err != nil {
		return err
	}
	logger.GetGoI2PLogger().SetLevel(logger.Level(level))
	return nil
}

func openKeystore() (*keys.Keystore, error) {
	return keys.OpenKeystore(cfg.Keys.Dir, cfg.Keys.Name)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
