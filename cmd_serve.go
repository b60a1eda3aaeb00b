package main

import (
	"context"
	"time"

	"github.com/go-i2p/go-peersec/lib/config"
	"github.com/go-i2p/go-peersec/lib/node"
	"github.com/go-i2p/go-peersec/lib/util/signals"
	"github.com/go-i2p/go-peersec/lib/util/time/sntp"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
)

const ntpSyncInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept secure connections and log verified packets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := openKeystore()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var opts []node.Option
		if clock := startClock(ctx, cfg); clock != nil {
			opts = append(opts, node.WithClock(clock))
		}
		n, err := node.New(cfg, ks.Signer(), opts...)
		if err != nil {
			return err
		}

		interrupt := signals.RegisterInterruptHandler(func() {
			log.Info("Shutting down")
			cancel()
		})
		defer signals.DeregisterInterruptHandler(interrupt)
		reload := signals.RegisterReloadHandler(func() { reloadConfig(n) })
		defer signals.DeregisterReloadHandler(reload)
		go signals.Handle()

		return n.Serve(ctx)
	},
}

// startClock returns an NTP-corrected clock when enabled, kept in sync until
// ctx is done.
func startClock(ctx context.Context, c *config.Config) sntp.Clock {
	if !c.Time.NTPEnabled {
		return nil
	}
	clock := sntp.NewNTPClock(nil, c.Time.NTPServers, c.Time.NTPTimeout)
	go clock.Run(ctx, ntpSyncInterval)
	return clock
}

// reloadConfig re-reads the config file and applies the settings that can
// change at runtime: the allow list and the log level.
func reloadConfig(n *node.Node) {
	next, err := config.Load(cfgFile)
	if err != nil {
		log.WithError(err).Error("Config reload failed, keeping current settings")
		return
	}
	if logLevel != "" {
		next.Log.Level = logLevel
	}
	if err := applyLogLevel(next); err != nil {
		log.WithError(err).Error("Invalid log level in reloaded config")
	}
	n.SetAllowedPeers(next.Auth.AllowedPeers)
	log.WithFields(logger.Fields{
		"at":            "reloadConfig",
		"allowed_peers": len(next.Auth.AllowedPeers),
	}).Info("Config reloaded")
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
