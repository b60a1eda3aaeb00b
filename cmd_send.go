package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-i2p/go-peersec/lib/node"
	"github.com/spf13/cobra"
)

var (
	sendTo      string
	sendMessage string
	sendDirect  bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a signed message to a peer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendTo == "" {
			return errors.New("--to is required")
		}
		ks, err := openKeystore()
		if err != nil {
			return err
		}
		n, err := node.New(cfg, ks.Signer())
		if err != nil {
			return err
		}
		defer n.Close()

		ctx := cmd.Context()
		if cfg.Listen.HandshakeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Listen.HandshakeTimeout)
			defer cancel()
		}
		env, err := n.Send(ctx, sendTo, sendMessage, sendDirect)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %d signed bytes as %s\n", len(env.Signature.Payload), n.Identity())
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "peer address, host:port")
	sendCmd.Flags().StringVarP(&sendMessage, "message", "m", "", "message text")
	sendCmd.Flags().BoolVar(&sendDirect, "direct", false, "send a DirectMessage, refused if relayed")
	rootCmd.AddCommand(sendCmd)
}
