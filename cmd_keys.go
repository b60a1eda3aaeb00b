package main

import (
	"fmt"

	"github.com/go-i2p/common/base64"
	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/spf13/cobra"
)

var forceKeygen bool

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the local identity key if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := openKeystore()
		if err != nil {
			return err
		}
		if forceKeygen {
			if ks, err = keys.RegenerateKeystore(cfg.Keys.Dir, cfg.Keys.Name); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", ks.Signer().Identity(), ks.Path())
		return nil
	},
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Print the local identity and public key",
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := openKeystore()
		if err != nil {
			return err
		}
		signer := ks.Signer()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "identity:   %s\n", signer.Identity())
		fmt.Fprintf(out, "public key: %s\n", base64.EncodeToString(signer.PublicKey()))
		return nil
	},
}

func init() {
	keygenCmd.Flags().BoolVar(&forceKeygen, "force", false, "replace an existing key")
	rootCmd.AddCommand(keygenCmd, identityCmd)
}
