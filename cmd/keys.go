package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "keys",
		Short:             "Generate a SECRETS_ENC_KEY value (base64)",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export SECRETS_ENC_KEY=%s\n", base64.StdEncoding.EncodeToString(key))
			return nil
		},
	}
}
