package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	var blockBytes int

	c := &cobra.Command{
		Use:   "keys",
		Short: "Generate session cookie keys (base64, ready to export)",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch blockBytes {
			case 16, 24, 32:
			default:
				return fmt.Errorf("--block-bytes must be 16, 24 or 32, got %d", blockBytes)
			}

			hash := make([]byte, 64)
			block := make([]byte, blockBytes)
			if _, err := rand.Read(hash); err != nil {
				return err
			}
			if _, err := rand.Read(block); err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "export COOKIE_HASH_KEY=%s\n", base64.StdEncoding.EncodeToString(hash))
			fmt.Fprintf(os.Stdout, "export COOKIE_BLOCK_KEY=%s\n", base64.StdEncoding.EncodeToString(block))
			return nil
		},
	}

	c.Flags().IntVar(&blockBytes, "block-bytes", 32, "AES key length for the cookie block key (16, 24 or 32)")
	return c
}
