package commands

import (
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/secretcache/internal/secure"
)

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rt *Runtime) *cobra.Command {
	var (
		toKeyring bool
		service   string
		user      string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a cache encryption key",
		Long: `Generate a random 256-bit key for encrypting cached secrets.

By default the base64 key is printed for use as SECRETCACHE_KEY. With
--keyring it is stored in the OS keyring instead and nothing secret is
printed. Replacing the key does not break the cache: entries sealed with the
old key are discarded and refetched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secure.GenerateKey()
			if err != nil {
				return err
			}
			defer memguard.WipeBytes(key)

			out := cmd.OutOrStdout()
			if !toKeyring {
				_, _ = fmt.Fprintln(out, secure.EncodeKey(key))
				return nil
			}

			src := secure.KeySource{
				Type:           secure.SourceKeyring,
				KeyringService: service,
				KeyringUser:    user,
			}
			if err := secure.StoreKey(src, key); err != nil {
				return err
			}
			if logger := rt.Config.Logger; logger != nil {
				logger.Info("Stored cache key in the OS keyring")
			}
			_, _ = fmt.Fprintf(out, "Set encryption.key_source: keyring in %s to use it\n", rt.Config.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&toKeyring, "keyring", false, "Store the key in the OS keyring")
	cmd.Flags().StringVar(&service, "service", secure.DefaultKeyringService, "Keyring service name")
	cmd.Flags().StringVar(&user, "user", secure.DefaultKeyringUser, "Keyring user name")

	return cmd
}
