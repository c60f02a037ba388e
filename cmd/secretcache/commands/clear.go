package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	dserrors "github.com/systmms/secretcache/internal/errors"
)

// expiredCleaner is implemented by backends that leave expired entries
// behind until something removes them.
type expiredCleaner interface {
	CleanupExpired() (int, error)
}

// NewClearCommand creates the clear command.
func NewClearCommand(rt *Runtime) *cobra.Command {
	var expired bool

	cmd := &cobra.Command{
		Use:   "clear <secret-id>...",
		Short: "Remove secrets from the cache",
		Long: `Delete the cached payload and rotation metadata of one or more secrets.
The next get fetches them from the remote store. Clearing a secret that is not
cached is not an error.

With --expired, remove every expired entry from backends that keep them on
disk (the file backend).`,
		Args: func(cmd *cobra.Command, args []string) error {
			if expired {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := rt.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()
			for _, id := range args {
				session.Cache.ClearCache(cmd.Context(), id)
				_, _ = fmt.Fprintf(out, "Cleared %s\n", id)
			}

			if !expired {
				return nil
			}
			cleaner, ok := session.Backend.(expiredCleaner)
			if !ok {
				_, _ = fmt.Fprintf(out, "Backend %s expires entries itself\n", session.Definition.Backend.Type)
				return nil
			}
			removed, err := cleaner.CleanupExpired()
			if err != nil {
				return dserrors.ProviderError(session.Definition.Backend.Type, "cleanup", err)
			}
			_, _ = fmt.Fprintf(out, "Removed %d expired entries\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&expired, "expired", false, "Also remove expired entries from the backend")

	return cmd
}
