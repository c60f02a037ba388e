package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	dserrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/pkg/secretcache"
)

// NewTTLCommand creates the ttl command. It needs no configuration.
func NewTTLCommand(rt *Runtime) *cobra.Command {
	var (
		nextRotation string
		bufferDays   int
		defaultTTL   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ttl",
		Short: "Show the cache TTL planned for a rotation date",
		Long: `Print the TTL the cache would assign to a secret with the given next
rotation date. Entries expire when the rotation buffer starts, capped at 30 days.

Examples:
  secretcache ttl --next-rotation 2026-12-01T00:00:00Z
  secretcache ttl --next-rotation 2026-12-01T00:00:00Z --buffer-days 3 --default-ttl 10m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var next *time.Time
			if nextRotation != "" {
				t, err := time.Parse(time.RFC3339, nextRotation)
				if err != nil {
					return dserrors.UserError{
						Message:    fmt.Sprintf("Invalid --next-rotation value %q", nextRotation),
						Suggestion: "Use an RFC 3339 timestamp such as 2026-12-01T00:00:00Z",
					}
				}
				next = &t
			}
			if bufferDays < 0 {
				return dserrors.UserError{
					Message:    "--buffer-days cannot be negative",
					Suggestion: "Use 0 to disable the buffer",
				}
			}
			if defaultTTL <= 0 {
				return dserrors.UserError{
					Message:    "--default-ttl must be positive",
					Suggestion: "Use a duration such as 5m",
				}
			}

			ttl := secretcache.ComputeTTL(next, rt.Clock.Now(), bufferDays, defaultTTL)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d seconds)\n", ttl, int64(ttl/time.Second))
			return nil
		},
	}

	cmd.Flags().StringVar(&nextRotation, "next-rotation", "", "Next rotation date (RFC 3339)")
	cmd.Flags().IntVar(&bufferDays, "buffer-days", secretcache.DefaultRotationBufferDays, "Rotation buffer in days")
	cmd.Flags().DurationVar(&defaultTTL, "default-ttl", secretcache.DefaultTTL, "TTL used without a schedule or inside the buffer")

	return cmd
}
