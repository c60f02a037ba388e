package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/secretcache/pkg/secretcache"
)

// RotationReport is the JSON form of the rotation command's output.
type RotationReport struct {
	SecretID        string     `json:"secret_id"`
	RotationEnabled bool       `json:"rotation_enabled"`
	NextRotation    *time.Time `json:"next_rotation,omitempty"`
	LastRotated     *time.Time `json:"last_rotated,omitempty"`
	LastChecked     *time.Time `json:"last_checked,omitempty"`
	BufferStart     *time.Time `json:"buffer_start,omitempty"`
	Status          string     `json:"status"`
	PlannedTTL      string     `json:"planned_ttl"`
}

// NewRotationCommand creates the rotation command.
func NewRotationCommand(rt *Runtime) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "rotation <secret-id>",
		Short: "Show a secret's rotation schedule",
		Long: `Show the rotation metadata the cache holds for a secret, or describe it
remotely when it is not cached. Describing a secret does not cache it.

Status is one of:
  untracked  no rotation schedule is known
  scheduled  the next rotation is beyond the rotation buffer
  in_buffer  the next rotation is within the buffer; the secret is rechecked hourly
  overdue    the rotation date has passed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := rt.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			meta, err := session.Cache.GetRotationMetadata(cmd.Context(), args[0])
			if err != nil {
				return fetchUserError(err)
			}

			report := buildRotationReport(args[0], meta, rt.Clock.Now(),
				session.Cache.RotationBufferDays(), session.Cache.DefaultTTL())

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(report)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "Secret:\t%s\n", report.SecretID)
			_, _ = fmt.Fprintf(w, "Rotation enabled:\t%t\n", report.RotationEnabled)
			_, _ = fmt.Fprintf(w, "Next rotation:\t%s\n", formatTime(report.NextRotation))
			_, _ = fmt.Fprintf(w, "Last rotated:\t%s\n", formatTime(report.LastRotated))
			_, _ = fmt.Fprintf(w, "Last checked:\t%s\n", formatTime(report.LastChecked))
			_, _ = fmt.Fprintf(w, "Buffer starts:\t%s\n", formatTime(report.BufferStart))
			_, _ = fmt.Fprintf(w, "Status:\t%s\n", report.Status)
			_, _ = fmt.Fprintf(w, "Planned TTL:\t%s\n", report.PlannedTTL)
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func buildRotationReport(id string, meta secretcache.RotationMetadata, now time.Time, bufferDays int, defaultTTL time.Duration) RotationReport {
	buffer := secretcache.BufferDuration(bufferDays)
	report := RotationReport{
		SecretID:        id,
		RotationEnabled: meta.RotationEnabled,
		NextRotation:    meta.NextRotation,
		LastRotated:     meta.LastRotated,
		Status:          string(meta.Status(now, buffer)),
		PlannedTTL:      secretcache.ComputeTTL(meta.NextRotation, now, bufferDays, defaultTTL).String(),
	}
	if !meta.LastChecked.IsZero() {
		checked := meta.LastChecked
		report.LastChecked = &checked
	}
	if meta.NextRotation != nil {
		start := meta.NextRotation.Add(-buffer)
		report.BufferStart = &start
	}
	return report
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
