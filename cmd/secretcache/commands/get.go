package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	dserrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/pkg/secretcache"
)

// NewGetCommand creates the get command.
func NewGetCommand(rt *Runtime) *cobra.Command {
	var (
		jsonOutput bool
		field      string
	)

	cmd := &cobra.Command{
		Use:   "get <secret-id>",
		Short: "Get a secret through the cache",
		Long: `Return a secret's payload, from the cache when its rotation schedule allows
it and from the remote store otherwise.

By default the payload's top-level fields are printed as KEY=value lines.
Nested values are printed as JSON.

Examples:
  # Print all fields
  secretcache get prod/db

  # Print one field, for scripts
  export DB_PASSWORD=$(secretcache get prod/db --field password)

  # Print the payload as JSON
  secretcache get prod/db --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := rt.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			payload, err := session.Cache.GetSecret(cmd.Context(), args[0])
			if err != nil {
				return fetchUserError(err)
			}

			out := cmd.OutOrStdout()

			if field != "" {
				value, ok := payload[field]
				if !ok {
					return dserrors.UserError{
						Message:    fmt.Sprintf("Field '%s' not found in secret '%s'", field, args[0]),
						Suggestion: fmt.Sprintf("Available fields: %v", sortedKeys(payload)),
					}
				}
				s, err := renderValue(value)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprint(out, s)
				return nil
			}

			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(payload); err != nil {
					return fmt.Errorf("failed to encode JSON: %w", err)
				}
				return nil
			}

			for _, key := range sortedKeys(payload) {
				s, err := renderValue(payload[key])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "%s=%s\n", key, s)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the payload as JSON")
	cmd.Flags().StringVar(&field, "field", "", "Print only this top-level field")

	return cmd
}

func sortedKeys(payload secretcache.Payload) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// renderValue prints strings and numbers raw and everything else as JSON.
func renderValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(b), nil
}
