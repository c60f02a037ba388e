package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/secretcache/internal/config"
	dserrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/logging"
	"github.com/systmms/secretcache/internal/secure"
)

// ComponentHealth is one row of the doctor report
type ComponentHealth struct {
	Name    string
	Type    string
	Status  string // healthy, error
	Message string
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, encryption key, backend and remote store",
		Long: `Verify that secretcache is ready to serve secrets.

This command checks:
- Configuration file validity
- The encryption key can be loaded and seals/opens data
- The cache backend is reachable
- Remote store credentials are accepted`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.Config
			logger := cfg.Logger

			if logger != nil {
				logger.Info("Checking secretcache configuration...")
			}
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			def := cfg.Definition

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(def.Remote.GetTimeout())*time.Millisecond)
			defer cancel()

			results := []ComponentHealth{
				checkKey(def),
				checkBackend(ctx, rt, def.Backend),
				checkRemote(ctx, rt, def.Remote),
			}

			out := cmd.OutOrStdout()
			displayHealthResults(out, results)

			healthy := 0
			for _, result := range results {
				if result.Status == "healthy" {
					healthy++
				}
			}

			_, _ = fmt.Fprintf(out, "\nSummary: %d/%d checks passed\n", healthy, len(results))
			if healthy < len(results) {
				return fmt.Errorf("some checks failed")
			}
			if logger != nil {
				logger.Info("All systems operational")
			}
			return nil
		},
	}

	return cmd
}

func checkKey(def *config.Definition) ComponentHealth {
	src := def.KeySource()
	health := ComponentHealth{Name: "encryption", Type: src.Type}

	key, err := secure.LoadKey(src)
	if err != nil {
		return failed(health, err, keySuggestion(src))
	}
	cipher, err := secure.NewCipher(key)
	if err != nil {
		return failed(health, err, keySuggestion(src))
	}
	defer cipher.Destroy()

	probe := []byte("secretcache doctor")
	sealed, err := cipher.Encrypt(probe)
	if err == nil {
		var opened []byte
		opened, err = cipher.Decrypt(sealed)
		if err == nil && !bytes.Equal(opened, probe) {
			err = fmt.Errorf("round trip returned different data")
		}
	}
	if err != nil {
		return failed(health, err, "")
	}

	health.Status = "healthy"
	health.Message = "key loaded, seal/open round trip ok"
	return health
}

func checkBackend(ctx context.Context, rt *Runtime, sc config.StoreConfig) ComponentHealth {
	health := ComponentHealth{Name: "backend", Type: sc.Type}

	store, err := rt.NewBackend(sc)
	if err != nil {
		return failed(health, dserrors.ProviderError(sc.Type, "initialization", err), "")
	}
	defer func() { _ = store.Close() }()

	if err := store.Ping(ctx); err != nil {
		return failed(health, dserrors.ProviderError(sc.Type, "ping", err), "")
	}

	health.Status = "healthy"
	health.Message = "reachable"
	if target := describeTarget(sc); target != "" {
		health.Message += " at " + target
	}
	return health
}

func checkRemote(ctx context.Context, rt *Runtime, sc config.StoreConfig) ComponentHealth {
	health := ComponentHealth{Name: "remote", Type: sc.Type}

	remote, err := rt.NewRemote(sc)
	if err != nil {
		return failed(health, dserrors.ProviderError(sc.Type, "initialization", err), "")
	}
	if closer, ok := remote.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := remote.Validate(ctx); err != nil {
		return failed(health, err, "")
	}

	health.Status = "healthy"
	health.Message = "credentials accepted"
	if region, ok := sc.Config["region"].(string); ok && region != "" {
		health.Message += " (" + region + ")"
	}
	return health
}

func failed(health ComponentHealth, err error, suggestion string) ComponentHealth {
	health.Status = "error"

	msg := err.Error()
	var ue dserrors.UserError
	if errors.As(err, &ue) {
		msg = ue.Message
		switch {
		case ue.Details != "":
			msg += ": " + ue.Details
		case ue.Err != nil:
			msg += ": " + ue.Err.Error()
		}
		if suggestion == "" {
			suggestion = ue.Suggestion
		}
	}

	health.Message = firstLine(msg)
	if suggestion != "" {
		health.Message += " (" + suggestion + ")"
	}
	return health
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i != -1 {
		return s[:i]
	}
	return s
}

// describeTarget names where a backend lives without printing credentials.
func describeTarget(sc config.StoreConfig) string {
	var target string
	for _, key := range []string{"dsn", "addr", "dir"} {
		if v, ok := sc.Config[key].(string); ok && v != "" {
			target = v
			break
		}
	}
	if target == "" {
		return ""
	}
	return logging.Redact(target, credentialValues(sc.Config, target))
}

// credentialValues collects configured passwords and the password embedded
// in a URL-style DSN.
func credentialValues(options map[string]interface{}, dsn string) []string {
	var secrets []string
	for key, v := range options {
		s, ok := v.(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") || strings.Contains(lower, "secret") || strings.Contains(lower, "token") {
			secrets = append(secrets, s)
		}
	}
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if pw, ok := u.User.Password(); ok {
			secrets = append(secrets, pw)
		}
	}
	// user:password@tcp(host)/db
	if at := strings.Index(dsn, "@"); at != -1 {
		if colon := strings.Index(dsn[:at], ":"); colon != -1 && !strings.Contains(dsn[:at], "//") {
			secrets = append(secrets, dsn[colon+1:at])
		}
	}
	return secrets
}

// displayHealthResults shows component health in a formatted table
func displayHealthResults(out io.Writer, results []ComponentHealth) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tTYPE\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t----\t------\t-------\n")

	for _, result := range results {
		status := result.Status
		switch result.Status {
		case "healthy":
			status = "✓ " + status
		case "error":
			status = "✗ " + status
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", result.Name, result.Type, status, result.Message)
	}

	_ = w.Flush()
}
