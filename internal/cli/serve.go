package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mark3labs/swaggerview/internal/server"
)

// ServeConfig captures the options for the serve command.
type ServeConfig struct {
	Listen       string
	FetchTimeout time.Duration
	MaxBytes     int64
	AllowHosts   []string
	ConfigPath   string
	Verbose      bool

	stderr io.Writer
}

var serveRunner = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve descriptor view models over HTTP",
		Long: "Serve GET/POST /api/descriptor, which loads a Swagger 2.0 descriptor and " +
			"answers with its view model, plus GET /healthz.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveServeConfig(cmd)
			if err != nil {
				return err
			}
			cfg.stderr = cmd.ErrOrStderr()
			return serveRunner(cmd.Context(), cfg)
		},
	}
	defaults := server.DefaultConfig()
	cmd.Flags().String("listen", defaults.Listen, "Address to listen on (host:port)")
	cmd.Flags().Duration("fetch-timeout", defaults.FetchTimeout, "Timeout for fetching remote descriptors")
	cmd.Flags().Int64("max-bytes", defaults.MaxBytes, "Largest descriptor accepted, in bytes")
	cmd.Flags().StringSlice("allow-hosts", nil, "Hosts GET /api/descriptor may fetch from (default: any)")
	return cmd
}

func resolveServeConfig(cmd *cobra.Command) (*ServeConfig, error) {
	defaults := server.DefaultConfig()
	cfg := &ServeConfig{
		Listen:       defaults.Listen,
		FetchTimeout: defaults.FetchTimeout,
		MaxBytes:     defaults.MaxBytes,
	}

	fc, configPath, err := readConfigFlag(cmd)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = configPath
	if fc.has("listen") {
		cfg.Listen = fc.Listen
	}
	if fc.has("fetchtimeout") {
		cfg.FetchTimeout = fc.FetchTimeout
	}
	if fc.has("maxbytes") {
		cfg.MaxBytes = fc.MaxBytes
	}
	if fc.has("allowhosts") {
		cfg.AllowHosts = fc.AllowHosts
	}
	if fc.has("verbose") {
		cfg.Verbose = fc.Verbose
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		if cfg.Listen, err = flags.GetString("listen"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("fetch-timeout") {
		if cfg.FetchTimeout, err = flags.GetDuration("fetch-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-bytes") {
		if cfg.MaxBytes, err = flags.GetInt64("max-bytes"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("allow-hosts") {
		if cfg.AllowHosts, err = flags.GetStringSlice("allow-hosts"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("verbose") {
		if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
			return nil, err
		}
	}
	cfg.Listen = strings.TrimSpace(cfg.Listen)
	cfg.AllowHosts = sanitizeTags(cfg.AllowHosts)
	return cfg, nil
}

func (c *ServeConfig) serverConfig() server.Config {
	_, stderr := writersOf(nil, c.stderr)
	return server.Config{
		Listen:       c.Listen,
		FetchTimeout: c.FetchTimeout,
		MaxBytes:     c.MaxBytes,
		AllowedHosts: c.AllowHosts,
		Logger:       newLogger(stderr, c.Verbose),
	}
}

func runServe(ctx context.Context, cfg *ServeConfig) error {
	srv, err := server.New(cfg.serverConfig())
	if err != nil {
		var svcErr *server.Error
		if errors.As(err, &svcErr) {
			return newUsageError(fmt.Sprintf("serve: %s", svcErr.Message))
		}
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}
