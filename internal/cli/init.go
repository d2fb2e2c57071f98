package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/swaggerview/internal/server"
)

const defaultConfigName = "swaggerview.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	Path    string
	Force   bool
	Verbose bool

	stdout io.Writer
	stderr io.Writer
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented swaggerview configuration file",
		Long: "Write a swaggerview configuration file with every supported key commented out " +
			"and set to its default, ready to be passed with --config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &InitConfig{stdout: cmd.OutOrStdout(), stderr: cmd.ErrOrStderr()}
			var err error
			if cfg.Path, err = cmd.Flags().GetString("out"); err != nil {
				return err
			}
			if cfg.Force, err = cmd.Flags().GetBool("force"); err != nil {
				return err
			}
			if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
				return err
			}
			cfg.Path = strings.TrimSpace(cfg.Path)
			if cfg.Path == "" {
				cfg.Path = defaultConfigName
			}
			return initRunner(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("out", defaultConfigName, "Where to write the config file")
	cmd.Flags().Bool("force", false, "Replace an existing file")
	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	stdout, stderr := writersOf(cfg.stdout, cfg.stderr)
	logger := newLogger(stderr, cfg.Verbose)

	target, err := filepath.Abs(cfg.Path)
	if err != nil {
		return fmt.Errorf("init: resolve %q: %w", cfg.Path, err)
	}
	if st, err := os.Stat(target); err == nil {
		if !st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q is not a regular file", target))
		}
		if !cfg.Force {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", target))
		}
	}

	content := sampleConfig()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := replaceFile(target, []byte(content)); err != nil {
		return newUsageError(fmt.Sprintf("init: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	logger.Debug("config written", slog.String("path", target), slog.Int("bytes", len(content)))
	fmt.Fprintf(stdout, "Wrote sample config to %s\n", target)
	return nil
}

// replaceFile writes data next to path and renames it into place.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".swaggerview-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// sampleConfig fills the template with the defaults the commands start from.
func sampleConfig() string {
	render := defaultRenderConfig()
	srv := server.DefaultConfig()
	return fmt.Sprintf(strings.TrimSpace(sampleConfigYAML)+"\n",
		render.Format, srv.Listen, srv.FetchTimeout, srv.MaxBytes)
}

// sampleConfigYAML documents every key the config loader accepts.
const sampleConfigYAML = `# swaggerview configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path or URL to the Swagger 2.0 document (http/https or local file).
# input: ./swagger.yaml

# Output format for render (json|html).
# format: %s

# Output file (json) or directory (html). HTML output defaults to a
# directory named after the descriptor title.
# out: ./site

# Operation id, operationId, resource name, or "resource*" to open.
# deepLink: pet*

# Pass descriptor descriptions through as HTML instead of sanitizing them.
# Only enable for descriptors you control.
# trusted: false

# Only include operations with these tags (comma-separated or list).
# includeTags: [pet, store]

# Exclude operations with these tags (comma-separated or list).
# excludeTags: [internal]

# Only include operations using these HTTP methods.
# methods: [get, post]

# Only include operations whose path matches one of these regular expressions.
# paths: ["^/pet"]

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite existing output.
# force: false

# Indent JSON output even when stdout is not a terminal.
# pretty: false

# serve: address, remote fetch timeout and size limit.
# listen: %s
# fetchTimeout: %s
# maxBytes: %d
# Hosts the service may fetch descriptors from. Unset means any host,
# loopback included; set it before listening on a public address.
# allowHosts: [petstore.swagger.io]

# Enable verbose logging.
# verbose: false
`
