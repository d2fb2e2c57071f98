package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/swaggerview/internal/emitter/htmlemitter"
	"github.com/mark3labs/swaggerview/internal/output"
	"github.com/mark3labs/swaggerview/internal/spec"
)

// RenderConfig captures all inputs that influence the render command after
// merging defaults, config file values, and CLI overrides.
type RenderConfig struct {
	Input       string
	Format      string
	Out         string
	DeepLink    string
	Trusted     bool
	IncludeTags []string
	ExcludeTags []string
	Methods     []string
	Paths       []string
	ConfigPath  string
	DryRun      bool
	Force       bool
	Pretty      bool
	Verbose     bool

	stdout io.Writer
	stderr io.Writer
}

func defaultRenderConfig() RenderConfig {
	return RenderConfig{Format: "json"}
}

var renderRunner = runRender

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Turn a Swagger 2.0 descriptor into a documentation view model",
		Long: "Render a Swagger 2.0 descriptor as a JSON view model or a static HTML page. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  swaggerview render --input swagger.yaml --pretty
  swaggerview render --input https://petstore.swagger.io/v2/swagger.json --format html --out ./site
  swaggerview --config swaggerview.yaml render --deep-link pet* --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveRenderConfig(cmd)
			if err != nil {
				return err
			}
			cfg.stdout = cmd.OutOrStdout()
			cfg.stderr = cmd.ErrOrStderr()
			return renderRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger 2.0 document")
	flags.String("format", "", "Output format (json|html); defaults to json")
	flags.String("out", "", "Output file (json) or directory (html)")
	flags.String("deep-link", "", "Operation id, operationId, resource name or \"resource*\" to open")
	flags.Bool("trusted", false, "Treat descriptor text as trusted HTML instead of sanitizing it")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations using these HTTP methods")
	flags.StringSlice("paths", nil, "Only include operations whose path matches one of these regular expressions")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")
	flags.Bool("pretty", false, "Indent JSON output even when stdout is not a terminal")

	return cmd
}

func resolveRenderConfig(cmd *cobra.Command) (*RenderConfig, error) {
	cfg := defaultRenderConfig()

	fc, configPath, err := readConfigFlag(cmd)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = configPath
	applyRenderFileConfig(&cfg, fc)

	if err := applyRenderFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyRenderFileConfig(cfg *RenderConfig, fc *fileConfig) {
	if fc == nil {
		return
	}
	if fc.has("input") {
		cfg.Input = fc.Input
	}
	if fc.has("format") {
		cfg.Format = fc.Format
	}
	if fc.has("out") {
		cfg.Out = fc.Out
	}
	if fc.has("deeplink") {
		cfg.DeepLink = fc.DeepLink
	}
	if fc.has("trusted") {
		cfg.Trusted = fc.Trusted
	}
	if fc.has("includetags") {
		cfg.IncludeTags = fc.IncludeTags
	}
	if fc.has("excludetags") {
		cfg.ExcludeTags = fc.ExcludeTags
	}
	if fc.has("methods") {
		cfg.Methods = fc.Methods
	}
	if fc.has("paths") {
		cfg.Paths = fc.Paths
	}
	if fc.has("dryrun") {
		cfg.DryRun = fc.DryRun
	}
	if fc.has("force") {
		cfg.Force = fc.Force
	}
	if fc.has("pretty") {
		cfg.Pretty = fc.Pretty
	}
	if fc.has("verbose") {
		cfg.Verbose = fc.Verbose
	}
}

func applyRenderFlagOverrides(flags *pflag.FlagSet, cfg *RenderConfig) error {
	strs := map[string]*string{
		"input":     &cfg.Input,
		"format":    &cfg.Format,
		"out":       &cfg.Out,
		"deep-link": &cfg.DeepLink,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	slices := map[string]*[]string{
		"include-tags": &cfg.IncludeTags,
		"exclude-tags": &cfg.ExcludeTags,
		"methods":      &cfg.Methods,
		"paths":        &cfg.Paths,
	}
	for name, dst := range slices {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	bools := map[string]*bool{
		"trusted": &cfg.Trusted,
		"dry-run": &cfg.DryRun,
		"force":   &cfg.Force,
		"pretty":  &cfg.Pretty,
		"verbose": &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	return nil
}

func (c *RenderConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Out = strings.TrimSpace(c.Out)
	c.DeepLink = strings.TrimSpace(c.DeepLink)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Methods = sanitizeTags(c.Methods)
	for i, m := range c.Methods {
		c.Methods[i] = strings.ToLower(m)
	}
	c.Paths = sanitizeTags(c.Paths)
}

func (c *RenderConfig) validate() error {
	if c.Input == "" {
		return newUsageError("render: --input is required (set via flag or config file)")
	}

	switch c.Format {
	case "", "json", "html":
		if c.Format == "" {
			c.Format = "json"
		}
	default:
		return newUsageError(fmt.Sprintf("render: unsupported --format %q (allowed: json, html)", c.Format))
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("render: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	for _, m := range c.Methods {
		switch spec.HttpMethod(m) {
		case spec.GET, spec.POST, spec.PUT, spec.DELETE, spec.PATCH, spec.HEAD, spec.OPTIONS:
		default:
			return newUsageError(fmt.Sprintf("render: unknown HTTP method %q in --methods", m))
		}
	}
	for _, p := range c.Paths {
		if _, err := regexp.Compile(p); err != nil {
			return newUsageError(fmt.Sprintf("render: invalid --paths pattern %q: %v", p, err))
		}
	}

	return nil
}

func (c *RenderConfig) parseOptions() []spec.ParseOption {
	methods := make([]spec.HttpMethod, 0, len(c.Methods))
	for _, m := range c.Methods {
		methods = append(methods, spec.HttpMethod(m))
	}
	return []spec.ParseOption{
		spec.WithTrusted(c.Trusted),
		spec.WithDeepLink(c.DeepLink),
		spec.WithIncludeTags(c.IncludeTags),
		spec.WithExcludeTags(c.ExcludeTags),
		spec.WithMethods(methods),
		spec.WithPathPatterns(c.Paths),
	}
}

func runRender(ctx context.Context, cfg *RenderConfig) error {
	stdout, stderr := writersOf(cfg.stdout, cfg.stderr)
	logger := newLogger(stderr, cfg.Verbose)

	// 1) Load the descriptor (file or http/https URL)
	doc, err := spec.Load(ctx, cfg.Input)
	if err != nil {
		return describeSpecError(err)
	}
	logger.Debug("descriptor loaded", slog.String("input", cfg.Input), slog.Int("version", doc.Version))

	// 2) Build the view model
	vm, err := spec.Parse(ctx, doc, append(cfg.parseOptions(), spec.WithLogger(logger))...)
	if err != nil {
		return describeSpecError(err)
	}

	// 3) Emit
	if cfg.Format == "json" {
		return writeViewModel(cfg, vm, stdout, stderr)
	}

	outDir := cfg.Out
	if outDir == "" {
		outDir = deriveDirName(vm.Infos.Title)
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}
	res, err := htmlemitter.Emit(ctx, vm, htmlemitter.Options{
		OutDir:  outDir,
		Force:   cfg.Force,
		DryRun:  cfg.DryRun,
		Verbose: cfg.Verbose,
		Logger:  logger,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}

	printer := output.NewPrinter(stdout, stderr, output.PrinterOptions{})
	if cfg.DryRun {
		printPlan(printer, absOut, res.Planned)
		return nil
	}
	printer.Printf("Wrote %d files to %s\n", len(res.Planned), absOut)
	return nil
}

// writeViewModel prints vm to stdout, or to the --out file when set.
func writeViewModel(cfg *RenderConfig, vm *spec.ViewModel, stdout, stderr io.Writer) error {
	opts := output.PrinterOptions{ForcePretty: cfg.Pretty}
	if cfg.Out == "" {
		return output.NewPrinter(stdout, stderr, opts).PrintJSON(vm)
	}
	if cfg.DryRun {
		output.NewPrinter(stdout, stderr, opts).Printf("Planned write: %s\n", cfg.Out)
		return nil
	}
	if _, err := os.Stat(cfg.Out); err == nil && !cfg.Force {
		return newUsageError(fmt.Sprintf("render: %q already exists (use --force to overwrite)", cfg.Out))
	}
	if !opts.ForcePretty {
		opts.ForceCompact = true
	}
	f, err := os.Create(cfg.Out)
	if err != nil {
		return wrapOutputError(err, cfg.Out)
	}
	if err := output.NewPrinter(f, stderr, opts).PrintJSON(vm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printPlan(p *output.Printer, outDir string, planned []htmlemitter.PlannedFile) {
	p.Printf("Planned writes to %s (%d files):\n", outDir, len(planned))
	for _, f := range planned {
		p.Printf("- %s\n", f.RelPath)
	}
}

// describeSpecError turns loader and parser failures into messages for the
// terminal. The original error stays reachable, so unsupported descriptors
// still match spec.ErrUnsupported.
func describeSpecError(err error) error {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	if errors.Is(err, spec.ErrUnsupported) {
		return newUsageErrorFrom(err, "spec: unsupported descriptor, only Swagger 2.0 documents can be rendered")
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return newUsageErrorFrom(err, msg)
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

// deriveDirName turns a descriptor title into a directory name, e.g.
// "Swagger Petstore" becomes "swagger-petstore-docs".
func deriveDirName(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	repl := strings.NewReplacer("/", " ", "_", " ", ".", " ", ",", " ", ":", " ")
	var b strings.Builder
	for _, r := range repl.Replace(t) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' || r == '-' {
			b.WriteRune(r)
		}
	}
	parts := strings.Fields(b.String())
	if len(parts) == 0 {
		return "swaggerview-docs"
	}
	return strings.Join(parts, "-") + "-docs"
}

func writersOf(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}
