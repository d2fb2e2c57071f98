package htmlemitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/swaggerview/internal/spec"
)

// Options controls how the HTML emitter renders a documentation page.
type Options struct {
	OutDir  string // required; target directory for the page
	Title   string // page title; defaults to the descriptor title
	Force   bool   // overwrite a non-empty directory
	DryRun  bool   // don't write, only plan
	Verbose bool
	Logger  *slog.Logger
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the resolved page title.
type Result struct {
	Title   string
	Planned []PlannedFile
}

// Emit renders index.html, style.css and viewmodel.json for vm.
func Emit(ctx context.Context, vm *spec.ViewModel, opts Options) (*Result, error) {
	if vm == nil {
		return nil, fmt.Errorf("htmlemitter: nil ViewModel")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("htmlemitter: OutDir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = strings.TrimSpace(vm.Infos.Title)
	}
	if title == "" {
		title = "API documentation"
	}

	page, err := renderPage(newPageData(title, vm))
	if err != nil {
		return nil, fmt.Errorf("render index.html: %w", err)
	}
	var model bytes.Buffer
	enc := json.NewEncoder(&model)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(vm); err != nil {
		return nil, fmt.Errorf("marshal viewmodel.json: %w", err)
	}

	files := map[string][]byte{
		"index.html":     page,
		"style.css":      []byte(styleCSS),
		"viewmodel.json": model.Bytes(),
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
		if opts.Verbose {
			logger.Info("page written", slog.String("dir", opts.OutDir), slog.Int("files", len(planned)))
		}
	}

	return &Result{Title: title, Planned: planned}, nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("htmlemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".tmp-*")
		if err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if _, err := tmp.Write(content); err != nil {
			tmp.Close()
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := tmp.Close(); err != nil {
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Chmod(tmp.Name(), 0o644); err != nil {
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("chmod %s: %w", rel, err)
		}
		if err := os.Rename(tmp.Name(), p); err != nil {
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
