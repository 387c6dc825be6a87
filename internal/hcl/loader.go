package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the entire HCL configuration loading process. Any block
// may appear in any file; files are processed in discovery order so that
// function declaration order is stable.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	model := config.NewModel()
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		part, err := l.parse(ctx, parser, file, src)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(part); err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.",
		"functions", len(model.Functions),
		"targets", len(model.Targets),
		"views", len(model.Views),
		"catalogue_version", model.Catalogue.Version,
	)
	return model, nil
}

// LoadSource parses a single in-memory HCL document.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	return l.parse(ctx, hclparse.NewParser(), filename, src)
}

func (l *Loader) parse(ctx context.Context, parser *hclparse.Parser, filename string, src []byte) (*config.Model, error) {
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if err := checkRemain(root.Remain); err != nil {
		return nil, fmt.Errorf("in %s: %w", filename, err)
	}

	return l.translate(ctx, &root)
}

// checkRemain rejects stray top-level attributes.
func checkRemain(body hcl.Body) error {
	if body == nil {
		return nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return diags
	}
	for name, attr := range attrs {
		return fmt.Errorf("unexpected top-level attribute %q at %s", name, attr.Range)
	}
	return nil
}
