package psv

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sells-group/pavement-cli/internal/tabular"
)

// OpenSegments reads a segments file. name picks the format and labels
// errors; it is usually filepath.Base(path) but may be an upload's original
// file name.
func OpenSegments(ctx context.Context, path, name string, opts tabular.Options, withKeys bool) ([]Segment, error) {
	t, err := tabular.OpenNamed(ctx, path, name, opts)
	if err != nil {
		return nil, err
	}
	return LoadSegments(t, withKeys)
}

// OpenReference reads a reference table from YAML (.yaml, .yml) or from a
// CSV or XLSX table in either layout LoadReference accepts.
func OpenReference(ctx context.Context, path, name string, opts tabular.Options) (*ReferenceTable, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return LoadReferenceYAML(path)
	}
	t, err := tabular.OpenNamed(ctx, path, name, opts)
	if err != nil {
		return nil, err
	}
	return LoadReference(t)
}
