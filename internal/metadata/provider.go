package metadata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Provider supplies entity definitions and custom table fragments
type Provider interface {
	EntityDefinitions(ctx context.Context) (*yaml.Node, error)
	CustomTableFragments(ctx context.Context) ([]Fragment, error)
}

// FileProvider reads metadata documents from directories.
// Every *.yaml, *.yml and *.json file in a directory is a document; documents
// are merged in file name order.
type FileProvider struct {
	MetadataDir  string
	FragmentsDir string
}

// NewFileProvider creates a provider over the given directories.
// fragmentsDir may be empty.
func NewFileProvider(metadataDir, fragmentsDir string) *FileProvider {
	return &FileProvider{
		MetadataDir:  metadataDir,
		FragmentsDir: fragmentsDir,
	}
}

// EntityDefinitions returns all metadata documents merged into one
func (p *FileProvider) EntityDefinitions(ctx context.Context) (*yaml.Node, error) {
	if p.MetadataDir == "" {
		return nil, fmt.Errorf("metadata directory is required")
	}
	docs, err := loadDir(ctx, p.MetadataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no metadata documents found in %s", p.MetadataDir)
	}
	var merged *yaml.Node
	for _, d := range docs {
		merged = mergeNode(merged, d.Node)
	}
	return merged, nil
}

// CustomTableFragments returns the custom table documents in file name order.
// A missing directory yields no fragments.
func (p *FileProvider) CustomTableFragments(ctx context.Context) ([]Fragment, error) {
	if p.FragmentsDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(p.FragmentsDir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	docs, err := loadDir(ctx, p.FragmentsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load custom tables: %w", err)
	}
	return docs, nil
}

// Load reads both directories into an override stack
func Load(ctx context.Context, p Provider) (Layers, error) {
	base, err := p.EntityDefinitions(ctx)
	if err != nil {
		return Layers{}, err
	}
	fragments, err := p.CustomTableFragments(ctx)
	if err != nil {
		return Layers{}, err
	}
	return Layers{Base: base, Overrides: fragments}, nil
}

func isDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// loadDir parses every document of a directory concurrently and returns them
// sorted by file name.
func loadDir(ctx context.Context, dir string) ([]Fragment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isDocument(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]Fragment, len(names))
	eg, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			node, err := ParseDocument(data)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			docs[i] = Fragment{Name: name, Node: node}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
