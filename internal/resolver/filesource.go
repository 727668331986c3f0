package resolver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DirectorySource serves dependency metadata from a directory tree of
// manifest files: <root>/<identity key>.yml. The metadata is static,
// so the ref is ignored.
type DirectorySource struct {
	root string
}

// NewDirectorySource creates a source rooted at the given directory.
func NewDirectorySource(root string) *DirectorySource {
	return &DirectorySource{root: root}
}

// manifestDoc mirrors the manifest file shape.
type manifestDoc struct {
	Dependencies []Declaration     `yaml:"dependencies,omitempty"`
	Versions     []string          `yaml:"versions,omitempty"`
	Tags         map[string]string `yaml:"tags,omitempty"`
	Commits      []string          `yaml:"commits,omitempty"`
}

// FetchManifest implements MetadataSource. A missing manifest file
// means the dependency has no published metadata, not an error.
func (s *DirectorySource) FetchManifest(ctx context.Context, identity Identity, ref string) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.root, filepath.FromSlash(identity.Key())+".yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var doc manifestDoc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	return &Manifest{
		Dependencies: doc.Dependencies,
		Versions:     doc.Versions,
		Tags:         doc.Tags,
		Commits:      doc.Commits,
	}, nil
}

var _ MetadataSource = (*DirectorySource)(nil)
