package engine

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Channel maps a channel name, and optionally its canonical URL, to a
// local mirror directory.
type Channel struct {
	// Name is the bare channel name, e.g. "conda-forge"
	Name string `toml:"name"`

	// URL is the canonical remote URL the mirror replaces
	URL string `toml:"url,omitempty"`

	// Path is the local mirror directory containing <subdir>/repodata.json
	Path string `toml:"path"`
}

// Registry is the set of locally mirrored channels, loaded from a
// channels.toml file.
type Registry struct {
	Channels []Channel `toml:"channel"`
}

// LoadRegistry reads a channels.toml file. A missing file yields an
// empty registry so the engine degrades to file:// channels only.
func LoadRegistry(path string) (*Registry, error) {
	var reg Registry
	if _, err := toml.DecodeFile(path, &reg); err != nil {
		if os.IsNotExist(err) {
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("failed to parse channel registry %s: %w", path, err)
	}
	return &reg, nil
}

// Lookup returns the mirror entry for a channel name or canonical URL.
func (r *Registry) Lookup(channel string) (Channel, bool) {
	normalized := strings.TrimSuffix(channel, "/")
	for _, c := range r.Channels {
		if c.Name == normalized || strings.TrimSuffix(c.URL, "/") == normalized {
			return c, true
		}
	}
	return Channel{}, false
}

// LocalDir resolves a channel reference to a local directory. file://
// URLs resolve directly; anything else must be mapped by the registry.
func (r *Registry) LocalDir(channel string) (string, bool) {
	if strings.HasPrefix(channel, "file://") {
		if u, err := url.Parse(channel); err == nil && u.Path != "" {
			return filepath.FromSlash(u.Path), true
		}
		return strings.TrimPrefix(channel, "file://"), true
	}
	if c, ok := r.Lookup(channel); ok {
		return c.Path, true
	}
	return "", false
}
