package layerfs

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// MountConfig describes one mount-table entry in a configuration file.
type MountConfig struct {
	// Point is the mount point in the base namespace.
	Point string `yaml:"point"`
	// Type selects the backend: "zip", "dir", "memory", or "os".
	Type string `yaml:"type"`
	// Source is the backend's data source: the archive path for "zip",
	// the host directory for "dir". Unused for "memory" and "os".
	Source string `yaml:"source,omitempty"`
}

// Config is the YAML mount-table configuration. Mount order in the file is
// mount-table order, which matters because classification is
// first-registered-match.
type Config struct {
	Mounts []MountConfig `yaml:"mounts"`
}

// LoadConfig decodes a YAML mount-table configuration.
func LoadConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode mount config: %w", err)
	}
	return &c, nil
}

// LoadConfigFile reads and decodes a YAML mount-table configuration file.
func LoadConfigFile(name string) (*Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadConfig(f)
}

// Build constructs a LayerFS over the given base backend with the
// configured mounts, in file order. Extra options are applied after the
// mounts.
func (c *Config) Build(base Backend, opts ...Option) (*LayerFS, error) {
	var all []Option
	for i, m := range c.Mounts {
		if m.Point == "" {
			return nil, fmt.Errorf("mount %d: missing point", i)
		}
		point, err := base.ParsePath(m.Point)
		if err != nil {
			return nil, fmt.Errorf("mount %d: parse point %q: %w", i, m.Point, err)
		}
		if !point.IsAbsolute() {
			return nil, fmt.Errorf("mount %d: point %q is not absolute", i, m.Point)
		}
		backend, err := m.backend()
		if err != nil {
			return nil, fmt.Errorf("mount %d (%s): %w", i, m.Point, err)
		}
		all = append(all, WithMount(point, backend))
	}
	all = append(all, opts...)
	return New(base, all...), nil
}

// backend constructs the backend for one mount entry.
func (m MountConfig) backend() (Backend, error) {
	switch m.Type {
	case "zip":
		if m.Source == "" {
			return nil, fmt.Errorf("zip mount requires a source archive")
		}
		return NewZipBackend(m.Source)
	case "dir":
		if m.Source == "" {
			return nil, fmt.Errorf("dir mount requires a source directory")
		}
		return NewAferoBackend(afero.NewBasePathFs(afero.NewOsFs(), m.Source)), nil
	case "memory", "mem":
		return NewAferoBackend(afero.NewMemMapFs()), nil
	case "os":
		return NewAferoBackend(afero.NewOsFs()), nil
	default:
		return nil, fmt.Errorf("unknown mount type %q", m.Type)
	}
}
