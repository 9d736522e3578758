// Package manifest handles wren.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/aspect-build/aspect-cli/wren/wren"
)

// FileName is the name of the manifest file.
const FileName = "wren.toml"

// Manifest represents a wren.toml project configuration.
type Manifest struct {
	Project     Project     `toml:"project"`
	Heap        Heap        `toml:"heap"`
	Modules     Modules     `toml:"modules"`
	Diagnostics Diagnostics `toml:"diagnostics"`

	// Dir is the directory containing the wren.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// Heap configures the collector. Zero values keep the VM defaults.
type Heap struct {
	InitialSize   int `toml:"initial-size"`
	MinSize       int `toml:"min-size"`
	GrowthPercent int `toml:"growth-percent"`
	ArenaSize     int `toml:"arena-size"`
}

// Modules configures where imports are found.
type Modules struct {
	Dirs     []string `toml:"dirs"`
	Database string   `toml:"database"`
}

// Diagnostics configures diagnostic output.
type Diagnostics struct {
	CBOROutput string `toml:"cbor-output"`
}

// Load parses a wren.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(dir, data)
}

// Parse decodes manifest data as if read from dir.
func Parse(dir string, data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filepath.Join(dir, FileName), err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s in %s", undecoded[0], filepath.Join(dir, FileName))
	}
	if m.Heap.InitialSize < 0 || m.Heap.MinSize < 0 || m.Heap.GrowthPercent < 0 || m.Heap.ArenaSize < 0 {
		return nil, fmt.Errorf("heap settings in %s must not be negative", filepath.Join(dir, FileName))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Modules.Dirs) == 0 {
		m.Modules.Dirs = []string{"."}
	}
	if m.Project.Entry == "" {
		m.Project.Entry = "main.wren"
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a wren.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Apply copies the heap policy into cfg. Unset values leave cfg unchanged.
func (m *Manifest) Apply(cfg *wren.Config) {
	if m.Heap.InitialSize > 0 {
		cfg.InitialHeapSize = m.Heap.InitialSize
	}
	if m.Heap.MinSize > 0 {
		cfg.MinHeapSize = m.Heap.MinSize
	}
	if m.Heap.GrowthPercent > 0 {
		cfg.HeapGrowthPercent = m.Heap.GrowthPercent
	}
	if m.Heap.ArenaSize > 0 {
		cfg.ArenaSize = m.Heap.ArenaSize
	}
}

// ModuleDirPaths returns absolute paths for the configured module
// directories.
func (m *Manifest) ModuleDirPaths() []string {
	var paths []string
	for _, d := range m.Modules.Dirs {
		paths = append(paths, m.resolve(d))
	}
	return paths
}

// DatabasePath returns the absolute path of the module database, or "" when
// none is configured.
func (m *Manifest) DatabasePath() string {
	if m.Modules.Database == "" {
		return ""
	}
	return m.resolve(m.Modules.Database)
}

// EntryPath returns the absolute path of the entry script.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Project.Entry)
}

// CBOROutputPath returns the absolute path for recorded diagnostics, or ""
// when none is configured.
func (m *Manifest) CBOROutputPath() string {
	if m.Diagnostics.CBOROutput == "" {
		return ""
	}
	return m.resolve(m.Diagnostics.CBOROutput)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
