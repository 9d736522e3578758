// Package loader provides module resolution and module sources for a
// [wren.VM]: a resolver for relative imports, and sources that read modules
// from memory, from a directory tree or from a SQLite database.
package loader

import (
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"github.com/aspect-build/aspect-cli/wren/wren"
)

var log = commonlog.GetLogger("wren.loader")

// Source finds the source code of a module by its canonical name. A module
// that does not exist is reported with ok false and a nil error.
type Source interface {
	Lookup(name string) (source string, ok bool, err error)
}

// Resolve canonicalizes an import. Names starting with "./" or "../" are
// taken relative to the importing module; any other name is used as is. A
// relative name that climbs above the root does not resolve.
func Resolve(importer, name string) (string, bool) {
	if !strings.HasPrefix(name, "./") && !strings.HasPrefix(name, "../") {
		return name, true
	}
	resolved := path.Join(path.Dir(importer), name)
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", false
	}
	return resolved, true
}

// Loader connects a Source to a VM's module callbacks.
type Loader struct {
	src Source

	mu     sync.Mutex
	loaded []string
	err    error
}

// New creates a Loader reading from src.
func New(src Source) *Loader {
	return &Loader{src: src}
}

// Lookup reads from the Loader's source.
func (l *Loader) Lookup(name string) (string, bool, error) {
	return l.src.Lookup(name)
}

// Install sets the resolve and load callbacks of cfg.
func (l *Loader) Install(cfg *wren.Config) {
	cfg.ResolveModuleFn = func(_ *wren.VM, importer, name string) (string, bool) {
		return Resolve(importer, name)
	}
	cfg.LoadModuleFn = l.Load
}

// Load implements [wren.LoadModuleFn]. A source error fails the import and is
// kept for [Loader.Err].
func (l *Loader) Load(_ *wren.VM, name string) (wren.LoadModuleResult, bool) {
	src, ok, err := l.src.Lookup(name)
	if err != nil {
		log.Errorf("%s", err)
		l.mu.Lock()
		l.err = errors.Wrapf(err, "load module %q", name)
		l.mu.Unlock()
		return wren.LoadModuleResult{}, false
	}
	if !ok {
		log.Debugf("module %q not found", name)
		return wren.LoadModuleResult{}, false
	}
	return wren.LoadModuleResult{
		Source:     src,
		OnComplete: l.complete,
	}, true
}

func (l *Loader) complete(_ *wren.VM, name string, _ wren.LoadModuleResult) {
	log.Debugf("module %q compiled", name)
	l.mu.Lock()
	l.loaded = append(l.loaded, name)
	l.mu.Unlock()
}

// Loaded lists the modules compiled so far, in load order.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loaded...)
}

// Err returns the last error a source reported, if any.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Memory is a Source backed by a map from module name to source.
type Memory map[string]string

func (m Memory) Lookup(name string) (string, bool, error) {
	src, ok := m[name]
	return src, ok, nil
}

// Chain is a Source that tries each of its sources in order.
type Chain []Source

func (c Chain) Lookup(name string) (string, bool, error) {
	for _, s := range c {
		src, ok, err := s.Lookup(name)
		if err != nil || ok {
			return src, ok, err
		}
	}
	return "", false, nil
}
