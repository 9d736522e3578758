package loader

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Ext is the file extension of a module on disk.
const Ext = ".wren"

// Dir is a Source that reads module "a/b" from the file a/b.wren below Root.
type Dir struct {
	Root string
}

func (d Dir) path(name string) (string, bool) {
	rel := filepath.FromSlash(name) + Ext
	if !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(d.Root, rel), true
}

func (d Dir) Lookup(name string) (string, bool, error) {
	p, ok := d.path(name)
	if !ok {
		return "", false, nil
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "read %s", p)
	}
	return string(data), true, nil
}

// Dirs builds a Chain that searches each directory in turn.
func Dirs(roots ...string) Chain {
	var c Chain
	for _, r := range roots {
		c = append(c, Dir{Root: r})
	}
	return c
}

// walkModules calls fn with the module name and path of every module file
// below root.
func walkModules(root string, fn func(name, path string) error) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != Ext {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel[:len(rel)-len(Ext)])
		return fn(name, p)
	})
}
