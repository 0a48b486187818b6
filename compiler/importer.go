package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tl/compiler/front"
)

// importer resolves the imports of one root module.
// It is not shared between goroutines.
type importer struct {
	c *Compiler

	cache map[string]*front.Surface
	stack []string
}

func newImporter(c *Compiler, root string) *importer {
	return &importer{
		c:     c,
		cache: map[string]*front.Surface{},
		stack: []string{filepath.Clean(root)},
	}
}

func (imp *importer) Import(ctx context.Context, from, path string) (s *front.Surface, err error) {
	file, err := imp.find(from, path)
	if err != nil {
		return nil, err
	}

	if s, ok := imp.cache[file]; ok {
		return s, nil
	}

	for i, f := range imp.stack {
		if f == file {
			cycle := append(append([]string{}, imp.stack[i:]...), file)

			return nil, errors.New("import cycle: %s", strings.Join(cycle, " -> "))
		}
	}

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "import", "from", from, "path", path, "file", file)
	defer tr.Finish("err", &err)

	text, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read module")
	}

	imp.stack = append(imp.stack, file)
	defer func() {
		imp.stack = imp.stack[:len(imp.stack)-1]
	}()

	_, s, err = imp.c.module(ctx, file, text, imp)
	if err != nil {
		return nil, ModuleError{Name: file, Err: err}
	}

	imp.cache[file] = s

	return s, nil
}

// find looks for the module next to the importing file and then in the import paths.
// The extension may be omitted.
func (imp *importer) find(from, path string) (string, error) {
	if path == "" {
		return "", errors.New("empty module path")
	}

	if filepath.Ext(path) != Ext {
		path += Ext
	}

	dirs := append([]string{filepath.Dir(from)}, imp.c.cfg.Build.ImportPaths...)

	if filepath.IsAbs(path) {
		dirs = []string{""}
	}

	for _, d := range dirs {
		file := filepath.Join(d, path)

		inf, err := os.Stat(file)
		switch {
		case err == nil && !inf.IsDir():
			return file, nil
		case err == nil, os.IsNotExist(err):
		default:
			return "", errors.Wrap(err, "stat %v", file)
		}
	}

	return "", errors.New("module not found: %s", strings.TrimSuffix(path, Ext))
}
