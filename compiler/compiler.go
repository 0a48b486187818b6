package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tl/compiler/back"
	"github.com/slowlang/tl/compiler/config"
	"github.com/slowlang/tl/compiler/front"
	"github.com/slowlang/tl/compiler/ir"
	"github.com/slowlang/tl/compiler/lex"
	"github.com/slowlang/tl/compiler/parse"
	"github.com/slowlang/tl/compiler/token"
)

const Ext = ".tl"

type (
	Compiler struct {
		cfg *config.Config
	}

	// Result is the outcome of compiling one of the files given to CompileFiles.
	Result struct {
		Index int
		Name  string

		IR      []byte
		Surface *front.Surface

		Err error
	}

	// ModuleError tags an error with the module file it happened in.
	ModuleError struct {
		Name string
		Err  error
	}

	positioned interface {
		Position() token.Pos
		Message() string
	}
)

var _ front.Backend = (*ir.Module)(nil)

func New(cfg *config.Config) *Compiler {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Compiler{cfg: cfg}
}

func CompileFile(ctx context.Context, name string) (obj []byte, err error) {
	return New(nil).CompileFile(ctx, name)
}

func Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	return New(nil).Compile(ctx, name, text)
}

func (c *Compiler) CompileFile(ctx context.Context, name string) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, ModuleError{Name: name, Err: errors.Wrap(err, "read file")}
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return c.Compile(ctx, name, text)
}

// Compile translates one module to IR text.
// Imports are resolved relative to name and the configured import paths.
func (c *Compiler) Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	obj, _, err = c.compile(ctx, name, text)
	return obj, err
}

func (c *Compiler) compile(ctx context.Context, name string, text []byte) (obj []byte, s *front.Surface, err error) {
	imp := newImporter(c, name)

	m, s, err := c.module(ctx, name, text, imp)
	if err != nil {
		return nil, nil, ModuleError{Name: name, Err: err}
	}

	obj, err = back.Compile(ctx, m)
	if err != nil {
		return nil, nil, ModuleError{Name: name, Err: errors.Wrap(err, "lower")}
	}

	return obj, s, nil
}

// module runs lexing, parsing and resolution of one module.
func (c *Compiler) module(ctx context.Context, name string, text []byte, imp front.Importer) (m *ir.Module, s *front.Surface, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile module", "name", name)
	defer tr.Finish("err", &err)

	toks, err := lex.Tokenize(ctx, text)
	if err != nil {
		return nil, nil, err
	}

	root, err := parse.Parse(ctx, toks)
	if err != nil {
		return nil, nil, err
	}

	m = ir.NewModule(ModuleName(name))

	f := front.New(m, front.WithName(name), front.WithImporter(imp))

	err = f.Resolve(ctx, root)
	if err != nil {
		return nil, nil, err
	}

	err = m.Finish()
	if err != nil {
		return nil, nil, errors.Wrap(err, "finish module")
	}

	return m, f.Surface(), nil
}

// CompileFiles compiles every file concurrently.
// Results are reported in the order of names as soon as all the preceding ones are reported.
// Module failures are reported and do not stop the rest.
// A report error cancels the remaining work and is returned.
func (c *Compiler) CompileFiles(ctx context.Context, names []string, report func(Result) error) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile files", "files", len(names))
	defer tr.Finish("err", &err)

	jobs := c.cfg.Build.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	done := make(chan Result)

	go func() {
		defer close(done)

		for i, name := range names {
			if gctx.Err() != nil {
				break
			}

			i, name := i, name

			g.Go(func() error {
				r := Result{Index: i, Name: name}

				r.IR, r.Surface, r.Err = c.compileFile(gctx, name)

				select {
				case done <- r:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}

		_ = g.Wait()
	}()

	pending := heap.Heap[Result]{Less: func(d []Result, i, j int) bool { return d[i].Index < d[j].Index }}
	next, failed := 0, 0

	for r := range done {
		pending.Push(r)

		for pending.Len() != 0 && pending.Data[0].Index == next {
			r := pending.Pop()
			next++

			if r.Err != nil {
				failed++
			}

			tr.V("jobs").Printw("module done", "index", r.Index, "name", r.Name, "err", r.Err, "waiting", pending.Len())

			if err != nil {
				continue
			}

			err = report(r)
			if err != nil {
				cancel()
			}
		}
	}

	if err != nil {
		return err
	}

	if next != len(names) {
		return errors.Wrap(ctx.Err(), "compile files")
	}

	if failed != 0 {
		return errors.New("%d of %d modules failed", failed, len(names))
	}

	return nil
}

func (c *Compiler) compileFile(ctx context.Context, name string) ([]byte, *front.Surface, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, nil, ModuleError{Name: name, Err: errors.Wrap(err, "read file")}
	}

	return c.compile(ctx, name, text)
}

// ModuleName is the file name without directory and extension.
func ModuleName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), Ext)
}

func (e ModuleError) Error() string {
	if _, ok := e.Err.(positioned); ok {
		return fmt.Sprintf("%v:%v", e.Name, e.Err)
	}

	return fmt.Sprintf("%v: %v", e.Name, e.Err)
}

func (e ModuleError) Unwrap() error { return e.Err }

// Locate finds the innermost module and the positioned error in the chain.
// pos is zero if the error has no source position.
func Locate(err error) (name string, pos token.Pos, msg string) {
	msg = err.Error()

	var me ModuleError

	for errors.As(err, &me) {
		name = me.Name
		msg = me.Err.Error()
		err = me.Err
	}

	var p positioned
	if errors.As(err, &p) {
		return name, p.Position(), p.Message()
	}

	return name, pos, msg
}
