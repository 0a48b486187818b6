package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tl/compiler"
	"github.com/slowlang/tl/compiler/config"
	"github.com/slowlang/tl/compiler/format"
	"github.com/slowlang/tl/compiler/lex"
	"github.com/slowlang/tl/compiler/parse"
)

func main() {
	lexCmd := &cli.Command{
		Name:        "lex",
		Description: "print tokens of source files",
		Action:      lexAct,
		Args:        cli.Args{},
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print syntax trees of source files",
		Action:      parseAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("format,f", "sexpr", "output format: sexpr, source or yaml"),
		},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile modules to llvm assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("emit-ir", false, "write <out>/<module>.ll instead of printing"),
			cli.NewFlag("out,o", "", "output directory"),
			cli.NewFlag("config,c", "", "config file (default: nearest tl.toml)"),
			cli.NewFlag("jobs,j", 0, "modules compiled in parallel (default: GOMAXPROCS)"),
		},
	}

	app := &cli.Command{
		Name:        "tl",
		Description: "tl is a tool for managing tl source code",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			lexCmd,
			parseCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func lexAct(c *cli.Command) (err error) {
	ctx := rootContext()
	failed := 0

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			failed += printError(a, errors.Wrap(err, "read file"))
			continue
		}

		toks, err := lex.Tokenize(ctx, text)
		if err != nil {
			failed += printError(a, err)
			continue
		}

		for _, t := range toks {
			fmt.Printf("%s:%v: %v %s\n", a, t.Pos(), t.Kind, t.Source())
		}
	}

	return failures(failed, len(c.Args))
}

func parseAct(c *cli.Command) (err error) {
	ctx := rootContext()
	failed := 0

	f := c.String("format")

	switch f {
	case "sexpr", "source", "yaml":
	default:
		return errors.New("unsupported format: %v", f)
	}

	for _, a := range c.Args {
		x, err := parse.ParseFile(ctx, a)
		if err != nil {
			failed += printError(a, err)
			continue
		}

		var b []byte

		switch f {
		case "sexpr":
			b = append([]byte(x.String()), '\n')
		case "source":
			b, err = format.Format(ctx, nil, x)
		case "yaml":
			b, err = format.YAML(x)
		}
		if err != nil {
			failed += printError(a, errors.Wrap(err, "format"))
			continue
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return failures(failed, len(c.Args))
}

func compileAct(c *cli.Command) (err error) {
	ctx := rootContext()

	if len(c.Args) == 0 {
		return errors.New("no input files")
	}

	cfg, err := loadConfig(c.String("config"), c.Args[0])
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if v := cfg.Log.Verbosity; v != "" && c.String("verbosity") == "" {
		tlog.SetVerbosity(v)
	}

	if j := c.Int("jobs"); j != 0 {
		cfg.Build.Jobs = j
	}

	emit := cfg.Build.EmitIR || c.Bool("emit-ir")

	out := cfg.Build.OutDir
	if o := c.String("out"); o != "" {
		out = o
	}

	tlog.V("config").Printw("compile", "files", len(c.Args), "config", cfg.Path, "emit_ir", emit, "out", out, "jobs", cfg.Build.Jobs)

	comp := compiler.New(cfg)

	return comp.CompileFiles(ctx, c.Args, func(r compiler.Result) error {
		if r.Err != nil {
			printError(r.Name, r.Err)
			return nil
		}

		if !emit {
			_, err := os.Stdout.Write(r.IR)
			if err != nil {
				return errors.Wrap(err, "write")
			}

			return nil
		}

		dir := out
		if dir == "" {
			dir = filepath.Dir(r.Name)
		}

		err := os.MkdirAll(dir, 0o755)
		if err != nil {
			return errors.Wrap(err, "create out dir")
		}

		path := filepath.Join(dir, compiler.ModuleName(r.Name)+".ll")

		err = os.WriteFile(path, r.IR, 0o644)
		if err != nil {
			return errors.Wrap(err, "write ir")
		}

		tlog.V("out").Printw("written", "module", r.Name, "path", path, "size", len(r.IR))

		return nil
	})
}

func loadConfig(path, first string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	return config.FindAndLoad(filepath.Dir(first))
}

func rootContext() context.Context {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	return ctx
}

// printError prints the error in the file:row:col: message form and returns 1.
func printError(name string, err error) int {
	file, pos, msg := compiler.Locate(err)
	if file == "" {
		file = name
	}

	if pos.Valid() {
		fmt.Fprintf(os.Stderr, "%s:%v: %s\n", file, pos, msg)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(os.Args[0]), msg)
	}

	return 1
}

func failures(failed, total int) error {
	if failed == 0 {
		return nil
	}

	return errors.New("%d of %d files failed", failed, total)
}
