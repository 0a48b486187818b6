package front

import (
	"context"
	"fmt"

	"github.com/slowlang/tl/compiler/ir"
	"github.com/slowlang/tl/compiler/token"
	"github.com/slowlang/tl/compiler/tp"
)

type (
	// Backend receives the semantic actions of the resolver.
	Backend interface {
		IntConst(bits int, v int64) ir.Value
		FloatConst(v float64) ir.Value
		CharConst(c byte) ir.Value
		StringConst(s string) ir.Value

		DeclareLocal(name string, t tp.Type) ir.Storage
		DeclareGlobal(name string, t tp.Type, init ir.Value) ir.Storage
		DeclareExternGlobal(name string, t tp.Type) ir.Storage
		Load(s ir.Storage) ir.Value
		Store(v ir.Value, s ir.Storage)

		Binary(op ir.Op, isInt bool, l, r ir.Value) ir.Value
		Unary(op ir.Op, isInt bool, x ir.Value) ir.Value

		DeclareFunc(name string, params []tp.Type, ret tp.Type, variadic bool) ir.Func
		BeginBody(f ir.Func)
		Param(f ir.Func, i int, name string) ir.Value
		EndBody(f ir.Func) error
		Call(f ir.Func, args []ir.Value) ir.Value
		Return(v ir.Value)

		PrimitiveType(name string) (tp.Type, bool)
	}

	// Importer resolves another module and returns what it exports.
	Importer interface {
		Import(ctx context.Context, from, path string) (*Surface, error)
	}

	// Surface is the set of symbols a module exports to its importers.
	Surface struct {
		Module string

		Funcs   []FuncSig
		Globals []GlobalSig
	}

	FuncSig struct {
		Name     string
		Params   []tp.Type
		Ret      tp.Type
		Variadic bool
		Defined  bool
	}

	GlobalSig struct {
		Name  string
		Sym   string
		Type  tp.Type
		Const bool
	}

	Symbol struct {
		Storage ir.Storage
		Type    tp.Type

		Const  bool
		Global bool

		Pos token.Pos

		imported bool
	}

	function struct {
		sig FuncSig
		f   ir.Func
		pos token.Pos

		imported bool
	}

	// Front resolves one module, driving a Backend.
	Front struct {
		b    Backend
		name string
		imp  Importer

		globals     map[string]*Symbol
		globalOrder []string

		locals map[string]*Symbol // nil outside of a function body

		funcs     map[string]*function
		funcOrder []*function

		cur *function

		imported map[string]struct{}
	}

	Option func(f *Front)

	// Error is a semantic error: undefined reference, constant reassignment, arity or type mismatch
	// and declarations in illegal positions.
	Error struct {
		Pos token.Pos
		Msg string

		Err error // cause reported by the backend or the importer
	}
)

func WithName(name string) Option {
	return func(f *Front) {
		f.name = name
	}
}

func WithImporter(imp Importer) Option {
	return func(f *Front) {
		f.imp = imp
	}
}

func New(b Backend, opts ...Option) *Front {
	f := &Front{
		b:        b,
		globals:  map[string]*Symbol{},
		funcs:    map[string]*function{},
		imported: map[string]struct{}{},
	}

	for _, o := range opts {
		o(f)
	}

	return f
}

func (f *Front) Name() string { return f.name }

// Surface returns the module's own functions and globals in declaration order.
func (f *Front) Surface() *Surface {
	s := &Surface{Module: f.name}

	for _, fn := range f.funcOrder {
		if fn.imported {
			continue
		}

		s.Funcs = append(s.Funcs, fn.sig)
	}

	for _, name := range f.globalOrder {
		sym := f.globals[name]
		if sym.imported {
			continue
		}

		s.Globals = append(s.Globals, GlobalSig{
			Name:  name,
			Sym:   sym.Storage.Ident(),
			Type:  sym.Type,
			Const: sym.Const,
		})
	}

	return s
}

// Global returns the global symbol bound to name.
func (f *Front) Global(name string) (*Symbol, bool) {
	s, ok := f.globals[name]
	return s, ok
}

func (s FuncSig) Type() tp.Func {
	return tp.Func{In: s.Params, Out: s.Ret, Variadic: s.Variadic}
}

func (s FuncSig) Same(x FuncSig) bool {
	return s.Name == x.Name && tp.Equal(s.Type(), x.Type())
}

func errorf(pos token.Pos, format string, args ...any) Error {
	return Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// wrapAt reports err at pos keeping it as the cause.
func wrapAt(pos token.Pos, err error) Error {
	return Error{Pos: pos, Msg: err.Error(), Err: err}
}

func (e Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Pos, e.Msg)
}

func (e Error) Position() token.Pos { return e.Pos }

func (e Error) Message() string { return e.Msg }

func (e Error) Unwrap() error { return e.Err }
