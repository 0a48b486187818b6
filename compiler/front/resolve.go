package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/tl/compiler/ast"
	"github.com/slowlang/tl/compiler/ir"
	"github.com/slowlang/tl/compiler/token"
	"github.com/slowlang/tl/compiler/tp"
)

// Resolve walks the module once, emitting code through the Backend.
func (f *Front) Resolve(ctx context.Context, root *ast.StmtSeq) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: resolve", "module", f.name)
	defer tr.Finish("err", &err)

	err = f.stmts(ctx, root)
	if err != nil {
		return err
	}

	tr.V("scope").Printw("resolved", "globals", len(f.globals), "funcs", len(f.funcs))

	return nil
}

func (f *Front) stmts(ctx context.Context, seq *ast.StmtSeq) error {
	for _, x := range seq.Stmts {
		err := f.stmt(ctx, x)
		if err != nil {
			return err
		}
	}

	return nil
}

func (f *Front) stmt(ctx context.Context, x ast.Node) (err error) {
	switch x := x.(type) {
	case *ast.FuncDef:
		return f.funcdef(ctx, x)
	case *ast.Assignment:
		return f.assign(ctx, x)
	case *ast.StmtSeq:
		return f.stmts(ctx, x)
	case *ast.Empty:
		return nil
	case *ast.TypeAnnotated:
		return errorf(x.Position(), "declaration requires let or const")
	case *ast.UnaryOp:
		switch x.Op {
		case ast.Declare, ast.DeclareConst:
			return f.declare(ctx, x)
		case ast.Return:
			return f.ret(ctx, x)
		case ast.Import:
			return f.importModule(ctx, x)
		}
	}

	_, err = f.expr(ctx, x)

	return err
}

func (f *Front) declare(ctx context.Context, x *ast.UnaryOp) (err error) {
	isConst := x.Op == ast.DeclareConst
	global := f.locals == nil

	target, init := x.X, ast.Node(nil)

	if a, ok := target.(*ast.Assignment); ok {
		target, init = a.Target, a.Value
	}

	id, typ, err := f.target(target)
	if err != nil {
		return err
	}

	if init == nil {
		switch {
		case isConst:
			return errorf(x.Position(), "constant declaration requires an initializer")
		case typ == nil:
			return errorf(x.Position(), "cannot declare untyped variable")
		case global:
			return errorf(x.Position(), "global declaration requires an initializer")
		}
	}

	scope := f.locals
	if global {
		scope = f.globals
	}

	if old, ok := scope[id.Name]; ok && old.Const {
		return errorf(id.Position(), "cannot redefine constant: %s", id.Name)
	}

	var v ir.Value

	if init != nil {
		v, err = f.value(ctx, init)
		if err != nil {
			return err
		}

		switch {
		case typ == nil:
			typ = v.Type()
		case !tp.Equal(typ, v.Type()):
			return mismatch(init.Position(), typ, v.Type())
		}
	}

	sym := &Symbol{
		Type:   typ,
		Const:  isConst,
		Global: global,
		Pos:    id.Position(),
	}

	if global {
		sym.Storage = f.b.DeclareGlobal(id.Name, typ, v)

		if _, ok := scope[id.Name]; !ok {
			f.globalOrder = append(f.globalOrder, id.Name)
		}
	} else {
		sym.Storage = f.b.DeclareLocal(id.Name, typ)

		if v != nil {
			f.b.Store(v, sym.Storage)
		}
	}

	scope[id.Name] = sym

	tlog.V("scope").Printw("declare", "name", id.Name, "type", tp.Name(typ), "const", isConst, "global", global, "pos", id.Position(), "from", loc.Caller(1))

	return nil
}

func (f *Front) assign(ctx context.Context, x *ast.Assignment) (err error) {
	id, typ, err := f.target(x.Target)
	if err != nil {
		return err
	}

	sym, ok := f.lookup(id.Name)
	if !ok {
		return errorf(id.Position(), "undefined reference to variable: %s", id.Name)
	}

	if sym.Const {
		return errorf(id.Position(), "cannot redefine constant: %s", id.Name)
	}

	if typ != nil && !tp.Equal(typ, sym.Type) {
		return mismatch(x.Target.Position(), sym.Type, typ)
	}

	v, err := f.value(ctx, x.Value)
	if err != nil {
		return err
	}

	if !tp.Equal(v.Type(), sym.Type) {
		return mismatch(x.Value.Position(), sym.Type, v.Type())
	}

	f.b.Store(v, sym.Storage)

	return nil
}

// target returns the declared name and the annotated type, if any.
func (f *Front) target(x ast.Node) (id *ast.Ident, typ tp.Type, err error) {
	switch x := x.(type) {
	case *ast.Ident:
		return x, nil, nil
	case *ast.TypeAnnotated:
		id, ok := x.Target.(*ast.Ident)
		if !ok {
			return nil, nil, errorf(x.Target.Position(), "expected identifier")
		}

		typ, err = f.typeOf(x.Type)
		if err != nil {
			return nil, nil, err
		}

		if tp.IsVoid(typ) {
			return nil, nil, errorf(x.Type.Position(), "cannot declare variable of type void")
		}

		return id, typ, nil
	}

	return nil, nil, errorf(x.Position(), "expected identifier")
}

func (f *Front) funcdef(ctx context.Context, x *ast.FuncDef) (err error) {
	if f.cur != nil {
		return errorf(x.Position(), "nested function definition")
	}

	name := x.Name.Name

	sig := FuncSig{
		Name:     name,
		Variadic: x.Variadic,
		Defined:  x.Body != nil,
	}

	seen := map[string]struct{}{}

	for _, p := range x.Params {
		id, ok := p.Target.(*ast.Ident)
		if !ok {
			return errorf(p.Position(), "expected identifier")
		}

		if _, ok := seen[id.Name]; ok {
			return errorf(id.Position(), "duplicate parameter: %s", id.Name)
		}

		seen[id.Name] = struct{}{}

		t, err := f.typeOf(p.Type)
		if err != nil {
			return err
		}

		if tp.IsVoid(t) {
			return errorf(p.Type.Position(), "invalid parameter type: void")
		}

		sig.Params = append(sig.Params, t)
	}

	sig.Ret, err = f.typeOf(x.Return)
	if err != nil {
		return err
	}

	if x.Variadic && x.Body != nil {
		return errorf(x.Position(), "variadic function must be external: %s", name)
	}

	fn, ok := f.funcs[name]

	switch {
	case ok && !fn.sig.Same(sig):
		return errorf(x.Name.Position(), "conflicting declaration of function: %s", name)
	case ok && fn.sig.Defined && x.Body != nil:
		return errorf(x.Name.Position(), "redefinition of function: %s", name)
	case !ok:
		fn = &function{
			sig: sig,
			f:   f.b.DeclareFunc(name, sig.Params, sig.Ret, sig.Variadic),
			pos: x.Name.Position(),
		}

		f.funcs[name] = fn
		f.funcOrder = append(f.funcOrder, fn)

		tlog.V("scope").Printw("declare func", "name", name, "sig", sig.Type().String(), "pos", fn.pos, "from", loc.Caller(1))
	}

	if x.Body == nil {
		return nil
	}

	fn.sig.Defined = true

	return f.body(ctx, fn, x)
}

func (f *Front) body(ctx context.Context, fn *function, x *ast.FuncDef) (err error) {
	f.cur = fn
	f.locals = map[string]*Symbol{}

	defer func() {
		f.cur = nil
		f.locals = nil
	}()

	f.b.BeginBody(fn.f)

	for i, p := range x.Params {
		id := p.Target.(*ast.Ident)
		t := fn.sig.Params[i]

		st := f.b.DeclareLocal(id.Name, t)
		f.b.Store(f.b.Param(fn.f, i, id.Name), st)

		f.locals[id.Name] = &Symbol{Storage: st, Type: t, Pos: id.Position()}
	}

	err = f.stmts(ctx, x.Body)
	if err != nil {
		return err
	}

	tlog.V("scope").Printw("leave body", "func", fn.sig.Name, "locals", len(f.locals), "from", loc.Caller(1))

	err = f.b.EndBody(fn.f)
	if err != nil {
		return wrapAt(x.Position(), err)
	}

	return nil
}

func (f *Front) ret(ctx context.Context, x *ast.UnaryOp) (err error) {
	if f.cur == nil {
		return errorf(x.Position(), "return outside function")
	}

	out := f.cur.sig.Ret

	if _, ok := x.X.(*ast.Empty); ok {
		if !tp.IsVoid(out) {
			return errorf(x.Position(), "missing return value in function: %s", f.cur.sig.Name)
		}

		f.b.Return(nil)

		return nil
	}

	if tp.IsVoid(out) {
		return errorf(x.X.Position(), "unexpected return value in void function: %s", f.cur.sig.Name)
	}

	v, err := f.value(ctx, x.X)
	if err != nil {
		return err
	}

	if !tp.Equal(v.Type(), out) {
		return mismatch(x.X.Position(), out, v.Type())
	}

	f.b.Return(v)

	return nil
}

func (f *Front) importModule(ctx context.Context, x *ast.UnaryOp) (err error) {
	if f.cur != nil {
		return errorf(x.Position(), "import inside function")
	}

	if f.imp == nil {
		return errorf(x.Position(), "imports are not supported")
	}

	path := x.X.(*ast.StringLit).Text

	if _, ok := f.imported[path]; ok {
		return nil
	}

	s, err := f.imp.Import(ctx, f.name, path)
	if err != nil {
		var pos interface{ Position() token.Pos }
		if errors.As(err, &pos) {
			return errors.Wrap(err, "import %q", path)
		}

		return wrapAt(x.Position(), err)
	}

	f.imported[path] = struct{}{}

	return f.merge(x.Position(), s)
}

// merge binds the imported surface into the module tables.
func (f *Front) merge(pos token.Pos, s *Surface) error {
	for _, sig := range s.Funcs {
		fn, ok := f.funcs[sig.Name]

		switch {
		case ok && !fn.sig.Same(sig):
			return errorf(pos, "conflicting declaration of function: %s", sig.Name)
		case ok && fn.sig.Defined && sig.Defined && !fn.imported:
			return errorf(pos, "redefinition of function: %s", sig.Name)
		case ok:
			fn.sig.Defined = fn.sig.Defined || sig.Defined
			continue
		}

		fn = &function{
			sig:      sig,
			f:        f.b.DeclareFunc(sig.Name, sig.Params, sig.Ret, sig.Variadic),
			pos:      pos,
			imported: true,
		}

		f.funcs[sig.Name] = fn
		f.funcOrder = append(f.funcOrder, fn)
	}

	for _, g := range s.Globals {
		old, ok := f.globals[g.Name]

		switch {
		case ok && old.imported && old.Storage.Ident() == g.Sym && tp.Equal(old.Type, g.Type):
			continue
		case ok && old.Const:
			return errorf(pos, "cannot redefine constant: %s", g.Name)
		case ok:
			return errorf(pos, "conflicting declaration of variable: %s", g.Name)
		}

		f.globals[g.Name] = &Symbol{
			Storage:  f.b.DeclareExternGlobal(g.Sym, g.Type),
			Type:     g.Type,
			Const:    g.Const,
			Global:   true,
			Pos:      pos,
			imported: true,
		}

		f.globalOrder = append(f.globalOrder, g.Name)
	}

	tlog.V("scope").Printw("import", "module", s.Module, "funcs", len(s.Funcs), "globals", len(s.Globals), "from", loc.Caller(1))

	return nil
}

func (f *Front) lookup(name string) (*Symbol, bool) {
	if s, ok := f.locals[name]; ok {
		return s, true
	}

	s, ok := f.globals[name]

	return s, ok
}

func (f *Front) typeOf(n *ast.TypeName) (tp.Type, error) {
	t, ok := f.b.PrimitiveType(n.Name)
	if !ok {
		return nil, errorf(n.Position(), "unknown type: %s", n.Name)
	}

	return t, nil
}

func mismatch(pos token.Pos, exp, got tp.Type) Error {
	return errorf(pos, "type mismatch: expected %s, got %s", tp.Name(exp), tp.Name(got))
}
