package back

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tl/compiler/ir"
	"github.com/slowlang/tl/compiler/tp"
)

type (
	compiler struct {
		m *ir.Module
	}
)

// Compile renders a finished module as LLVM assembly.
func Compile(ctx context.Context, m *ir.Module) (b []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "back: compile module", "name", m.Name)
	defer tr.Finish("err", &err)

	if !m.Finished() {
		return nil, errors.New("module %s is not finished", m.Name)
	}

	c := &compiler{m: m}

	b = hfmt.Appendf(b, "; ModuleID = '%s'\nsource_filename = %s\n", m.Name, quote(m.Name))

	if len(m.Strings) != 0 {
		b = append(b, '\n')
	}

	for i, s := range m.Strings {
		b = hfmt.Appendf(b, "@.str.%d = private unnamed_addr constant [%d x i8] c%s\n", i, len(s)+1, cstring(s))
	}

	if len(m.Globals) != 0 {
		b = append(b, '\n')
	}

	for _, g := range m.Globals {
		b = c.global(b, g)
	}

	if m.Init != nil {
		b = hfmt.Appendf(b, "\n@llvm.global_ctors = appending global [1 x { i32, void ()*, i8* }] [{ i32, void ()*, i8* } { i32 65535, void ()* %s, i8* null }]\n", ident('@', m.Init.Name))
	}

	for _, f := range m.Funcs {
		b = append(b, '\n')

		if !f.Defined {
			b = c.declare(b, f)
			continue
		}

		b, err = c.define(b, f, "")
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	if m.Init != nil {
		b = append(b, '\n')

		b, err = c.define(b, m.Init, "internal ")
		if err != nil {
			return nil, errors.Wrap(err, "init")
		}
	}

	if tr.If("dump_ll") {
		tr.Printw("compiled", "text", b)
	}

	return b, nil
}

func (c *compiler) global(b []byte, g *ir.Global) []byte {
	if g.Extern {
		return hfmt.Appendf(b, "%s = external global %v\n", ident('@', g.Sym), g.T)
	}

	init := zero(g.T)
	if g.Init != nil {
		init = c.val(g.Init)
	}

	return hfmt.Appendf(b, "%s = global %v %s\n", ident('@', g.Sym), g.T, init)
}

func (c *compiler) declare(b []byte, f *ir.Function) []byte {
	sig := f.Signature

	b = hfmt.Appendf(b, "declare %v %s(", sig.Out, ident('@', f.Name))

	for i, t := range sig.In {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%v", t)
	}

	b = variadic(b, sig)

	return append(b, ")\n"...)
}

func (c *compiler) define(b []byte, f *ir.Function, linkage string) (_ []byte, err error) {
	sig := f.Signature

	b = hfmt.Appendf(b, "define %s%v %s(", linkage, sig.Out, ident('@', f.Name))

	for i, p := range f.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%v %s", p.T, c.val(p))
	}

	b = variadic(b, sig)
	b = append(b, ") {\n"...)

	for i, blk := range f.Blocks {
		if i != 0 {
			b = append(b, '\n')
		}

		b = hfmt.Appendf(b, "%s:\n", blk.Label)

		for _, x := range blk.Code {
			b, err = c.instr(b, x)
			if err != nil {
				return nil, errors.Wrap(err, "block %v", blk.Label)
			}
		}
	}

	return append(b, "}\n"...), nil
}

func (c *compiler) instr(b []byte, x ir.Instr) ([]byte, error) {
	switch x := x.(type) {
	case ir.Alloca:
		return hfmt.Appendf(b, "  %s = alloca %v\n", ref(x.L), x.L.T), nil
	case ir.Load:
		t := x.Src.Type()
		return hfmt.Appendf(b, "  %s = load %v, %v* %s\n", c.val(x.Dst), t, t, ref(x.Src)), nil
	case ir.Store:
		t := x.Dst.Type()
		return hfmt.Appendf(b, "  store %v %s, %v* %s\n", t, c.val(x.Val), t, ref(x.Dst)), nil
	case ir.BinOp:
		return hfmt.Appendf(b, "  %s = %s %v %s, %s\n", c.val(x.Dst), x.Code, x.Dst.T, c.val(x.L), c.val(x.R)), nil
	case ir.Negate:
		if tp.IsFloat(x.Dst.T) {
			return hfmt.Appendf(b, "  %s = fneg %v %s\n", c.val(x.Dst), x.Dst.T, c.val(x.X)), nil
		}

		return hfmt.Appendf(b, "  %s = sub %v 0, %s\n", c.val(x.Dst), x.Dst.T, c.val(x.X)), nil
	case ir.Conv:
		return hfmt.Appendf(b, "  %s = %s %v %s to %v\n", c.val(x.Dst), x.Code, x.X.Type(), c.val(x.X), x.Dst.T), nil
	case ir.Call:
		return c.call(b, x), nil
	case ir.Ret:
		if x.X == nil {
			return append(b, "  ret void\n"...), nil
		}

		return hfmt.Appendf(b, "  ret %v %s\n", x.X.Type(), c.val(x.X)), nil
	case ir.Unreachable:
		return append(b, "  unreachable\n"...), nil
	}

	return nil, errors.New("unsupported instruction: %T", x)
}

func (c *compiler) call(b []byte, x ir.Call) []byte {
	sig := x.F.Signature

	b = append(b, "  "...)

	if x.Dst != nil {
		b = hfmt.Appendf(b, "%s = ", c.val(x.Dst))
	}

	if sig.Variadic {
		b = hfmt.Appendf(b, "call %v %s(", sig, ident('@', x.F.Name))
	} else {
		b = hfmt.Appendf(b, "call %v %s(", sig.Out, ident('@', x.F.Name))
	}

	for i, a := range x.Args {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%v %s", a.Type(), c.val(a))
	}

	return append(b, ")\n"...)
}

func (c *compiler) val(v ir.Value) string {
	switch v := v.(type) {
	case ir.Const:
		if tp.IsFloat(v.T) {
			return float(v.Float)
		}

		return fmt.Sprintf("%d", v.Int)
	case ir.StringRef:
		n := len(c.m.Strings[v.Index]) + 1
		return fmt.Sprintf("getelementptr inbounds ([%d x i8], [%d x i8]* @.str.%d, i32 0, i32 0)", n, n, v.Index)
	case *ir.Reg:
		return fmt.Sprintf("%%.t%d", v.ID)
	case *ir.Param:
		return ident('%', v.Name)
	}

	panic(fmt.Sprintf("unsupported value: %T", v))
}

func ref(s ir.Storage) string {
	switch s := s.(type) {
	case *ir.Local:
		return ident('%', fmt.Sprintf("%s.addr%d", s.Name, s.ID))
	case *ir.Global:
		return ident('@', s.Sym)
	}

	panic(fmt.Sprintf("unsupported storage: %T", s))
}

func variadic(b []byte, sig tp.Func) []byte {
	if !sig.Variadic {
		return b
	}

	if len(sig.In) != 0 {
		b = append(b, ", "...)
	}

	return append(b, "..."...)
}

// float prints a float constant in the exact hexadecimal double form.
func float(v float64) string {
	return fmt.Sprintf("0x%016X", math.Float64bits(float64(float32(v))))
}

func zero(t tp.Type) string {
	switch t.(type) {
	case tp.Float:
		return float(0)
	case tp.Ptr:
		return "null"
	}

	return "0"
}

func ident(sigil byte, name string) string {
	for i := 0; i < len(name); i++ {
		c := name[i]

		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '.' || c == '$' || c == '-' || i != 0 && c >= '0' && c <= '9' {
			continue
		}

		return string(sigil) + quote(name)
	}

	return string(sigil) + name
}

func quote(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		c := s[i]

		if c == '"' || c == '\\' || c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&b, "\\%02X", c)
			continue
		}

		b.WriteByte(c)
	}

	b.WriteByte('"')

	return b.String()
}

func cstring(s string) string {
	return quote(s + "\x00")
}
