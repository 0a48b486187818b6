package front

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/slowlang/tl/compiler/ast"
	"github.com/slowlang/tl/compiler/ir"
	"github.com/slowlang/tl/compiler/tp"
)

var irOps = map[ast.Op]ir.Op{
	ast.Add: ir.Add,
	ast.Sub: ir.Sub,
	ast.Mul: ir.Mul,
	ast.Div: ir.Div,
	ast.Pos: ir.Pos,
	ast.Neg: ir.Neg,
}

// value resolves an expression which must produce a value.
func (f *Front) value(ctx context.Context, x ast.Node) (ir.Value, error) {
	v, err := f.expr(ctx, x)
	if err != nil {
		return nil, err
	}

	if tp.IsVoid(v.Type()) {
		return nil, errorf(x.Position(), "void value used in expression")
	}

	return v, nil
}

func (f *Front) expr(ctx context.Context, x ast.Node) (ir.Value, error) {
	switch x := x.(type) {
	case *ast.IntLit:
		v, err := parseInt(x.Text)
		if err != nil {
			return nil, errorf(x.Position(), "integer literal out of range: %s", x.Text)
		}

		return f.b.IntConst(32, v), nil
	case *ast.FloatLit:
		v, err := strconv.ParseFloat(x.Text, 64)
		if err != nil || v > math.MaxFloat32 {
			return nil, errorf(x.Position(), "float literal out of range: %s", x.Text)
		}

		return f.b.FloatConst(v), nil
	case *ast.CharLit:
		if len(x.Text) != 1 {
			return nil, errorf(x.Position(), "invalid character literal")
		}

		return f.b.CharConst(x.Text[0]), nil
	case *ast.StringLit:
		return f.b.StringConst(x.Text), nil
	case *ast.Ident:
		sym, ok := f.lookup(x.Name)
		if !ok {
			return nil, errorf(x.Position(), "undefined reference to variable: %s", x.Name)
		}

		return f.b.Load(sym.Storage), nil
	case *ast.BinaryOp:
		return f.binary(ctx, x)
	case *ast.UnaryOp:
		if x.Op == ast.Pos || x.Op == ast.Neg {
			return f.unary(ctx, x)
		}

		return nil, errorf(x.Position(), "unexpected %v statement in expression", x.Op)
	case *ast.FuncCall:
		return f.call(ctx, x)
	case *ast.Empty:
		return nil, errorf(x.Position(), "expected expression")
	}

	return nil, errorf(x.Position(), "unexpected %s", nodeName(x))
}

func (f *Front) binary(ctx context.Context, x *ast.BinaryOp) (ir.Value, error) {
	l, err := f.operand(ctx, x.Left)
	if err != nil {
		return nil, err
	}

	r, err := f.operand(ctx, x.Right)
	if err != nil {
		return nil, err
	}

	// division is always emitted in the floating form
	isInt := tp.IsInteger(l.Type()) && tp.IsInteger(r.Type()) && x.Op != ast.Div

	return f.b.Binary(irOps[x.Op], isInt, l, r), nil
}

func (f *Front) unary(ctx context.Context, x *ast.UnaryOp) (ir.Value, error) {
	v, err := f.operand(ctx, x.X)
	if err != nil {
		return nil, err
	}

	return f.b.Unary(irOps[x.Op], tp.IsInteger(v.Type()), v), nil
}

// operand resolves an arithmetic operand.
func (f *Front) operand(ctx context.Context, x ast.Node) (ir.Value, error) {
	v, err := f.value(ctx, x)
	if err != nil {
		return nil, err
	}

	if t := v.Type(); !tp.IsInteger(t) && !tp.IsFloat(t) {
		return nil, errorf(x.Position(), "invalid operand of type %s", tp.Name(t))
	}

	return v, nil
}

func (f *Front) call(ctx context.Context, x *ast.FuncCall) (ir.Value, error) {
	name := x.Callee.Name

	fn, ok := f.funcs[name]
	if !ok {
		return nil, errorf(x.Callee.Position(), "undefined reference to function: %s", name)
	}

	sig := fn.sig

	if len(x.Args) < len(sig.Params) || !sig.Variadic && len(x.Args) != len(sig.Params) {
		return nil, errorf(x.Position(), "invalid arguments for function: %s", name)
	}

	args := make([]ir.Value, len(x.Args))

	for i, a := range x.Args {
		v, err := f.value(ctx, a)
		if err != nil {
			return nil, err
		}

		if i < len(sig.Params) && !tp.Equal(v.Type(), sig.Params[i]) {
			return nil, mismatch(a.Position(), sig.Params[i], v.Type())
		}

		args[i] = v
	}

	return f.b.Call(fn.f, args), nil
}

// parseInt parses a decimal, hex or binary literal into a 32 bit pattern.
func parseInt(text string) (int64, error) {
	base := 10
	digits := text

	switch {
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		base, digits = 16, text[2:]
	case strings.HasPrefix(text, "0b"), strings.HasPrefix(text, "0B"):
		base, digits = 2, text[2:]
	}

	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, err
	}

	return int64(int32(uint32(v))), nil
}

func nodeName(x ast.Node) string {
	switch x.(type) {
	case *ast.TypeAnnotated:
		return "type annotation"
	case *ast.Assignment:
		return "assignment"
	case *ast.FuncDef:
		return "function definition"
	case *ast.TypeName:
		return "type name"
	case *ast.StmtSeq:
		return "statement block"
	}

	return "node"
}
