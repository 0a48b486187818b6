package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/tl/compiler/ast"
	"github.com/slowlang/tl/compiler/token"
)

// Format prints x as source text which parses back to the same tree.
func Format(ctx context.Context, b []byte, x ast.Node) ([]byte, error) {
	if seq, ok := x.(*ast.StmtSeq); ok {
		return formatStmts(ctx, b, seq, 0)
	}

	return formatStmt(ctx, b, x, 0)
}

func formatStmts(ctx context.Context, b []byte, x *ast.StmtSeq, d int) (_ []byte, err error) {
	for i, s := range x.Stmts {
		_, isFunc := s.(*ast.FuncDef)

		if i != 0 && (isFunc || isFuncDef(x.Stmts[i-1])) {
			b = append(b, '\n')
		}

		b, err = formatStmt(ctx, b, s, d)
		if err != nil {
			return nil, errors.Wrap(err, "stmt %d", i)
		}
	}

	return b, nil
}

func formatStmt(ctx context.Context, b []byte, x ast.Node, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.FuncDef:
		return formatFunc(ctx, b, x, d)
	case *ast.UnaryOp:
		switch x.Op {
		case ast.Declare:
			b = app(b, d, "let ")
		case ast.DeclareConst:
			b = app(b, d, "const ")
		case ast.Return:
			b = app(b, d, "return")

			if _, ok := x.X.(*ast.Empty); ok {
				return append(b, ";\n"...), nil
			}

			b = append(b, ' ')
		case ast.Import:
			b = app(b, d, "import ")
		default:
			b = app(b, d, "")
		}

		if x.Op.Arith() {
			b, err = formatExpr(ctx, b, x)
		} else {
			b, err = formatExpr(ctx, b, x.X)
		}
		if err != nil {
			return nil, errors.Wrap(err, "%v", x.Op)
		}
	case *ast.StmtSeq:
		return formatStmts(ctx, b, x, d)
	default:
		b = app(b, d, "")

		b, err = formatExpr(ctx, b, x)
		if err != nil {
			return nil, err
		}
	}

	return append(b, ";\n"...), nil
}

func formatFunc(ctx context.Context, b []byte, x *ast.FuncDef, d int) (_ []byte, err error) {
	b = app(b, d, "def %s(", x.Name.Name)

	for i, p := range x.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b, err = formatExpr(ctx, b, p)
		if err != nil {
			return nil, errors.Wrap(err, "param %d", i)
		}
	}

	if x.Variadic {
		if len(x.Params) != 0 {
			b = append(b, ", "...)
		}

		b = append(b, "..."...)
	}

	b = hfmt.Appendf(b, "): %s", x.Return.Name)

	if x.Body == nil {
		return append(b, ";\n"...), nil
	}

	b = append(b, " {\n"...)

	b, err = formatStmts(ctx, b, x.Body, d+1)
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatExpr(ctx context.Context, b []byte, x ast.Node) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.Ident:
		b = append(b, x.Name...)
	case *ast.IntLit:
		b = append(b, x.Text...)
	case *ast.FloatLit:
		b = append(b, x.Text...)
	case *ast.CharLit:
		b = append(b, token.Quote(x.Text, '\'')...)
	case *ast.StringLit:
		b = append(b, token.Quote(x.Text, '"')...)
	case *ast.TypeName:
		b = append(b, x.Name...)
	case *ast.Empty:
	case *ast.TypeAnnotated:
		b, err = formatExpr(ctx, b, x.Target)
		if err != nil {
			return nil, errors.Wrap(err, "target")
		}

		b = hfmt.Appendf(b, ": %s", x.Type.Name)
	case *ast.Assignment:
		b, err = formatExpr(ctx, b, x.Target)
		if err != nil {
			return nil, errors.Wrap(err, "target")
		}

		b = append(b, " = "...)

		b, err = formatExpr(ctx, b, x.Value)
		if err != nil {
			return nil, errors.Wrap(err, "value")
		}
	case *ast.BinaryOp:
		b, err = formatOperand(ctx, b, x.Left, prec(x.Op) > prec(x.Left))
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = hfmt.Appendf(b, " %s ", opSpelling(x.Op))

		b, err = formatOperand(ctx, b, x.Right, prec(x.Op) >= prec(x.Right))
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	case *ast.UnaryOp:
		if !x.Op.Arith() {
			return nil, errors.New("unsupported unary op in expression: %v", x.Op)
		}

		b = append(b, opSpelling(x.Op)...)

		_, bin := x.X.(*ast.BinaryOp)

		b, err = formatOperand(ctx, b, x.X, bin)
		if err != nil {
			return nil, errors.Wrap(err, "operand")
		}
	case *ast.FuncCall:
		b = hfmt.Appendf(b, "%s(", x.Callee.Name)

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(ctx, b, a)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

func formatOperand(ctx context.Context, b []byte, x ast.Node, paren bool) (_ []byte, err error) {
	if u, ok := x.(*ast.UnaryOp); ok && u.Op.Arith() {
		// unary operators take the whole expression to their right
		paren = true
	}

	if paren {
		b = append(b, '(')
	}

	b, err = formatExpr(ctx, b, x)
	if err != nil {
		return nil, err
	}

	if paren {
		b = append(b, ')')
	}

	return b, nil
}

func prec(x any) int {
	var op ast.Op

	switch x := x.(type) {
	case ast.Op:
		op = x
	case *ast.BinaryOp:
		op = x.Op
	default:
		return 3
	}

	switch op {
	case ast.Add, ast.Sub:
		return 1
	case ast.Mul, ast.Div:
		return 2
	}

	return 3
}

func opSpelling(op ast.Op) string {
	switch op {
	case ast.Add, ast.Pos:
		return "+"
	case ast.Sub, ast.Neg:
		return "-"
	case ast.Mul:
		return "*"
	case ast.Div:
		return "/"
	}

	return op.String()
}

func isFuncDef(x ast.Node) bool {
	_, ok := x.(*ast.FuncDef)
	return ok
}

// Tokens reconstructs source text from a token stream.
// Row breaks are kept, tokens of one row are separated by a space.
func Tokens(b []byte, toks []token.Token) []byte {
	row := 0

	for i, t := range toks {
		if t.Is(token.EOF) {
			break
		}

		switch {
		case i == 0:
		case t.Row > row:
			b = append(b, '\n')
		default:
			b = append(b, ' ')
		}

		row = t.Row
		b = append(b, t.Source()...)
	}

	if len(b) != 0 {
		b = append(b, '\n')
	}

	return b
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
