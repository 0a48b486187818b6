package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tl/compiler/ast"
	"github.com/slowlang/tl/compiler/lex"
	"github.com/slowlang/tl/compiler/token"
)

func parseExpr(t *testing.T, text string) ast.Node {
	t.Helper()

	ctx := context.Background()

	toks, err := lex.Tokenize(ctx, []byte(text))
	require.NoError(t, err)

	x, err := ParseExpr(ctx, toks)
	require.NoError(t, err, "text: %q", text)

	return x
}

func TestExpressions(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out string
	}{
		{"a + b * c", "Add(Identifier(a), Mul(Identifier(b), Identifier(c)))"},
		{"a * b + c", "Add(Mul(Identifier(a), Identifier(b)), Identifier(c))"},
		{"a - b - c", "Sub(Sub(Identifier(a), Identifier(b)), Identifier(c))"},
		{"a / b / c", "Div(Div(Identifier(a), Identifier(b)), Identifier(c))"},
		{"(a + b) * c", "Mul(Add(Identifier(a), Identifier(b)), Identifier(c))"},
		{"-a * b", "Neg(Mul(Identifier(a), Identifier(b)))"},
		{"a * -b + c", "Mul(Identifier(a), Neg(Add(Identifier(b), Identifier(c))))"},
		{"+1", "Pos(IntLiteral(1))"},
		{"0x1f", "IntLiteral(0x1f)"},
		{"2.5", "FloatLiteral(2.5)"},
		{`f(1, 2.5, 'c', "s\n")`, `FunctionCall(Identifier(f), IntLiteral(1), FloatLiteral(2.5), CharLiteral('c'), StringLiteral("s\n"))`},
		{"f()", "FunctionCall(Identifier(f))"},
		{"f(g(x) + 1)", "FunctionCall(Identifier(f), Add(FunctionCall(Identifier(g), Identifier(x)), IntLiteral(1)))"},
		{"", "Empty"},
	} {
		x := parseExpr(t, tc.in)
		assert.Equal(t, tc.out, x.String(), "in: %q", tc.in)
	}
}

func TestPrograms(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out string
	}{
		{"let x: int;", "StatementSeq(Declare(TypeAnnotated(Identifier(x), TypeName(int))))"},
		{"let x = 1;", "StatementSeq(Declare(Assignment(Identifier(x), IntLiteral(1))))"},
		{"const y: float = 1.5;", "StatementSeq(DeclareConst(Assignment(TypeAnnotated(Identifier(y), TypeName(float)), FloatLiteral(1.5))))"},
		{"x = y = 1;", ""},
		{"x += 2;", "StatementSeq(Assignment(Identifier(x), Add(Identifier(x), IntLiteral(2))))"},
		{"x /= 2;", "StatementSeq(Assignment(Identifier(x), Div(Identifier(x), IntLiteral(2))))"},
		{"a; b;", "StatementSeq(Identifier(a), Identifier(b))"},
		{"", "StatementSeq()"},
		{
			"def f(a: int): int { return a; }",
			"StatementSeq(FunctionDef(Identifier(f), Params(TypeAnnotated(Identifier(a), TypeName(int))), TypeName(int), StatementSeq(Return(Identifier(a)))))",
		},
		{
			"def g(): void;",
			"StatementSeq(FunctionDef(Identifier(g), Params(), TypeName(void), Empty))",
		},
		{
			"def printf(f: string, ...): int;",
			"StatementSeq(FunctionDef(Identifier(printf), Params(TypeAnnotated(Identifier(f), TypeName(string)), ...), TypeName(int), Empty))",
		},
		{
			"def v(...): void;",
			"StatementSeq(FunctionDef(Identifier(v), Params(...), TypeName(void), Empty))",
		},
		{
			"def v(): void { return; }",
			"StatementSeq(FunctionDef(Identifier(v), Params(), TypeName(void), StatementSeq(Return(Empty))))",
		},
		{
			"def e(): int {}",
			"StatementSeq(FunctionDef(Identifier(e), Params(), TypeName(int), StatementSeq()))",
		},
		{`import "lib";`, `StatementSeq(Import(StringLiteral("lib")))`},
	} {
		root, err := ParseText(context.Background(), []byte(tc.in))
		if tc.out == "" {
			assert.Error(t, err, "in: %q", tc.in)
			continue
		}

		require.NoError(t, err, "in: %q", tc.in)
		assert.Equal(t, tc.out, root.String(), "in: %q", tc.in)
	}
}

func TestErrors(t *testing.T) {
	for _, tc := range []struct {
		in  string
		msg string
		col int
	}{
		{"let x = 1", "expected ';'", 10},
		{"1 = 2;", "cannot assign to expression", 1},
		{"a + b = 2;", "cannot assign to expression", 3},
		{"x: int += 1;", "cannot assign to expression", 1},
		{"(a + b): int;", "expected identifier", 4},
		{"let 1 + 2;", "expected identifier", 7},
		{"let x: foo;", "expected type specifier", 8},
		{"def (a: int): int;", "expected identifier", 5},
		{"def f a: int): int;", "expected '('", 7},
		{"def f(a: int,): int;", "expected identifier", 14},
		{"def f(a int): int;", "expected ':'", 9},
		{"def f(a: int: int;", "expected ')'", 13},
		{"def f(a: int) int;", "expected ':'", 15},
		{"def f(a: void): ;", "expected type specifier", 17},
		{"def f(...,): int;", "expected ')'", 10},
		{"def f(): int { return 1;", "expected '}'", 25},
		{"def f(): int return 1;", "expected ';'", 14},
		{"import x;", "expected module path", 8},
		{"f(1 2);", "expected ')'", 5},
		{"(a;", "expected ')'", 3},
		{") ;", "unexpected token ')'", 1},
		{"a % b;", "expected ';'", 3},
		{"x = %;", "unexpected token '%'", 5},
		{"let = 1;", "unexpected token '='", 5},
		{"}", "unexpected token '}'", 1},
	} {
		_, err := ParseText(context.Background(), []byte(tc.in))

		var perr Error
		require.ErrorAs(t, err, &perr, "in: %q", tc.in)

		assert.Equal(t, tc.msg, perr.Msg, "in: %q", tc.in)
		assert.Equal(t, token.Pos{Row: 1, Col: tc.col}, perr.Pos, "in: %q", tc.in)
	}
}

func TestPositions(t *testing.T) {
	root, err := ParseText(context.Background(), []byte("let x = 1;\ndef f(a: int): int {\n  return a;\n}"))
	require.NoError(t, err)
	require.Len(t, root.Stmts, 2)

	decl := root.Stmts[0].(*ast.UnaryOp)
	assert.Equal(t, token.Pos{Row: 1, Col: 1}, decl.Position())

	as := decl.X.(*ast.Assignment)
	assert.Equal(t, token.Pos{Row: 1, Col: 7}, as.Position())
	assert.Equal(t, token.Pos{Row: 1, Col: 5}, as.Target.Position())

	f := root.Stmts[1].(*ast.FuncDef)
	assert.Equal(t, token.Pos{Row: 2, Col: 1}, f.Position())
	assert.Equal(t, token.Pos{Row: 2, Col: 5}, f.Name.Position())
	assert.Equal(t, token.Pos{Row: 2, Col: 7}, f.Params[0].Position())

	ret := f.Body.Stmts[0].(*ast.UnaryOp)
	assert.Equal(t, ast.Return, ret.Op)
	assert.Equal(t, token.Pos{Row: 3, Col: 3}, ret.Position())
	assert.Equal(t, token.Pos{Row: 3, Col: 10}, ret.X.Position())
}

func TestCompoundAssignmentOwnsTarget(t *testing.T) {
	root, err := ParseText(context.Background(), []byte("x *= 3;"))
	require.NoError(t, err)

	as := root.Stmts[0].(*ast.Assignment)
	mul := as.Value.(*ast.BinaryOp)

	assert.Equal(t, ast.Mul, mul.Op)
	assert.NotSame(t, as.Target, mul.Left)
	assert.Equal(t, as.Target, mul.Left)
}

func TestMissingEOF(t *testing.T) {
	toks := []token.Token{
		{Kind: token.Ident, Text: "a", Row: 1, Col: 1},
		{Kind: token.Semicolon, Row: 1, Col: 2},
	}

	root, err := Parse(context.Background(), toks)
	require.NoError(t, err)
	assert.Equal(t, "StatementSeq(Identifier(a))", root.String())
}

func TestDeepNesting(t *testing.T) {
	in := make([]byte, 0, 5000)
	for i := 0; i < 2000; i++ {
		in = append(in, '(')
	}

	_, err := ParseText(context.Background(), in)

	var perr Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "expression nested too deeply", perr.Msg)
}
