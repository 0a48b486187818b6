package parse

import (
	"context"
	"fmt"
	"os"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tl/compiler/ast"
	"github.com/slowlang/tl/compiler/lex"
	"github.com/slowlang/tl/compiler/token"
)

type (
	// Error is an unexpected or missing token or an invalid assignment target.
	Error struct {
		Pos token.Pos
		Msg string
	}

	parser struct {
		toks []token.Token
		i    int

		depth int
	}
)

var (
	assignOps = token.NewSet(token.Assign, token.AddAssign, token.SubAssign, token.MulAssign, token.DivAssign)
	exprOps   = token.NewSet(token.Add, token.Sub)
	termOps   = token.NewSet(token.Mul, token.Div)
)

var binOps = map[token.Kind]ast.Op{
	token.Add: ast.Add,
	token.Sub: ast.Sub,
	token.Mul: ast.Mul,
	token.Div: ast.Div,

	token.AddAssign: ast.Add,
	token.SubAssign: ast.Sub,
	token.MulAssign: ast.Mul,
	token.DivAssign: ast.Div,
}

func ParseFile(ctx context.Context, name string) (*ast.StmtSeq, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return ParseText(ctx, data)
}

func ParseText(ctx context.Context, text []byte) (*ast.StmtSeq, error) {
	toks, err := lex.Tokenize(ctx, text)
	if err != nil {
		return nil, err
	}

	return Parse(ctx, toks)
}

// Parse parses a whole program. toks is expected to end with EOF.
func Parse(ctx context.Context, toks []token.Token) (root *ast.StmtSeq, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "parse", "tokens", len(toks))
	defer tr.Finish("err", &err)

	p := &parser{toks: toks}

	root, err = p.block(false)
	if err != nil {
		return nil, err
	}

	if t := p.peek(); !t.Is(token.EOF) {
		return nil, p.unexpected(t)
	}

	if tr.If("parse") {
		tr.Printw("parsed", "stmts", len(root.Stmts), "ast", root)
	}

	return root, nil
}

// ParseExpr parses a single expression spanning all the tokens.
func ParseExpr(ctx context.Context, toks []token.Token) (x ast.Node, err error) {
	p := &parser{toks: toks}

	x, err = p.expression()
	if err != nil {
		return nil, err
	}

	if t := p.peek(); !t.Is(token.EOF) {
		return nil, p.unexpected(t)
	}

	return x, nil
}

func (p *parser) block(body bool) (seq *ast.StmtSeq, err error) {
	seq = &ast.StmtSeq{Base: ast.At(p.peek())}

	for {
		t := p.peek()

		if t.Is(token.EOF) || body && t.Is(token.RCurly) {
			return seq, nil
		}

		var x ast.Node

		if t.Is(token.Def) {
			x, err = p.funcdef()
		} else {
			x, err = p.statement()
		}

		if err != nil {
			return nil, err
		}

		seq.Stmts = append(seq.Stmts, x)
	}
}

func (p *parser) statement() (x ast.Node, err error) {
	t := p.peek()

	switch t.Kind {
	case token.Let, token.Const:
		p.next()

		x, err = p.assignment()
		if err != nil {
			break
		}

		if !declTarget(x) {
			return nil, p.errorAt(x.Position(), "expected identifier")
		}

		op := ast.Declare
		if t.Is(token.Const) {
			op = ast.DeclareConst
		}

		x = &ast.UnaryOp{Base: ast.At(t), Op: op, X: x}
	case token.Return:
		p.next()

		if end := p.peek(); end.Is(token.Semicolon) {
			x = &ast.UnaryOp{Base: ast.At(t), Op: ast.Return, X: &ast.Empty{Base: ast.At(end)}}
			break
		}

		x, err = p.expression()
		if err != nil {
			break
		}

		x = &ast.UnaryOp{Base: ast.At(t), Op: ast.Return, X: x}
	case token.Import:
		p.next()

		path := p.peek()
		if !path.Is(token.String) {
			return nil, p.errorf(path, "expected module path")
		}

		p.next()

		x = &ast.UnaryOp{Base: ast.At(t), Op: ast.Import, X: &ast.StringLit{Base: ast.At(path), Text: path.Text}}
	default:
		x, err = p.assignment()
	}

	if err != nil {
		return nil, err
	}

	_, err = p.expect(token.Semicolon)
	if err != nil {
		return nil, err
	}

	return x, nil
}

func (p *parser) assignment() (x ast.Node, err error) {
	x, err = p.typedecl()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	if !assignOps.Has(t.Kind) {
		return x, nil
	}

	switch x := x.(type) {
	case *ast.Ident:
	case *ast.TypeAnnotated:
		if !t.Is(token.Assign) {
			return nil, p.errorAt(x.Position(), "cannot assign to expression")
		}
	default:
		return nil, p.errorAt(x.Position(), "cannot assign to expression")
	}

	p.next()

	val, err := p.expression()
	if err != nil {
		return nil, err
	}

	if op, ok := binOps[t.Kind]; ok {
		id := x.(*ast.Ident)
		cp := *id

		val = &ast.BinaryOp{Base: ast.At(t), Op: op, Left: &cp, Right: val}
	}

	return &ast.Assignment{Base: ast.At(t), Target: x, Value: val}, nil
}

func (p *parser) typedecl() (x ast.Node, err error) {
	x, err = p.expression()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	if !t.Is(token.Colon) {
		return x, nil
	}

	id, ok := x.(*ast.Ident)
	if !ok {
		return nil, p.errorAt(x.Position(), "expected identifier")
	}

	p.next()

	tp, err := p.typeName()
	if err != nil {
		return nil, err
	}

	return &ast.TypeAnnotated{Base: id.Base, Target: id, Type: tp}, nil
}

func (p *parser) expression() (x ast.Node, err error) {
	return p.binary(exprOps, p.term)
}

func (p *parser) term() (x ast.Node, err error) {
	return p.binary(termOps, p.factor)
}

func (p *parser) binary(ops token.Set, operand func() (ast.Node, error)) (x ast.Node, err error) {
	x, err = operand()
	if err != nil {
		return nil, err
	}

	for ops.Has(p.peek().Kind) {
		t := p.next()

		y, err := operand()
		if err != nil {
			return nil, err
		}

		x = &ast.BinaryOp{Base: ast.At(t), Op: binOps[t.Kind], Left: x, Right: y}
	}

	return x, nil
}

func (p *parser) factor() (x ast.Node, err error) {
	t := p.peek()

	switch t.Kind {
	case token.Number:
		p.next()

		if strings.Contains(t.Text, ".") {
			return &ast.FloatLit{Base: ast.At(t), Text: t.Text}, nil
		}

		return &ast.IntLit{Base: ast.At(t), Text: t.Text}, nil
	case token.Char:
		p.next()

		return &ast.CharLit{Base: ast.At(t), Text: t.Text}, nil
	case token.String:
		p.next()

		return &ast.StringLit{Base: ast.At(t), Text: t.Text}, nil
	case token.Ident:
		p.next()

		id := &ast.Ident{Base: ast.At(t), Name: t.Text}

		if !p.peek().Is(token.LParen) {
			return id, nil
		}

		return p.call(id)
	case token.Add, token.Sub:
		p.next()

		x, err = p.nested(p.expression)
		if err != nil {
			return nil, err
		}

		op := ast.Pos
		if t.Is(token.Sub) {
			op = ast.Neg
		}

		return &ast.UnaryOp{Base: ast.At(t), Op: op, X: x}, nil
	case token.LParen:
		p.next()

		x, err = p.nested(p.expression)
		if err != nil {
			return nil, err
		}

		_, err = p.expect(token.RParen)
		if err != nil {
			return nil, err
		}

		return x, nil
	case token.EOF:
		return &ast.Empty{Base: ast.At(t)}, nil
	}

	return nil, p.unexpected(t)
}

func (p *parser) call(callee *ast.Ident) (x ast.Node, err error) {
	p.next() // (

	c := &ast.FuncCall{Base: callee.Base, Callee: callee}

	if p.peek().Is(token.RParen) {
		p.next()
		return c, nil
	}

	for {
		arg, err := p.nested(p.expression)
		if err != nil {
			return nil, err
		}

		c.Args = append(c.Args, arg)

		if p.peek().Is(token.Comma) {
			p.next()
			continue
		}

		_, err = p.expect(token.RParen)
		if err != nil {
			return nil, err
		}

		return c, nil
	}
}

func (p *parser) funcdef() (x ast.Node, err error) {
	def := p.next()

	name, err := p.expectMsg(token.Ident, "expected identifier")
	if err != nil {
		return nil, err
	}

	f := &ast.FuncDef{
		Base: ast.At(def),
		Name: &ast.Ident{Base: ast.At(name), Name: name.Text},
	}

	_, err = p.expect(token.LParen)
	if err != nil {
		return nil, err
	}

	if p.peek().Is(token.RParen) {
		p.next()
	} else {
		err = p.params(f)
		if err != nil {
			return nil, err
		}
	}

	_, err = p.expect(token.Colon)
	if err != nil {
		return nil, err
	}

	f.Return, err = p.typeName()
	if err != nil {
		return nil, err
	}

	t := p.peek()

	switch t.Kind {
	case token.Semicolon:
		p.next()

		return f, nil
	case token.LCurly:
		p.next()
	default:
		return nil, p.errorf(t, "expected ';'")
	}

	p.depth++
	f.Body, err = p.block(true)
	p.depth--
	if err != nil {
		return nil, err
	}

	_, err = p.expect(token.RCurly)
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (p *parser) params(f *ast.FuncDef) (err error) {
	for {
		if t := p.peek(); t.Is(token.Ellipsis) {
			p.next()
			f.Variadic = true

			_, err = p.expect(token.RParen)
			return err
		}

		name, err := p.expectMsg(token.Ident, "expected identifier")
		if err != nil {
			return err
		}

		_, err = p.expect(token.Colon)
		if err != nil {
			return err
		}

		tp, err := p.typeName()
		if err != nil {
			return err
		}

		f.Params = append(f.Params, &ast.TypeAnnotated{
			Base:   ast.At(name),
			Target: &ast.Ident{Base: ast.At(name), Name: name.Text},
			Type:   tp,
		})

		if p.peek().Is(token.Comma) {
			p.next()
			continue
		}

		_, err = p.expect(token.RParen)
		return err
	}
}

func (p *parser) typeName() (*ast.TypeName, error) {
	t := p.peek()

	if !token.TypeNames.Has(t.Kind) {
		return nil, p.errorf(t, "expected type specifier")
	}

	p.next()

	return &ast.TypeName{Base: ast.At(t), Name: t.Kind.Spelling()}, nil
}

// nested guards against unbounded recursion on deeply nested input.
func (p *parser) nested(f func() (ast.Node, error)) (ast.Node, error) {
	if p.depth > maxDepth {
		return nil, p.errorf(p.peek(), "expression nested too deeply")
	}

	p.depth++
	defer func() { p.depth-- }()

	return f()
}

const maxDepth = 1000

func (p *parser) expect(k token.Kind) (token.Token, error) {
	return p.expectMsg(k, fmt.Sprintf("expected '%s'", k.Spelling()))
}

func (p *parser) expectMsg(k token.Kind, msg string) (token.Token, error) {
	t := p.peek()

	if !t.Is(k) {
		return t, p.errorf(t, "%s", msg)
	}

	return p.next(), nil
}

func (p *parser) peek() token.Token {
	if p.i < len(p.toks) {
		return p.toks[p.i]
	}

	// tolerate streams without a trailing EOF
	t := token.Token{Kind: token.EOF, Row: 1, Col: 1}

	if l := len(p.toks); l != 0 {
		last := p.toks[l-1]
		t.Row, t.Col = last.Row, last.Col+len(last.Source())
	}

	return t
}

func (p *parser) next() token.Token {
	t := p.peek()

	if p.i < len(p.toks) && !t.Is(token.EOF) {
		p.i++
	}

	return t
}

func (p *parser) unexpected(t token.Token) Error {
	return p.errorf(t, "unexpected token %s", t.Describe())
}

func (p *parser) errorf(t token.Token, format string, args ...any) Error {
	return p.errorAt(t.Pos(), format, args...)
}

func (p *parser) errorAt(pos token.Pos, format string, args ...any) Error {
	return Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func declTarget(x ast.Node) bool {
	if a, ok := x.(*ast.Assignment); ok {
		x = a.Target
	}

	switch x := x.(type) {
	case *ast.Ident:
		return true
	case *ast.TypeAnnotated:
		_, ok := x.Target.(*ast.Ident)
		return ok
	}

	return false
}

func (e Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Pos, e.Msg)
}

func (e Error) Position() token.Pos { return e.Pos }

func (e Error) Message() string { return e.Msg }
