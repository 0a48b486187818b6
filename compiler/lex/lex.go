package lex

import (
	"context"
	"fmt"

	"tlog.app/go/tlog"

	"github.com/slowlang/tl/compiler/token"
)

type (
	// Error is a malformed literal, unterminated literal or comment, or an illegal character.
	Error struct {
		Pos token.Pos
		Msg string
	}

	lexer struct {
		b []byte
		i int

		row, col int

		toks []token.Token
	}

	operator struct {
		text string
		kind token.Kind
	}
)

// operators sorted longest first so that the first match is the longest one.
var operators = []operator{
	{"...", token.Ellipsis},

	{"++", token.Inc},
	{"--", token.Dec},
	{"+=", token.AddAssign},
	{"-=", token.SubAssign},
	{"*=", token.MulAssign},
	{"/=", token.DivAssign},
	{"%=", token.ModAssign},
	{"&=", token.AndAssign},
	{"|=", token.OrAssign},
	{"^=", token.XorAssign},
	{"&&", token.LogAnd},
	{"||", token.LogOr},
	{"==", token.Eq},
	{"!=", token.Ne},
	{">=", token.Ge},
	{"<=", token.Le},

	{"+", token.Add},
	{"-", token.Sub},
	{"*", token.Mul},
	{"/", token.Div},
	{"%", token.Mod},
	{"=", token.Assign},
	{"&", token.BitAnd},
	{"|", token.BitOr},
	{"^", token.BitXor},
	{"!", token.Not},
	{">", token.Gt},
	{"<", token.Lt},
	{".", token.Point},
	{",", token.Comma},
	{":", token.Colon},
	{";", token.Semicolon},
	{"(", token.LParen},
	{")", token.RParen},
	{"{", token.LCurly},
	{"}", token.RCurly},
	{"[", token.LSquare},
	{"]", token.RSquare},
}

// Tokenize splits text into tokens. The result always ends with an EOF token.
func Tokenize(ctx context.Context, text []byte) (toks []token.Token, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lex", "size", len(text))
	defer tr.Finish("err", &err)

	l := &lexer{
		b:   text,
		row: 1,
		col: 1,
	}

	err = l.run()
	if err != nil {
		return nil, err
	}

	if tr.If("lex") {
		for _, t := range l.toks {
			tr.Printw("token", "kind", t.Kind, "text", t.Text, "pos", t.Pos())
		}
	}

	return l.toks, nil
}

func (l *lexer) run() error {
	for l.i < len(l.b) {
		c := l.b[l.i]

		switch {
		case c == '\n':
			l.newline()
		case c == ' ' || c == '\t' || c == '\r':
			l.skip(1)
		case c == '/' && l.peek(1) == '/':
			l.skipLine()
		case c == '/' && l.peek(1) == '*':
			err := l.skipBlock()
			if err != nil {
				return err
			}
		case isDigit(c):
			err := l.number()
			if err != nil {
				return err
			}
		case isLetter(c):
			l.ident()
		case c == '\'':
			err := l.char()
			if err != nil {
				return err
			}
		case c == '"':
			err := l.str()
			if err != nil {
				return err
			}
		default:
			err := l.operator()
			if err != nil {
				return err
			}
		}
	}

	l.toks = append(l.toks, token.Token{Kind: token.EOF, Row: l.row, Col: l.col})

	return nil
}

func (l *lexer) number() error {
	row, col := l.row, l.col

	digit := isDigit
	base := 10

	if l.b[l.i] == '0' {
		switch l.peek(1) {
		case 'x', 'X':
			digit, base = isHexDigit, 16
		case 'b', 'B':
			digit, base = isBinDigit, 2
		}
	}

	var text []byte

	if base != 10 {
		text = append(text, l.b[l.i:l.i+2]...)
		l.skip(2)
	}

	dot := false

loop:
	for l.i < len(l.b) {
		c := l.b[l.i]

		switch {
		case digit(c):
			text = append(text, c)
		case c == '\'':
		case c == '.' && base != 10:
			return l.errorf("unexpected '.' in base %d literal", base)
		case c == '.' && dot:
			return l.errorf("unexpected '.' in number literal")
		case c == '.':
			dot = true
			text = append(text, c)
		default:
			if isLetter(c) || isDigit(c) {
				return l.errorf("invalid character %q in base %d literal", c, base)
			}

			break loop
		}

		l.skip(1)
	}

	if base != 10 && len(text) == 2 {
		return Error{Pos: token.Pos{Row: row, Col: col}, Msg: fmt.Sprintf("base %d literal has no digits", base)}
	}

	l.push(token.Number, string(text), row, col)

	return nil
}

func (l *lexer) ident() {
	row, col := l.row, l.col
	st := l.i

	for l.i < len(l.b) && (isLetter(l.b[l.i]) || isDigit(l.b[l.i])) {
		l.skip(1)
	}

	text := string(l.b[st:l.i])

	if k, ok := token.Keywords[text]; ok {
		l.push(k, "", row, col)
		return
	}

	l.push(token.Ident, text, row, col)
}

func (l *lexer) char() error {
	row, col := l.row, l.col

	l.skip(1) // '

	if l.i == len(l.b) {
		return l.errorf("unterminated character literal")
	}

	if l.b[l.i] == '\'' {
		return l.errorf("empty character literal")
	}

	c, err := l.elem()
	if err != nil {
		return err
	}

	if l.i == len(l.b) || l.b[l.i] != '\'' {
		return l.errorf("invalid character literal: expected closing quote")
	}

	l.skip(1)

	l.push(token.Char, string([]byte{c}), row, col)

	return nil
}

func (l *lexer) str() error {
	row, col := l.row, l.col

	l.skip(1) // "

	var text []byte

	for {
		if l.i == len(l.b) {
			return Error{Pos: token.Pos{Row: row, Col: col}, Msg: "unterminated string literal"}
		}

		if l.b[l.i] == '"' {
			l.skip(1)
			break
		}

		c, err := l.elem()
		if err != nil {
			return err
		}

		text = append(text, c)
	}

	l.push(token.String, string(text), row, col)

	return nil
}

// elem consumes one possibly escaped character of a char or string literal.
func (l *lexer) elem() (byte, error) {
	c := l.b[l.i]

	if c == '\n' {
		l.newline()
		return c, nil
	}

	if c != '\\' {
		l.skip(1)
		return c, nil
	}

	if l.i+1 == len(l.b) {
		l.skip(1)
		return 0, l.errorf("unterminated escape sequence")
	}

	c = token.Unescape(l.b[l.i+1])
	l.skip(2)

	return c, nil
}

func (l *lexer) operator() error {
	for _, op := range operators {
		if l.i+len(op.text) > len(l.b) || string(l.b[l.i:l.i+len(op.text)]) != op.text {
			continue
		}

		l.push(op.kind, "", l.row, l.col)
		l.skip(len(op.text))

		return nil
	}

	return l.errorf("unexpected character %q", l.b[l.i])
}

func (l *lexer) skipLine() {
	for l.i < len(l.b) && l.b[l.i] != '\n' {
		l.skip(1)
	}
}

func (l *lexer) skipBlock() error {
	l.skip(2) // /*

	for l.i < len(l.b) {
		switch {
		case l.b[l.i] == '*' && l.peek(1) == '/':
			l.skip(2)
			return nil
		case l.b[l.i] == '\n':
			l.newline()
		default:
			l.skip(1)
		}
	}

	return l.errorf("unterminated block comment")
}

func (l *lexer) push(k token.Kind, text string, row, col int) {
	l.toks = append(l.toks, token.Token{Kind: k, Text: text, Row: row, Col: col})
}

func (l *lexer) peek(off int) byte {
	if l.i+off >= len(l.b) {
		return 0
	}

	return l.b[l.i+off]
}

func (l *lexer) skip(n int) {
	l.i += n
	l.col += n
}

func (l *lexer) newline() {
	l.i++
	l.row++
	l.col = 1
}

func (l *lexer) errorf(format string, args ...any) Error {
	return Error{
		Pos: token.Pos{Row: l.row, Col: l.col},
		Msg: fmt.Sprintf(format, args...),
	}
}

func (e Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Pos, e.Msg)
}

func (e Error) Position() token.Pos { return e.Pos }

func (e Error) Message() string { return e.Msg }

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func isBinDigit(c byte) bool {
	return c == '0' || c == '1'
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}
