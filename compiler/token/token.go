package token

import (
	"fmt"
	"strings"

	"tlog.app/go/tlog/tlwire"
)

type (
	Kind int

	// Set is a bitmask of token kinds.
	Set uint64

	Pos struct {
		Row int
		Col int
	}

	Token struct {
		Kind Kind
		Text string

		Row int
		Col int
	}
)

const (
	Number Kind = iota
	Char
	String
	Ident

	Def
	Let
	Const
	Int
	Float
	CharType
	StringType
	Void
	Return
	Import

	Add
	Sub
	Mul
	Div
	Mod
	Assign
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	ModAssign
	BitAnd
	BitOr
	BitXor
	AndAssign
	OrAssign
	XorAssign
	Inc
	Dec
	LogAnd
	LogOr
	Not
	Eq
	Ne
	Gt
	Lt
	Ge
	Le

	Point
	Ellipsis
	Comma
	Colon
	Semicolon
	LParen
	RParen
	LCurly
	RCurly
	LSquare
	RSquare

	EOF

	numKinds
)

var names = [...]string{
	Number: "Number",
	Char:   "Char",
	String: "String",
	Ident:  "Ident",

	Def:        "Def",
	Let:        "Let",
	Const:      "Const",
	Int:        "Int",
	Float:      "Float",
	CharType:   "CharType",
	StringType: "StringType",
	Void:       "Void",
	Return:     "Return",
	Import:     "Import",

	Add:       "Add",
	Sub:       "Sub",
	Mul:       "Mul",
	Div:       "Div",
	Mod:       "Mod",
	Assign:    "Assign",
	AddAssign: "AddAssign",
	SubAssign: "SubAssign",
	MulAssign: "MulAssign",
	DivAssign: "DivAssign",
	ModAssign: "ModAssign",
	BitAnd:    "BitAnd",
	BitOr:     "BitOr",
	BitXor:    "BitXor",
	AndAssign: "AndAssign",
	OrAssign:  "OrAssign",
	XorAssign: "XorAssign",
	Inc:       "Inc",
	Dec:       "Dec",
	LogAnd:    "LogAnd",
	LogOr:     "LogOr",
	Not:       "Not",
	Eq:        "Eq",
	Ne:        "Ne",
	Gt:        "Gt",
	Lt:        "Lt",
	Ge:        "Ge",
	Le:        "Le",

	Point:     "Point",
	Ellipsis:  "Ellipsis",
	Comma:     "Comma",
	Colon:     "Colon",
	Semicolon: "Semicolon",
	LParen:    "LParen",
	RParen:    "RParen",
	LCurly:    "LCurly",
	RCurly:    "RCurly",
	LSquare:   "LSquare",
	RSquare:   "RSquare",

	EOF: "EOF",
}

// spelling is the fixed source text of keyword, operator and punctuation kinds.
var spelling = [...]string{
	Def:        "def",
	Let:        "let",
	Const:      "const",
	Int:        "int",
	Float:      "float",
	CharType:   "char",
	StringType: "string",
	Void:       "void",
	Return:     "return",
	Import:     "import",

	Add:       "+",
	Sub:       "-",
	Mul:       "*",
	Div:       "/",
	Mod:       "%",
	Assign:    "=",
	AddAssign: "+=",
	SubAssign: "-=",
	MulAssign: "*=",
	DivAssign: "/=",
	ModAssign: "%=",
	BitAnd:    "&",
	BitOr:     "|",
	BitXor:    "^",
	AndAssign: "&=",
	OrAssign:  "|=",
	XorAssign: "^=",
	Inc:       "++",
	Dec:       "--",
	LogAnd:    "&&",
	LogOr:     "||",
	Not:       "!",
	Eq:        "==",
	Ne:        "!=",
	Gt:        ">",
	Lt:        "<",
	Ge:        ">=",
	Le:        "<=",

	Point:     ".",
	Ellipsis:  "...",
	Comma:     ",",
	Colon:     ":",
	Semicolon: ";",
	LParen:    "(",
	RParen:    ")",
	LCurly:    "{",
	RCurly:    "}",
	LSquare:   "[",
	RSquare:   "]",

	EOF: "",
}

var _ [int(numKinds) - len(names)]struct{}
var _ [len(names) - int(numKinds)]struct{}

// Keywords maps reserved identifiers to their kinds.
var Keywords = map[string]Kind{
	"def":    Def,
	"let":    Let,
	"const":  Const,
	"int":    Int,
	"float":  Float,
	"char":   CharType,
	"string": StringType,
	"void":   Void,
	"return": Return,
	"import": Import,
}

// TypeNames are the kinds accepted as a type specifier.
var TypeNames = NewSet(Int, Float, CharType, StringType, Void)

func (k Kind) String() string {
	if k >= 0 && int(k) < len(names) {
		return names[k]
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Spelling returns the fixed source text of k or "" for literal kinds.
func (k Kind) Spelling() string {
	if k >= 0 && int(k) < len(spelling) {
		return spelling[k]
	}

	return ""
}

// Literal reports whether the kind carries its value in Token.Text.
func (k Kind) Literal() bool {
	return k <= Ident
}

func NewSet(kinds ...Kind) (s Set) {
	for _, k := range kinds {
		s |= 1 << k
	}

	return s
}

func (s Set) Has(k Kind) bool {
	return k >= 0 && k < numKinds && s&(1<<k) != 0
}

func (s Set) With(kinds ...Kind) Set {
	return s | NewSet(kinds...)
}

func (t Token) Pos() Pos {
	return Pos{Row: t.Row, Col: t.Col}
}

func (t Token) Is(k Kind) bool {
	return t.Kind == k
}

// Source returns the token as it may be written in source text.
// Char and string literals are re-quoted with escapes.
func (t Token) Source() string {
	switch t.Kind {
	case Number, Ident:
		return t.Text
	case Char:
		return Quote(t.Text, '\'')
	case String:
		return Quote(t.Text, '"')
	}

	return t.Kind.Spelling()
}

// Describe is the human readable name of the token used in diagnostics.
func (t Token) Describe() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case Ident:
		return fmt.Sprintf("identifier %q", t.Text)
	case Number, Char, String:
		return t.Source()
	}

	return fmt.Sprintf("'%s'", t.Kind.Spelling())
}

func (t Token) String() string {
	if t.Kind.Literal() {
		return fmt.Sprintf("%v(%s) %d:%d", t.Kind, t.Source(), t.Row, t.Col)
	}

	return fmt.Sprintf("%v %d:%d", t.Kind, t.Row, t.Col)
}

var escapes = map[byte]byte{
	'\a':   'a',
	'\b':   'b',
	'\x1b': 'e',
	'\f':   'f',
	'\n':   'n',
	'\r':   'r',
	'\t':   't',
	'\v':   'v',
	'\\':   '\\',
}

// Quote wraps s in q, escaping everything Unescape would decode.
func Quote(s string, q byte) string {
	var b strings.Builder

	b.WriteByte(q)

	for i := 0; i < len(s); i++ {
		c := s[i]

		if e, ok := escapes[c]; ok {
			b.WriteByte('\\')
			b.WriteByte(e)
			continue
		}

		if c == q {
			b.WriteByte('\\')
		}

		b.WriteByte(c)
	}

	b.WriteByte(q)

	return b.String()
}

// Unescape decodes the character following a backslash.
// Unknown escapes stand for the character itself.
func Unescape(c byte) byte {
	switch c {
	case 'a':
		return '\a'
	case 'b':
		return '\b'
	case 'e':
		return '\x1b'
	case 'f':
		return '\f'
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'v':
		return '\v'
	}

	return c
}

func (p Pos) Valid() bool {
	return p.Row > 0 && p.Col > 0
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Col)
}

func (p Pos) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt64(b, "row", int64(p.Row))
	b = e.AppendKeyInt64(b, "col", int64(p.Col))

	return b
}
