package tp

import (
	"strings"
)

type (
	// Type is a value type. String is its IR spelling.
	Type interface {
		Size() int
		String() string
	}

	Func struct {
		In       []Type
		Out      Type
		Variadic bool
	}

	Int struct {
		Bits   int16
		Signed bool
	}

	Float struct {
		Bits int16
	}

	Void struct{}

	Ptr struct {
		X Type
	}
)

var (
	I8  = Int{Bits: 8, Signed: true}
	I32 = Int{Bits: 32, Signed: true}
	F32 = Float{Bits: 32}

	String = Ptr{X: I8}
)

// Primitive returns the type denoted by a source type name.
func Primitive(name string) (Type, bool) {
	switch name {
	case "int":
		return I32, true
	case "float":
		return F32, true
	case "char":
		return I8, true
	case "string":
		return String, true
	case "void":
		return Void{}, true
	}

	return nil, false
}

// Name returns the source spelling of a primitive type or its IR spelling otherwise.
func Name(t Type) string {
	switch {
	case Equal(t, I32):
		return "int"
	case Equal(t, F32):
		return "float"
	case Equal(t, I8):
		return "char"
	case Equal(t, String):
		return "string"
	case Equal(t, Void{}):
		return "void"
	case t == nil:
		return "<nil>"
	}

	return t.String()
}

func IsInteger(t Type) bool {
	_, ok := t.(Int)
	return ok
}

func IsFloat(t Type) bool {
	_, ok := t.(Float)
	return ok
}

func IsVoid(t Type) bool {
	_, ok := t.(Void)
	return ok
}

func Equal(x, y Type) bool {
	switch x := x.(type) {
	case Ptr:
		y, ok := y.(Ptr)
		return ok && Equal(x.X, y.X)
	case Func:
		y, ok := y.(Func)
		if !ok || x.Variadic != y.Variadic || len(x.In) != len(y.In) || !Equal(x.Out, y.Out) {
			return false
		}

		for i := range x.In {
			if !Equal(x.In[i], y.In[i]) {
				return false
			}
		}

		return true
	case nil:
		return y == nil
	}

	return x == y
}

func (x Int) Size() int {
	return int(x.Bits) / 8
}

func (x Float) Size() int {
	return int(x.Bits) / 8
}

func (x Ptr) Size() int {
	return 8
}

func (x Void) Size() int { return 0 }

func (x Func) Size() int { return 8 }

func (x Int) String() string {
	switch x.Bits {
	case 8:
		return "i8"
	case 16:
		return "i16"
	case 32:
		return "i32"
	case 64:
		return "i64"
	}

	return "i?"
}

func (x Float) String() string {
	if x.Bits == 64 {
		return "double"
	}

	return "float"
}

func (x Ptr) String() string {
	return x.X.String() + "*"
}

func (x Void) String() string { return "void" }

func (x Func) String() string {
	var b strings.Builder

	b.WriteString(x.Out.String())
	b.WriteString(" (")

	for i, t := range x.In {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(t.String())
	}

	if x.Variadic {
		if len(x.In) != 0 {
			b.WriteString(", ")
		}

		b.WriteString("...")
	}

	b.WriteString(")")

	return b.String()
}
