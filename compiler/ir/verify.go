package ir

import (
	"tlog.app/go/errors"

	"github.com/slowlang/tl/compiler/tp"
)

// verify checks that every block ends with exactly one terminator
// and that returned values match the signature.
// A trailing block without a terminator is closed when it is safe to.
func verify(f *Function) error {
	out := f.Signature.Out

	for i, b := range f.Blocks {
		for j, x := range b.Code {
			switch x := x.(type) {
			case Ret:
				if j != len(b.Code)-1 {
					return errors.New("function %s: block %s: instruction after terminator", f.Name, b.Label)
				}

				switch {
				case x.X == nil && !tp.IsVoid(out):
					return errors.New("function %s: missing return value", f.Name)
				case x.X != nil && tp.IsVoid(out):
					return errors.New("function %s: void function returns a value", f.Name)
				case x.X != nil && !tp.Equal(x.X.Type(), out):
					return errors.New("function %s: return type mismatch: %v, expected %v", f.Name, x.X.Type(), out)
				}
			case Unreachable:
				if j != len(b.Code)-1 {
					return errors.New("function %s: block %s: instruction after terminator", f.Name, b.Label)
				}
			}
		}

		if b.Terminated() {
			continue
		}

		switch {
		case i != len(f.Blocks)-1:
			return errors.New("function %s: block %s has no terminator", f.Name, b.Label)
		case tp.IsVoid(out):
			b.Code = append(b.Code, Ret{})
		case i != 0:
			// blocks after the entry one follow a return and are never reached
			b.Code = append(b.Code, Unreachable{})
		default:
			return errors.New("missing return at end of function %s", f.Name)
		}
	}

	return nil
}
