package format

import (
	"bytes"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/slowlang/tl/compiler/ast"
)

// YAML dumps the tree as a YAML document.
// Every node is a mapping with its kind and position, leaves carry their text.
func YAML(x ast.Node) ([]byte, error) {
	n, err := yamlNode(x)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	err = enc.Encode(n)
	if err != nil {
		return nil, errors.Wrap(err, "encode")
	}

	err = enc.Close()
	if err != nil {
		return nil, errors.Wrap(err, "close encoder")
	}

	return buf.Bytes(), nil
}

func yamlNode(x ast.Node) (n *yaml.Node, err error) {
	n = &yaml.Node{Kind: yaml.MappingNode}

	kv := func(k, v string) {
		n.Content = append(n.Content, scalar(k), scalar(v))
	}

	sub := func(k string, x ast.Node) {
		if err != nil {
			return
		}

		var c *yaml.Node

		c, err = yamlNode(x)
		if err != nil {
			err = errors.Wrap(err, "%s", k)
			return
		}

		n.Content = append(n.Content, scalar(k), c)
	}

	list := func(k string, xs []ast.Node) {
		if err != nil {
			return
		}

		l := &yaml.Node{Kind: yaml.SequenceNode}

		for i, x := range xs {
			var c *yaml.Node

			c, err = yamlNode(x)
			if err != nil {
				err = errors.Wrap(err, "%s %d", k, i)
				return
			}

			l.Content = append(l.Content, c)
		}

		n.Content = append(n.Content, scalar(k), l)
	}

	switch x := x.(type) {
	case *ast.IntLit:
		kv("node", "IntLiteral")
		kv("text", x.Text)
	case *ast.FloatLit:
		kv("node", "FloatLiteral")
		kv("text", x.Text)
	case *ast.CharLit:
		kv("node", "CharLiteral")
		kv("text", x.Text)
	case *ast.StringLit:
		kv("node", "StringLiteral")
		kv("text", x.Text)
	case *ast.Ident:
		kv("node", "Identifier")
		kv("name", x.Name)
	case *ast.TypeName:
		kv("node", "TypeName")
		kv("name", x.Name)
	case *ast.Empty:
		kv("node", "Empty")
	case *ast.BinaryOp:
		kv("node", x.Op.String())
		sub("left", x.Left)
		sub("right", x.Right)
	case *ast.UnaryOp:
		kv("node", x.Op.String())
		sub("x", x.X)
	case *ast.TypeAnnotated:
		kv("node", "TypeAnnotated")
		sub("target", x.Target)
		sub("type", x.Type)
	case *ast.Assignment:
		kv("node", "Assignment")
		sub("target", x.Target)
		sub("value", x.Value)
	case *ast.FuncDef:
		kv("node", "FunctionDef")
		kv("name", x.Name.Name)

		params := make([]ast.Node, len(x.Params))
		for i, p := range x.Params {
			params[i] = p
		}

		list("params", params)

		if x.Variadic {
			kv("variadic", "true")
		}

		sub("return", x.Return)

		if x.Body != nil {
			sub("body", x.Body)
		}
	case *ast.FuncCall:
		kv("node", "FunctionCall")
		kv("callee", x.Callee.Name)
		list("args", x.Args)
	case *ast.StmtSeq:
		kv("node", "StatementSeq")
		list("stmts", x.Stmts)
	default:
		return nil, errors.New("unsupported node: %T", x)
	}

	if err != nil {
		return nil, err
	}

	if p := x.Position(); p.Valid() {
		kv("pos", p.String())
	}

	return n, nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
