package pyexpr

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// jsFuncs maps Python builtins to their JavaScript equivalents.
var jsFuncs = map[string]string{
	"abs":   "Math.abs",
	"min":   "Math.min",
	"max":   "Math.max",
	"round": "Math.round",
	"int":   "Number.parseInt",
	"float": "Number.parseFloat",
	"print": "console.log",
	"sqrt":  "Math.sqrt",
	"sin":   "Math.sin",
	"cos":   "Math.cos",
}

// jsNames maps bare Python names to JavaScript expressions.
var jsNames = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  "undefined",
	"pi":    "Math.PI",
}

// jsMethods maps Python str/list methods to JavaScript methods.
var jsMethods = map[string]string{
	"upper":  "toUpperCase",
	"lower":  "toLowerCase",
	"strip":  "trim",
	"append": "push",
	"index":  "indexOf",
}

// ToJS translates a Python expression into an equivalent JavaScript
// expression. Only the subset commonly used in experiment parameters is
// supported; anything else returns an error wrapping ErrUnsupported.
func ToJS(src string) (string, error) {
	expr, err := Parse(src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := writeJS(&sb, expr); err != nil {
		return "", fmt.Errorf("cannot translate %q to JavaScript: %w", src, err)
	}
	return sb.String(), nil
}

func writeJS(sb *strings.Builder, e syntax.Expr) error {
	switch e := e.(type) {
	case *syntax.Literal:
		if s, ok := e.Value.(string); ok {
			sb.WriteString(JSQuote(s))
			return nil
		}
		sb.WriteString(e.Raw)
		return nil

	case *syntax.Ident:
		if js, ok := jsNames[e.Name]; ok {
			sb.WriteString(js)
		} else {
			sb.WriteString(e.Name)
		}
		return nil

	case *syntax.ParenExpr:
		if tuple, ok := e.X.(*syntax.TupleExpr); ok {
			return writeArrayJS(sb, tuple.List)
		}
		sb.WriteByte('(')
		if err := writeJS(sb, e.X); err != nil {
			return err
		}
		sb.WriteByte(')')
		return nil

	case *syntax.UnaryExpr:
		switch e.Op {
		case syntax.NOT:
			sb.WriteByte('!')
		case syntax.MINUS, syntax.PLUS, syntax.TILDE:
			sb.WriteString(e.Op.String())
		default:
			return fmt.Errorf("%w: unary operator %s", ErrUnsupported, e.Op)
		}
		return writeOperand(sb, e.X)

	case *syntax.BinaryExpr:
		return writeBinaryJS(sb, e)

	case *syntax.CallExpr:
		return writeCallJS(sb, e)

	case *syntax.ListExpr:
		return writeArrayJS(sb, e.List)

	case *syntax.TupleExpr:
		return writeArrayJS(sb, e.List)

	case *syntax.DictExpr:
		sb.WriteByte('{')
		for i, item := range e.List {
			entry, ok := item.(*syntax.DictEntry)
			if !ok {
				return fmt.Errorf("%w: malformed dict entry", ErrUnsupported)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			if lit, ok := entry.Key.(*syntax.Literal); ok {
				if err := writeJS(sb, lit); err != nil {
					return err
				}
			} else {
				sb.WriteByte('[')
				if err := writeJS(sb, entry.Key); err != nil {
					return err
				}
				sb.WriteByte(']')
			}
			sb.WriteString(": ")
			if err := writeJS(sb, entry.Value); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
		return nil

	case *syntax.IndexExpr:
		if err := writeOperand(sb, e.X); err != nil {
			return err
		}
		// Negative indexes count from the end in Python.
		if u, ok := e.Y.(*syntax.UnaryExpr); ok && u.Op == syntax.MINUS {
			sb.WriteString(".at(")
			if err := writeJS(sb, e.Y); err != nil {
				return err
			}
			sb.WriteByte(')')
			return nil
		}
		sb.WriteByte('[')
		if err := writeJS(sb, e.Y); err != nil {
			return err
		}
		sb.WriteByte(']')
		return nil

	case *syntax.SliceExpr:
		if e.Step != nil {
			return fmt.Errorf("%w: slice step", ErrUnsupported)
		}
		if err := writeOperand(sb, e.X); err != nil {
			return err
		}
		sb.WriteString(".slice(")
		if e.Lo != nil {
			if err := writeJS(sb, e.Lo); err != nil {
				return err
			}
		} else {
			sb.WriteByte('0')
		}
		if e.Hi != nil {
			sb.WriteString(", ")
			if err := writeJS(sb, e.Hi); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
		return nil

	case *syntax.DotExpr:
		if err := writeOperand(sb, e.X); err != nil {
			return err
		}
		sb.WriteByte('.')
		sb.WriteString(e.Name.Name)
		return nil

	case *syntax.CondExpr:
		sb.WriteByte('(')
		if err := writeOperand(sb, e.Cond); err != nil {
			return err
		}
		sb.WriteString(" ? ")
		if err := writeOperand(sb, e.True); err != nil {
			return err
		}
		sb.WriteString(" : ")
		if err := writeOperand(sb, e.False); err != nil {
			return err
		}
		sb.WriteByte(')')
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnsupported, e)
}

// writeOperand wraps compound sub-expressions in parentheses so that the
// JavaScript precedence rules cannot reorder them.
func writeOperand(sb *strings.Builder, e syntax.Expr) error {
	switch e.(type) {
	case *syntax.BinaryExpr, *syntax.UnaryExpr:
		sb.WriteByte('(')
		if err := writeJS(sb, e); err != nil {
			return err
		}
		sb.WriteByte(')')
		return nil
	}
	return writeJS(sb, e)
}

func writeBinaryJS(sb *strings.Builder, e *syntax.BinaryExpr) error {
	var op string
	switch e.Op {
	case syntax.AND:
		op = "&&"
	case syntax.OR:
		op = "||"
	case syntax.EQL:
		op = "==="
	case syntax.NEQ:
		op = "!=="
	case syntax.IN, syntax.NOT_IN:
		if e.Op == syntax.NOT_IN {
			sb.WriteByte('!')
		}
		if err := writeOperand(sb, e.Y); err != nil {
			return err
		}
		sb.WriteString(".includes(")
		if err := writeJS(sb, e.X); err != nil {
			return err
		}
		sb.WriteByte(')')
		return nil
	case syntax.SLASHSLASH:
		sb.WriteString("Math.floor(")
		if err := writeOperand(sb, e.X); err != nil {
			return err
		}
		sb.WriteString(" / ")
		if err := writeOperand(sb, e.Y); err != nil {
			return err
		}
		sb.WriteByte(')')
		return nil
	case syntax.PLUS, syntax.MINUS, syntax.STAR, syntax.SLASH, syntax.PERCENT,
		syntax.LT, syntax.GT, syntax.LE, syntax.GE,
		syntax.PIPE, syntax.AMP, syntax.CIRCUMFLEX, syntax.LTLT, syntax.GTGT:
		op = e.Op.String()
	default:
		return fmt.Errorf("%w: binary operator %s", ErrUnsupported, e.Op)
	}

	if err := writeOperand(sb, e.X); err != nil {
		return err
	}
	sb.WriteString(" " + op + " ")
	return writeOperand(sb, e.Y)
}

func writeCallJS(sb *strings.Builder, e *syntax.CallExpr) error {
	for _, arg := range e.Args {
		if kw, ok := arg.(*syntax.BinaryExpr); ok && kw.Op == syntax.EQ {
			return fmt.Errorf("%w: keyword arguments", ErrUnsupported)
		}
		if u, ok := arg.(*syntax.UnaryExpr); ok && (u.Op == syntax.STAR || u.Op == syntax.STARSTAR) {
			return fmt.Errorf("%w: argument unpacking", ErrUnsupported)
		}
	}

	switch fn := e.Fn.(type) {
	case *syntax.Ident:
		switch fn.Name {
		case "len":
			if len(e.Args) != 1 {
				return fmt.Errorf("%w: len() takes one argument", ErrUnsupported)
			}
			if err := writeOperand(sb, e.Args[0]); err != nil {
				return err
			}
			sb.WriteString(".length")
			return nil
		case "str":
			if len(e.Args) != 1 {
				return fmt.Errorf("%w: str() takes one argument", ErrUnsupported)
			}
			if err := writeOperand(sb, e.Args[0]); err != nil {
				return err
			}
			sb.WriteString(".toString()")
			return nil
		case "random", "rand":
			if len(e.Args) != 0 {
				return fmt.Errorf("%w: %s() with arguments", ErrUnsupported, fn.Name)
			}
			sb.WriteString("Math.random()")
			return nil
		}
		if js, ok := jsFuncs[fn.Name]; ok {
			sb.WriteString(js)
		} else {
			sb.WriteString(fn.Name)
		}
	case *syntax.DotExpr:
		if err := writeOperand(sb, fn.X); err != nil {
			return err
		}
		sb.WriteByte('.')
		if js, ok := jsMethods[fn.Name.Name]; ok {
			sb.WriteString(js)
		} else {
			sb.WriteString(fn.Name.Name)
		}
	default:
		if err := writeOperand(sb, e.Fn); err != nil {
			return err
		}
	}

	sb.WriteByte('(')
	for i, arg := range e.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := writeJS(sb, arg); err != nil {
			return err
		}
	}
	sb.WriteByte(')')
	return nil
}

func writeArrayJS(sb *strings.Builder, items []syntax.Expr) error {
	sb.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := writeJS(sb, item); err != nil {
			return err
		}
	}
	sb.WriteByte(']')
	return nil
}
