package pyexpr

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"go.starlark.net/syntax"
)

// ErrNotLiteral is returned when an expression contains anything other than
// plain literal values, for example a call or a variable reference.
var ErrNotLiteral = errors.New("expression is not a literal")

// ErrUnsupported is returned when an expression uses syntax that has no
// translation for the requested operation.
var ErrUnsupported = errors.New("unsupported expression")

var validVarRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var exprOptions = &syntax.FileOptions{
	Set: true,
}

// IsValidVariable reports whether s is a legal Python identifier.
func IsValidVariable(s string) bool {
	return validVarRe.MatchString(s)
}

// Parse parses a single expression.
func Parse(src string) (syntax.Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("empty expression")
	}
	expr, err := exprOptions.ParseExpr("<param>", src, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression %q: %w", src, err)
	}
	return expr, nil
}

// KV is one entry of a Dict literal.
type KV struct {
	Key   any
	Value any
}

// Dict is a dictionary literal. Entries keep their source order.
type Dict []KV

// Get returns the value stored under key. Lists and dicts are never keys.
func (d Dict) Get(key any) (any, bool) {
	if !hashable(key) {
		return nil, false
	}
	for _, kv := range d {
		if hashable(kv.Key) && kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

func hashable(v any) bool {
	switch v.(type) {
	case []any, Dict:
		return false
	}
	return true
}

// ParseLiteral evaluates a Python literal: numbers, strings, True, False,
// None, and lists, tuples or dicts built from them. Lists and tuples become
// []any, dicts become Dict, integers int64 and floats float64.
func ParseLiteral(src string) (any, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return literal(expr)
}

func literal(e syntax.Expr) (any, error) {
	switch e := e.(type) {
	case *syntax.Literal:
		switch v := e.Value.(type) {
		case string, int64, float64:
			return v, nil
		case *big.Int:
			return nil, fmt.Errorf("%w: integer %s out of range", ErrNotLiteral, v)
		default:
			return nil, fmt.Errorf("%w: %s", ErrNotLiteral, e.Raw)
		}
	case *syntax.Ident:
		switch e.Name {
		case "True":
			return true, nil
		case "False":
			return false, nil
		case "None":
			return nil, nil
		}
		return nil, fmt.Errorf("%w: name %q", ErrNotLiteral, e.Name)
	case *syntax.ParenExpr:
		return literal(e.X)
	case *syntax.UnaryExpr:
		if e.Op != syntax.MINUS && e.Op != syntax.PLUS {
			break
		}
		v, err := literal(e.X)
		if err != nil {
			return nil, err
		}
		neg := e.Op == syntax.MINUS
		switch n := v.(type) {
		case int64:
			if neg {
				return -n, nil
			}
			return n, nil
		case float64:
			if neg {
				return -n, nil
			}
			return n, nil
		}
		return nil, fmt.Errorf("%w: unary %s on non-number", ErrNotLiteral, e.Op)
	case *syntax.ListExpr:
		return literalList(e.List)
	case *syntax.TupleExpr:
		return literalList(e.List)
	case *syntax.DictExpr:
		d := make(Dict, 0, len(e.List))
		for _, item := range e.List {
			entry, ok := item.(*syntax.DictEntry)
			if !ok {
				return nil, fmt.Errorf("%w: malformed dict entry", ErrNotLiteral)
			}
			k, err := literal(entry.Key)
			if err != nil {
				return nil, err
			}
			v, err := literal(entry.Value)
			if err != nil {
				return nil, err
			}
			d = append(d, KV{Key: k, Value: v})
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrNotLiteral, e)
}

func literalList(items []syntax.Expr) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		v, err := literal(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Conditions is a parsed list of condition rows.
type Conditions struct {
	// Fields lists every key in order of first appearance.
	Fields []string
	Rows   []map[string]any
}

// ParseConditions evaluates a list of dicts with string keys, the inline form
// of a loop's conditions.
func ParseConditions(src string) (*Conditions, error) {
	v, err := ParseLiteral(src)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("conditions must be a list of dicts, got %T", v)
	}

	conds := &Conditions{}
	seen := make(map[string]struct{})
	for i, item := range list {
		d, ok := item.(Dict)
		if !ok {
			return nil, fmt.Errorf("condition %d must be a dict, got %T", i, item)
		}
		row := make(map[string]any, len(d))
		for _, kv := range d {
			key, ok := kv.Key.(string)
			if !ok {
				return nil, fmt.Errorf("condition %d has a non-string key %v", i, kv.Key)
			}
			row[key] = kv.Value
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				conds.Fields = append(conds.Fields, key)
			}
		}
		conds.Rows = append(conds.Rows, row)
	}
	return conds, nil
}

// ParseStringList evaluates a literal that must be a string or a list/tuple
// of strings, returning the strings.
func ParseStringList(src string) ([]string, error) {
	v, err := ParseLiteral(src)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: list item %v is not a string", ErrNotLiteral, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: expected string or list of strings, got %T", ErrNotLiteral, v)
}

// Names returns the free identifiers an expression refers to, in order of
// first appearance. Attribute names and keyword argument names are not
// included.
func Names(src string) ([]string, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}
	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	if err := collectNames(expr, add); err != nil {
		return nil, err
	}
	return names, nil
}

func collectNames(e syntax.Expr, add func(string)) error {
	if e == nil {
		return nil
	}
	switch e := e.(type) {
	case *syntax.Literal:
		return nil
	case *syntax.Ident:
		add(e.Name)
		return nil
	case *syntax.ParenExpr:
		return collectNames(e.X, add)
	case *syntax.UnaryExpr:
		return collectNames(e.X, add)
	case *syntax.BinaryExpr:
		if err := collectNames(e.X, add); err != nil {
			return err
		}
		return collectNames(e.Y, add)
	case *syntax.CallExpr:
		if err := collectNames(e.Fn, add); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if kw, ok := arg.(*syntax.BinaryExpr); ok && kw.Op == syntax.EQ {
				arg = kw.Y
			}
			if err := collectNames(arg, add); err != nil {
				return err
			}
		}
		return nil
	case *syntax.ListExpr:
		return collectAll(e.List, add)
	case *syntax.TupleExpr:
		return collectAll(e.List, add)
	case *syntax.DictExpr:
		for _, item := range e.List {
			entry, ok := item.(*syntax.DictEntry)
			if !ok {
				continue
			}
			if err := collectNames(entry.Key, add); err != nil {
				return err
			}
			if err := collectNames(entry.Value, add); err != nil {
				return err
			}
		}
		return nil
	case *syntax.IndexExpr:
		if err := collectNames(e.X, add); err != nil {
			return err
		}
		return collectNames(e.Y, add)
	case *syntax.SliceExpr:
		return collectAll([]syntax.Expr{e.X, e.Lo, e.Hi, e.Step}, add)
	case *syntax.DotExpr:
		return collectNames(e.X, add)
	case *syntax.CondExpr:
		return collectAll([]syntax.Expr{e.Cond, e.True, e.False}, add)
	}
	return fmt.Errorf("%w: %T", ErrUnsupported, e)
}

func collectAll(exprs []syntax.Expr, add func(string)) error {
	for _, e := range exprs {
		if err := collectNames(e, add); err != nil {
			return err
		}
	}
	return nil
}
