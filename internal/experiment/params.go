package experiment

import (
	"fmt"
	"slices"

	"github.com/vk/psyexpgo/internal/codegen"
)

// Params is an insertion-ordered collection of named Params.
type Params struct {
	order []string
	byKey map[string]*Param
}

// NewParams returns an empty collection.
func NewParams() *Params {
	return &Params{byKey: make(map[string]*Param)}
}

// Set stores p under name, keeping the original position when name exists.
func (ps *Params) Set(name string, p *Param) {
	if _, ok := ps.byKey[name]; !ok {
		ps.order = append(ps.order, name)
	}
	ps.byKey[name] = p
}

// Get returns the named Param or nil.
func (ps *Params) Get(name string) *Param {
	return ps.byKey[name]
}

// Has reports whether name is present.
func (ps *Params) Has(name string) bool {
	_, ok := ps.byKey[name]
	return ok
}

// Val returns the textual value of name, or "" when absent.
func (ps *Params) Val(name string) string {
	if p, ok := ps.byKey[name]; ok {
		return p.Val
	}
	return ""
}

// SetVal updates the value of an existing Param and reports whether it existed.
func (ps *Params) SetVal(name, val string) bool {
	p, ok := ps.byKey[name]
	if ok {
		p.Val = val
	}
	return ok
}

// Delete removes name.
func (ps *Params) Delete(name string) {
	if _, ok := ps.byKey[name]; !ok {
		return
	}
	delete(ps.byKey, name)
	ps.order = slices.DeleteFunc(ps.order, func(n string) bool { return n == name })
}

// Names returns the names in insertion order.
func (ps *Params) Names() []string {
	return slices.Clone(ps.order)
}

// SortedNames returns the names in lexical order.
func (ps *Params) SortedNames() []string {
	names := slices.Clone(ps.order)
	slices.Sort(names)
	return names
}

// Len returns the number of Params.
func (ps *Params) Len() int {
	return len(ps.order)
}

// Render returns the code for every Param keyed by name.
func (ps *Params) Render(target codegen.Target) (map[string]string, error) {
	out := make(map[string]string, len(ps.order))
	for _, name := range ps.order {
		code, err := ps.byKey[name].Code(target)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}
		out[name] = code
	}
	return out, nil
}

// initDefaults are placeholder values used at initialisation time for
// Params that change during the run and may refer to variables that do not
// exist yet.
var initDefaults = map[string]*Param{
	"pos":          {Val: "[0, 0]", ValType: ValCode},
	"fieldPos":     {Val: "[0, 0]", ValType: ValCode},
	"size":         {Val: "[1.0, 1.0]", ValType: ValCode},
	"ori":          {Val: "0.0", ValType: ValCode},
	"sf":           {Val: "1.0", ValType: ValCode},
	"phase":        {Val: "0.0", ValType: ValCode},
	"coherence":    {Val: "1.0", ValType: ValCode},
	"letterHeight": {Val: "1.0", ValType: ValCode},
	"opacity":      {Val: "1.0", ValType: ValCode},
	"contrast":     {Val: "1.0", ValType: ValCode},
	"volume":       {Val: "1.0", ValType: ValCode},
	"text":         {Val: "", ValType: ValStr},
	"color":        {Val: "white", ValType: ValStr},
	"fillColor":    {Val: "white", ValType: ValStr},
	"lineColor":    {Val: "white", ValType: ValStr},
	"image":        {Val: "sin", ValType: ValStr},
	"sound":        {Val: "A", ValType: ValStr},
}

// InitValues renders every Param for use in initialisation code. Params that
// are updated during the run are replaced by neutral placeholders.
func (ps *Params) InitValues(target codegen.Target) (map[string]string, error) {
	out := make(map[string]string, len(ps.order))
	for _, name := range ps.order {
		p := ps.byKey[name]
		switch {
		case name != "name" && p.IsBlank() && p.Val != "-1":
			out[name] = noneLiteral(target)
			continue
		case p.Updates == "" || p.Updates == UpdateConstant || p.Updates == "None":
		default:
			if def, ok := initDefaults[name]; ok {
				p = def
			} else {
				out[name] = noneLiteral(target)
				continue
			}
		}
		code, err := p.Code(target)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}
		out[name] = code
	}
	return out, nil
}
