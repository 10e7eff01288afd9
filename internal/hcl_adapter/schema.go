package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Compiles   []*Compile   `hcl:"compile,block"`
	Defaults   []*Defaults  `hcl:"defaults,block"`
	Components []*Component `hcl:"component,block"`
	Remain     hcl.Body     `hcl:",remain"`
}

// Compile is the HCL schema of a `compile "name" { ... }` block.
type Compile struct {
	Name       string         `hcl:"name,label"`
	Experiment hcl.Expression `hcl:"experiment"`
	Target     hcl.Expression `hcl:"target,optional"`
	Output     hcl.Expression `hcl:"output,optional"`
}

// Defaults is the HCL schema of a `defaults { ... }` block.
type Defaults struct {
	Target    hcl.Expression `hcl:"target,optional"`
	OutputDir hcl.Expression `hcl:"output_dir,optional"`
}

// Component is the HCL schema of a `component "Type" { params = {...} }`
// block.
type Component struct {
	Type   string         `hcl:"type,label"`
	Params hcl.Expression `hcl:"params"`
}
