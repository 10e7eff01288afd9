package config

// Model is the unified, format-agnostic representation of a project: the
// experiments to compile, the shared defaults and per-component param
// defaults.
type Model struct {
	Defaults          *Defaults
	Jobs              []*Job
	ComponentDefaults map[string]map[string]string
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Defaults:          &Defaults{},
		ComponentDefaults: make(map[string]map[string]string),
	}
}

// Defaults apply to every job that does not set the value itself.
type Defaults struct {
	Target    string
	OutputDir string
}

// Job is the format-agnostic representation of a `compile` block.
type Job struct {
	Name       string
	Experiment string // absolute, or relative to the working directory
	Target     string // empty means the default target
	Output     string // empty means next to the experiment
}

// Job returns the job with the given name, or nil.
func (m *Model) Job(name string) *Job {
	for _, j := range m.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}
