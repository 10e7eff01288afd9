package experiment

// UnknownComponent stands in for an element whose type is not registered.
// It keeps every param it was loaded with so the experiment can be saved
// again without losing data, and writes no code.
type UnknownComponent struct {
	*BaseComponent
}

// NewUnknownComponent returns a placeholder for a component of type typ.
func NewUnknownComponent(typ, name string) *UnknownComponent {
	b := NewBareComponent(typ, name, "Other")
	b.targets = nil
	return &UnknownComponent{BaseComponent: b}
}

// WriteRoutineStartCode writes nothing: the params of an unknown component
// have no known setters.
func (u *UnknownComponent) WriteRoutineStartCode(*Context) error { return nil }
