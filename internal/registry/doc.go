// Package registry provides the central "glue" for the component system.
//
// The Registry maps the type names used in experiment files (e.g.,
// "TextComponent") to the Go constructors that implement them. It can also
// hold per-type param defaults loaded from HCL files, which are applied to
// every new component of that type.
//
// During application startup, the registry is populated by the modules and
// then validated to ensure that every constructor produces a component of
// the type it was registered under, and that every configured default
// names a real param.
package registry
