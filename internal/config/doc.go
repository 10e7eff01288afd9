// Package config defines the format-agnostic project model for the
// application, along with the Loader interface for reading it from files.
//
// The `config.Model` is the single source of truth for which experiments
// the app compiles and where it writes them. Concrete implementations of
// the Loader, such as for HCL, are provided in separate packages.
package config
