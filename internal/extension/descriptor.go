// Package extension assembles the build descriptor of the bcube TensorFlow
// op library.
//
// The Builder owns an in-progress descriptor exclusively while it runs the
// configuration pipeline. A Descriptor value only exists once every step has
// succeeded; a failure discards everything accumulated so far.
package extension

import (
	"slices"

	"github.com/bcube-dev/bcube-setup/internal/toolchain"
)

// Descriptor is everything the external compiler driver needs to build the
// extension. Values returned by Builder.Build share no memory with the
// builder or with each other.
type Descriptor struct {
	Name         string            `json:"name" yaml:"name" toml:"name"`
	Sources      []string          `json:"sources" yaml:"sources" toml:"sources"`
	Macros       []toolchain.Macro `json:"define_macros" yaml:"define_macros" toml:"define_macros"`
	IncludeDirs  []string          `json:"include_dirs" yaml:"include_dirs" toml:"include_dirs"`
	CompileFlags []string          `json:"extra_compile_args" yaml:"extra_compile_args" toml:"extra_compile_args"`
	LinkFlags    []string          `json:"extra_link_args" yaml:"extra_link_args" toml:"extra_link_args"`
	LibraryDirs  []string          `json:"library_dirs" yaml:"library_dirs" toml:"library_dirs"`
	Libraries    []string          `json:"libraries" yaml:"libraries" toml:"libraries"`
}

// Macro returns the value of the named macro and whether it is defined.
func (d Descriptor) Macro(name string) (string, bool) {
	for _, m := range d.Macros {
		if m.Name == name {
			return m.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (d Descriptor) Clone() Descriptor {
	return Descriptor{
		Name:         d.Name,
		Sources:      slices.Clone(d.Sources),
		Macros:       slices.Clone(d.Macros),
		IncludeDirs:  slices.Clone(d.IncludeDirs),
		CompileFlags: slices.Clone(d.CompileFlags),
		LinkFlags:    slices.Clone(d.LinkFlags),
		LibraryDirs:  slices.Clone(d.LibraryDirs),
		Libraries:    slices.Clone(d.Libraries),
	}
}

// accumulator is the mutable, builder-private form of a Descriptor.
type accumulator struct {
	d Descriptor
}

func newAccumulator(name string, sources []string) *accumulator {
	return &accumulator{d: Descriptor{
		Name:         name,
		Sources:      slices.Clone(sources),
		Macros:       []toolchain.Macro{},
		IncludeDirs:  []string{},
		CompileFlags: []string{},
		LinkFlags:    []string{},
		LibraryDirs:  []string{},
		Libraries:    []string{},
	}}
}

// define adds or replaces a macro; macros behave as a set keyed by name.
func (a *accumulator) define(name, value string) {
	for i, m := range a.d.Macros {
		if m.Name == name {
			a.d.Macros[i].Value = value
			return
		}
	}
	a.d.Macros = append(a.d.Macros, toolchain.Macro{Name: name, Value: value})
}

func (a *accumulator) includeDirs(dirs ...string) { a.d.IncludeDirs = append(a.d.IncludeDirs, dirs...) }
func (a *accumulator) libraryDirs(dirs ...string) { a.d.LibraryDirs = append(a.d.LibraryDirs, dirs...) }
func (a *accumulator) libraries(libs ...string)   { a.d.Libraries = append(a.d.Libraries, libs...) }
func (a *accumulator) compileFlags(f ...string)   { a.d.CompileFlags = append(a.d.CompileFlags, f...) }
func (a *accumulator) linkFlags(f ...string)      { a.d.LinkFlags = append(a.d.LinkFlags, f...) }

// freeze hands out an independent copy.
func (a *accumulator) freeze() Descriptor {
	return a.d.Clone()
}
