// Package protocol defines the contracts between the execution engine and the units of work it runs.
package protocol

import "context"

// Runnable is a named unit of work with declared inputs and outputs.
type Runnable interface {
	// Name is the human readable name and, by default, the identity of the runnable.
	Name() string

	// Inputs lists the paths the work depends on. It is called again on every
	// classification, so implementations may enumerate directories or globs.
	Inputs() []string

	// Outputs lists the paths the work produces.
	Outputs() []string

	// Run performs the work and returns its status code. Zero means success.
	// A non-nil error is treated as a failed run.
	Run(ctx context.Context) (int, error)
}

// Identifiable overrides the identity of a runnable. Without it, Name is used.
type Identifiable interface {
	ID() string
}

// Configurable exposes a JSON-serializable configuration payload whose
// changes force a re-run.
type Configurable interface {
	Config() any
}

// DependencyManaged lets a runnable opt out of incremental execution.
// Runnables that do not implement it are dependency managed.
type DependencyManaged interface {
	NeedsDependencyManagement() bool
}

// IDOf returns the identity of r.
func IDOf(r Runnable) string {
	if identifiable, ok := r.(Identifiable); ok {
		if id := identifiable.ID(); id != "" {
			return id
		}
	}

	return r.Name()
}

// ConfigOf returns the configuration of r, or nil.
func ConfigOf(r Runnable) any {
	if configurable, ok := r.(Configurable); ok {
		return configurable.Config()
	}

	return nil
}

// NeedsDependencyManagement reports whether r takes part in incremental execution.
func NeedsDependencyManagement(r Runnable) bool {
	if managed, ok := r.(DependencyManaged); ok {
		return managed.NeedsDependencyManagement()
	}

	return true
}
