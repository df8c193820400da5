package protocol

import "context"

// Task is a field-driven Runnable. Function fields are evaluated on every call.
type Task struct {
	TaskName string
	TaskID   string

	InputsFunc  func() []string
	OutputsFunc func() []string

	Configuration any

	// SkipDependencyManagement makes the task run unconditionally.
	SkipDependencyManagement bool

	Action func(ctx context.Context) (int, error)
}

var (
	_ Runnable          = (*Task)(nil)
	_ Identifiable      = (*Task)(nil)
	_ Configurable      = (*Task)(nil)
	_ DependencyManaged = (*Task)(nil)
)

func (t *Task) Name() string { return t.TaskName }

func (t *Task) ID() string { return t.TaskID }

func (t *Task) Config() any { return t.Configuration }

func (t *Task) NeedsDependencyManagement() bool { return !t.SkipDependencyManagement }

func (t *Task) Inputs() []string {
	if t.InputsFunc == nil {
		return nil
	}

	return t.InputsFunc()
}

func (t *Task) Outputs() []string {
	if t.OutputsFunc == nil {
		return nil
	}

	return t.OutputsFunc()
}

func (t *Task) Run(ctx context.Context) (int, error) {
	if t.Action == nil {
		return 0, nil
	}

	return t.Action(ctx)
}

// Paths returns a function yielding a fixed list of paths, for use as InputsFunc or OutputsFunc.
func Paths(paths ...string) func() []string {
	return func() []string {
		return paths
	}
}
