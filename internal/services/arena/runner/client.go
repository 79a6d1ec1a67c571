// Package runner executes submitted source code against a remote
// code-execution service and reports a closed set of outcomes.
package runner

import "context"

// Status classifies one execution outcome.
type Status string

const (
	// StatusOK means the program compiled and ran to completion.
	StatusOK Status = "ok"
	// StatusCompileError means compilation failed.
	StatusCompileError Status = "compile_error"
	// StatusRuntimeError means the program crashed or exited nonzero.
	StatusRuntimeError Status = "runtime_error"
	// StatusTimeout means the execution exceeded its time limit.
	StatusTimeout Status = "timeout"
	// StatusTransportError means the execution service could not be reached.
	StatusTransportError Status = "transport_error"
)

// ExecuteInput describes one program run.
type ExecuteInput struct {
	Language string
	Source   string
	Stdin    string
}

// Execution reports the outcome of one program run. Failures are reported
// through Status and Detail, never as an error: an error from Execute means
// the request itself was malformed.
type Execution struct {
	Status Status
	Stdout string
	Stderr string
	Detail string
}

// OK reports whether the run completed cleanly.
func (e Execution) OK() bool {
	return e.Status == StatusOK
}

// Client executes source code remotely.
type Client interface {
	Execute(ctx context.Context, input ExecuteInput) (Execution, error)
}
