package domain

import "fmt"

// FaultKind classifies why a stage failed
type FaultKind int

const (
	CompileFault FaultKind = iota + 1
	RuntimeFault
	TimeoutFault
	ResourceFault
	SystemFault
)

func (k FaultKind) String() string {
	switch k {
	case CompileFault:
		return "compile"
	case RuntimeFault:
		return "runtime"
	case TimeoutFault:
		return "timeout"
	case ResourceFault:
		return "resource"
	case SystemFault:
		return "system"
	default:
		return "unknown"
	}
}

// Operational reports whether the fault is logged server-side only
func (k FaultKind) Operational() bool {
	return k == ResourceFault || k == SystemFault
}

// Fault is an error tagged with its kind
type Fault struct {
	Kind FaultKind
	Op   string
	Err  error
}

func NewFault(kind FaultKind, op string, err error) *Fault {
	return &Fault{Kind: kind, Op: op, Err: err}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s fault during %s: %v", f.Kind, f.Op, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
