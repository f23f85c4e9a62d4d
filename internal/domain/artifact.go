package domain

import "time"

// CompileStatus is the outcome of the toolchain step
type CompileStatus string

const (
	CompileOK    CompileStatus = "ok"
	CompileError CompileStatus = "error"
)

// DiagnosticSource tells toolchain output apart from checks done before any toolchain ran
type DiagnosticSource string

const (
	DiagnosticToolchain  DiagnosticSource = "toolchain"
	DiagnosticPolicy     DiagnosticSource = "policy"
	DiagnosticIdentifier DiagnosticSource = "identifier"
)

// Runnable is an opaque command handle ready to be spawned
type Runnable struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Dir     string   `json:"dir"`

	// Env is appended to the service environment
	Env []string `json:"env,omitempty"`
}

// CompileArtifact is owned by the executor for the lifetime of one submission
type CompileArtifact struct {
	Status      CompileStatus
	Runnable    Runnable
	Diagnostics []string
	Source      DiagnosticSource
}

// Limits bounds a single process run
type Limits struct {
	Timeout     time.Duration
	MemoryBytes uint64
	StackBytes  uint64
	OutputBytes int
	// AddressSpaceUnbounded skips RLIMIT_AS for runtimes that reserve large virtual ranges;
	// those are held to MemoryBytes by resident set sampling alone.
	AddressSpaceUnbounded bool
}
