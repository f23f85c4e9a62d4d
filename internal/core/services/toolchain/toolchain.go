// Package toolchain turns source text into a runnable artifact for each supported language.
package toolchain

import (
	"path/filepath"
	"strconv"
	"strings"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

// Kind tells how a language gets from source to something runnable
type Kind int

const (
	Compiled Kind = iota + 1
	NameDerived
	Interpreted
	Transpiled
)

func (k Kind) String() string {
	switch k {
	case Compiled:
		return "compiled"
	case NameDerived:
		return "name-derived"
	case Interpreted:
		return "interpreted"
	case Transpiled:
		return "transpiled"
	default:
		return "unknown"
	}
}

// Template placeholders expanded per submission
const (
	phSource = "{src}"
	phBinary = "{bin}"
	phDir    = "{dir}"
	phName   = "{name}"
)

// Limit placeholders are left in the runnable by Compile and filled per run by BindLimits
const (
	phHeapMB  = "{heap_mb}"
	phStackKB = "{stack_kb}"
)

// Spec is the compile/run capability pair of one language.
// Compile and Run are argv templates; an empty Compile means there is no compile step.
// Interpreted languages may carry a syntax-only Compile that produces nothing.
type Spec struct {
	Language    string
	Description string
	Kind        Kind
	// SourceFile may reference {name} for name-derived languages
	SourceFile string
	// Binary defaults to main.out
	Binary  string
	Compile []string
	Run     []string
	// Env holds KEY=value templates added to the run environment
	Env []string

	// Policy rejects source before anything touches the disk
	Policy func(code string) error
	// Prepare rewrites accepted source before it is written
	Prepare func(code string) string
	// Identifier extracts the declared name the artifact must carry
	Identifier func(code string) (string, error)

	// AddressSpaceUnbounded marks runtimes that reserve large virtual ranges up front
	AddressSpaceUnbounded bool
}

// Binaries lists the executables the spec shells out to
func (s *Spec) Binaries() []string {
	var out []string
	seen := map[string]bool{}
	for _, argv := range [][]string{s.Compile, s.Run} {
		if len(argv) == 0 || strings.Contains(argv[0], "{") || seen[argv[0]] {
			continue
		}
		seen[argv[0]] = true
		out = append(out, argv[0])
	}
	return out
}

type layout struct {
	dir    string
	source string
	binary string
	name   string
}

func (s *Spec) layout(dir, name string) layout {
	binary := s.Binary
	if binary == "" {
		binary = "main.out"
	}
	source := strings.ReplaceAll(s.SourceFile, phName, name)
	return layout{
		dir:    dir,
		source: filepath.Join(dir, source),
		binary: filepath.Join(dir, binary),
		name:   name,
	}
}

func (l layout) expand(argv []string) []string {
	r := strings.NewReplacer(phSource, l.source, phBinary, l.binary, phDir, l.dir, phName, l.name)
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = r.Replace(arg)
	}
	return out
}

// BindLimits fills the limit placeholders of a runnable for one run.
// {heap_mb} is three quarters of the memory cap, leaving the rest to the runtime itself.
// Arguments and variables naming a limit that is unset are dropped so the runtime keeps its default.
func BindLimits(r domain.Runnable, limits domain.Limits) domain.Runnable {
	values := []struct {
		placeholder string
		value       uint64
	}{
		{phHeapMB, limits.MemoryBytes / 4 * 3 >> 20},
		{phStackKB, limits.StackBytes >> 10},
	}
	bind := func(in []string) []string {
		if len(in) == 0 {
			return in
		}
		out := make([]string, 0, len(in))
	next:
		for _, s := range in {
			for _, v := range values {
				if !strings.Contains(s, v.placeholder) {
					continue
				}
				if v.value == 0 {
					continue next
				}
				s = strings.ReplaceAll(s, v.placeholder, strconv.FormatUint(v.value, 10))
			}
			out = append(out, s)
		}
		return out
	}
	r.Args = bind(r.Args)
	r.Env = bind(r.Env)
	return r
}
