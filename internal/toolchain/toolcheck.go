package toolchain

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement describes an external program a run depends on.
type Requirement struct {
	// Name is the program as configured (a bare name or a path).
	Name string

	// Optional requirements are reported but never fail the check.
	Optional bool

	// Purpose is shown when the program is missing.
	Purpose string
}

// ToolStatus is the outcome of checking one Requirement.
type ToolStatus struct {
	Requirement Requirement
	Found       string // resolved path, empty when missing
}

// LookPath resolves a program name. Tests replace it.
var LookPath = exec.LookPath

// Resolve looks up each requirement.
func Resolve(reqs []Requirement) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(reqs))
	for _, req := range reqs {
		st := ToolStatus{Requirement: req}
		if path, err := LookPath(req.Name); err == nil {
			st.Found = path
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// CheckTools returns an error naming every missing non-optional requirement.
func CheckTools(reqs []Requirement) error {
	var missing []string
	for _, st := range Resolve(reqs) {
		if st.Found != "" || st.Requirement.Optional {
			continue
		}
		if st.Requirement.Purpose != "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", st.Requirement.Name, st.Requirement.Purpose))
		} else {
			missing = append(missing, st.Requirement.Name)
		}
	}

	switch len(missing) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s not found in PATH", missing[0])
	default:
		return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}
}

// Requirements lists the programs a configure run needs.
func Requirements(cxx, python string) []Requirement {
	return []Requirement{
		{Name: cxx, Purpose: "C++ compiler for capability probes"},
		{Name: python, Purpose: "Python interpreter with TensorFlow installed"},
	}
}
