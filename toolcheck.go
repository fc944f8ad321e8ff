package h5build

import (
	"fmt"
	"os/exec"
	"strings"
)

// ToolChecker is an optional interface for components that shell out to
// external tools.
//
// Probes and builders can implement it to declare their tool dependencies
// and verify availability before doing any work, which turns a confusing
// mid-build failure into an upfront "gcc not found in PATH".
//
// # Example Implementation
//
//	func (b *ExtensionBuilder) RequiredTools() []ToolRequirement {
//	    return []ToolRequirement{
//	        {Name: "gcc", Alternatives: []string{"clang", "cc"}, Purpose: "C compiler"},
//	        {Name: "pkg-config", Optional: true, Purpose: "library metadata"},
//	    }
//	}
//
// # Consumer Usage
//
//	if checker, ok := component.(ToolChecker); ok {
//	    if err := checker.CheckTools(); err != nil {
//	        return fmt.Errorf("build tools missing: %w", err)
//	    }
//	}
type ToolChecker interface {
	// RequiredTools returns the list of tools this component needs,
	// including optional tools and alternatives.
	RequiredTools() []ToolRequirement

	// CheckTools verifies that all required tools are available. Returns
	// nil when they are, or an error naming every missing required tool.
	// Optional tools never cause errors.
	CheckTools() error
}

// ToolRequirement describes one external tool dependency.
//
// A requirement is satisfied when the primary Name or any entry in
// Alternatives is found in PATH. Optional requirements are checked but
// never fail.
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g. "gcc", "pkg-config").
	Name string

	// Alternatives are other binaries that satisfy this requirement,
	// e.g. []string{"clang", "cc"} for a C compiler.
	Alternatives []string

	// Optional marks tools whose absence must not fail the check.
	Optional bool

	// Purpose is a human-readable reason the tool is needed, included in
	// error messages. Example: "C compiler for the version probe".
	Purpose string
}

// CheckToolAvailable reports whether a tool is in the system PATH, with a
// consistent error message when it is not.
func CheckToolAvailable(tool string) error {
	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// CheckRequiredTools verifies a list of tool requirements, trying each
// requirement's alternatives in order, and returns a single error naming
// every missing required tool.
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missing []string

	for _, req := range requirements {
		found := CheckToolAvailable(req.Name) == nil
		if !found {
			for _, alt := range req.Alternatives {
				if CheckToolAvailable(alt) == nil {
					found = true
					break
				}
			}
		}
		if !found && !req.Optional {
			if req.Purpose != "" {
				missing = append(missing, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missing = append(missing, req.Name)
			}
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
