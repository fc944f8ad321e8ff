package h5build

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchesPattern checks whether a filename matches any of the given regex
// patterns. Invalid patterns are silently skipped.
//
// # Example
//
//	if MatchesPattern(name, `^libhdf5\.so`, `^libhdf5\.dylib`) {
//	    // looks like the HDF5 shared library
//	}
func MatchesPattern(filename string, patterns ...string) bool {
	for _, pattern := range patterns {
		if matched, _ := regexp.MatchString(pattern, filename); matched {
			return true
		}
	}
	return false
}

// BuildError creates a standardized build error carrying the captured tool
// output, so a compile failure surfaces the compiler's own diagnostics
// instead of just an exit code.
//
// # Format
//
// With error and output:
//
//	compile build failed: exit status 1
//
//	Build output:
//	gcc -shared -fPIC -o ext.so ext.c
//	ext.c:3:10: fatal error: hdf5.h: No such file or directory
func BuildError(stage string, output []string, err error) error {
	outputStr := strings.TrimSpace(strings.Join(output, "\n"))

	var prefix string
	if err != nil {
		prefix = fmt.Sprintf("%s build failed: %v", stage, err)
	} else {
		prefix = fmt.Sprintf("%s build failed", stage)
	}

	if outputStr != "" {
		return fmt.Errorf("%s\n\nBuild output:\n%s", prefix, outputStr)
	}
	return fmt.Errorf("%s", prefix)
}
