package h5build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// HeaderProbe reads the version straight out of H5public.h. It needs no
// tools at all, only a readable include directory, which makes it the
// fallback when neither pkg-config nor the compiler wrapper exist.
type HeaderProbe struct{}

// Name returns the probe name.
func (p *HeaderProbe) Name() string {
	return "header"
}

// Available always reports true; Detect fails cleanly when no header is
// found in the candidate directories.
func (p *HeaderProbe) Available() bool {
	return true
}

// Detect locates H5public.h in the candidate include directories and
// parses the H5_VERS_MAJOR/MINOR/RELEASE defines.
func (p *HeaderProbe) Detect(ctx context.Context, req DetectRequest) (Version, error) {
	path, err := findHeader(req.IncludeDirs, "H5public.h")
	if err != nil {
		return Version{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Version{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseVersionHeader(string(data))
}

// findHeader returns the first dir in dirs containing name. The directory
// itself and a "hdf5" subdirectory are both tried, since some layouts nest
// the headers one level down.
func findHeader(dirs []string, name string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, candidate := range []string{
			filepath.Join(dir, name),
			filepath.Join(dir, "hdf5", name),
		} {
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%s not found in candidate include directories", name)
}

var versionDefineRe = regexp.MustCompile(`(?m)^#define\s+H5_VERS_(MAJOR|MINOR|RELEASE)\s+(\d+)`)

// ParseVersionHeader extracts the version triple from H5public.h contents.
func ParseVersionHeader(src string) (Version, error) {
	var v Version
	seen := map[string]bool{}
	for _, m := range versionDefineRe.FindAllStringSubmatch(src, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Version{}, fmt.Errorf("malformed H5_VERS_%s define", m[1])
		}
		switch m[1] {
		case "MAJOR":
			v.Major = n
		case "MINOR":
			v.Minor = n
		case "RELEASE":
			v.Release = n
		}
		seen[m[1]] = true
	}
	if !seen["MAJOR"] || !seen["MINOR"] || !seen["RELEASE"] {
		return Version{}, fmt.Errorf("H5_VERS defines missing from header")
	}
	return v, nil
}

var featureDefineRe = regexp.MustCompile(`(?m)^#define\s+(H5_HAVE_PARALLEL|H5_HAVE_THREADSAFE)\s+1`)

// ParseCapabilityHeader extracts build capabilities from H5pubconf.h
// contents.
func ParseCapabilityHeader(src string) Capabilities {
	var caps Capabilities
	for _, m := range featureDefineRe.FindAllStringSubmatch(src, -1) {
		switch m[1] {
		case "H5_HAVE_PARALLEL":
			caps.Parallel = true
		case "H5_HAVE_THREADSAFE":
			caps.ThreadSafe = true
		}
	}
	return caps
}
