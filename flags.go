package h5build

import (
	"fmt"
	"strings"
)

// Define is a preprocessor macro definition. An empty Value renders as a
// bare -DName.
type Define struct {
	Name  string
	Value string
}

// CompilerSettings holds everything a compiler invocation building against
// HDF5 needs: search paths, link libraries, and defines.
type CompilerSettings struct {
	Libraries      []string // library base names, without lib prefix or extension
	IncludeDirs    []string
	LibraryDirs    []string
	RuntimeLibDirs []string // rpath entries; empty on Windows
	Defines        []Define
}

// defaultCompilerSettings returns the platform baseline before any resolved
// configuration is applied.
func defaultCompilerSettings(goos string) CompilerSettings {
	if goos == "windows" {
		return CompilerSettings{
			Libraries: []string{"hdf5", "hdf5_hl"},
			Defines: []Define{
				{Name: "H5_USE_16_API"},
				{Name: "_HDF5USEDLL_"},
			},
		}
	}
	return CompilerSettings{
		Libraries:   []string{"hdf5", "hdf5_hl"},
		IncludeDirs: []string{"/opt/local/include", "/usr/local/include"},
		LibraryDirs: []string{"/opt/local/lib", "/usr/local/lib"},
		Defines: []Define{
			{Name: "H5_USE_16_API"},
		},
	}
}

// CompilerSettingsFor assembles compiler settings for a resolved
// configuration on the given platform (a runtime.GOOS value).
//
// Custom locations are inserted ahead of the platform defaults so an
// explicitly configured HDF5 shadows any copy in a default location, and
// resolved library names replace the defaults outright. On non-Windows
// platforms the runtime library dirs mirror the library dirs so the built
// extension finds its HDF5 without LD_LIBRARY_PATH games.
func CompilerSettingsFor(res *Resolution, goos string) CompilerSettings {
	settings := defaultCompilerSettings(goos)

	if res.Settings.LibDir != "" {
		settings.LibraryDirs = append([]string{res.Settings.LibDir}, settings.LibraryDirs...)
	}
	if res.Settings.IncludeDir != "" {
		settings.IncludeDirs = append([]string{res.Settings.IncludeDir}, settings.IncludeDirs...)
	}
	if len(res.Settings.LibNames) > 0 {
		settings.Libraries = append([]string{}, res.Settings.LibNames...)
	}

	if goos != "windows" {
		settings.RuntimeLibDirs = append([]string{}, settings.LibraryDirs...)
	}

	return settings
}

// CFlags renders the include dirs and defines as compiler arguments.
func (s CompilerSettings) CFlags() []string {
	var flags []string
	for _, dir := range s.IncludeDirs {
		flags = append(flags, "-I"+dir)
	}
	for _, def := range s.Defines {
		if def.Value == "" {
			flags = append(flags, "-D"+def.Name)
		} else {
			flags = append(flags, fmt.Sprintf("-D%s=%s", def.Name, def.Value))
		}
	}
	return flags
}

// LDFlags renders the library dirs, rpath entries, and libraries as linker
// arguments.
func (s CompilerSettings) LDFlags() []string {
	var flags []string
	for _, dir := range s.LibraryDirs {
		flags = append(flags, "-L"+dir)
	}
	for _, dir := range s.RuntimeLibDirs {
		flags = append(flags, "-Wl,-rpath,"+dir)
	}
	for _, lib := range s.Libraries {
		flags = append(flags, "-l"+lib)
	}
	return flags
}

// String renders the settings as a single shell-style flag line, handy for
// logs and for exporting to Makefile-driven builds.
func (s CompilerSettings) String() string {
	return strings.Join(append(s.CFlags(), s.LDFlags()...), " ")
}
