package h5build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLibraryPattern(t *testing.T) {
	testCases := []struct {
		name    string
		det     *Detector
		mpi     bool
		match   []string
		noMatch []string
	}{
		{
			name:    "darwin",
			det:     &Detector{GOOS: "darwin"},
			match:   []string{"libhdf5.dylib", "libhdf5.dylib.103"},
			noMatch: []string{"libhdf5.so", "libhdf5_hl.dylib"},
		},
		{
			name:    "debian serial",
			det:     &Detector{GOOS: "linux", Distro: "debian"},
			match:   []string{"libhdf5_serial.so", "libhdf5_serial.so.100.0.1"},
			noMatch: []string{"libhdf5.so", "libhdf5_openmpi.so"},
		},
		{
			name:    "ubuntu mpi",
			det:     &Detector{GOOS: "linux", Distro: "ubuntu"},
			mpi:     true,
			match:   []string{"libhdf5_openmpi.so"},
			noMatch: []string{"libhdf5_serial.so", "libhdf5.so"},
		},
		{
			name:    "generic linux",
			det:     &Detector{GOOS: "linux", Distro: "fedora"},
			match:   []string{"libhdf5.so", "libhdf5.so.103.0.0"},
			noMatch: []string{"libhdf5.dylib", "hdf5.so"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pattern := tc.det.libraryPattern(tc.mpi)
			for _, name := range tc.match {
				if !pattern.MatchString(name) {
					t.Errorf("pattern %s should match %q", pattern, name)
				}
			}
			for _, name := range tc.noMatch {
				if pattern.MatchString(name) {
					t.Errorf("pattern %s should not match %q", pattern, name)
				}
			}
		})
	}
}

func TestCandidateLibDirs(t *testing.T) {
	det := &Detector{GOOS: "linux", Distro: "debian", Machine: "x86_64"}

	dirs := det.CandidateLibDirs(context.Background(), "", false)
	want := "/usr/lib/x86_64-linux-gnu"
	found := false
	for _, d := range dirs {
		if d == want {
			found = true
		}
	}
	if !found {
		t.Errorf("CandidateLibDirs = %v, missing debian multiarch dir %s", dirs, want)
	}

	// An explicit prefix must come first so it shadows system copies.
	dirs = det.CandidateLibDirs(context.Background(), "/opt/hdf5", false)
	if dirs[0] != filepath.Join("/opt/hdf5", "lib") {
		t.Errorf("prefix lib dir not first: %v", dirs)
	}
}

func TestCandidateIncludeDirs(t *testing.T) {
	det := &Detector{GOOS: "linux", Distro: "debian"}

	serial := det.CandidateIncludeDirs(context.Background(), "", false)
	if serial[0] != "/usr/include/hdf5/serial" {
		t.Errorf("serial include dirs = %v", serial)
	}

	mpi := det.CandidateIncludeDirs(context.Background(), "", true)
	if mpi[0] != "/usr/include/hdf5/openmpi" {
		t.Errorf("mpi include dirs = %v", mpi)
	}

	prefixed := det.CandidateIncludeDirs(context.Background(), "/opt/hdf5", false)
	if prefixed[0] != filepath.Join("/opt/hdf5", "include") {
		t.Errorf("prefix include dir not first: %v", prefixed)
	}
}

func TestFindLibraryPrefersShortestName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"libhdf5.so.103.0.0", "libhdf5.so", "libhdf5.so.103"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	det := &Detector{GOOS: "linux", Distro: "fedora"}
	path, err := det.FindLibrary([]string{"/nonexistent", dir}, false)
	if err != nil {
		t.Fatalf("FindLibrary: %v", err)
	}
	if filepath.Base(path) != "libhdf5.so" {
		t.Errorf("FindLibrary = %s, want the unversioned libhdf5.so", path)
	}
}

func TestFindLibraryNotFound(t *testing.T) {
	det := &Detector{GOOS: "linux", Distro: "fedora"}
	if _, err := det.FindLibrary([]string{t.TempDir(), "/nonexistent"}, false); err == nil {
		t.Error("expected error when no candidate directory has the library")
	}
}

func TestDefaultLibNames(t *testing.T) {
	testCases := []struct {
		name string
		det  *Detector
		mpi  bool
		want []string
	}{
		{"debian serial", &Detector{GOOS: "linux", Distro: "debian"}, false, []string{"hdf5_serial", "hdf5_serial_hl"}},
		{"debian mpi", &Detector{GOOS: "linux", Distro: "debian"}, true, []string{"hdf5_openmpi", "hdf5_openmpi_hl"}},
		{"darwin", &Detector{GOOS: "darwin"}, false, []string{"hdf5", "hdf5_hl"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.det.defaultLibNames(tc.mpi)
			if len(got) != len(tc.want) {
				t.Fatalf("defaultLibNames = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("defaultLibNames = %v, want %v", got, tc.want)
					break
				}
			}
		})
	}
}

func TestDetectUsesChainAndFilesystem(t *testing.T) {
	libDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(libDir, "libhdf5.so"), []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(libDir, "libhdf5_hl.so"), []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}
	incDir := t.TempDir()
	pubconf := "#define H5_HAVE_THREADSAFE 1\n"
	if err := os.WriteFile(filepath.Join(incDir, "H5pubconf.h"), []byte(pubconf), 0o644); err != nil {
		t.Fatal(err)
	}

	chain := &ProbeChain{}
	chain.Register(&stubProbe{version: Version{1, 10, 4}})
	det := &Detector{Chain: chain, GOOS: "linux", Distro: "fedora"}

	result, err := det.Detect(context.Background(), DetectRequest{
		LibDir:      libDir,
		IncludeDirs: []string{incDir},
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.LibDir != libDir {
		t.Errorf("LibDir = %s, want %s", result.LibDir, libDir)
	}
	if result.Version.String() != "1.10.4" {
		t.Errorf("Version = %s, want 1.10.4", result.Version)
	}
	if result.Probe != "stub" {
		t.Errorf("Probe = %s, want stub", result.Probe)
	}
	if result.Capabilities == nil {
		t.Fatal("expected capabilities from H5pubconf.h")
	}
	if !result.Capabilities.ThreadSafe {
		t.Error("ThreadSafe capability not detected")
	}
	if !result.Capabilities.HighLevel {
		t.Error("high-level library next to libhdf5.so not detected")
	}
}

func TestFirstExistingDir(t *testing.T) {
	existing := t.TempDir()
	if got := firstExistingDir([]string{"/nonexistent", existing}); got != existing {
		t.Errorf("firstExistingDir = %s, want %s", got, existing)
	}
	if got := firstExistingDir([]string{"", "/nonexistent"}); got != "/nonexistent" {
		t.Errorf("firstExistingDir fallback = %s, want /nonexistent", got)
	}
}
