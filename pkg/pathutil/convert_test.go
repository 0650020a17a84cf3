package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{
			name:     "simple relative path",
			absPath:  "/home/user/project/src/main.go",
			rootDir:  "/home/user/project",
			expected: "src/main.go",
		},
		{
			name:     "nested relative path",
			absPath:  "/home/user/project/internal/core/search.go",
			rootDir:  "/home/user/project",
			expected: "internal/core/search.go",
		},
		{
			name:     "root level file",
			absPath:  "/home/user/project/README.md",
			rootDir:  "/home/user/project",
			expected: "README.md",
		},
		{
			name:     "same directory",
			absPath:  "/home/user/project",
			rootDir:  "/home/user/project",
			expected: ".",
		},
		{
			name:     "already relative path",
			absPath:  "src/main.go",
			rootDir:  "/home/user/project",
			expected: "src/main.go",
		},
		{
			name:     "path outside root - fallback to absolute",
			absPath:  "/other/location/file.go",
			rootDir:  "/home/user/project",
			expected: "/other/location/file.go",
		},
		{
			name:     "empty root directory",
			absPath:  "/home/user/project/file.go",
			rootDir:  "",
			expected: "/home/user/project/file.go",
		},
		{
			name:     "empty absolute path",
			absPath:  "",
			rootDir:  "/home/user/project",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToRelative(tt.absPath, tt.rootDir)

			if runtime.GOOS == "windows" {
				result = filepath.ToSlash(result)
				expected := filepath.ToSlash(tt.expected)
				if result != expected {
					t.Errorf("ToRelative() = %v, want %v", result, expected)
				}
			} else {
				if result != tt.expected {
					t.Errorf("ToRelative() = %v, want %v", result, tt.expected)
				}
			}
		})
	}
}

func TestCanonicalResolvesRelativeAgainstRoot(t *testing.T) {
	got := Canonical("src/main.go", "/home/user/project")
	want := "/home/user/project/src/main.go"
	if got != want {
		t.Errorf("Canonical() = %v, want %v", got, want)
	}
}

func TestCanonicalLeavesAbsoluteAlone(t *testing.T) {
	got := Canonical("/home/user/project/src/main.go", "/somewhere/else")
	want := "/home/user/project/src/main.go"
	if got != want {
		t.Errorf("Canonical() = %v, want %v", got, want)
	}
}

func TestCanonicalCleansDotSegments(t *testing.T) {
	got := Canonical("/home/user/project/./src/../src/main.go", "")
	want := "/home/user/project/src/main.go"
	if got != want {
		t.Errorf("Canonical() = %v, want %v", got, want)
	}
}

func TestCanonicalEmptyPath(t *testing.T) {
	if got := Canonical("", "/root"); got != "" {
		t.Errorf("Canonical() = %v, want empty string", got)
	}
}
