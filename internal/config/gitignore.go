package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GitignorePattern is one parsed line of a .gitignore file.
type GitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool
}

// GitignoreParser loads and matches .gitignore patterns, layered on top of
// the same doublestar glob engine the Include/Exclude lists use.
type GitignoreParser struct {
	patterns []GitignorePattern
}

// NewGitignoreParser creates an empty parser.
func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{}
}

// LoadGitignore loads patterns from rootPath/.gitignore. A missing file is
// not an error — it simply contributes no patterns.
func (gp *GitignoreParser) LoadGitignore(rootPath string) error {
	gitignorePath := filepath.Join(rootPath, ".gitignore")

	file, err := os.Open(gitignorePath)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if gp.shouldSkipLine(line) {
			continue
		}
		gp.AddPattern(line)
	}
	return scanner.Err()
}

func (gp *GitignoreParser) shouldSkipLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}

// AddPattern parses and registers a single gitignore line.
func (gp *GitignoreParser) AddPattern(line string) {
	gp.patterns = append(gp.patterns, gp.parsePattern(line))
}

func (gp *GitignoreParser) parsePattern(line string) GitignorePattern {
	p := GitignorePattern{}

	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.Absolute = true
		line = line[1:]
	}

	p.Pattern = line
	return p
}

// ShouldIgnore reports whether path (relative to the gitignore's root,
// slash-separated) matches any loaded pattern; later patterns override
// earlier ones, and a "!"-negated match un-ignores a path.
func (gp *GitignoreParser) ShouldIgnore(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	ignored := false
	for _, p := range gp.patterns {
		if p.Directory && !isDir {
			continue
		}
		if gp.matches(p, path) {
			ignored = !p.Negate
		}
	}
	return ignored
}

func (gp *GitignoreParser) matches(p GitignorePattern, path string) bool {
	pattern := p.Pattern
	if p.Absolute {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		return false
	}

	// Non-absolute patterns may match at any directory depth, and either
	// the bare basename or any path suffix, mirroring git's own semantics.
	candidates := []string{pattern, "**/" + pattern}
	if !strings.Contains(pattern, "/") {
		candidates = append(candidates, "**/"+pattern+"/**", pattern+"/**")
	}
	for _, c := range candidates {
		if ok, _ := doublestar.Match(c, path); ok {
			return true
		}
	}
	return false
}
