package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/workspace/project")
	assert.Equal(t, "/workspace/project", cfg.Project.Root)
	assert.Equal(t, 512, cfg.Chunker.TokenLimit)
	assert.Equal(t, 3, cfg.Chunker.OverlapLines)
	assert.True(t, cfg.Index.RespectGitignore)
	assert.Equal(t, 0, cfg.Index.AstMaxFiles)
}

func TestLoadKDLReturnsNilWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadKDLParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	kdlContent := `
project {
    data_dir ".astindex"
}
index {
    ast_max_files 5000
    respect_gitignore false
}
chunker {
    token_limit 256
    overlap_lines 2
}
include "**/*.go"
exclude "**/vendor/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".astindex.kdl"), []byte(kdlContent), 0644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 5000, cfg.Index.AstMaxFiles)
	assert.False(t, cfg.Index.RespectGitignore)
	assert.Equal(t, 256, cfg.Chunker.TokenLimit)
	assert.Equal(t, 2, cfg.Chunker.OverlapLines)
	assert.Equal(t, []string{"**/*.go"}, cfg.Include)
	assert.Equal(t, []string{"**/vendor/**"}, cfg.Exclude)
	assert.Equal(t, dir, cfg.Project.Root)
}
