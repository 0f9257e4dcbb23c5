package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relpath/internal/compiler"
)

func TestCompileLibrary(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(t, NewCompileCommand(rootOpts), libraryDir)
	require.NoError(t, err)

	assertGolden(t, "compile_library", out)
}

func TestCompileUsesSchemaFlag(t *testing.T) {
	rootOpts := &RootOptions{Format: "text", Schema: libraryDir}
	out, err := execute(t, NewCompileCommand(rootOpts))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 4 model(s) from 2 file(s)")
}

func TestCompileLibraryJSON(t *testing.T) {
	rootOpts := &RootOptions{Format: "json"}
	out, err := execute(t, NewCompileCommand(rootOpts), libraryDir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Cycles, 1)
	assert.Equal(t, []string{"Author", "Book", "Author"}, resp.Data.Cycles[0].Path)
	require.Len(t, resp.Data.Models, 4)
}

func TestCompileSingleFile(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(t, NewCompileCommand(rootOpts), filepath.Join(libraryDir, "publisher.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 1 model(s) from 1 file(s)")
	assert.Contains(t, out, "Publisher: 2 field(s), 0 relationship(s)")
	assert.NotContains(t, out, "Cycles:")
}

func TestCompileOutputYAML(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "models.yaml")

	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(t, NewCompileCommand(rootOpts), libraryDir, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote models to "+outputFile)

	// The written file compiles back to the same models
	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	defs, err := compiler.CompileYAML(data, outputFile)
	require.NoError(t, err)
	require.Len(t, defs, 4)
	assert.Equal(t, "Author", defs[0].Name)
	assert.Equal(t, "Book", defs[2].Parent)
}

func TestCompileOutputJSON(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	rootOpts := &RootOptions{Format: "text"}
	_, err := execute(t, NewCompileCommand(rootOpts), libraryDir, "-o", outputFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Models, 4)
}

func TestCompileNonExistentDirectory(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(t, NewCompileCommand(rootOpts), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileEmptyDirectory(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(t, NewCompileCommand(rootOpts), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, out, "no CUE or YAML files found")
}

func TestCompileNoSchema(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(t, NewCompileCommand(rootOpts))
	require.Error(t, err)
	assert.Contains(t, out, "no schema given")
}

func TestCompileInvalidModel(t *testing.T) {
	tmpDir := t.TempDir()

	// A field struct without a kind
	invalid := `
package test

model: Bad: {
	fields: id: {key: true}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "bad.cue"), []byte(invalid), 0o644))

	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(t, NewCompileCommand(rootOpts), tmpDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compilation failed")
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "kind")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileInvalidModelJSON(t *testing.T) {
	tmpDir := t.TempDir()
	invalid := "model:\n  Bad:\n    fields:\n      ratio: {kind: float}\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "bad.yaml"), []byte(invalid), 0o644))

	rootOpts := &RootOptions{Format: "json"}
	out, err := execute(t, NewCompileCommand(rootOpts), tmpDir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
}

func TestCompileValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	invalid := "model:\n  Post:\n    fields:\n      id: {kind: serial, key: true}\n    relationships:\n      author: Writer\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "post.yaml"), []byte(invalid), 0o644))

	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(t, NewCompileCommand(rootOpts), tmpDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, compiler.ErrUnknownTarget)
}
