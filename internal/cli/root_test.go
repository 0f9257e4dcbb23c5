package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "relpath", cmd.Use)
	assert.Contains(t, cmd.Long, "RELPATH_")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "resolve", "plan", "introspect"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	schemaFlag := cmd.PersistentFlags().Lookup("schema")
	require.NotNil(t, schemaFlag)
	assert.Equal(t, "s", schemaFlag.Shorthand)

	cacheFlag := cmd.PersistentFlags().Lookup("cache-size")
	require.NotNil(t, cacheFlag)
	assert.Equal(t, "0", cacheFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestPlanCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	planCmd, _, err := cmd.Find([]string{"plan"})
	require.NoError(t, err)

	orderFlag := planCmd.Flags().Lookup("order")
	require.NotNil(t, orderFlag)
	assert.Equal(t, "stringArray", orderFlag.Value.Type())

	strictFlag := planCmd.Flags().Lookup("strict")
	require.NotNil(t, strictFlag)
	assert.Equal(t, "false", strictFlag.DefValue)

	require.NotNil(t, planCmd.Flags().Lookup("eval"))
}

func TestIntrospectCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	introspectCmd, _, err := cmd.Find([]string{"introspect"})
	require.NoError(t, err)

	dbFlag := introspectCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	// --db is required, so default is empty
	assert.Equal(t, "", dbFlag.DefValue)

	outputFlag := introspectCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, NewRootCommand(), "validate", libraryDir, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSchemaFromEnvironment(t *testing.T) {
	t.Setenv("RELPATH_SCHEMA", libraryDir)

	out, err := execute(t, NewRootCommand(), "resolve", "Author", "name")
	require.NoError(t, err)
	assert.Contains(t, out, "Path:          Author.name")
}

func TestConfigFile(t *testing.T) {
	config := filepath.Join(t.TempDir(), "relpath.yaml")
	content := "schema: " + libraryDir + "\nformat: json\ncache-size: 16\n"
	require.NoError(t, os.WriteFile(config, []byte(content), 0o644))

	out, err := execute(t, NewRootCommand(), "resolve", "Author", "books.title", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)
	assert.Contains(t, out, `"path":"Author.books.title"`)
}

func TestFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("RELPATH_FORMAT", "json")

	out, err := execute(t, NewRootCommand(), "validate", libraryDir, "--format", "text")
	require.NoError(t, err)
	assert.Equal(t, "✓ All 4 model(s) valid\n", out)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, NewRootCommand(), "validate", libraryDir, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}
