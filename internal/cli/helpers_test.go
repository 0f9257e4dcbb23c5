package cli

import (
	"bytes"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
)

var libraryDir = filepath.Join("testdata", "library")

// libraryOpts points commands at the library schema.
func libraryOpts(format string) *RootOptions {
	return &RootOptions{Format: format, Schema: libraryDir}
}

var fingerprintPattern = regexp.MustCompile(`[0-9a-f]{64}`)

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// scrubFingerprints replaces fingerprints so golden files stay readable.
func scrubFingerprints(s string) string {
	return fingerprintPattern.ReplaceAllString(s, "<fingerprint>")
}

func assertGolden(t *testing.T, name, actual string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(actual))
}
