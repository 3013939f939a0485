package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/pkg/version"
)

func TestVersionCmd(t *testing.T) {
	newProject(t)

	t.Run("plain", func(t *testing.T) {
		out, err := run(t, "version")
		require.NoError(t, err)
		for _, want := range []string{"docsearch", version.Version, "commit", "bleve"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("short", func(t *testing.T) {
		out, err := run(t, "version", "--short")
		require.NoError(t, err)
		assert.Equal(t, version.Short(), strings.TrimSpace(out))
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "version", "--json")
		require.NoError(t, err)

		var info map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		for _, key := range []string{"version", "commit", "date", "go_version", "engine", "os", "arch"} {
			assert.Contains(t, info, key)
		}
	})
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := run(t, "--version")

	require.NoError(t, err)
	assert.Equal(t, "docsearch version "+version.Version+"\n", out)
}
