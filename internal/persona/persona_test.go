// ABOUTME: Tests for persona loading and resolution
// ABOUTME: Verifies TOML parsing, default fallback, and the built-in minimal persona

package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPersonaTOML = `
[personas.pirate]
description = "Flamboyant sea captain"
prompt = "You are a pirate captain. Respond with flamboyant wit."

[personas.comedian]
description = "Stand-up comedian"
prompt = "You are a stand-up comedian. Keep responses brief."

[personas.broken]
description = "No prompt, should be skipped"
prompt = ""
`

func writePersonaFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "personas.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	reg, err := Load(writePersonaFile(t, testPersonaTOML), "pirate", nil)
	require.NoError(t, err)

	p, ok := reg.Get("pirate")
	require.True(t, ok)
	assert.Equal(t, "pirate", p.ID)
	assert.Contains(t, p.Prompt, "pirate captain")

	// Empty-prompt entries are dropped
	_, ok = reg.Get("broken")
	assert.False(t, ok)

	assert.Equal(t, "pirate", reg.DefaultID())
	assert.Len(t, reg.List(), 2)
}

func TestLoad_DefaultMissingFallsBackToFirst(t *testing.T) {
	reg, err := Load(writePersonaFile(t, testPersonaTOML), "no-such-persona", nil)
	require.NoError(t, err)

	// First loaded persona by id
	assert.Equal(t, "comedian", reg.DefaultID())
}

func TestLoad_MissingFileUsesBuiltinFallback(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "nope.toml"), "pirate", nil)
	require.NoError(t, err)

	assert.Equal(t, Fallback.ID, reg.DefaultID())
	p := reg.Default()
	assert.Equal(t, Fallback.Prompt, p.Prompt)
	assert.Len(t, reg.List(), 1)
}

func TestLoad_MalformedTOML(t *testing.T) {
	_, err := Load(writePersonaFile(t, "[personas.pirate\nprompt = oops"), "pirate", nil)
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	reg, err := Load(writePersonaFile(t, testPersonaTOML), "comedian", nil)
	require.NoError(t, err)

	p, exact := reg.Resolve("pirate")
	assert.True(t, exact)
	assert.Equal(t, "pirate", p.ID)

	p, exact = reg.Resolve("ghost")
	assert.False(t, exact)
	assert.Equal(t, "comedian", p.ID)
}

func TestList_Sorted(t *testing.T) {
	reg, err := Load(writePersonaFile(t, testPersonaTOML), "pirate", nil)
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "comedian", list[0].ID)
	assert.Equal(t, "pirate", list[1].ID)
}
