package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePack(t *testing.T) {
	data := []byte(`
name: writing
prompts:
  - title: Make it pirate
    prompt: Rewrite this like a pirate.
  - id: haiku
    title: Haiku
    prompt: Turn this into a haiku.
  - title: Broken
`)

	pack, err := ParsePack(data)
	require.NoError(t, err)
	assert.Equal(t, "writing", pack.Name)
	assert.Equal(t, []Template{
		{ID: "make_it_pirate", Title: "Make it pirate", Prompt: "Rewrite this like a pirate."},
		{ID: "haiku", Title: "Haiku", Prompt: "Turn this into a haiku."},
	}, pack.Prompts)
}

func TestParsePack_UnknownField(t *testing.T) {
	_, err := ParsePack([]byte("name: x\nprompt: oops\n"))
	assert.Error(t, err)
}

func TestParsePack_Empty(t *testing.T) {
	pack, err := ParsePack(nil)
	require.NoError(t, err)
	assert.Empty(t, pack.Prompts)
}

func TestLoadPack(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		pack, err := LoadPack("")
		require.NoError(t, err)
		assert.Empty(t, pack.Prompts)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPack(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(path, []byte("prompts:\n  - title: Shout\n    prompt: \"UPPERCASE THIS:\"\n"), 0o600))

		pack, err := LoadPack(path)
		require.NoError(t, err)
		require.Len(t, pack.Prompts, 1)
		assert.Equal(t, "shout", pack.Prompts[0].ID)
		assert.Equal(t, "UPPERCASE THIS:", pack.Prompts[0].Prompt)
	})
}

func TestParsePack_ColonTerminatedPrompt(t *testing.T) {
	t.Run("quoted keeps the trailing colon", func(t *testing.T) {
		pack, err := ParsePack([]byte("prompts:\n  - title: Haiku\n    prompt: \"Rewrite the following text as a haiku:\"\n"))
		require.NoError(t, err)
		require.Len(t, pack.Prompts, 1)
		assert.Equal(t, "Rewrite the following text as a haiku:", pack.Prompts[0].Prompt)
		assert.Equal(t, "Rewrite the following text as a haiku:\n\nold pond", Compose(pack.Prompts[0], "old pond"))
	})

	t.Run("unquoted is rejected", func(t *testing.T) {
		_, err := ParsePack([]byte("prompts:\n  - title: Haiku\n    prompt: Rewrite as a haiku:\n"))
		assert.Error(t, err)
	})
}
