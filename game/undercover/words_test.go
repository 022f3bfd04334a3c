package undercover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	require.NotEmpty(t, catalog)
	for _, pair := range catalog {
		assert.NotEmpty(t, pair.Civilian)
		assert.NotEmpty(t, pair.Impostor)
		assert.NotEqual(t, pair.Civilian, pair.Impostor)
	}
}

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte("- civilian: \" 猫 \"\n  impostor: 老虎\n"))
	require.NoError(t, err)
	assert.Equal(t, Catalog{{Civilian: "猫", Impostor: "老虎"}}, catalog)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"empty list":  "[]",
		"missing":     "- civilian: 猫\n",
		"same word":   "- civilian: 猫\n  impostor: 猫\n",
		"not a list":  "civilian: 猫",
		"broken yaml": "- civilian: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- civilian: 饺子\n  impostor: 包子\n"), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, Catalog{{Civilian: "饺子", Impostor: "包子"}}, catalog)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
