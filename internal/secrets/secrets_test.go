// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// secretsDir writes files into a fresh directory and returns its path.
func secretsDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestLoadRecognisedKeys(t *testing.T) {
	dir := secretsDir(t, map[string]string{
		AnthropicAPIKey:       "sk-ant-000\n",
		NCBIAPIKey:            "  ncbi-111  ",
		NCBIEmail:             "clinic@example.com\n",
		SemanticScholarAPIKey: "s2-222",
	})

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		AnthropicAPIKey:       "sk-ant-000",
		NCBIAPIKey:            "ncbi-111",
		NCBIEmail:             "clinic@example.com",
		SemanticScholarAPIKey: "s2-222",
	}, got)
}

func TestLoadSkipsNoise(t *testing.T) {
	dir := secretsDir(t, map[string]string{
		AnthropicAPIKey: "sk-ant-000",
		".gitkeep":      "",
		".old-key":      "stale",
		NCBIEmail:       "   \n\t",
		"notes":         "",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{AnthropicAPIKey: "sk-ant-000"}, got)
}

func TestLoadRejectsMalformedKeys(t *testing.T) {
	dir := secretsDir(t, map[string]string{
		AnthropicAPIKey:       "sk-ant-000\nsk-ant-111\n",
		NCBIEmail:             "clinic.example.com",
		NCBIAPIKey:            "ncbi-111",
		SemanticScholarAPIKey: "s2 key",
		"other-service":       "free text value",
	})

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		NCBIAPIKey:      "ncbi-111",
		"other-service": "free text value",
	}, got)
}

func TestEmailAddress(t *testing.T) {
	assert.NoError(t, emailAddress("clinic@example.com"))
	for _, bad := range []string{"clinic", "@example.com", "clinic@", "a b@example.com"} {
		assert.Error(t, emailAddress(bad), bad)
	}
}

func TestLoadMissingOrEmptyDir(t *testing.T) {
	for name, dir := range map[string]string{
		"missing": filepath.Join(t.TempDir(), ".secrets"),
		"empty":   t.TempDir(),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Load(dir)
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.NotNil(t, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	dir := secretsDir(t, map[string]string{NCBIAPIKey: "ncbi-111"})
	locked := filepath.Join(dir, AnthropicAPIKey)
	require.NoError(t, os.WriteFile(locked, []byte("sk-ant-000"), 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o600) })
	if _, err := os.ReadFile(locked); err == nil {
		t.Skip("file permissions not enforced (running as root?)")
	}

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ncbi-111", got[NCBIAPIKey])
	assert.NotContains(t, got, AnthropicAPIKey)
}

func TestValue(t *testing.T) {
	loaded := map[string]string{AnthropicAPIKey: "from-file"}
	assert.Equal(t, "from-flag", Value(loaded, AnthropicAPIKey, "from-flag"))
	assert.Equal(t, "from-file", Value(loaded, AnthropicAPIKey, ""))
	assert.Empty(t, Value(loaded, NCBIEmail, ""))
	assert.Empty(t, Value(nil, NCBIEmail, ""))
}
