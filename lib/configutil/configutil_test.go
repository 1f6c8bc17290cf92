package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Username string `json:"username"`
	Region   int    `json:"region"`
	Days     int    `json:"days"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "medicover.json5"), []byte(`{
		// comments are allowed
		username: "jan",
		region: 204,
		days: 4,
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "medicover.local.json5"), []byte(`{days: 7}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "medicover.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Username: "jan", Region: 204, Days: 7}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	cfg, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{}, cfg)
}

func TestEnv(t *testing.T) {
	t.Setenv("MEDICOVER_TEST_STRING", "value")
	t.Setenv("MEDICOVER_TEST_BLANK", "  ")
	t.Setenv("MEDICOVER_TEST_INT", " 42 ")
	t.Setenv("MEDICOVER_TEST_BAD", "forty")

	require.Equal(t, "value", EnvString("MEDICOVER_TEST_STRING", "fallback"))
	require.Equal(t, "fallback", EnvString("MEDICOVER_TEST_BLANK", "fallback"))
	require.Equal(t, "fallback", EnvString("MEDICOVER_TEST_UNSET", "fallback"))

	n, err := EnvInt("MEDICOVER_TEST_INT", 0)
	require.NoError(t, err)
	require.Equal(t, 42, n)

	n, err = EnvInt("MEDICOVER_TEST_UNSET", 3)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = EnvInt("MEDICOVER_TEST_BAD", 0)
	require.Error(t, err)
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	err := os.WriteFile(path, []byte("MEDICOVER_TEST_DOTENV=loaded\n"), 0600)
	require.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("MEDICOVER_TEST_DOTENV") })

	require.NoError(t, LoadDotenv(path, filepath.Join(t.TempDir(), "missing.env")))
	require.Equal(t, "loaded", os.Getenv("MEDICOVER_TEST_DOTENV"))
}
