package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Environment: "development",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			DataPath: "/some/path",
		},
		Remote: RemoteConfig{
			Provider: "memory",
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_LogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
		cfg := validConfig()
		cfg.Logger.Level = level
		assert.NoError(t, cfg.Validate(), "level %q", level)
	}

	cfg := validConfig()
	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RemoteProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Remote.Provider = "surrealdb"
	cfg.Remote.URL = "ws://localhost:8000/rpc"
	assert.NoError(t, cfg.Validate())

	cfg.Remote.URL = ""
	assert.Error(t, cfg.Validate(), "surrealdb provider requires a URL")

	cfg = validConfig()
	cfg.Remote.Provider = "firestore"
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DataPath = ""
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/data", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), got)

	got, err = expandPath("", "/default/path")
	require.NoError(t, err)
	assert.Equal(t, "/default/path", got)

	got, err = expandPath("/abs/path", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}

func TestGetConfigValue(t *testing.T) {
	t.Setenv("BOOKTRACKER_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "BOOKTRACKER_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "BOOKTRACKER_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "BOOKTRACKER_UNSET_KEY", "default"))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# comment\nBOOKTRACKER_ENVFILE_KEY=\"quoted value\"\n\nBOOKTRACKER_ENVFILE_OTHER=plain\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	t.Setenv("BOOKTRACKER_ENVFILE_KEY", "")
	t.Setenv("BOOKTRACKER_ENVFILE_OTHER", "")

	require.NoError(t, loadEnvFile(envPath))
	assert.Equal(t, "quoted value", os.Getenv("BOOKTRACKER_ENVFILE_KEY"))
	assert.Equal(t, "plain", os.Getenv("BOOKTRACKER_ENVFILE_OTHER"))
}

func TestGetBoolConfigValue(t *testing.T) {
	t.Setenv("BOOKTRACKER_TEST_BOOL", "yes")

	assert.True(t, getBoolConfigValue("true", "BOOKTRACKER_UNSET_BOOL", false))
	assert.True(t, getBoolConfigValue("", "BOOKTRACKER_TEST_BOOL", false))
	assert.False(t, getBoolConfigValue("nope", "BOOKTRACKER_TEST_BOOL", true))
	assert.True(t, getBoolConfigValue("", "BOOKTRACKER_UNSET_BOOL", true))
	assert.False(t, getBoolConfigValue("", "BOOKTRACKER_UNSET_BOOL", false))
}
