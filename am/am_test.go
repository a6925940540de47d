package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, BackendHTTP, cfg.Repository.Backend)
	assert.Equal(t, DefaultBaseURL, cfg.Repository.BaseURL)
	assert.Equal(t, "/", cfg.Repository.Container)
	assert.True(t, cfg.Repository.AllowPrivate)
	assert.Equal(t, 30*time.Second, cfg.Repository.Timeout())
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultSchemaPath, cfg.Schema.Path)
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, Defaults(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fedlens.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[repository]
backend = "sqlite"
container = "/objects"
timeout_seconds = 5

[database]
path = "local.db"
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Repository.Backend)
	assert.Equal(t, "/objects", cfg.Repository.Container)
	assert.Equal(t, 5*time.Second, cfg.Repository.Timeout())
	assert.Equal(t, "local.db", cfg.Database.Path)
	assert.Equal(t, DefaultBaseURL, cfg.Repository.BaseURL, "defaults fill gaps")

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestIntrospectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fedlens.toml")
	require.NoError(t, os.WriteFile(path, []byte("[schema]\npath = \"models.yaml\"\n"), 0644))

	settings, err := IntrospectFile(path)
	require.NoError(t, err)
	byKey := map[string]SettingInfo{}
	for _, s := range settings {
		byKey[s.Key] = s
	}
	assert.Equal(t, SourceFile, byKey["schema.path"].Source)
	assert.Equal(t, path, byKey["schema.path"].SourcePath)
	assert.Equal(t, "models.yaml", byKey["schema.path"].Value)
	assert.Equal(t, SourceDefault, byKey["repository.backend"].Source)

	_, err = IntrospectFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Repository: RepositoryConfig{Backend: BackendHTTP, BaseURL: "http://localhost:8080/rest", Container: "/"},
			Database:   DatabaseConfig{Path: "fedlens.db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid http", func(c *Config) {}, ""},
		{"valid sqlite", func(c *Config) { c.Repository.Backend = BackendSQLite }, ""},
		{"unknown backend", func(c *Config) { c.Repository.Backend = "ftp" }, "repository.backend"},
		{"empty base url", func(c *Config) { c.Repository.BaseURL = "" }, "base_url cannot be empty"},
		{"bad scheme", func(c *Config) { c.Repository.BaseURL = "file:///tmp" }, "http or https"},
		{"trailing slash", func(c *Config) { c.Repository.BaseURL = "http://localhost:8080/rest/" }, "must not end"},
		{"sqlite without path", func(c *Config) {
			c.Repository.Backend = BackendSQLite
			c.Database.Path = ""
		}, "database.path"},
		{"relative container", func(c *Config) { c.Repository.Container = "objects" }, "container"},
		{"negative timeout", func(c *Config) { c.Repository.TimeoutSeconds = -1 }, "timeout_seconds"},
		{"zero timeout uses default", func(c *Config) { c.Repository.TimeoutSeconds = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ProjectFileAndEnv(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	home := t.TempDir()
	t.Setenv("HOME", home)

	project := t.TempDir()
	nested := filepath.Join(project, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(project, ProjectFileName), []byte(`
[repository]
container = "/project"

[schema]
path = "models.yaml"
`), 0644))
	t.Chdir(nested)
	t.Setenv("FEDLENS_BASE_URL", "http://fedora.example:8080/rest")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/project", cfg.Repository.Container)
	assert.Equal(t, "models.yaml", cfg.Schema.Path)
	assert.Equal(t, "http://fedora.example:8080/rest", cfg.Repository.BaseURL)

	assert.Equal(t, SourceProject, ConfigSources["repository.container"].Source)

	settings, err := Introspect()
	require.NoError(t, err)
	bySource := map[string]SettingInfo{}
	for _, s := range settings {
		bySource[s.Key] = s
	}
	assert.Equal(t, SourceProject, bySource["schema.path"].Source)
	assert.Equal(t, SourceEnvironment, bySource["repository.base_url"].Source)
	assert.Equal(t, "FEDLENS_BASE_URL", bySource["repository.base_url"].SourcePath)
	assert.Equal(t, SourceDefault, bySource["log.json"].Source)
}

func TestWriteConfigRotatesBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ProjectFileName)

	cfg := &Config{Repository: RepositoryConfig{Backend: BackendSQLite, Container: "/"}}
	for i := 0; i < 5; i++ {
		cfg.Repository.TimeoutSeconds = i + 1
		require.NoError(t, WriteConfig(path, cfg))
	}

	for _, suffix := range []string{".back1", ".back2", ".back3"} {
		assert.FileExists(t, path+suffix)
	}
	assert.NoFileExists(t, path+".back4")
	assert.NoFileExists(t, path+".tmp")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Config
	require.NoError(t, toml.Unmarshal(data, &got))
	assert.Equal(t, 5, got.Repository.TimeoutSeconds)

	loaded, err := LoadFromFile(path + ".back1")
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Repository.TimeoutSeconds)
}

func TestFileWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	fw, err := NewFileWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)

	changed := make(chan string, 4)
	fw.OnChange(func(p string) error {
		changed <- p
		return nil
	})
	fw.Start()
	defer fw.Stop()

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("b"), 0644))

	select {
	case p := <-changed:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}
