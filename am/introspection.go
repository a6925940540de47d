package am

import (
	"os"
	"sort"
	"strings"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/fedlens/fedlens.toml
	SourceUser        ConfigSource = "user"        // ~/.fedlens/fedlens.toml
	SourceProject     ConfigSource = "project"     // nearest fedlens.toml
	SourceEnvironment ConfigSource = "environment" // FEDLENS_* env vars
	SourceFile        ConfigSource = "file"        // an explicit --config file
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // file path or environment variable name
}

// SettingInfo describes one effective setting
type SettingInfo struct {
	Key        string       `json:"key" yaml:"key"`
	Value      interface{}  `json:"value" yaml:"value"`
	Source     ConfigSource `json:"source" yaml:"source"`
	SourcePath string       `json:"source_path,omitempty" yaml:"source_path,omitempty"`
}

// Introspect lists every effective setting, sorted by key, with the source
// that supplied it.
func Introspect() ([]SettingInfo, error) {
	if _, err := Load(); err != nil {
		return nil, err
	}
	v := GetViper()

	keys := v.AllKeys()
	sort.Strings(keys)

	settings := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := ConfigSources[key]; ok {
			info = si
		}
		if envKey, ok := envOverride(key); ok {
			info = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}
		settings = append(settings, SettingInfo{
			Key:        key,
			Value:      v.Get(key),
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
	return settings, nil
}

// IntrospectFile lists the settings of a single config file overlaid on
// the defaults, as LoadFromFile sees them.
func IntrospectFile(path string) ([]SettingInfo, error) {
	v, err := FileViper(path)
	if err != nil {
		return nil, err
	}
	keys := v.AllKeys()
	sort.Strings(keys)

	settings := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		info := SettingInfo{Key: key, Value: v.Get(key), Source: SourceDefault}
		if v.InConfig(key) {
			info.Source = SourceFile
			info.SourcePath = path
		}
		settings = append(settings, info)
	}
	return settings, nil
}

// envOverride reports the environment variable overriding key, if any.
func envOverride(key string) (string, bool) {
	candidates := []string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	switch key {
	case "repository.base_url":
		candidates = append(candidates, "FEDLENS_BASE_URL")
	case "database.path":
		candidates = append(candidates, "FEDLENS_DATABASE_PATH")
	}
	for _, env := range candidates {
		if os.Getenv(env) != "" {
			return env, true
		}
	}
	return "", false
}
