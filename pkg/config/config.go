package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	json "github.com/json-iterator/go"
	"github.com/spf13/viper"
)

var configDir string
var configFilePath string
var credentialsPath string

// Backend holds the Supabase project coordinates the client talks to.
type Backend struct {
	URL     string
	AnonKey string
}

// Configured reports whether both the project URL and the anon key are known.
func (b Backend) Configured() bool {
	return b.URL != "" && b.AnonKey != ""
}

// getConfigDir returns platform-specific config directory
func getConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		// Windows: %LOCALAPPDATA%\buckit
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "buckit"), nil
	}

	// Unix-like (macOS, Linux): ~/.config/buckit
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "buckit"), nil
}

// getSystemConfigPaths returns platform-specific system config paths
func getSystemConfigPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{filepath.Join(os.Getenv("ProgramFiles"), "BuckIt", "config.toml")}
	}

	return []string{
		"/etc/buckit/config.toml",
		"/usr/local/etc/buckit/config.toml",
	}
}

// Init initializes the configuration
func Init(configPath string) error {
	// A .env next to the working directory may carry SUPABASE_URL / SUPABASE_ANON_KEY.
	_ = godotenv.Load()

	var err error
	if configPath != "" {
		configDir = filepath.Dir(configPath)
		configFilePath = configPath
	} else {
		configDir, err = getConfigDir()
		if err != nil {
			return err
		}
		configFilePath = filepath.Join(configDir, "config.toml")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	credentialsPath = filepath.Join(configDir, "credentials")

	viper.Reset()
	viper.SetConfigType("toml")

	setDefaults()

	// System config first, user config overrides it
	for _, sysConfigPath := range getSystemConfigPaths() {
		if _, err := os.Stat(sysConfigPath); err == nil {
			viper.SetConfigFile(sysConfigPath)
			_ = viper.ReadInConfig()
			break
		}
	}

	viper.SetConfigFile(configFilePath)
	_ = viper.MergeInConfig()

	return nil
}

func setDefaults() {
	viper.SetDefault("supabase.url", "")
	viper.SetDefault("supabase.anon_key", "")
	viper.SetDefault("supabase.app_json", "app.json")

	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("output.format", "text")

	viper.SetDefault("storage.bucket", "memories")
	viper.SetDefault("storage.signed_url_ttl", 60*60)
	viper.SetDefault("storage.avatar_url_ttl", 60*60*24*365)

	viper.SetDefault("realtime.heartbeat_interval", 30)

	viper.SetDefault("store.path", filepath.Join(configDir, "buckit.db"))

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", filepath.Join(configDir, "buckit.log"))
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetString returns a string configuration value
func GetString(key string) string {
	value := viper.GetString(key)
	switch key {
	case "log.file", "store.path", "supabase.app_json":
		return expandPath(value)
	}
	return value
}

// GetInt returns an int configuration value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// Set overrides a value for the lifetime of the process without touching disk.
func Set(key string, value interface{}) {
	viper.Set(key, value)
}

// SetString sets a string configuration value and persists the user config
func SetString(key string, value string) error {
	viper.Set(key, value)
	return viper.WriteConfigAs(configFilePath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	return configDir
}

// GetConfigFilePath returns the user config file path
func GetConfigFilePath() string {
	return configFilePath
}

// GetCredentialsPath returns the path to the credentials file
func GetCredentialsPath() string {
	return credentialsPath
}

// ResolveBackend finds the Supabase URL and anon key. The environment wins,
// then the config file, then the "extra" block of an Expo app.json.
func ResolveBackend() Backend {
	b := Backend{
		URL:     os.Getenv("SUPABASE_URL"),
		AnonKey: os.Getenv("SUPABASE_ANON_KEY"),
	}
	if b.URL == "" {
		b.URL = viper.GetString("supabase.url")
	}
	if b.AnonKey == "" {
		b.AnonKey = viper.GetString("supabase.anon_key")
	}
	if b.Configured() {
		return b
	}

	extra := readAppJSONExtra(GetString("supabase.app_json"))
	if b.URL == "" {
		b.URL = firstNonEmpty(extra["SUPABASE_URL"], extra["supabaseUrl"])
	}
	if b.AnonKey == "" {
		b.AnonKey = firstNonEmpty(extra["SUPABASE_ANON_KEY"], extra["supabaseAnonKey"])
	}
	return b
}

func readAppJSONExtra(path string) map[string]string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var doc struct {
		Expo struct {
			Extra map[string]interface{} `json:"extra"`
		} `json:"expo"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	out := make(map[string]string, len(doc.Expo.Extra))
	for k, v := range doc.Expo.Extra {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
