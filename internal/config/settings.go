package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Ranking mode values accepted in engine.default_mode
var validModes = []string{"flexible", "strict", "estricta", "estricto"}

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// EngineSettings configuration for the ranking engine
type EngineSettings struct {
	CorpusPath      string `mapstructure:"corpus_path"`
	AuditCapacity   int    `mapstructure:"audit_capacity"`
	DefaultMode     string `mapstructure:"default_mode"`
	TopK            int    `mapstructure:"top_k"`
	Semantic        bool   `mapstructure:"semantic"`
	Fuzzy           bool   `mapstructure:"fuzzy"`
	MaxContentBytes int64  `mapstructure:"max_content_bytes"`
	ExportDir       string `mapstructure:"export_dir"`
	WeightsFile     string `mapstructure:"weights_file"`
}

// CISettings thresholds and output for the snapshot regression check
type CISettings struct {
	MaxDownPct            float64 `mapstructure:"max_down_pct"`
	MaxNegativeDeltaScore float64 `mapstructure:"max_negative_delta_score"`
	TopN                  int     `mapstructure:"top_n"`
	OutDir                string  `mapstructure:"out_dir"`
}

// Settings application settings
type Settings struct {
	Transport string         `mapstructure:"transport"`
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port"`
	Auth      AuthSettings   `mapstructure:"auth"`
	Engine    EngineSettings `mapstructure:"engine"`
	CI        CISettings     `mapstructure:"ci"`
}

// envBindings maps config keys to their environment variables.
var envBindings = map[string]string{
	"auth.type":                   "DOCRANK_AUTH_TYPE",
	"auth.basic.username":         "DOCRANK_AUTH_BASIC_USERNAME",
	"auth.basic.password":         "DOCRANK_AUTH_BASIC_PASSWORD",
	"auth.api_keys":               "DOCRANK_AUTH_API_KEYS",
	"engine.corpus_path":          "DOCRANK_ENGINE_CORPUS_PATH",
	"engine.audit_capacity":       "DOCRANK_ENGINE_AUDIT_CAPACITY",
	"engine.default_mode":         "DOCRANK_ENGINE_DEFAULT_MODE",
	"engine.top_k":                "DOCRANK_ENGINE_TOP_K",
	"engine.semantic":             "DOCRANK_ENGINE_SEMANTIC",
	"engine.fuzzy":                "DOCRANK_ENGINE_FUZZY",
	"engine.max_content_bytes":    "DOCRANK_ENGINE_MAX_CONTENT_BYTES",
	"engine.export_dir":           "DOCRANK_ENGINE_EXPORT_DIR",
	"engine.weights_file":         "DOCRANK_ENGINE_WEIGHTS_FILE",
	"ci.max_down_pct":             "DOCRANK_CI_MAX_DOWN_PCT",
	"ci.max_negative_delta_score": "DOCRANK_CI_MAX_NEGATIVE_DELTA_SCORE",
	"ci.top_n":                    "DOCRANK_CI_TOP_N",
	"ci.out_dir":                  "DOCRANK_CI_OUT_DIR",
}

// flagBindings maps config keys to CLI flag names. Flags missing from the
// given set are skipped.
var flagBindings = map[string]string{
	"transport":                   "transport",
	"host":                        "host",
	"port":                        "port",
	"auth.type":                   "auth-type",
	"auth.basic.username":         "auth-basic-username",
	"auth.basic.password":         "auth-basic-password",
	"auth.api_keys":               "auth-api-keys",
	"engine.corpus_path":          "corpus",
	"engine.audit_capacity":       "audit-capacity",
	"engine.default_mode":         "mode",
	"engine.top_k":                "top-k",
	"engine.semantic":             "semantic",
	"engine.fuzzy":                "fuzzy",
	"engine.max_content_bytes":    "max-content-bytes",
	"engine.export_dir":           "export-dir",
	"engine.weights_file":         "weights-file",
	"ci.max_down_pct":             "max-down-pct",
	"ci.max_negative_delta_score": "max-negative-delta-score",
	"ci.top_n":                    "top-n",
	"ci.out_dir":                  "out-dir",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	// Engine defaults
	v.SetDefault("engine.corpus_path", "")
	v.SetDefault("engine.audit_capacity", 2000)
	v.SetDefault("engine.default_mode", "flexible")
	v.SetDefault("engine.top_k", 20)
	v.SetDefault("engine.semantic", true)
	v.SetDefault("engine.fuzzy", true)
	v.SetDefault("engine.max_content_bytes", int64(1024*1024)) // 1MB
	v.SetDefault("engine.export_dir", defaultExportDir())
	v.SetDefault("engine.weights_file", "")

	// CI defaults
	v.SetDefault("ci.max_down_pct", 35.0)
	v.SetDefault("ci.max_negative_delta_score", 0.02)
	v.SetDefault("ci.top_n", 25)
	v.SetDefault("ci.out_dir", filepath.Join("docs", "reportes"))

	// Environment variables
	v.SetEnvPrefix("DOCRANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("DOCRANK_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	// Trim spaces from API keys
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	settings.Engine.DefaultMode = strings.ToLower(strings.TrimSpace(settings.Engine.DefaultMode))
	settings.Engine.CorpusPath = expandHomeDir(settings.Engine.CorpusPath)
	settings.Engine.ExportDir = expandHomeDir(settings.Engine.ExportDir)
	settings.Engine.WeightsFile = expandHomeDir(settings.Engine.WeightsFile)
	settings.CI.OutDir = expandHomeDir(settings.CI.OutDir)

	return &settings, nil
}

// defaultExportDir returns the default directory for audit exports
func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".docrank", "exports")
	}
	return filepath.Join(home, ".docrank", "exports")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if err := ValidateEngineSettings(&s.Engine); err != nil {
		return err
	}
	return ValidateCISettings(&s.CI)
}

// ValidateEngineSettings validates the engine configuration
func ValidateEngineSettings(e *EngineSettings) error {
	if e.AuditCapacity <= 0 {
		return errors.New("audit-capacity must be positive")
	}

	if e.TopK < 0 {
		return errors.New("top-k cannot be negative")
	}

	if e.MaxContentBytes <= 0 {
		return errors.New("max-content-bytes must be positive")
	}

	if e.ExportDir == "" {
		return errors.New("export-dir cannot be empty")
	}

	mode := strings.ToLower(strings.TrimSpace(e.DefaultMode))
	for _, m := range validModes {
		if mode == m {
			return nil
		}
	}
	return fmt.Errorf("mode must be one of %v, got: %s", validModes, e.DefaultMode)
}

// ValidateCISettings validates the CI policy configuration
func ValidateCISettings(c *CISettings) error {
	if c.MaxDownPct < 0 || c.MaxDownPct > 100 {
		return errors.New("max-down-pct must be between 0 and 100")
	}

	if c.MaxNegativeDeltaScore < 0 {
		return errors.New("max-negative-delta-score cannot be negative")
	}

	if c.TopN <= 0 {
		return errors.New("top-n must be positive")
	}

	if c.OutDir == "" {
		return errors.New("out-dir cannot be empty")
	}

	return nil
}
