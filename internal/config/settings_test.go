package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadSettings_Defaults(t *testing.T) {
	_ = os.Unsetenv("DOCRANK_PORT")
	_ = os.Unsetenv("DOCRANK_AUTH_TYPE")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeNone {
		t.Errorf("Expected default auth type '%s', got '%s'", AuthTypeNone, settings.Auth.Type)
	}
	if settings.Transport != "stdio" {
		t.Errorf("Expected default transport 'stdio', got '%s'", settings.Transport)
	}
	if settings.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got '%s'", settings.Host)
	}
}

func TestLoadSettings_EnvVars(t *testing.T) {
	t.Setenv("DOCRANK_PORT", "9090")
	t.Setenv("DOCRANK_AUTH_TYPE", "basic")
	t.Setenv("DOCRANK_AUTH_BASIC_USERNAME", "admin")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeBasic {
		t.Errorf("Expected auth type '%s', got '%s'", AuthTypeBasic, settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "admin" {
		t.Errorf("Expected username 'admin', got '%s'", settings.Auth.Basic.Username)
	}
}

func TestLoadSettings_APIKeys_EnvVar(t *testing.T) {
	t.Setenv("DOCRANK_AUTH_API_KEYS", "key1, key2,key3")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if len(settings.Auth.APIKeys) != 3 {
		t.Fatalf("Expected 3 API keys, got %d", len(settings.Auth.APIKeys))
	}
	if settings.Auth.APIKeys[0] != "key1" {
		t.Errorf("Expected key1, got '%s'", settings.Auth.APIKeys[0])
	}
	if settings.Auth.APIKeys[1] != "key2" {
		t.Errorf("Expected key2, got '%s'", settings.Auth.APIKeys[1])
	}
	if settings.Auth.APIKeys[2] != "key3" {
		t.Errorf("Expected key3, got '%s'", settings.Auth.APIKeys[2])
	}
}

func TestLoadSettings_APIKeys_SingleKey(t *testing.T) {
	t.Setenv("DOCRANK_AUTH_API_KEYS", "singlekey")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if len(settings.Auth.APIKeys) != 1 {
		t.Fatalf("Expected 1 API key, got %d", len(settings.Auth.APIKeys))
	}
	if settings.Auth.APIKeys[0] != "singlekey" {
		t.Errorf("Expected singlekey, got '%s'", settings.Auth.APIKeys[0])
	}
}

func TestLoadSettings_EnvFile(t *testing.T) {
	content := []byte("host=127.0.0.2\nport=7000")
	tmpEnv := ".env"
	if err := os.WriteFile(tmpEnv, content, 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}
	defer func() { _ = os.Remove(tmpEnv) }()

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "127.0.0.2" {
		t.Errorf("Expected host 127.0.0.2, got %s", settings.Host)
	}
	if settings.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", settings.Port)
	}
}

func TestLoadSettings_InvalidConfig(t *testing.T) {
	t.Setenv("DOCRANK_PORT", "not-a-number")

	_, err := LoadSettings()
	if err == nil {
		t.Fatal("Expected error for invalid port type")
	}
}

func TestLoadSettingsWithFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("DOCRANK_PORT", "9090")
	t.Setenv("DOCRANK_TRANSPORT", "sse")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("transport", "", "")
	_ = flags.Set("port", "7777")
	_ = flags.Set("transport", "stdio")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 7777 {
		t.Errorf("Expected CLI port 7777, got %d", settings.Port)
	}
	if settings.Transport != "stdio" {
		t.Errorf("Expected CLI transport 'stdio', got '%s'", settings.Transport)
	}
}

func TestLoadSettingsWithFlags_EnvOverridesDefault(t *testing.T) {
	t.Setenv("DOCRANK_HOST", "192.168.1.1")

	settings, err := LoadSettingsWithFlags(nil)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "192.168.1.1" {
		t.Errorf("Expected env host '192.168.1.1', got '%s'", settings.Host)
	}
}

func TestLoadSettingsWithFlags_NilFlags(t *testing.T) {
	_ = os.Unsetenv("DOCRANK_PORT")

	settings, err := LoadSettingsWithFlags(nil)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
}

func TestLoadSettingsWithFlags_AllFlagTypes(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("transport", "", "")
	flags.String("host", "", "")
	flags.Int("port", 0, "")
	flags.String("auth-type", "", "")
	flags.String("auth-basic-username", "", "")
	flags.String("auth-basic-password", "", "")
	flags.StringSlice("auth-api-keys", nil, "")

	_ = flags.Set("transport", "sse")
	_ = flags.Set("host", "localhost")
	_ = flags.Set("port", "3000")
	_ = flags.Set("auth-type", "basic")
	_ = flags.Set("auth-basic-username", "testuser")
	_ = flags.Set("auth-basic-password", "testpass")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Transport != "sse" {
		t.Errorf("Expected transport 'sse', got '%s'", settings.Transport)
	}
	if settings.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", settings.Host)
	}
	if settings.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", settings.Port)
	}
	if settings.Auth.Type != "basic" {
		t.Errorf("Expected auth type 'basic', got '%s'", settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "testuser" {
		t.Errorf("Expected username 'testuser', got '%s'", settings.Auth.Basic.Username)
	}
	if settings.Auth.Basic.Password != "testpass" {
		t.Errorf("Expected password 'testpass', got '%s'", settings.Auth.Basic.Password)
	}
}

// --- ValidateSettings Tests ---

func TestValidateSettings_ValidNone(t *testing.T) {
	s := &Settings{Transport: "stdio", Engine: validEngine, CI: validCI, Auth: AuthSettings{Type: AuthTypeNone}}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for valid none auth, got: %v", err)
	}
}

func TestValidateSettings_ValidNone_EmptyType(t *testing.T) {
	s := &Settings{Transport: "stdio", Engine: validEngine, CI: validCI, Auth: AuthSettings{Type: ""}}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for empty auth type, got: %v", err)
	}
}

func TestValidateSettings_ValidBasic(t *testing.T) {
	s := &Settings{
		Transport: "stdio",
		Engine:    validEngine,
		CI:        validCI,
		Auth: AuthSettings{
			Type: AuthTypeBasic,
			Basic: BasicAuthSettings{
				Username: "admin",
				Password: "secret",
			},
		},
	}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for valid basic auth, got: %v", err)
	}
}

func TestValidateSettings_ValidAPIKey(t *testing.T) {
	s := &Settings{
		Transport: "stdio",
		Engine:    validEngine,
		CI:        validCI,
		Auth: AuthSettings{
			Type:    AuthTypeAPIKey,
			APIKeys: []string{"key1", "key2"},
		},
	}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for valid apikey auth, got: %v", err)
	}
}

func TestValidateSettings_NoneWithCredentials(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{
			name: "none with username",
			settings: Settings{
				Transport: "stdio",
				Engine:    validEngine,
				CI:        validCI,
				Auth: AuthSettings{
					Type:  AuthTypeNone,
					Basic: BasicAuthSettings{Username: "admin"},
				},
			},
		},
		{
			name: "none with password",
			settings: Settings{
				Transport: "stdio",
				Engine:    validEngine,
				CI:        validCI,
				Auth: AuthSettings{
					Type:  AuthTypeNone,
					Basic: BasicAuthSettings{Password: "secret"},
				},
			},
		},
		{
			name: "none with api keys",
			settings: Settings{
				Transport: "stdio",
				Engine:    validEngine,
				CI:        validCI,
				Auth: AuthSettings{
					Type:    AuthTypeNone,
					APIKeys: []string{"key1"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettings(&tt.settings)
			if err == nil {
				t.Fatal("Expected error for none with credentials")
			}
			if !strings.Contains(err.Error(), "incompatible") {
				t.Errorf("Expected 'incompatible' in error, got: %v", err)
			}
		})
	}
}

func TestValidateSettings_BasicAuthMissingUsername(t *testing.T) {
	s := &Settings{
		Transport: "stdio",
		Engine:    validEngine,
		CI:        validCI,
		Auth: AuthSettings{
			Type: AuthTypeBasic,
			Basic: BasicAuthSettings{
				Password: "secret",
			},
		},
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for basic auth without username")
	}
	if !strings.Contains(err.Error(), "username and password") {
		t.Errorf("Expected 'username and password' in error, got: %v", err)
	}
}

func TestValidateSettings_BasicAuthMissingPassword(t *testing.T) {
	s := &Settings{
		Transport: "stdio",
		Engine:    validEngine,
		CI:        validCI,
		Auth: AuthSettings{
			Type: AuthTypeBasic,
			Basic: BasicAuthSettings{
				Username: "admin",
			},
		},
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for basic auth without password")
	}
}

func TestValidateSettings_BasicAuthWithAPIKeys(t *testing.T) {
	s := &Settings{
		Transport: "stdio",
		Engine:    validEngine,
		CI:        validCI,
		Auth: AuthSettings{
			Type: AuthTypeBasic,
			Basic: BasicAuthSettings{
				Username: "admin",
				Password: "secret",
			},
			APIKeys: []string{"key1"},
		},
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for basic + api keys")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("Expected 'mutually exclusive' in error, got: %v", err)
	}
}

func TestValidateSettings_APIKeyMissingKeys(t *testing.T) {
	s := &Settings{
		Transport: "stdio",
		Engine:    validEngine,
		CI:        validCI,
		Auth: AuthSettings{
			Type: AuthTypeAPIKey,
		},
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for apikey without keys")
	}
	if !strings.Contains(err.Error(), "requires at least one") {
		t.Errorf("Expected 'requires at least one' in error, got: %v", err)
	}
}

func TestValidateSettings_APIKeyWithBasicCreds(t *testing.T) {
	s := &Settings{
		Transport: "stdio",
		Engine:    validEngine,
		CI:        validCI,
		Auth: AuthSettings{
			Type:    AuthTypeAPIKey,
			APIKeys: []string{"key1"},
			Basic: BasicAuthSettings{
				Username: "admin",
			},
		},
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for apikey + basic creds")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("Expected 'mutually exclusive' in error, got: %v", err)
	}
}

func TestValidateSettings_UnknownAuthType(t *testing.T) {
	s := &Settings{
		Transport: "stdio",
		Engine:    validEngine,
		CI:        validCI,
		Auth: AuthSettings{
			Type: "oauth",
		},
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for unknown auth type")
	}
	if !strings.Contains(err.Error(), "unknown auth-type") {
		t.Errorf("Expected 'unknown auth-type' in error, got: %v", err)
	}
}

// --- Transport Validation Tests ---

func TestValidateSettings_ValidTransportStdio(t *testing.T) {
	s := &Settings{Transport: "stdio", Engine: validEngine, CI: validCI, Auth: AuthSettings{Type: AuthTypeNone}}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for valid stdio transport, got: %v", err)
	}
}

func TestValidateSettings_ValidTransportSSE(t *testing.T) {
	s := &Settings{Transport: "sse", Engine: validEngine, CI: validCI, Auth: AuthSettings{Type: AuthTypeNone}}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for valid sse transport, got: %v", err)
	}
}

func TestValidateSettings_InvalidTransport(t *testing.T) {
	tests := []struct {
		name      string
		transport string
	}{
		{"empty transport", ""},
		{"http transport", "http"},
		{"websocket transport", "websocket"},
		{"unknown transport", "foobar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{
				Transport: tt.transport,
				Engine:    validEngine,
				CI:        validCI,
				Auth:      AuthSettings{Type: AuthTypeNone},
			}
			err := ValidateSettings(s)
			if err == nil {
				t.Fatalf("Expected error for transport %q", tt.transport)
			}
			if !strings.Contains(err.Error(), "transport must be") {
				t.Errorf("Expected 'transport must be' in error, got: %v", err)
			}
		})
	}
}

var (
	validEngine = EngineSettings{
		AuditCapacity:   2000,
		DefaultMode:     "flexible",
		TopK:            20,
		MaxContentBytes: 1024,
		ExportDir:       "/tmp/exports",
	}
	validCI = CISettings{MaxDownPct: 35, MaxNegativeDeltaScore: 0.02, TopN: 25, OutDir: "reports"}
)

// --- EngineSettings Tests ---

func TestLoadSettings_EngineDefaults(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	e := settings.Engine
	if e.AuditCapacity != 2000 {
		t.Errorf("Expected audit capacity 2000, got %d", e.AuditCapacity)
	}
	if e.DefaultMode != "flexible" {
		t.Errorf("Expected default mode 'flexible', got '%s'", e.DefaultMode)
	}
	if e.TopK != 20 {
		t.Errorf("Expected top-k 20, got %d", e.TopK)
	}
	if !e.Semantic || !e.Fuzzy {
		t.Errorf("Expected semantic and fuzzy enabled, got %v/%v", e.Semantic, e.Fuzzy)
	}
	if e.MaxContentBytes != 1024*1024 {
		t.Errorf("Expected max content bytes 1MB, got %d", e.MaxContentBytes)
	}
	if !strings.HasSuffix(e.ExportDir, filepath.Join(".docrank", "exports")) {
		t.Errorf("Expected export dir under .docrank, got '%s'", e.ExportDir)
	}

	c := settings.CI
	if c.MaxDownPct != 35 || c.MaxNegativeDeltaScore != 0.02 || c.TopN != 25 {
		t.Errorf("Unexpected CI defaults: %+v", c)
	}
	if err := ValidateSettings(settings); err != nil {
		t.Errorf("Expected defaults to validate, got: %v", err)
	}
}

func TestLoadSettings_EngineEnvVars(t *testing.T) {
	t.Setenv("DOCRANK_ENGINE_CORPUS_PATH", "~/corpus.json")
	t.Setenv("DOCRANK_ENGINE_DEFAULT_MODE", " Strict ")
	t.Setenv("DOCRANK_ENGINE_TOP_K", "5")
	t.Setenv("DOCRANK_ENGINE_SEMANTIC", "false")
	t.Setenv("DOCRANK_CI_MAX_DOWN_PCT", "12.5")
	t.Setenv("DOCRANK_CI_TOP_N", "3")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	home, _ := os.UserHomeDir()
	if settings.Engine.CorpusPath != filepath.Join(home, "corpus.json") {
		t.Errorf("Expected expanded corpus path, got '%s'", settings.Engine.CorpusPath)
	}
	if settings.Engine.DefaultMode != "strict" {
		t.Errorf("Expected mode 'strict', got '%s'", settings.Engine.DefaultMode)
	}
	if settings.Engine.TopK != 5 {
		t.Errorf("Expected top-k 5, got %d", settings.Engine.TopK)
	}
	if settings.Engine.Semantic {
		t.Error("Expected semantic disabled")
	}
	if settings.CI.MaxDownPct != 12.5 {
		t.Errorf("Expected max down pct 12.5, got %v", settings.CI.MaxDownPct)
	}
	if settings.CI.TopN != 3 {
		t.Errorf("Expected top-n 3, got %d", settings.CI.TopN)
	}
}

func TestLoadSettingsWithFlags_EngineFlagsOverrideEnv(t *testing.T) {
	t.Setenv("DOCRANK_ENGINE_TOP_K", "5")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("top-k", 0, "")
	flags.String("mode", "", "")
	flags.Float64("max-down-pct", 0, "")
	_ = flags.Set("top-k", "9")
	_ = flags.Set("mode", "estricta")
	_ = flags.Set("max-down-pct", "50")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Engine.TopK != 9 {
		t.Errorf("Expected CLI top-k 9, got %d", settings.Engine.TopK)
	}
	if settings.Engine.DefaultMode != "estricta" {
		t.Errorf("Expected CLI mode 'estricta', got '%s'", settings.Engine.DefaultMode)
	}
	if settings.CI.MaxDownPct != 50 {
		t.Errorf("Expected CLI max down pct 50, got %v", settings.CI.MaxDownPct)
	}
}

func TestValidateEngineSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *EngineSettings)
		wantErr string
	}{
		{"valid", func(e *EngineSettings) {}, ""},
		{"strict spelling", func(e *EngineSettings) { e.DefaultMode = "estricto" }, ""},
		{"zero capacity", func(e *EngineSettings) { e.AuditCapacity = 0 }, "audit-capacity"},
		{"negative top-k", func(e *EngineSettings) { e.TopK = -1 }, "top-k"},
		{"zero content bytes", func(e *EngineSettings) { e.MaxContentBytes = 0 }, "max-content-bytes"},
		{"empty export dir", func(e *EngineSettings) { e.ExportDir = "" }, "export-dir"},
		{"unknown mode", func(e *EngineSettings) { e.DefaultMode = "fuzzy" }, "mode must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEngine
			tt.mutate(&e)
			err := ValidateEngineSettings(&e)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateCISettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *CISettings)
		wantErr string
	}{
		{"valid", func(c *CISettings) {}, ""},
		{"down pct above 100", func(c *CISettings) { c.MaxDownPct = 101 }, "max-down-pct"},
		{"negative down pct", func(c *CISettings) { c.MaxDownPct = -1 }, "max-down-pct"},
		{"negative delta", func(c *CISettings) { c.MaxNegativeDeltaScore = -0.1 }, "max-negative-delta-score"},
		{"zero top-n", func(c *CISettings) { c.TopN = 0 }, "top-n"},
		{"empty out dir", func(c *CISettings) { c.OutDir = "" }, "out-dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCI
			tt.mutate(&c)
			err := ValidateCISettings(&c)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSettings_PropagatesEngineErrors(t *testing.T) {
	s := &Settings{Transport: "stdio", Auth: AuthSettings{Type: AuthTypeNone}, CI: validCI}
	if err := ValidateSettings(s); err == nil {
		t.Error("Expected error for zero engine settings")
	}
}

// --- Helper Function Tests ---

func TestExpandHomeDir(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tilde prefix", "~/test", filepath.Join(home, "test")},
		{"tilde only", "~", home},
		{"no tilde", "/absolute/path", "/absolute/path"},
		{"tilde in middle", "/path/~/test", "/path/~/test"},
		{"relative path", "relative/path", "relative/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandHomeDir(tt.input)
			if result != tt.expected {
				t.Errorf("expandHomeDir(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFilterEmptyStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"no empties", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"with empties", []string{"a", "", "b", "", "c"}, []string{"a", "b", "c"}},
		{"all empties", []string{"", "", ""}, nil},
		{"nil input", nil, nil},
		{"single empty", []string{""}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filterEmptyStrings(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("filterEmptyStrings(%v) = %v, want %v", tt.input, result, tt.expected)
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("filterEmptyStrings(%v) = %v, want %v", tt.input, result, tt.expected)
					break
				}
			}
		})
	}
}
