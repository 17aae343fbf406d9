package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// LLM providers.
const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
)

// Storage backends.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
)

type Config struct {
	Mode Mode `yaml:"mode"`

	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Assistant AssistantConfig `yaml:"assistant"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "mock", "gemini" or "vertex"
	APIKey      string  `yaml:"api_key"`
	GCPProject  string  `yaml:"gcp_project"`
	GCPLocation string  `yaml:"gcp_location"`
	ModelName   string  `yaml:"model_name"`
	Temperature float32 `yaml:"temperature"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`

	SQLitePath       string `yaml:"sqlite_path"`
	PostgresDSN      string `yaml:"postgres_dsn"`
	MongoURI         string `yaml:"mongo_uri"`
	MongoDatabase    string `yaml:"mongo_database"`
	FirestoreProject string `yaml:"firestore_project"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`

	// Bypass skips token verification and attributes every request to DevUserID.
	// Only honored in local mode.
	Bypass    bool   `yaml:"bypass"`
	DevUserID string `yaml:"dev_user_id"`
}

type AssistantConfig struct {
	MaxTranscriptTurns int    `yaml:"max_transcript_turns"`
	Timezone           string `yaml:"timezone"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Mode: ModeLocal,
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    ProviderMock,
			GCPLocation: "us-central1",
			ModelName:   "gemini-2.5-flash",
			Temperature: 0.2,
		},
		Storage: StorageConfig{
			Backend:       BackendMemory,
			SQLitePath:    "quicknotes.db",
			MongoDatabase: "quicknotes",
		},
		Auth: AuthConfig{
			DevUserID: "dev-user",
		},
		Assistant: AssistantConfig{
			MaxTranscriptTurns: 40,
			Timezone:           "UTC",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getFloatEnv(key string, def float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return def
	}
	return float32(f)
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load builds the config from defaults, the optional YAML file named by
// QUICKNOTES_CONFIG, and environment variables (highest precedence).
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("QUICKNOTES_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	switch getEnv("QUICKNOTES_MODE", string(c.Mode)) {
	case "gcp":
		c.Mode = ModeGCP
	default:
		c.Mode = ModeLocal
	}

	c.Server.Port = getEnv("QUICKNOTES_PORT", getEnv("PORT", c.Server.Port))
	c.Server.ReadTimeout = getDurationEnv("QUICKNOTES_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("QUICKNOTES_WRITE_TIMEOUT", c.Server.WriteTimeout)

	c.LLM.Provider = strings.ToLower(getEnv("QUICKNOTES_LLM_PROVIDER", c.LLM.Provider))
	c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
	c.LLM.GCPProject = getEnv("QUICKNOTES_GCP_PROJECT", c.LLM.GCPProject)
	c.LLM.GCPLocation = getEnv("QUICKNOTES_GCP_LOCATION", c.LLM.GCPLocation)
	c.LLM.ModelName = getEnv("QUICKNOTES_MODEL_NAME", c.LLM.ModelName)
	c.LLM.Temperature = getFloatEnv("QUICKNOTES_TEMPERATURE", c.LLM.Temperature)

	c.Storage.Backend = strings.ToLower(getEnv("QUICKNOTES_STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.SQLitePath = getEnv("QUICKNOTES_SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.PostgresDSN = getEnv("QUICKNOTES_POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Storage.MongoURI = getEnv("QUICKNOTES_MONGO_URI", c.Storage.MongoURI)
	c.Storage.MongoDatabase = getEnv("QUICKNOTES_MONGO_DATABASE", c.Storage.MongoDatabase)
	c.Storage.FirestoreProject = getEnv("QUICKNOTES_FIRESTORE_PROJECT", getEnv("QUICKNOTES_GCP_PROJECT", c.Storage.FirestoreProject))

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Bypass = getBoolEnv("BYPASS_AUTH", c.Auth.Bypass)
	c.Auth.DevUserID = getEnv("QUICKNOTES_DEV_USER", c.Auth.DevUserID)

	c.Assistant.MaxTranscriptTurns = getIntEnv("QUICKNOTES_MAX_TRANSCRIPT_TURNS", c.Assistant.MaxTranscriptTurns)
	c.Assistant.Timezone = getEnv("QUICKNOTES_TIMEZONE", c.Assistant.Timezone)

	c.Logging.Level = getEnv("QUICKNOTES_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("QUICKNOTES_LOG_FORMAT", c.Logging.Format)
}

// Validate checks that the selected providers have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderMock:
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY must be set for the gemini provider"))
		}
	case ProviderVertex:
		if c.LLM.GCPProject == "" || c.LLM.GCPLocation == "" {
			errs = append(errs, errors.New("QUICKNOTES_GCP_PROJECT and QUICKNOTES_GCP_LOCATION must be set for the vertex provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("QUICKNOTES_SQLITE_PATH must be set for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("QUICKNOTES_POSTGRES_DSN must be set for the postgres backend"))
		}
	case BackendMongo:
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("QUICKNOTES_MONGO_URI must be set for the mongo backend"))
		}
	case BackendFirestore:
		if c.Storage.FirestoreProject == "" {
			errs = append(errs, errors.New("QUICKNOTES_FIRESTORE_PROJECT must be set for the firestore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	if c.Auth.JWTSecret == "" && !c.AuthBypassed() {
		errs = append(errs, errors.New("JWT_SECRET must be set unless BYPASS_AUTH is enabled in local mode"))
	}

	if _, err := time.LoadLocation(c.Assistant.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Assistant.Timezone, err))
	}

	return errors.Join(errs...)
}

// AuthBypassed reports whether token verification is skipped.
func (c *Config) AuthBypassed() bool {
	return c.Auth.Bypass && c.Mode == ModeLocal
}

// Location returns the timezone replies are rendered in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Assistant.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
