package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Cache    CacheConfig
	LedgerDB LedgerDBConfig
	Audit    AuditConfig
	Mojang   MojangConfig
	Session  SessionConfig
	Tracing  TracingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string   `envconfig:"APP_NAME" default:"socialcredit-api"`
	Environment string   `envconfig:"APP_ENV" default:"development"`
	Debug       bool     `envconfig:"APP_DEBUG" default:"false"`
	Version     string   `envconfig:"APP_VERSION" default:"1.0.0"`
	APIKeys     []string `envconfig:"API_KEYS" default:""`  // bot frontend keys, comma separated
	AdminKey    string   `envconfig:"ADMIN_KEY" default:""` // required on admin routes
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type        string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	SettingsTTL time.Duration `envconfig:"SETTINGS_CACHE_TTL" default:"5m"`

	RedisHost      string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort      int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"socialcredit"`
}

// LedgerDBConfig selects and configures the ledger store.
type LedgerDBConfig struct {
	Type string `envconfig:"LEDGER_DB_TYPE" default:"sqlite"` // sqlite, postgres or mysql
	Path string `envconfig:"LEDGER_DB_PATH" default:"./data/socialcredit.db"`

	Host     string `envconfig:"LEDGER_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"LEDGER_DB_PORT" default:"0"`
	Name     string `envconfig:"LEDGER_DB_NAME" default:"socialcredit"`
	User     string `envconfig:"LEDGER_DB_USER" default:""`
	Password string `envconfig:"LEDGER_DB_PASS" default:""`
	SSLMode  string `envconfig:"LEDGER_DB_SSLMODE" default:"disable"`
}

// AuditConfig holds the optional MongoDB audit trail settings.
type AuditConfig struct {
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"socialcredit"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"ledger_audit"`
}

// MojangConfig holds the profile lookup client settings.
type MojangConfig struct {
	BaseURL string        `envconfig:"MOJANG_BASE_URL" default:"https://api.mojang.com"`
	Timeout time.Duration `envconfig:"MOJANG_TIMEOUT" default:"5s"`
}

// SessionConfig holds manual balance entry session settings.
type SessionConfig struct {
	TTL time.Duration `envconfig:"SESSION_TTL" default:"10m"`
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Exporter    string  `envconfig:"TRACING_EXPORTER" default:"none"` // none, stdout or otlphttp
	Endpoint    string  `envconfig:"TRACING_ENDPOINT" default:"http://localhost:4318"`
	Insecure    bool    `envconfig:"TRACING_INSECURE" default:"true"`
	SampleRatio float64 `envconfig:"TRACING_SAMPLE_RATIO" default:"1"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *LedgerDBConfig) PostgresDSN() string {
	user, port := d.User, d.Port
	if user == "" {
		user = "postgres"
	}
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, d.Password, d.Host, port, d.Name, d.SSLMode)
}

// MySQLDSN returns the MySQL data source name. clientFoundRows makes
// RowsAffected count matched rows, which the store relies on.
func (d *LedgerDBConfig) MySQLDSN() string {
	user, port := d.User, d.Port
	if user == "" {
		user = "root"
	}
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true",
		user, d.Password, d.Host, port, d.Name)
}

// Target returns the path or DSN for the configured store type.
func (d *LedgerDBConfig) Target() string {
	switch strings.ToLower(d.Type) {
	case "postgres", "postgresql", "pg":
		return d.PostgresDSN()
	case "mysql", "mariadb":
		return d.MySQLDSN()
	default:
		return d.Path
	}
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables. When CONFIG_FILE
// names a TOML file its keys fill in variables the environment leaves unset.
func Load() (*Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// applyFile reads a TOML file and exports its keys as environment
// variables. Tables flatten with an underscore, so [redis] host = "x"
// becomes REDIS_HOST. Arrays join with commas.
func applyFile(path string) error {
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return err
	}

	vars := make(map[string]string)
	flatten("", raw, vars)

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, vars[k]); err != nil {
			return err
		}
	}
	return nil
}

func flatten(prefix string, in map[string]interface{}, out map[string]string) {
	for k, v := range in {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case []interface{}:
			parts := make([]string, len(val))
			for i, item := range val {
				parts[i] = fmt.Sprint(item)
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
