package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"callbridge/internal/routing"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process and the CLI.
// All values come from env, optionally seeded from a .env file.
// No business logic should depend on raw environment variables.
type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	SalesManago SalesManagoConfig
	Millis      MillisConfig
	Audit       AuditConfig
	Calls       CallsConfig

	// Regions holds the configured region routes; regions without an agent are absent.
	Regions map[routing.Region]routing.Route
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	// Driver is "pgx" (default) or "sqlite". For sqlite, Name is the database file.
	Driver string

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// ContactTable is the phone-indexed contact table, optionally schema-qualified.
	ContactTable string
}

type RedisConfig struct {
	Host string
	Port int
}

type SalesManagoConfig struct {
	BaseURL         string
	ClientID        string
	APIKey          string
	Signature       string
	Owner           string
	SessionProperty string
}

type MillisConfig struct {
	BaseURL string
	APIKey  string
}

type AuditConfig struct {
	// Backend is http, redis or none.
	Backend   string
	ServerURL string
	Table     string
	Stream    string
}

type CallsConfig struct {
	// PollMode is inline or background.
	PollMode string
}

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"

	AuditHTTP  = "http"
	AuditRedis = "redis"
	AuditNone  = "none"
)

// Load reads configuration from the environment after applying an optional .env file.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates a Config from the current environment.
func FromEnv() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = env("APP_ENV")
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Driver = strings.ToLower(env("CONTACT_DB_DRIVER"))
	if c.DB.Driver == "" || c.DB.Driver == "postgres" {
		c.DB.Driver = DriverPostgres
	}
	c.DB.Host = env("DB_HOST")
	if c.DB.Driver == DriverPostgres {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = env("DB_USER")
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = env("DB_NAME")
	c.DB.SSLMode = env("DB_SSLMODE")
	c.DB.ContactTable = env("CONTACT_TABLE")

	c.Audit.Backend = strings.ToLower(env("AUDIT_BACKEND"))
	c.Audit.ServerURL = env("AUDIT_SERVER_URL")
	c.Audit.Table = env("AUDIT_TABLE")
	c.Audit.Stream = env("AUDIT_STREAM")

	c.Redis.Host = env("REDIS_HOST")
	{
		n, err := optionalInt("REDIS_PORT", 6379)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.SalesManago = SalesManagoConfig{
		BaseURL:         env("SALESMANAGO_BASE_URL"),
		ClientID:        env("SALESMANAGO_CLIENT_ID"),
		APIKey:          os.Getenv("SALESMANAGO_API_KEY"),
		Signature:       os.Getenv("SALESMANAGO_SHA"),
		Owner:           env("SALESMANAGO_OWNER"),
		SessionProperty: env("SALESMANAGO_SESSION_PROPERTY"),
	}
	c.Millis = MillisConfig{
		BaseURL: env("MILLIS_BASE_URL"),
		APIKey:  os.Getenv("MILLIS_API_KEY"),
	}
	c.Calls.PollMode = strings.ToLower(env("POLL_MODE"))

	c.Regions = map[routing.Region]routing.Route{}
	for _, r := range routing.ScanOrder {
		route := routing.Route{
			AgentID:   env("AGENT_ID_" + string(r)),
			FromPhone: env("PHONE_FROM_" + string(r)),
		}
		if route.AgentID != "" || route.FromPhone != "" {
			c.Regions[r] = route
		}
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.DB.Driver == "" {
		c.DB.Driver = DriverPostgres
	}
	if c.DB.SSLMode == "" && !c.IsProduction() {
		// Local-friendly default; production must be explicit.
		c.DB.SSLMode = "disable"
	}
	if c.Audit.Backend == "" {
		c.Audit.Backend = AuditNone
		if c.Audit.ServerURL != "" {
			c.Audit.Backend = AuditHTTP
		}
	}
	if c.Calls.PollMode == "" {
		c.Calls.PollMode = "inline"
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required"))
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.DB.SSLMode == "" {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else if !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	case DriverSQLite:
		if c.IsProduction() {
			errs = append(errs, errors.New("CONTACT_DB_DRIVER=sqlite is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("CONTACT_DB_DRIVER must be postgres or sqlite, got %q", c.DB.Driver))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}

	if c.SalesManago.ClientID == "" {
		errs = append(errs, errors.New("SALESMANAGO_CLIENT_ID is required"))
	}
	if c.SalesManago.APIKey == "" {
		errs = append(errs, errors.New("SALESMANAGO_API_KEY is required"))
	}
	if c.SalesManago.Signature == "" {
		errs = append(errs, errors.New("SALESMANAGO_SHA is required"))
	}
	if c.SalesManago.Owner == "" {
		errs = append(errs, errors.New("SALESMANAGO_OWNER is required"))
	}
	if c.Millis.APIKey == "" {
		errs = append(errs, errors.New("MILLIS_API_KEY is required"))
	}

	for _, r := range routing.ScanOrder {
		route, ok := c.Regions[r]
		if !ok {
			continue
		}
		if route.AgentID == "" {
			errs = append(errs, fmt.Errorf("AGENT_ID_%s is required when PHONE_FROM_%s is set", r, r))
		}
		if route.FromPhone == "" {
			errs = append(errs, fmt.Errorf("PHONE_FROM_%s is required when AGENT_ID_%s is set", r, r))
		}
	}

	switch c.Audit.Backend {
	case AuditHTTP:
		if c.Audit.ServerURL == "" {
			errs = append(errs, errors.New("AUDIT_SERVER_URL is required for AUDIT_BACKEND=http"))
		}
	case AuditRedis:
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required for AUDIT_BACKEND=redis"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	case AuditNone:
	default:
		errs = append(errs, fmt.Errorf("AUDIT_BACKEND must be one of http, redis, none, got %q", c.Audit.Backend))
	}

	switch c.Calls.PollMode {
	case "inline", "background":
	default:
		errs = append(errs, fmt.Errorf("POLL_MODE must be inline or background, got %q", c.Calls.PollMode))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// ContactDSN is the data source name for the contact store driver.
func (c Config) ContactDSN() string {
	if c.DB.Driver == DriverSQLite {
		return c.DB.Name
	}
	return c.PostgresDSN()
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Routes builds the immutable region routing table.
func (c Config) Routes() (routing.Table, error) {
	return routing.NewTable(c.Regions)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func mustInt(key string) (int, error) {
	v := env(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string, def int) (int, error) {
	if env(key) == "" {
		return def, nil
	}
	return mustInt(key)
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
