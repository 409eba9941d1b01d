package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"

	minJWTSecretLength = 32
)

// Config captures the runtime configuration of the API process.
type Config struct {
	HTTPPort         int
	Database         DatabaseConfig
	JWTSecret        string
	AccessTokenTTL   time.Duration
	InvitationTTL    time.Duration
	PasswordResetTTL time.Duration
	RequestTimeout   time.Duration
	Timezone         string
	Location         *time.Location
	LogLevel         string
	LogFormat        string
	PublicURL        string
	Mail             MailConfig
}

// DatabaseConfig selects the store implementation.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// MailConfig configures outbound email delivery.
type MailConfig struct {
	Driver    string
	SMTPHost  string
	SMTPPort  int
	Username  string
	Password  string
	From      string
	Workers   int
	QueueSize int
}

// fileConfig mirrors the optional YAML file named by GALERA_CONFIG_FILE.
type fileConfig struct {
	HTTPPort int `yaml:"http_port"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	JWTSecret        string `yaml:"jwt_secret"`
	AccessTokenTTL   string `yaml:"access_token_ttl"`
	InvitationTTL    string `yaml:"invitation_ttl"`
	PasswordResetTTL string `yaml:"password_reset_ttl"`
	RequestTimeout   string `yaml:"request_timeout"`
	Timezone         string `yaml:"timezone"`
	PublicURL        string `yaml:"public_url"`
	Log              struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Mail struct {
		Driver    string `yaml:"driver"`
		SMTPHost  string `yaml:"smtp_host"`
		SMTPPort  int    `yaml:"smtp_port"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		From      string `yaml:"from"`
		Workers   int    `yaml:"workers"`
		QueueSize int    `yaml:"queue_size"`
	} `yaml:"mail"`
}

// Load reads configuration from an optional .env file, an optional YAML
// file and the process environment, in increasing order of precedence.
//
// Missing required keys and invalid values are reported together.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("falha ao ler o arquivo .env: %w", err)
	}
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds a Config from the supplied lookup function.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	values := defaults()

	if path := lookupTrimmed(lookup, "GALERA_CONFIG_FILE"); path != "" {
		overlay, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		for key, value := range overlay {
			values[key] = value
		}
	}

	for key := range values {
		if value := lookupTrimmed(lookup, key); value != "" {
			values[key] = value
		}
	}
	for _, key := range optionalKeys {
		if value := lookupTrimmed(lookup, key); value != "" {
			values[key] = value
		}
	}

	return parse(values)
}

var optionalKeys = []string{
	"GALERA_JWT_SECRET",
	"GALERA_SMTP_HOST",
	"GALERA_SMTP_USERNAME",
	"GALERA_SMTP_PASSWORD",
}

func defaults() map[string]string {
	return map[string]string{
		"GALERA_HTTP_PORT":          "8080",
		"GALERA_DATABASE_DRIVER":    DriverSQLite,
		"GALERA_DATABASE_DSN":       "",
		"GALERA_ACCESS_TOKEN_TTL":   "30m",
		"GALERA_INVITATION_TTL":     "168h",
		"GALERA_PASSWORD_RESET_TTL": "1h",
		"GALERA_REQUEST_TIMEOUT":    "30s",
		"GALERA_TIMEZONE":           "America/Fortaleza",
		"GALERA_LOG_LEVEL":          "info",
		"GALERA_LOG_FORMAT":         "json",
		"GALERA_PUBLIC_URL":         "http://localhost:8080",
		"GALERA_MAIL_DRIVER":        MailDriverLog,
		"GALERA_SMTP_PORT":          "587",
		"GALERA_MAIL_FROM":          "nao-responda@galeradovolei.com.br",
		"GALERA_MAIL_WORKERS":       "2",
		"GALERA_MAIL_QUEUE_SIZE":    "100",
	}
}

func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("falha ao ler o arquivo de configuração %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("arquivo de configuração %s inválido: %w", path, err)
	}

	out := make(map[string]string)
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			out[key] = value
		}
	}
	setInt := func(key string, value int) {
		if value != 0 {
			out[key] = strconv.Itoa(value)
		}
	}

	setInt("GALERA_HTTP_PORT", fc.HTTPPort)
	set("GALERA_DATABASE_DRIVER", fc.Database.Driver)
	set("GALERA_DATABASE_DSN", fc.Database.DSN)
	set("GALERA_JWT_SECRET", fc.JWTSecret)
	set("GALERA_ACCESS_TOKEN_TTL", fc.AccessTokenTTL)
	set("GALERA_INVITATION_TTL", fc.InvitationTTL)
	set("GALERA_PASSWORD_RESET_TTL", fc.PasswordResetTTL)
	set("GALERA_REQUEST_TIMEOUT", fc.RequestTimeout)
	set("GALERA_TIMEZONE", fc.Timezone)
	set("GALERA_PUBLIC_URL", fc.PublicURL)
	set("GALERA_LOG_LEVEL", fc.Log.Level)
	set("GALERA_LOG_FORMAT", fc.Log.Format)
	set("GALERA_MAIL_DRIVER", fc.Mail.Driver)
	set("GALERA_SMTP_HOST", fc.Mail.SMTPHost)
	setInt("GALERA_SMTP_PORT", fc.Mail.SMTPPort)
	set("GALERA_SMTP_USERNAME", fc.Mail.Username)
	set("GALERA_SMTP_PASSWORD", fc.Mail.Password)
	set("GALERA_MAIL_FROM", fc.Mail.From)
	setInt("GALERA_MAIL_WORKERS", fc.Mail.Workers)
	setInt("GALERA_MAIL_QUEUE_SIZE", fc.Mail.QueueSize)
	return out, nil
}

func parse(values map[string]string) (Config, error) {
	var cfg Config
	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	positiveInt := func(key string) int {
		n, err := strconv.Atoi(values[key])
		if err != nil || n <= 0 {
			invalid = append(invalid, key)
			return 0
		}
		return n
	}
	positiveDuration := func(key string) time.Duration {
		d, err := time.ParseDuration(values[key])
		if err != nil || d <= 0 {
			invalid = append(invalid, key)
			return 0
		}
		return d
	}

	cfg.HTTPPort = positiveInt("GALERA_HTTP_PORT")

	cfg.Database.Driver = strings.ToLower(values["GALERA_DATABASE_DRIVER"])
	cfg.Database.DSN = values["GALERA_DATABASE_DSN"]
	switch cfg.Database.Driver {
	case DriverSQLite:
		if cfg.Database.DSN == "" {
			cfg.Database.DSN = "galera.db"
		}
	case DriverPostgres:
		if cfg.Database.DSN == "" {
			missing = append(missing, "GALERA_DATABASE_DSN")
		}
	case DriverMemory:
	default:
		invalid = append(invalid, "GALERA_DATABASE_DRIVER")
	}

	cfg.JWTSecret = values["GALERA_JWT_SECRET"]
	switch {
	case cfg.JWTSecret == "":
		missing = append(missing, "GALERA_JWT_SECRET")
	case len(cfg.JWTSecret) < minJWTSecretLength:
		invalid = append(invalid, "GALERA_JWT_SECRET")
	}

	cfg.AccessTokenTTL = positiveDuration("GALERA_ACCESS_TOKEN_TTL")
	cfg.InvitationTTL = positiveDuration("GALERA_INVITATION_TTL")
	cfg.PasswordResetTTL = positiveDuration("GALERA_PASSWORD_RESET_TTL")
	cfg.RequestTimeout = positiveDuration("GALERA_REQUEST_TIMEOUT")

	cfg.Timezone = values["GALERA_TIMEZONE"]
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		invalid = append(invalid, "GALERA_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	cfg.LogLevel = values["GALERA_LOG_LEVEL"]
	cfg.LogFormat = strings.ToLower(values["GALERA_LOG_FORMAT"])
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		invalid = append(invalid, "GALERA_LOG_FORMAT")
	}
	cfg.PublicURL = strings.TrimRight(values["GALERA_PUBLIC_URL"], "/")

	cfg.Mail = MailConfig{
		Driver:    strings.ToLower(values["GALERA_MAIL_DRIVER"]),
		SMTPHost:  values["GALERA_SMTP_HOST"],
		Username:  values["GALERA_SMTP_USERNAME"],
		Password:  values["GALERA_SMTP_PASSWORD"],
		From:      values["GALERA_MAIL_FROM"],
		SMTPPort:  positiveInt("GALERA_SMTP_PORT"),
		Workers:   positiveInt("GALERA_MAIL_WORKERS"),
		QueueSize: positiveInt("GALERA_MAIL_QUEUE_SIZE"),
	}
	switch cfg.Mail.Driver {
	case MailDriverLog:
	case MailDriverSMTP:
		if cfg.Mail.SMTPHost == "" {
			missing = append(missing, "GALERA_SMTP_HOST")
		}
	default:
		invalid = append(invalid, "GALERA_MAIL_DRIVER")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("variáveis de ambiente obrigatórias não definidas: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valores de configuração inválidos: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func lookupTrimmed(lookup func(string) (string, bool), key string) string {
	if lookup == nil {
		return ""
	}
	value, ok := lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
