package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable read by Load.
const Prefix = "SKYNET_"

// Config captures environment driven configuration values for the SkyNet service.
type Config struct {
	HTTPPort  int    `env:"HTTP_PORT" envDefault:"8080"`
	APIURL    string `env:"API_URL,required,notEmpty"`
	SQLiteDSN string `env:"SQLITE_DSN" envDefault:"file:skynet.db?_pragma=foreign_keys(1)"`
	Timezone  string `env:"TIMEZONE" envDefault:"America/Guatemala"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	DetailCacheTTL time.Duration `env:"DETAIL_CACHE_TTL" envDefault:"30s"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// JWTSecret enables HS256 verification of remote tokens when set.
	JWTSecret string `env:"JWT_SECRET"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	ResendURL    string `env:"RESEND_API_URL" envDefault:"https://api.resend.com/emails"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"SkyNet <onboarding@resend.dev>"`

	RedisAddr string `env:"REDIS_ADDR"`
	AMQPURL   string `env:"AMQP_URL"`
	AMQPQueue string `env:"AMQP_QUEUE" envDefault:"skynet.visit-reports"`

	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"skynet"`

	// Location is resolved from Timezone.
	Location *time.Location `env:"-"`
}

// Load reads an optional .env file (SKYNET_ENV_FILE, default ".env") and then
// parses configuration values from the process environment.
//
// Defaults are applied for optional fields; missing required values and
// unparseable values are reported together with localized messages.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv(Prefix + "ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("no se pudo leer el archivo %s: %w", envFile, err)
	}

	var cfg Config
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		var agg env.AggregateError
		if !errors.As(err, &agg) {
			return Config{}, fmt.Errorf("parse env: %w", err)
		}
		for _, item := range agg.Errors {
			var (
				notSet env.EnvVarIsNotSetError
				empty  env.EmptyVarError
				parse  env.ParseError
			)
			switch {
			case errors.As(item, &notSet):
				missing = appendUnique(missing, notSet.Key)
			case errors.As(item, &empty):
				missing = appendUnique(missing, empty.Key)
			case errors.As(item, &parse):
				invalid = appendUnique(invalid, envKey(parse.Name))
			default:
				return Config{}, fmt.Errorf("parse env: %w", item)
			}
		}
	}

	if cfg.HTTPPort <= 0 {
		invalid = appendUnique(invalid, envKey("HTTPPort"))
	}
	for field, value := range map[string]time.Duration{
		"RequestTimeout": cfg.RequestTimeout,
		"SessionTTL":     cfg.SessionTTL,
		"DetailCacheTTL": cfg.DetailCacheTTL,
	} {
		if value <= 0 {
			invalid = appendUnique(invalid, envKey(field))
		}
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		invalid = appendUnique(invalid, envKey("LogFormat"))
	}
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = appendUnique(invalid, envKey("Timezone"))
	} else {
		cfg.Location = loc
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("faltan variables de entorno obligatorias: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Config{}, fmt.Errorf("valores inválidos en variables de entorno: %s", strings.Join(invalid, ", "))
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	return cfg, nil
}

// envKey resolves the full variable name for a Config field.
func envKey(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
	return Prefix + name
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
