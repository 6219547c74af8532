package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/messenger/pkg/idx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env                 string        `env:"ENV"                   envDefault:"dev"`  // dev, staging, prod
	LogLevel            string        `env:"LOG_LEVEL"             envDefault:"info"` // debug, info, warn, error
	LogFormat           string        `env:"LOG_FORMAT"            envDefault:"json"` // json, text
	Port                int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"` // sqlite, postgres
	DatabaseFile   string `env:"DATABASE_FILE"   envDefault:"auth.db"`
	DatabaseURL    string `env:"DATABASE_URL"`                        // Required for postgres

	// Key material for the field cipher. Changing either makes every stored
	// email undecryptable.
	EncryptionPassword string `env:"ENCRYPTION_PASSWORD,required,notEmpty"`
	EncryptionSalt     string `env:"ENCRYPTION_SALT,required,notEmpty"`
	KDFTime            uint32 `env:"KDF_TIME"       envDefault:"3"`
	KDFMemoryKiB       uint32 `env:"KDF_MEMORY_KIB" envDefault:"65536"`
	KDFThreads         uint8  `env:"KDF_THREADS"    envDefault:"4"`

	WorkerID uint16 `env:"WORKER_ID" envDefault:"0"` // Snowflake worker, 0..1023

	Issuer     string        `env:"AUTH_ISSUER" envDefault:"messenger-auth"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	VerificationTTL      time.Duration `env:"VERIFICATION_TTL"        envDefault:"5m"`
	WriteFirstRetryDelay time.Duration `env:"WRITE_FIRST_RETRY_DELAY" envDefault:"5s"`
	WriteRetryInterval   time.Duration `env:"WRITE_RETRY_INTERVAL"    envDefault:"30s"`

	// SMTP is used when Host is set; otherwise codes are written to the log.
	SMTP SMTPConfig `envPrefix:"SMTP_"`

	Warmup     bool `env:"WARMUP"      envDefault:"true"`
	WarmupRuns int  `env:"WARMUP_RUNS" envDefault:"3"`
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"     envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// LoadConfig reads the process environment. Values from dotenv files fill in
// variables the environment does not set; missing files are skipped.
func LoadConfig(dotenvFiles ...string) (Config, error) {
	environment, err := mergedEnvironment(dotenvFiles)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergedEnvironment(dotenvFiles []string) (map[string]string, error) {
	environment := env.ToMap(os.Environ())

	for _, file := range dotenvFiles {
		values, err := godotenv.Read(file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		for k, v := range values {
			if _, set := environment[k]; !set {
				environment[k] = v
			}
		}
	}
	return environment, nil
}

// Validate rejects combinations the parser cannot catch on its own.
func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DatabaseFile) == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for the sqlite driver"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not one of sqlite, postgres", c.DatabaseDriver))
	}

	if c.WorkerID > idx.MaxWorkerID {
		errs = append(errs, fmt.Errorf("WORKER_ID %d exceeds %d", c.WorkerID, idx.MaxWorkerID))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.KDFTime == 0 || c.KDFMemoryKiB == 0 || c.KDFThreads == 0 {
		errs = append(errs, errors.New("KDF_TIME, KDF_MEMORY_KIB and KDF_THREADS must be positive"))
	}

	for name, d := range map[string]time.Duration{
		"SESSION_TTL":             c.SessionTTL,
		"VERIFICATION_TTL":        c.VerificationTTL,
		"WRITE_FIRST_RETRY_DELAY": c.WriteFirstRetryDelay,
		"WRITE_RETRY_INTERVAL":    c.WriteRetryInterval,
		"SHUTDOWN_GRACE_PERIOD":   c.ShutdownGracePeriod,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.SMTP.Host != "" && c.SMTP.From == "" {
		errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
	}

	return errors.Join(errs...)
}
