package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
		Mode string
	}
	Log struct {
		Level string
	}
	Database struct {
		Driver string
		Path   string
		DSN    string
	}
	Session struct {
		Secret     string
		CookieName string
		Lifetime   time.Duration
		Secure     bool
	}
	Auth struct {
		BcryptCost int
	}
	HTTP struct {
		QueryTimeout time.Duration
	}
	Backup struct {
		Bucket    string
		KeyPrefix string
		Interval  time.Duration
		Retain    int
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ModeRelease = "release"

	minSecretLength = 32
)

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// .env never overrides variables already present in the environment
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PETITION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/petition.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookiename", "petition_session")
	v.SetDefault("session.lifetime", 5*365*24*time.Hour)
	v.SetDefault("session.secure", false)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("http.querytimeout", 5*time.Second)
	v.SetDefault("backup.bucket", "")
	v.SetDefault("backup.keyprefix", "petition-snapshots")
	v.SetDefault("backup.interval", 24*time.Hour)
	v.SetDefault("backup.retain", 7)
	v.SetDefault("backup.region", "us-east-1")
	v.SetDefault("backup.endpoint", "")
	v.SetDefault("aws.profile", "")
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Server.Mode == ModeRelease {
		cfg.Session.Secure = true
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem that would prevent startup.
func (c Config) Validate() error {
	if len(strings.TrimSpace(c.Session.Secret)) < minSecretLength {
		return fmt.Errorf("session secret must be at least %d bytes", minSecretLength)
	}
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session lifetime must be positive")
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.HTTP.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}
	if c.Backup.Bucket != "" && c.Backup.Interval <= 0 {
		return fmt.Errorf("backup interval must be positive")
	}
	return nil
}
