package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	localSecret = "local-session-secret"
)

type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"local" env-description:"Environment" env-choices:"local,dev,prod"`
	ApiPort   int       `yaml:"api_port" env:"API_PORT" env-default:"8080"`
	ApiHost   string    `yaml:"api_host" env:"API_HOST" env-default:"localhost"`
	Storage   string    `yaml:"storage" env:"STORAGE" env-default:"mongo" env-description:"Storage backend" env-choices:"mongo,postgres,memory"`
	Mongo     Mongo     `yaml:"mongo" env-prefix:"MONGO_"`
	Postgres  Postgres  `yaml:"postgres" env-prefix:"POSTGRES_"`
	Session   Session   `yaml:"session" env-prefix:"SESSION_"`
	RateLimit RateLimit `yaml:"rate_limit" env-prefix:"RATE_LIMIT_"`
}

type Mongo struct {
	URI          string `yaml:"uri" env:"URI"`
	Host         string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port         string `yaml:"port" env:"PORT" env-default:"27017"`
	User         string `yaml:"user" env:"USER"`
	Pass         string `yaml:"pass" env:"PASS"`
	Db           string `yaml:"db" env:"DB" env-default:"barter"`
	Transactions bool   `yaml:"transactions" env:"TRANSACTIONS" env-default:"false"`
}

// ConnString returns URI when set, otherwise builds one from the parts.
func (m Mongo) ConnString() string {
	if m.URI != "" {
		return m.URI
	}

	u := url.URL{Scheme: "mongodb", Host: m.Host + ":" + m.Port}
	if m.User != "" {
		u.User = url.UserPassword(m.User, m.Pass)
	}
	return u.String()
}

type Postgres struct {
	Host string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"PORT" env-default:"5432"`
	User string `yaml:"user" env:"USER" env-default:"barter"`
	Pass string `yaml:"pass" env:"PASS" env-default:"barter"`
	Db   string `yaml:"db" env:"DB" env-default:"barter"`
}

func (p Postgres) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.PathEscape(p.User),
		url.PathEscape(p.Pass),
		p.Host,
		p.Port,
		p.Db,
	)
}

type Session struct {
	Secret     string        `yaml:"secret" env:"SECRET"`
	TTL        time.Duration `yaml:"ttl" env:"TTL" env-default:"24h"`
	CookieName string        `yaml:"cookie_name" env:"COOKIE_NAME" env-default:"session"`
	Secure     bool          `yaml:"secure" env:"SECURE" env-default:"false"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RPS" env-default:"1"`
	Burst int     `yaml:"burst" env:"BURST" env-default:"5"`
}

func MustLoad() *Config {
	return MustLoadPath(fetchConfigPath())
}

func MustLoadPath(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return cfg
}

// Load reads the YAML file at path, or only the environment when path is
// empty. A .env file in the working directory is applied first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
	} else {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}

	switch c.Storage {
	case StorageMongo, StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.Session.Secret == "" {
		if c.Env != EnvLocal {
			return errors.New("session secret is required outside local env")
		}
		c.Session.Secret = localSecret
	}

	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit rps and burst must be positive")
	}

	return nil
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
