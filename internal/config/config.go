package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	KeyringMemory  = "memory"
	KeyringStorage = "storage"
)

type Config struct {
	Env            string   `yaml:"env" env:"ENV" env-default:"local" env-description:"Environment" env-choices:"local,dev,prod"`
	ApiPort        int      `yaml:"api_port" env:"API_PORT" env-default:"8080"`
	ApiHost        string   `yaml:"api_host" env:"API_HOST" env-default:"localhost"`
	InitialBalance string   `yaml:"initial_balance" env:"INITIAL_BALANCE" env-default:"0"`
	HTTP           HTTP     `yaml:"http"`
	Storage        Storage  `yaml:"storage"`
	Postgres       Postgres `yaml:"postgres"`
	JWT            JWT      `yaml:"jwt"`
	Chain          Chain    `yaml:"chain"`
	Keyring        Keyring  `yaml:"keyring"`
	NATS           NATS     `yaml:"nats"`
}

type HTTP struct {
	ReadTimeout    time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"5s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres" env-choices:"memory,postgres"`
}

type Postgres struct {
	Host string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"POSTGRES_PORT" env-default:"5433"`
	User string `yaml:"user" env:"POSTGRES_USER" env-default:"test"`
	Pass string `yaml:"pass" env:"POSTGRES_PASS" env-default:"12345"`
	Db   string `yaml:"db" env:"POSTGRES_DB" env-default:"test_db"`
}

func (p Postgres) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Pass, p.Host, p.Port, p.Db)
}

type JWT struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	TTL    time.Duration `yaml:"ttl" env:"JWT_TTL" env-default:"24h"`
}

type Chain struct {
	Enabled     bool          `yaml:"enabled" env:"CHAIN_ENABLED" env-default:"false"`
	Endpoint    string        `yaml:"endpoint" env:"CHAIN_ENDPOINT" env-default:"https://testnet.solvy.chain/endpoint"`
	ChainID     int           `yaml:"chain_id" env:"CHAIN_ID" env-default:"3"`
	APIKey      string        `yaml:"api_key" env:"CHAIN_API_KEY"`
	MaxAttempts int           `yaml:"max_attempts" env-default:"3"`
	BaseDelay   time.Duration `yaml:"base_delay" env-default:"2s"`
}

type Keyring struct {
	Driver     string `yaml:"driver" env:"KEYRING_DRIVER" env-default:"memory" env-choices:"memory,storage"`
	Passphrase string `yaml:"passphrase" env:"KEYRING_PASSPHRASE"`
}

type NATS struct {
	URL string `yaml:"url" env:"NATS_URL"`
}

func MustLoad() *Config {
	path := fetchConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file does not exist: " + path)
	}

	cfg, err := Load(path)
	if err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return cfg
}

// Load reads the YAML file at path, then applies environment overrides. A .env file in the
// working directory, if any, is loaded into the environment first without overriding it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	if cfg.Keyring.Driver == KeyringStorage && cfg.Keyring.Passphrase == "" {
		return nil, fmt.Errorf("keyring.passphrase is required for the %q keyring driver", KeyringStorage)
	}

	return &cfg, nil
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
