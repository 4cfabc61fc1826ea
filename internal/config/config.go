package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	HTTP     HTTP     `toml:"http"`
	Storage  Storage  `toml:"storage"`
	Postgres Postgres `toml:"postgres"`
	Cache    Cache    `toml:"cache"`
	Redis    Redis    `toml:"redis"`
	Kafka    Kafka    `toml:"kafka"`
	Media    Media    `toml:"media"`
	Log      Log      `toml:"log"`
	Blog     Blog     `toml:"blog"`
}

type HTTP struct {
	Addr         string `toml:"addr"`
	SecureCookie bool   `toml:"secure_cookie"`
}

type Storage struct {
	Type string `toml:"type"`
}

type Postgres struct {
	URL         string `toml:"url"`
	User        string `toml:"user"`
	Password    string `toml:"password"`
	Host        string `toml:"host"`
	Port        string `toml:"port"`
	DBName      string `toml:"dbname"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

type Cache struct {
	Type string        `toml:"type"`
	TTL  time.Duration `toml:"ttl"`
}

type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

type Kafka struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type Media struct {
	Dir string `toml:"dir"`
}

type Log struct {
	Level string `toml:"level"`
}

type Blog struct {
	PageSize int `toml:"page_size"`
}

// Default возвращает конфигурацию для локального запуска без внешних сервисов.
func Default() Config {
	return Config{
		HTTP:     HTTP{Addr: ":8080"},
		Storage:  Storage{Type: StorageInMemory},
		Postgres: Postgres{User: "postgres", Host: "localhost", Port: "5432", DBName: "yatube", AutoMigrate: true},
		Cache:    Cache{Type: CacheMemory, TTL: 20 * time.Second},
		Redis:    Redis{Addr: "localhost:6379"},
		Kafka:    Kafka{Topic: "yatube-access-log"},
		Media:    Media{Dir: "media"},
		Log:      Log{Level: "info"},
		Blog:     Blog{PageSize: 10},
	}
}

// Load читает TOML-файл поверх значений по умолчанию и применяет переменные окружения.
// Пустой path означает только значения по умолчанию и окружение.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := getenv("POSTGRES_PORT"); v != "" {
		c.Postgres.Port = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if !strings.Contains(c.HTTP.Addr, ":") {
		errs = append(errs, fmt.Errorf("http.addr %q: use ':' before port number, e.g. ':8080'", c.HTTP.Addr))
	}
	switch c.Storage.Type {
	case StorageInMemory:
	case StoragePostgres:
		if !c.Postgres.IsValid() {
			errs = append(errs, fmt.Errorf("invalid postgres config: %s", c.Postgres))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}
	switch c.Cache.Type {
	case CacheMemory:
	case CacheRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.type %q", c.Cache.Type))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	if c.Blog.PageSize <= 0 {
		errs = append(errs, errors.New("blog.page_size must be positive"))
	}
	if c.Media.Dir == "" {
		errs = append(errs, errors.New("media.dir is required"))
	}
	return errors.Join(errs...)
}

// DSN возвращает строку подключения; url из конфигурации имеет приоритет.
func (c Postgres) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.DBName)
}

func (c Postgres) IsValid() bool {
	if c.URL != "" {
		return true
	}
	// TODO: validate host and port format, not just presence.
	return c.User != "" && c.Password != "" && c.Host != "" && c.Port != "" && c.DBName != ""
}

func (c Postgres) String() string {
	c.Password = strings.Repeat("*", len([]rune(c.Password)))
	if c.URL != "" {
		c.URL = "<set>"
	}
	return fmt.Sprintf("%#v", c)
}
