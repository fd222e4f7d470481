// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек бота
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	Telegram                `yaml:"telegram"`
	RatesProvider           `yaml:"rates_provider"`
	Penalty                 `yaml:"penalty"`
	HTTPServer              `yaml:"http_server"`
}

// Telegram структура для настройки подключения к Bot API и параметров канала
type Telegram struct {
	Token       string        `yaml:"token" env:"BOT_TOKEN"`
	APIEndpoint string        `yaml:"api_endpoint" env-default:"https://api.telegram.org"`
	ChannelID   int64         `yaml:"channel_id" env:"CHANNEL_ID"`
	ChannelLink string        `yaml:"channel_link"`
	AdminIDs    []int64       `yaml:"admin_ids"`
	PollTimeout time.Duration `yaml:"poll_timeout" env-default:"30s"`
	SendTimeout time.Duration `yaml:"send_timeout" env-default:"10s"`
	SendRate    float64       `yaml:"send_rate" env-default:"25"`
	SendBurst   int           `yaml:"send_burst" env-default:"5"`
}

// RatesProvider структура для настройки источника таблицы ставок
type RatesProvider struct {
	CSVURL       string        `yaml:"csv_url" env:"RATES_CSV_URL"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env-default:"15s"`
}

// Penalty константы формулы расчета неустойки по 214-ФЗ
type Penalty struct {
	DivisorIndividual    float64 `yaml:"divisor_individual" env-default:"150"`
	DivisorLegalEntity   float64 `yaml:"divisor_legal_entity" env-default:"300"`
	DivisorUniqueObject  float64 `yaml:"divisor_unique_object" env-default:"300"`
	UniqueObjectMaxShare float64 `yaml:"unique_object_max_share" env-default:"0.05"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// HTTPServer структура для настройки служебного http-сервера (health, stats, metrics)
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH, при ошибке завершает процесс
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// IsAdmin сообщает, входит ли пользователь в список администраторов бота
func (t Telegram) IsAdmin(userID int64) bool {
	for _, id := range t.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
