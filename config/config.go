package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-coordination/pkg/configparser"
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Server   ServerConfig
		Database DatabaseConfig
		RabbitMQ RabbitMQConfig
		Redis    RedisConfig
		Kafka    KafkaConfig
		Dispatch DispatchConfig
		SOS      SOSConfig
		Auth     Auth
		Log      LogConfig
	}

	ServerConfig struct {
		Host string `env:"SERVER_HOST" default:"0.0.0.0"`
		Port string `env:"SERVER_PORT" default:"3000"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"ride_user"`
		Password string `env:"DATABASE_PASSWORD" default:"ride_pass"`
		Database string `env:"DATABASE_DATABASE" default:"ride_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`         // максимум открытых соединений
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`          // минимум соединений в пуле
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"` // макс. "время жизни" соединения
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`  // макс. "время простоя" соединения
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	RedisConfig struct {
		Addr     string `env:"REDIS_ADDR" default:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" default:""`
		DB       int    `env:"REDIS_DB" default:"0"`
	}

	KafkaConfig struct {
		Brokers string `env:"KAFKA_BROKERS" default:"localhost:9092"` // comma-separated
		Topic   string `env:"KAFKA_LOCATION_TOPIC" default:"driver-locations"`
	}

	DispatchConfig struct {
		RadiusMeters   float64 `env:"DISPATCH_RADIUS_METERS" default:"5000"` // радиус поиска водителей
		CandidateLimit int     `env:"DISPATCH_CANDIDATE_LIMIT" default:"10"` // максимум кандидатов на поездку
	}

	SOSConfig struct {
		DedupeWindow time.Duration `env:"SOS_DEDUPE_WINDOW" default:"30s"` // повторные нажатия в этом окне не создают новый инцидент
	}

	Auth struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	LogConfig struct {
		Level       string `env:"LOG_LEVEL" default:"DEBUG"`
		ServiceName string `env:"LOG_SERVICE_NAME" default:"ride-coordination"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() (maxConns, minConns int32, maxLifetime, maxIdle time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// BrokerList splits the comma-separated broker string.
func (c KafkaConfig) BrokerList() []string {
	parts := strings.Split(c.Brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	return cfg, nil
}
